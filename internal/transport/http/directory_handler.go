// Copyright 2026 The Notarium Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/notarium/notarium/internal/authz"
	"github.com/notarium/notarium/internal/directory"
)

// respondDirectoryError maps directory and authorization errors to HTTP
// statuses. Unknown errors become opaque 500s so store details never leak.
func respondDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, directory.ErrOrgNotFound),
		errors.Is(err, directory.ErrWorkspaceNotFound),
		errors.Is(err, directory.ErrProjectNotFound),
		errors.Is(err, directory.ErrDocumentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, directory.ErrLastOwner),
		errors.Is(err, directory.ErrInvalidVisibility),
		errors.Is(err, authz.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// CreateOrgRequest represents organization creation data
type CreateOrgRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateOrganization creates an organization with its default workspace
// @Summary Create an organization
// @Description Creates an organization, its default workspace, and owner grants for the caller
// @Tags Directory
// @Accept json
// @Produce json
// @Param request body CreateOrgRequest true "Organization data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /orgs [post]
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	org, ws, err := h.directoryService.CreateOrganization(r.Context(), GetUserID(r.Context()), req.Name)
	if err != nil {
		respondDirectoryError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":   org.ID,
		"name": org.Name,
		"default_workspace": map[string]any{
			"id":   ws.ID,
			"name": ws.Name,
		},
	})
}

// CreateWorkspaceRequest represents workspace creation data
type CreateWorkspaceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateWorkspace creates a workspace in an organization
// @Summary Create a workspace
// @Tags Directory
// @Accept json
// @Produce json
// @Param orgID path string true "Organization ID"
// @Param request body CreateWorkspaceRequest true "Workspace data"
// @Success 201 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orgs/{orgID}/workspaces [post]
func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkspaceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ws, err := h.directoryService.CreateWorkspace(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "orgID"), req.Name)
	if err != nil {
		respondDirectoryError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":     ws.ID,
		"org_id": ws.OrgID,
		"name":   ws.Name,
	})
}

// ListWorkspaces lists the workspaces the caller can see in an organization
// @Summary List accessible workspaces
// @Tags Directory
// @Produce json
// @Param orgID path string true "Organization ID"
// @Success 200 {object} map[string]any
// @Router /orgs/{orgID}/workspaces [get]
func (h *Handler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	ids, err := h.directoryService.AccessibleWorkspaces(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "orgID"))
	if err != nil {
		respondDirectoryError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"workspace_ids": ids})
}

// DeleteWorkspace deactivates a workspace
// @Summary Delete a workspace
// @Tags Directory
// @Produce json
// @Param workspaceID path string true "Workspace ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /workspaces/{workspaceID} [delete]
func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	err := h.directoryService.DeleteWorkspace(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "workspaceID"))
	if err != nil {
		respondDirectoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateProjectRequest represents project creation data
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateProject creates a project in a workspace
// @Summary Create a project
// @Tags Directory
// @Accept json
// @Produce json
// @Param workspaceID path string true "Workspace ID"
// @Param request body CreateProjectRequest true "Project data"
// @Success 201 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /workspaces/{workspaceID}/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.directoryService.CreateProject(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "workspaceID"), req.Name)
	if err != nil {
		respondDirectoryError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":           p.ID,
		"workspace_id": p.WorkspaceID,
		"name":         p.Name,
	})
}

// CreateDocumentRequest represents document creation data
type CreateDocumentRequest struct {
	Title      string  `json:"title" validate:"required,max=500"`
	ProjectID  *string `json:"project_id,omitempty"`
	Visibility string  `json:"visibility,omitempty" validate:"omitempty,oneof=private workspace public"`
}

// CreateDocument creates a document in a workspace
// @Summary Create a document
// @Tags Directory
// @Accept json
// @Produce json
// @Param workspaceID path string true "Workspace ID"
// @Param request body CreateDocumentRequest true "Document data"
// @Success 201 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /workspaces/{workspaceID}/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.directoryService.CreateDocument(r.Context(), GetUserID(r.Context()),
		chi.URLParam(r, "workspaceID"), req.ProjectID, req.Title, req.Visibility)
	if err != nil {
		respondDirectoryError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, documentResponse(doc))
}

// ListDocuments lists the documents the caller can see in a workspace
// @Summary List accessible documents
// @Tags Directory
// @Produce json
// @Param workspaceID path string true "Workspace ID"
// @Success 200 {object} map[string]any
// @Router /workspaces/{workspaceID}/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	workspaceID := chi.URLParam(r, "workspaceID")

	// Workspace managers see private documents of others too.
	includePrivate := h.authzService.Check(r.Context(), userID, authz.PermManageSettings, authz.ScopeWorkspace, workspaceID)

	ids, err := h.directoryService.AccessibleDocuments(r.Context(), userID, workspaceID, includePrivate)
	if err != nil {
		respondDirectoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"document_ids": ids})
}

// GetDocument fetches a document
// @Summary Get a document
// @Tags Directory
// @Produce json
// @Param documentID path string true "Document ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /documents/{documentID} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.directoryService.GetDocument(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "documentID"))
	if err != nil {
		respondDirectoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, documentResponse(doc))
}

// UpdateDocumentRequest represents document update data
type UpdateDocumentRequest struct {
	Title      string `json:"title,omitempty" validate:"omitempty,max=500"`
	Visibility string `json:"visibility,omitempty" validate:"omitempty,oneof=private workspace public"`
}

// UpdateDocument updates a document's title and visibility
// @Summary Update a document
// @Tags Directory
// @Accept json
// @Produce json
// @Param documentID path string true "Document ID"
// @Param request body UpdateDocumentRequest true "Update data"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /documents/{documentID} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.directoryService.UpdateDocument(r.Context(), GetUserID(r.Context()),
		chi.URLParam(r, "documentID"), req.Title, req.Visibility)
	if err != nil {
		respondDirectoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, documentResponse(doc))
}

// DeleteDocument soft-deletes a document
// @Summary Delete a document
// @Tags Directory
// @Param documentID path string true "Document ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /documents/{documentID} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := h.directoryService.DeleteDocument(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "documentID"))
	if err != nil {
		respondDirectoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMemberRequest represents member addition data
type AddMemberRequest struct {
	UserID    string     `json:"user_id" validate:"required"`
	Role      string     `json:"role" validate:"required,oneof=owner admin editor viewer guest"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AddMember grants a role to a user on a workspace
// @Summary Add a workspace member
// @Description Grants a role on the workspace; re-adding an existing member replaces their role
// @Tags Members
// @Accept json
// @Produce json
// @Param workspaceID path string true "Workspace ID"
// @Param request body AddMemberRequest true "Member data"
// @Success 201 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /workspaces/{workspaceID}/members [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	binding, err := h.directoryService.AddMember(r.Context(), GetUserID(r.Context()),
		chi.URLParam(r, "workspaceID"), req.UserID, req.Role, req.ExpiresAt)
	if err != nil {
		respondDirectoryError(w, err)
		return
	}

	resp := map[string]any{
		"user_id": binding.UserID,
		"role":    binding.Role,
	}
	if binding.ExpiresAt != nil {
		resp["expires_at"] = binding.ExpiresAt
	}
	respondJSON(w, http.StatusCreated, resp)
}

// RemoveMember revokes a user's role on a workspace
// @Summary Remove a workspace member
// @Tags Members
// @Produce json
// @Param workspaceID path string true "Workspace ID"
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /workspaces/{workspaceID}/members/{userID} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	revoked, err := h.directoryService.RemoveMember(r.Context(), GetUserID(r.Context()),
		chi.URLParam(r, "workspaceID"), chi.URLParam(r, "userID"))
	if err != nil {
		respondDirectoryError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

// ListMembers returns the workspace's members and roles
// @Summary List workspace members
// @Tags Members
// @Produce json
// @Param workspaceID path string true "Workspace ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /workspaces/{workspaceID}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.directoryService.ListMembers(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "workspaceID"))
	if err != nil {
		respondDirectoryError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		entry := map[string]any{
			"user_id":    m.UserID,
			"role":       m.Role,
			"granted_by": m.GrantedBy,
			"created_at": m.CreatedAt,
		}
		if m.ExpiresAt != nil {
			entry["expires_at"] = m.ExpiresAt
		}
		out = append(out, entry)
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": out})
}

func documentResponse(doc *directory.Document) map[string]any {
	resp := map[string]any{
		"id":           doc.ID,
		"workspace_id": doc.WorkspaceID,
		"owner_id":     doc.OwnerID,
		"title":        doc.Title,
		"visibility":   doc.Visibility,
		"created_at":   doc.CreatedAt,
		"updated_at":   doc.UpdatedAt,
	}
	if doc.ProjectID != nil {
		resp["project_id"] = *doc.ProjectID
	}
	return resp
}
