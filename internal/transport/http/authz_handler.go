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

	"github.com/notarium/notarium/internal/audit"
	"github.com/notarium/notarium/internal/authz"
)

// CheckRequest asks whether the current principal holds a permission on a
// resource.
type CheckRequest struct {
	Permission   string `json:"permission" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required,oneof=organization workspace project document"`
	ResourceID   string `json:"resource_id" validate:"required"`
}

// Check answers an authorization question for the current principal
// @Summary Check a permission
// @Description Reports whether the caller holds a permission on a resource
// @Tags Authz
// @Accept json
// @Produce json
// @Param request body CheckRequest true "Authorization question"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /authz/check [post]
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	userID := GetUserID(r.Context())
	allowed := h.authzService.Check(r.Context(), userID,
		authz.Permission(req.Permission), authz.ScopeType(req.ResourceType), req.ResourceID)

	if !allowed {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:         audit.TypeAccessDenied,
			ActorID:      userID,
			ResourceType: req.ResourceType,
			ResourceID:   req.ResourceID,
			Outcome:      "denied",
			IPAddress:    getIPAddress(r),
			Metadata: map[string]any{
				"permission": req.Permission,
			},
		})
	}

	respondJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

// Explain answers an authorization question with the contributing rule
// @Summary Explain a permission decision
// @Description Returns the decision together with the rule that produced it
// @Tags Authz
// @Accept json
// @Produce json
// @Param request body CheckRequest true "Authorization question"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /authz/explain [post]
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	userID := GetUserID(r.Context())
	decision, err := h.authzService.Explain(r.Context(), userID,
		authz.Permission(req.Permission), authz.ScopeType(req.ResourceType), req.ResourceID)
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrResourceNotFound):
			respondError(w, http.StatusNotFound, "resource not found")
		case errors.Is(err, authz.ErrInvalidScope), errors.Is(err, authz.ErrInvalidPermission):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "authorization check failed")
		}
		return
	}

	resp := map[string]any{
		"allowed": decision.Allowed,
		"rule":    string(decision.Rule),
	}
	if decision.Rule == authz.RuleRole {
		resp["role"] = decision.Role
		resp["scope_type"] = string(decision.Scope.Type)
		resp["scope_id"] = decision.Scope.ID
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListMyBindings lists the caller's effective bindings at a scope level
// @Summary List own role bindings
// @Tags Authz
// @Produce json
// @Param scope_type query string true "Scope level"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /authz/bindings [get]
func (h *Handler) ListMyBindings(w http.ResponseWriter, r *http.Request) {
	scopeType := authz.ScopeType(r.URL.Query().Get("scope_type"))
	if !scopeType.IsValid() {
		respondError(w, http.StatusBadRequest, "scope_type query parameter is required")
		return
	}

	userID := GetUserID(r.Context())
	bindings, err := h.authzService.BindingsForUser(r.Context(), userID, scopeType)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list bindings")
		return
	}

	out := make([]map[string]any, 0, len(bindings))
	for _, b := range bindings {
		entry := map[string]any{
			"role":       b.Role,
			"scope_type": string(b.ScopeType),
			"scope_id":   b.ScopeID,
			"created_at": b.CreatedAt,
		}
		if b.ExpiresAt != nil {
			entry["expires_at"] = b.ExpiresAt
		}
		out = append(out, entry)
	}
	respondJSON(w, http.StatusOK, map[string]any{"bindings": out})
}

// SetOverrideRequest sets a per-resource, per-permission allow or deny for a
// user.
type SetOverrideRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required,oneof=organization workspace project document"`
	ResourceID   string `json:"resource_id" validate:"required"`
	Permission   string `json:"permission" validate:"required"`
	Allowed      *bool  `json:"allowed" validate:"required"`
}

// SetOverride records a permission override
// @Summary Set a permission override
// @Description Grants or denies a single permission on a single resource for a user
// @Tags Authz
// @Accept json
// @Produce json
// @Param request body SetOverrideRequest true "Override"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /authz/overrides [post]
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req SetOverrideRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	actorID := GetUserID(r.Context())
	if !h.authzService.Check(r.Context(), actorID, authz.PermManagePermissions,
		authz.ScopeType(req.ResourceType), req.ResourceID) {
		respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	override, err := h.authzService.SetOverride(r.Context(), authz.OverrideRequest{
		UserID:       req.UserID,
		ResourceType: authz.ScopeType(req.ResourceType),
		ResourceID:   req.ResourceID,
		Permission:   authz.Permission(req.Permission),
		Allowed:      *req.Allowed,
		GrantedBy:    actorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrInvalidScope), errors.Is(err, authz.ErrInvalidPermission):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to set override")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":            override.ID,
		"user_id":       override.UserID,
		"resource_type": string(override.ResourceType),
		"resource_id":   override.ResourceID,
		"permission":    string(override.Permission),
		"allowed":       override.Allowed,
	})
}
