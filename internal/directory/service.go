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

package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/notarium/notarium/internal/audit"
	"github.com/notarium/notarium/internal/authz"
)

// DefaultWorkspaceName is the workspace created alongside every new
// organization.
const DefaultWorkspaceName = "General"

// Service owns the resource-lifecycle workflows layered above the
// authorization resolver: creating organizations, workspaces, projects and
// documents, and managing workspace membership. Creation workflows grant the
// creator the owner role at the new scope; the resolver itself stays
// lifecycle-agnostic.
type Service struct {
	repo  Repository
	authz *authz.Service
	audit audit.Logger
}

// NewService creates a new directory service.
func NewService(repo Repository, authzService *authz.Service, auditLogger audit.Logger) *Service {
	return &Service{
		repo:  repo,
		authz: authzService,
		audit: auditLogger,
	}
}

// CreateOrganization creates an organization plus its default workspace and
// grants the creator the owner role at both scopes. The two bindings are
// independent: revoking one leaves the other usable by the precedence walk.
func (s *Service) CreateOrganization(ctx context.Context, actorID, name string) (*Organization, *Workspace, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("organization name is required")
	}

	now := time.Now()
	org := &Organization{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      name,
		OwnerID:   actorID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateOrganization(ctx, org); err != nil {
		return nil, nil, fmt.Errorf("failed to create organization: %w", err)
	}

	ws := &Workspace{
		ID:        uuid.Must(uuid.NewV7()).String(),
		OrgID:     org.ID,
		Name:      DefaultWorkspaceName,
		OwnerID:   actorID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateWorkspace(ctx, ws); err != nil {
		return nil, nil, fmt.Errorf("failed to create default workspace: %w", err)
	}

	if _, err := s.authz.Grant(ctx, authz.GrantRequest{
		UserID:    actorID,
		Role:      authz.RoleOwner,
		ScopeType: authz.ScopeOrganization,
		ScopeID:   org.ID,
		GrantedBy: actorID,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to grant organization owner: %w", err)
	}
	if _, err := s.authz.Grant(ctx, authz.GrantRequest{
		UserID:    actorID,
		Role:      authz.RoleOwner,
		ScopeType: authz.ScopeWorkspace,
		ScopeID:   ws.ID,
		GrantedBy: actorID,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to grant workspace owner: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:    audit.TypeOrgCreated,
		ActorID: actorID,
		OrgID:   org.ID,
		Outcome: "success",
		Metadata: map[string]any{
			"name": org.Name,
		},
	})

	return org, ws, nil
}

// CreateWorkspace creates a workspace in an organization. The actor needs
// write on the organization; the creator becomes the workspace owner,
// regardless of their organization-level role.
func (s *Service) CreateWorkspace(ctx context.Context, actorID, orgID, name string) (*Workspace, error) {
	if name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}
	if _, err := s.repo.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	if !s.authz.Check(ctx, actorID, authz.PermWrite, authz.ScopeOrganization, orgID) {
		return nil, authz.ErrAccessDenied
	}

	now := time.Now()
	ws := &Workspace{
		ID:        uuid.Must(uuid.NewV7()).String(),
		OrgID:     orgID,
		Name:      name,
		OwnerID:   actorID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateWorkspace(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	if _, err := s.authz.Grant(ctx, authz.GrantRequest{
		UserID:    actorID,
		Role:      authz.RoleOwner,
		ScopeType: authz.ScopeWorkspace,
		ScopeID:   ws.ID,
		GrantedBy: actorID,
	}); err != nil {
		return nil, fmt.Errorf("failed to grant workspace owner: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:        audit.TypeWorkspaceCreated,
		ActorID:     actorID,
		OrgID:       orgID,
		WorkspaceID: ws.ID,
		Outcome:     "success",
		Metadata: map[string]any{
			"name": ws.Name,
		},
	})

	return ws, nil
}

// DeleteWorkspace deactivates a workspace. Only a workspace owner passes the
// admin permission check; superusers pass it by the superuser bypass.
func (s *Service) DeleteWorkspace(ctx context.Context, actorID, workspaceID string) error {
	ws, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !s.authz.Check(ctx, actorID, authz.PermAdmin, authz.ScopeWorkspace, workspaceID) {
		return authz.ErrAccessDenied
	}
	if err := s.repo.DeactivateWorkspace(ctx, workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:        audit.TypeWorkspaceDeleted,
		ActorID:     actorID,
		OrgID:       ws.OrgID,
		WorkspaceID: workspaceID,
		Outcome:     "success",
	})
	return nil
}

// CreateProject creates a project in a workspace. Requires write on the
// workspace.
func (s *Service) CreateProject(ctx context.Context, actorID, workspaceID, name string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if _, err := s.repo.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	if !s.authz.Check(ctx, actorID, authz.PermWrite, authz.ScopeWorkspace, workspaceID) {
		return nil, authz.ErrAccessDenied
	}

	now := time.Now()
	p := &Project{
		ID:          uuid.Must(uuid.NewV7()).String(),
		WorkspaceID: workspaceID,
		Name:        name,
		OwnerID:     actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:        audit.TypeProjectCreated,
		ActorID:     actorID,
		WorkspaceID: workspaceID,
		Outcome:     "success",
		Metadata: map[string]any{
			"project_id": p.ID,
			"name":       p.Name,
		},
	})

	return p, nil
}

// CreateDocument creates a document in a workspace, optionally inside a
// project of that workspace. Requires write on the workspace. The creator is
// recorded as the document owner, which feeds the ownership bypass.
func (s *Service) CreateDocument(ctx context.Context, actorID, workspaceID string, projectID *string, title, visibility string) (*Document, error) {
	if title == "" {
		return nil, fmt.Errorf("document title is required")
	}
	if visibility == "" {
		visibility = VisibilityWorkspace
	}
	switch visibility {
	case VisibilityPrivate, VisibilityWorkspace, VisibilityPublic:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidVisibility, visibility)
	}

	if _, err := s.repo.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	if projectID != nil && *projectID != "" {
		p, err := s.repo.GetProject(ctx, *projectID)
		if err != nil {
			return nil, err
		}
		if p.WorkspaceID != workspaceID {
			return nil, fmt.Errorf("project %s does not belong to workspace %s", *projectID, workspaceID)
		}
	} else {
		projectID = nil
	}

	if !s.authz.Check(ctx, actorID, authz.PermWrite, authz.ScopeWorkspace, workspaceID) {
		return nil, authz.ErrAccessDenied
	}

	now := time.Now()
	doc := &Document{
		ID:          uuid.Must(uuid.NewV7()).String(),
		WorkspaceID: workspaceID,
		ProjectID:   projectID,
		OwnerID:     actorID,
		Title:       title,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:         audit.TypeDocumentCreated,
		ActorID:      actorID,
		WorkspaceID:  workspaceID,
		ResourceType: string(authz.ScopeDocument),
		ResourceID:   doc.ID,
		Outcome:      "success",
	})

	return doc, nil
}

// GetDocument fetches a document the actor can read.
func (s *Service) GetDocument(ctx context.Context, actorID, documentID string) (*Document, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanRead(ctx, actorID, docRef(doc)) {
		return nil, authz.ErrAccessDenied
	}
	return doc, nil
}

// UpdateDocument updates a document's title and visibility. Requires write
// access (or ownership).
func (s *Service) UpdateDocument(ctx context.Context, actorID, documentID, title, visibility string) (*Document, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanWrite(ctx, actorID, docRef(doc)) {
		return nil, authz.ErrAccessDenied
	}

	if title != "" {
		doc.Title = title
	}
	if visibility != "" {
		switch visibility {
		case VisibilityPrivate, VisibilityWorkspace, VisibilityPublic:
			doc.Visibility = visibility
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidVisibility, visibility)
		}
	}
	doc.UpdatedAt = time.Now()

	if err := s.repo.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:         audit.TypeDocumentUpdated,
		ActorID:      actorID,
		WorkspaceID:  doc.WorkspaceID,
		ResourceType: string(authz.ScopeDocument),
		ResourceID:   doc.ID,
		Outcome:      "success",
	})

	return doc, nil
}

// DeleteDocument soft-deletes a document. Requires delete access (or
// ownership).
func (s *Service) DeleteDocument(ctx context.Context, actorID, documentID string) error {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if !s.authz.CanDelete(ctx, actorID, docRef(doc)) {
		return authz.ErrAccessDenied
	}
	if err := s.repo.SoftDeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:         audit.TypeDocumentDeleted,
		ActorID:      actorID,
		WorkspaceID:  doc.WorkspaceID,
		ResourceType: string(authz.ScopeDocument),
		ResourceID:   doc.ID,
		Outcome:      "success",
	})
	return nil
}

// AddMember grants a role to a user on a workspace. The actor needs
// manage_members. Adding a user who already holds a role replaces the role
// in place; it never stacks a second binding.
func (s *Service) AddMember(ctx context.Context, actorID, workspaceID, userID, role string, expiresAt *time.Time) (*authz.RoleBinding, error) {
	if _, err := s.repo.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	if !s.authz.Check(ctx, actorID, authz.PermManageMembers, authz.ScopeWorkspace, workspaceID) {
		return nil, authz.ErrAccessDenied
	}

	binding, err := s.authz.Grant(ctx, authz.GrantRequest{
		UserID:    userID,
		Role:      role,
		ScopeType: authz.ScopeWorkspace,
		ScopeID:   workspaceID,
		GrantedBy: actorID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.Event{
		Type:         audit.TypeMemberAdded,
		ActorID:      actorID,
		TargetUserID: userID,
		WorkspaceID:  workspaceID,
		NewRole:      role,
		Outcome:      "success",
	})

	return binding, nil
}

// RemoveMember revokes a user's role on a workspace. The actor needs
// manage_members. Removing the last remaining owner is refused so the
// workspace can never become unmanageable.
func (s *Service) RemoveMember(ctx context.Context, actorID, workspaceID, userID string) (bool, error) {
	if _, err := s.repo.GetWorkspace(ctx, workspaceID); err != nil {
		return false, err
	}
	if !s.authz.Check(ctx, actorID, authz.PermManageMembers, authz.ScopeWorkspace, workspaceID) {
		return false, authz.ErrAccessDenied
	}

	role, err := s.authz.RoleAt(ctx, userID, authz.ScopeWorkspace, workspaceID)
	if err != nil {
		return false, err
	}
	if role == authz.RoleOwner {
		bindings, err := s.authz.BindingsAt(ctx, authz.ScopeWorkspace, workspaceID)
		if err != nil {
			return false, err
		}
		owners := 0
		for _, b := range bindings {
			if b.Role == authz.RoleOwner {
				owners++
			}
		}
		if owners <= 1 {
			return false, ErrLastOwner
		}
	}

	revoked, err := s.authz.Revoke(ctx, userID, authz.ScopeWorkspace, workspaceID, actorID)
	if err != nil {
		return false, err
	}
	if revoked {
		s.audit.Log(ctx, audit.Event{
			Type:         audit.TypeMemberRemoved,
			ActorID:      actorID,
			TargetUserID: userID,
			WorkspaceID:  workspaceID,
			OldRole:      role,
			Outcome:      "success",
		})
	}
	return revoked, nil
}

// ListMembers returns the workspace's effective members and roles. Requires
// read on the workspace.
func (s *Service) ListMembers(ctx context.Context, actorID, workspaceID string) ([]*Member, error) {
	if _, err := s.repo.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	if !s.authz.Check(ctx, actorID, authz.PermRead, authz.ScopeWorkspace, workspaceID) {
		return nil, authz.ErrAccessDenied
	}

	bindings, err := s.authz.BindingsAt(ctx, authz.ScopeWorkspace, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	members := make([]*Member, 0, len(bindings))
	for _, b := range bindings {
		members = append(members, &Member{
			UserID:    b.UserID,
			Role:      b.Role,
			GrantedBy: b.GrantedBy,
			CreatedAt: b.CreatedAt,
			ExpiresAt: b.ExpiresAt,
		})
	}
	return members, nil
}

// AccessibleWorkspaces returns the ids of workspaces the user can see in an
// organization: all of them when the user holds an organization-level role,
// otherwise only those with an explicit effective workspace binding.
func (s *Service) AccessibleWorkspaces(ctx context.Context, userID, orgID string) ([]string, error) {
	orgRole, err := s.authz.RoleAt(ctx, userID, authz.ScopeOrganization, orgID)
	if err != nil {
		return nil, err
	}

	if orgRole != "" {
		workspaces, err := s.repo.ListWorkspaces(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to list workspaces: %w", err)
		}
		ids := make([]string, 0, len(workspaces))
		for _, ws := range workspaces {
			ids = append(ids, ws.ID)
		}
		return ids, nil
	}

	bindings, err := s.authz.BindingsForUser(ctx, userID, authz.ScopeWorkspace)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, b := range bindings {
		ws, err := s.repo.GetWorkspace(ctx, b.ScopeID)
		if err != nil {
			continue // binding to a deleted workspace
		}
		if ws.OrgID == orgID {
			ids = append(ids, ws.ID)
		}
	}
	return ids, nil
}

// AccessibleDocuments returns the ids of documents the user can see in a
// workspace. Without read access on the workspace the list is empty, not an
// error. Other users' private documents are hidden unless includePrivate.
func (s *Service) AccessibleDocuments(ctx context.Context, userID, workspaceID string, includePrivate bool) ([]string, error) {
	if !s.authz.Check(ctx, userID, authz.PermRead, authz.ScopeWorkspace, workspaceID) {
		return []string{}, nil
	}

	docs, err := s.repo.ListDocuments(ctx, workspaceID, userID, includePrivate)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func docRef(doc *Document) *authz.DocumentRef {
	return &authz.DocumentRef{
		ID:          doc.ID,
		WorkspaceID: doc.WorkspaceID,
		ProjectID:   doc.ProjectID,
		OwnerID:     doc.OwnerID,
	}
}
