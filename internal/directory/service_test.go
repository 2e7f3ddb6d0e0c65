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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notarium/notarium/internal/audit"
	"github.com/notarium/notarium/internal/authz"
)

// memRepo is an in-memory Repository that also serves the scope graph, so
// authorization resolves against the same rows the service mutates.
type memRepo struct {
	orgs       map[string]*Organization
	workspaces map[string]*Workspace
	projects   map[string]*Project
	documents  map[string]*Document
}

func newMemRepo() *memRepo {
	return &memRepo{
		orgs:       make(map[string]*Organization),
		workspaces: make(map[string]*Workspace),
		projects:   make(map[string]*Project),
		documents:  make(map[string]*Document),
	}
}

func (r *memRepo) CreateOrganization(ctx context.Context, org *Organization) error {
	r.orgs[org.ID] = org
	return nil
}

func (r *memRepo) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	if org, ok := r.orgs[id]; ok && org.IsActive {
		return org, nil
	}
	return nil, ErrOrgNotFound
}

func (r *memRepo) CreateWorkspace(ctx context.Context, ws *Workspace) error {
	r.workspaces[ws.ID] = ws
	return nil
}

func (r *memRepo) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	if ws, ok := r.workspaces[id]; ok && ws.IsActive {
		return ws, nil
	}
	return nil, ErrWorkspaceNotFound
}

func (r *memRepo) ListWorkspaces(ctx context.Context, orgID string) ([]*Workspace, error) {
	var result []*Workspace
	for _, ws := range r.workspaces {
		if ws.OrgID == orgID && ws.IsActive {
			result = append(result, ws)
		}
	}
	return result, nil
}

func (r *memRepo) DeactivateWorkspace(ctx context.Context, id string) error {
	ws, ok := r.workspaces[id]
	if !ok || !ws.IsActive {
		return ErrWorkspaceNotFound
	}
	ws.IsActive = false
	return nil
}

func (r *memRepo) CreateProject(ctx context.Context, p *Project) error {
	r.projects[p.ID] = p
	return nil
}

func (r *memRepo) GetProject(ctx context.Context, id string) (*Project, error) {
	if p, ok := r.projects[id]; ok {
		return p, nil
	}
	return nil, ErrProjectNotFound
}

func (r *memRepo) CreateDocument(ctx context.Context, doc *Document) error {
	r.documents[doc.ID] = doc
	return nil
}

func (r *memRepo) GetDocument(ctx context.Context, id string) (*Document, error) {
	if doc, ok := r.documents[id]; ok && doc.DeletedAt == nil {
		return doc, nil
	}
	return nil, ErrDocumentNotFound
}

func (r *memRepo) UpdateDocument(ctx context.Context, doc *Document) error {
	if _, ok := r.documents[doc.ID]; !ok {
		return ErrDocumentNotFound
	}
	r.documents[doc.ID] = doc
	return nil
}

func (r *memRepo) SoftDeleteDocument(ctx context.Context, id string) error {
	doc, ok := r.documents[id]
	if !ok || doc.DeletedAt != nil {
		return ErrDocumentNotFound
	}
	now := time.Now()
	doc.DeletedAt = &now
	return nil
}

func (r *memRepo) ListDocuments(ctx context.Context, workspaceID, forUser string, includePrivate bool) ([]*Document, error) {
	var result []*Document
	for _, d := range r.documents {
		if d.WorkspaceID != workspaceID || d.DeletedAt != nil {
			continue
		}
		if !includePrivate && d.Visibility == VisibilityPrivate && d.OwnerID != forUser {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

// authz.DirectoryLookup

func (r *memRepo) DocumentRef(ctx context.Context, id string) (*authz.DocumentRef, error) {
	doc, err := r.GetDocument(ctx, id)
	if err != nil {
		return nil, authz.ErrResourceNotFound
	}
	return &authz.DocumentRef{ID: doc.ID, WorkspaceID: doc.WorkspaceID, ProjectID: doc.ProjectID, OwnerID: doc.OwnerID}, nil
}

func (r *memRepo) WorkspaceRef(ctx context.Context, id string) (*authz.WorkspaceRef, error) {
	ws, err := r.GetWorkspace(ctx, id)
	if err != nil {
		return nil, authz.ErrResourceNotFound
	}
	return &authz.WorkspaceRef{ID: ws.ID, OrgID: ws.OrgID, OwnerID: ws.OwnerID}, nil
}

func (r *memRepo) ProjectRef(ctx context.Context, id string) (*authz.ProjectRef, error) {
	p, err := r.GetProject(ctx, id)
	if err != nil {
		return nil, authz.ErrResourceNotFound
	}
	return &authz.ProjectRef{ID: p.ID, WorkspaceID: p.WorkspaceID}, nil
}

func (r *memRepo) OrganizationExists(ctx context.Context, id string) (bool, error) {
	_, err := r.GetOrganization(ctx, id)
	return err == nil, nil
}

// memBindings is an in-memory authz.BindingRepository.
type memBindings struct {
	bindings []*authz.RoleBinding
}

func (m *memBindings) Upsert(ctx context.Context, b *authz.RoleBinding) error {
	for _, existing := range m.bindings {
		if existing.IsActive && existing.UserID == b.UserID && existing.Scope() == b.Scope() {
			existing.Role = b.Role
			existing.GrantedBy = b.GrantedBy
			existing.ExpiresAt = b.ExpiresAt
			return nil
		}
	}
	m.bindings = append(m.bindings, b)
	return nil
}

func (m *memBindings) Deactivate(ctx context.Context, userID string, scope authz.ScopeRef) (bool, error) {
	for _, b := range m.bindings {
		if b.IsActive && b.UserID == userID && b.Scope() == scope {
			b.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (m *memBindings) RoleAt(ctx context.Context, userID string, scope authz.ScopeRef) (string, error) {
	for _, b := range m.bindings {
		if b.UserID == userID && b.Scope() == scope && b.Effective(time.Now()) {
			return b.Role, nil
		}
	}
	return "", nil
}

func (m *memBindings) ListAt(ctx context.Context, scope authz.ScopeRef) ([]*authz.RoleBinding, error) {
	var result []*authz.RoleBinding
	for _, b := range m.bindings {
		if b.Scope() == scope && b.Effective(time.Now()) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *memBindings) ListForUser(ctx context.Context, userID string, scopeType authz.ScopeType) ([]*authz.RoleBinding, error) {
	var result []*authz.RoleBinding
	for _, b := range m.bindings {
		if b.UserID == userID && b.ScopeType == scopeType && b.Effective(time.Now()) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *memBindings) DeactivateExpired(ctx context.Context) (int64, error) { return 0, nil }

// memOverrides is an in-memory authz.OverrideRepository.
type memOverrides struct {
	overrides []*authz.PermissionOverride
}

func (m *memOverrides) Set(ctx context.Context, o *authz.PermissionOverride) error {
	m.overrides = append(m.overrides, o)
	return nil
}

func (m *memOverrides) Lookup(ctx context.Context, userID string, resourceType authz.ScopeType, resourceID string, permission authz.Permission) (*authz.PermissionOverride, error) {
	for i := len(m.overrides) - 1; i >= 0; i-- {
		o := m.overrides[i]
		if o.UserID == userID && o.ResourceType == resourceType && o.ResourceID == resourceID && o.Permission == permission {
			return o, nil
		}
	}
	return nil, nil
}

type memSuperusers struct{ users map[string]bool }

func (m *memSuperusers) IsSuperuser(ctx context.Context, userID string) (bool, error) {
	return m.users[userID], nil
}

type noopAudit struct{}

func (noopAudit) Log(ctx context.Context, event audit.Event) {}

func newTestService(superusers ...string) (*Service, *memRepo) {
	repo := newMemRepo()
	su := &memSuperusers{users: make(map[string]bool)}
	for _, u := range superusers {
		su.users[u] = true
	}
	graph := authz.NewScopeGraph(repo, authz.ScopeGraphConfig{CacheTTL: time.Millisecond})
	authzSvc := authz.NewService(authz.NewCatalog(), graph, &memBindings{}, &memOverrides{}, su, noopAudit{}, nil)
	return NewService(repo, authzSvc, noopAudit{}), repo
}

// TestPurpose: Validates organization creation with its default workspace and owner grants at both scopes.
// Scope: Unit Test
// Expected: Creator can immediately create workspaces in the org and documents in the default workspace.
// Test Case ID: DIR-01
func TestDirectory_CreateOrganization(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	org, ws, err := svc.CreateOrganization(ctx, "user-founder", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
	assert.Equal(t, DefaultWorkspaceName, ws.Name)
	assert.Equal(t, org.ID, ws.OrgID)

	// Owner at org scope: can create further workspaces.
	ws2, err := svc.CreateWorkspace(ctx, "user-founder", org.ID, "Engineering")
	require.NoError(t, err)
	assert.Equal(t, "Engineering", ws2.Name)

	// Owner at workspace scope: can create documents in the default workspace.
	_, err = svc.CreateDocument(ctx, "user-founder", ws.ID, nil, "Welcome", "")
	require.NoError(t, err)
}

// TestPurpose: Validates that workspace creation requires write on the organization.
// Scope: Unit Test
// Security: Scope precedence gates resource creation
// Expected: A stranger and an org-level guest are denied; a missing org is a not-found, not a deny.
// Test Case ID: DIR-02
func TestDirectory_CreateWorkspace_Denied(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	org, _, err := svc.CreateOrganization(ctx, "user-founder", "Acme")
	require.NoError(t, err)

	_, err = svc.CreateWorkspace(ctx, "user-stranger", org.ID, "Rogue")
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	_, err = svc.CreateWorkspace(ctx, "user-founder", "org-missing", "Ghost")
	assert.ErrorIs(t, err, ErrOrgNotFound)
}

// TestPurpose: Validates that only workspace owners and superusers can delete a workspace.
// Scope: Unit Test
// Expected: Editor denied, owner succeeds, superuser succeeds via bypass.
// Test Case ID: DIR-03
func TestDirectory_DeleteWorkspace(t *testing.T) {
	svc, _ := newTestService("user-root")
	ctx := context.Background()

	org, ws, err := svc.CreateOrganization(ctx, "user-founder", "Acme")
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, "user-founder", ws.ID, "user-editor", authz.RoleEditor, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteWorkspace(ctx, "user-editor", ws.ID), authz.ErrAccessDenied)
	require.NoError(t, svc.DeleteWorkspace(ctx, "user-founder", ws.ID))

	ws2, err := svc.CreateWorkspace(ctx, "user-founder", org.ID, "Second")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteWorkspace(ctx, "user-root", ws2.ID))
}

// TestPurpose: Validates document lifecycle with the ownership bypass and visibility rules.
// Scope: Unit Test
// Expected: The author reads/updates/deletes their own document regardless of role; a viewer can read but not write; private docs are hidden from the accessible list.
// Test Case ID: DIR-04
func TestDirectory_DocumentLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, ws, err := svc.CreateOrganization(ctx, "user-founder", "Acme")
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, "user-founder", ws.ID, "user-author", authz.RoleEditor, nil)
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, "user-founder", ws.ID, "user-viewer", authz.RoleViewer, nil)
	require.NoError(t, err)

	doc, err := svc.CreateDocument(ctx, "user-author", ws.ID, nil, "Design notes", VisibilityPrivate)
	require.NoError(t, err)

	// Author: full access by ownership.
	got, err := svc.GetDocument(ctx, "user-author", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design notes", got.Title)

	_, err = svc.UpdateDocument(ctx, "user-author", doc.ID, "Design notes v2", "")
	require.NoError(t, err)

	// Viewer: read yes, write no.
	_, err = svc.GetDocument(ctx, "user-viewer", doc.ID)
	require.NoError(t, err)
	_, err = svc.UpdateDocument(ctx, "user-viewer", doc.ID, "defaced", "")
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	// Private document stays out of the viewer's accessible list.
	ids, err := svc.AccessibleDocuments(ctx, "user-viewer", ws.ID, false)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = svc.AccessibleDocuments(ctx, "user-author", ws.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, ids)

	// Delete, then the document is gone for everyone.
	require.NoError(t, svc.DeleteDocument(ctx, "user-author", doc.ID))
	_, err = svc.GetDocument(ctx, "user-author", doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

// TestPurpose: Validates invalid visibility and cross-workspace project placement rejection.
// Scope: Unit Test
// Expected: Unknown visibility is rejected; a document cannot be filed under a project of another workspace.
// Test Case ID: DIR-05
func TestDirectory_CreateDocument_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	org, ws, err := svc.CreateOrganization(ctx, "user-founder", "Acme")
	require.NoError(t, err)

	_, err = svc.CreateDocument(ctx, "user-founder", ws.ID, nil, "Doc", "invisible")
	assert.ErrorIs(t, err, ErrInvalidVisibility)

	ws2, err := svc.CreateWorkspace(ctx, "user-founder", org.ID, "Other")
	require.NoError(t, err)
	p, err := svc.CreateProject(ctx, "user-founder", ws2.ID, "Roadmap")
	require.NoError(t, err)

	_, err = svc.CreateDocument(ctx, "user-founder", ws.ID, &p.ID, "Doc", "")
	assert.Error(t, err)
}

// TestPurpose: Validates membership management: role replacement on re-add, the last-owner guard, and member listing.
// Scope: Unit Test
// Security: A workspace can never lose its last owner
// Expected: Re-adding replaces the role; removing the only owner fails with ErrLastOwner; a second owner unblocks removal.
// Test Case ID: DIR-06
func TestDirectory_Membership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, ws, err := svc.CreateOrganization(ctx, "user-founder", "Acme")
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, "user-founder", ws.ID, "user-m", authz.RoleViewer, nil)
	require.NoError(t, err)
	binding, err := svc.AddMember(ctx, "user-founder", ws.ID, "user-m", authz.RoleEditor, nil)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleEditor, binding.Role)

	members, err := svc.ListMembers(ctx, "user-founder", ws.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2) // founder + user-m

	// The founder is the only owner.
	_, err = svc.RemoveMember(ctx, "user-founder", ws.ID, "user-founder")
	assert.ErrorIs(t, err, ErrLastOwner)

	_, err = svc.AddMember(ctx, "user-founder", ws.ID, "user-second", authz.RoleOwner, nil)
	require.NoError(t, err)
	revoked, err := svc.RemoveMember(ctx, "user-founder", ws.ID, "user-founder")
	require.NoError(t, err)
	assert.True(t, revoked)

	// A viewer cannot manage members.
	_, err = svc.RemoveMember(ctx, "user-m", ws.ID, "user-second")
	assert.ErrorIs(t, err, authz.ErrAccessDenied)
}

// TestPurpose: Validates workspace visibility listing.
// Scope: Unit Test
// Expected: An org-level role sees every workspace; a workspace-level member sees only theirs; a stranger sees none.
// Test Case ID: DIR-07
func TestDirectory_AccessibleWorkspaces(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	org, ws1, err := svc.CreateOrganization(ctx, "user-founder", "Acme")
	require.NoError(t, err)
	ws2, err := svc.CreateWorkspace(ctx, "user-founder", org.ID, "Second")
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, "user-founder", ws2.ID, "user-m", authz.RoleViewer, nil)
	require.NoError(t, err)

	ids, err := svc.AccessibleWorkspaces(ctx, "user-founder", org.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ws1.ID, ws2.ID}, ids)

	ids, err = svc.AccessibleWorkspaces(ctx, "user-m", org.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ws2.ID}, ids)

	ids, err = svc.AccessibleWorkspaces(ctx, "user-stranger", org.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
