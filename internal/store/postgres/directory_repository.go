package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/notarium/notarium/internal/authz"
	"github.com/notarium/notarium/internal/directory"
)

// DirectoryRepository implements directory.Repository and, through the *Ref
// methods, authz.DirectoryLookup, so the authorization engine resolves scope
// chains from the same rows the directory service mutates.
type DirectoryRepository struct {
	db *DB
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// CreateOrganization inserts a new organization
func (r *DirectoryRepository) CreateOrganization(ctx context.Context, org *directory.Organization) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, owner_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.OwnerID, org.IsActive, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetOrganization retrieves an active organization by ID
func (r *DirectoryRepository) GetOrganization(ctx context.Context, id string) (*directory.Organization, error) {
	var org directory.Organization
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, is_active, created_at, updated_at
		FROM organizations
		WHERE id = $1 AND is_active
	`, id).Scan(&org.ID, &org.Name, &org.OwnerID, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// CreateWorkspace inserts a new workspace
func (r *DirectoryRepository) CreateWorkspace(ctx context.Context, ws *directory.Workspace) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO workspaces (id, org_id, name, owner_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ws.ID, ws.OrgID, ws.Name, ws.OwnerID, ws.IsActive, ws.CreatedAt, ws.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetWorkspace retrieves an active workspace by ID
func (r *DirectoryRepository) GetWorkspace(ctx context.Context, id string) (*directory.Workspace, error) {
	var ws directory.Workspace
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, org_id, name, owner_id, is_active, created_at, updated_at
		FROM workspaces
		WHERE id = $1 AND is_active
	`, id).Scan(&ws.ID, &ws.OrgID, &ws.Name, &ws.OwnerID, &ws.IsActive, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &ws, nil
}

// ListWorkspaces returns all active workspaces in an organization
func (r *DirectoryRepository) ListWorkspaces(ctx context.Context, orgID string) ([]*directory.Workspace, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, org_id, name, owner_id, is_active, created_at, updated_at
		FROM workspaces
		WHERE org_id = $1 AND is_active
		ORDER BY created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*directory.Workspace
	for rows.Next() {
		var ws directory.Workspace
		if err := rows.Scan(&ws.ID, &ws.OrgID, &ws.Name, &ws.OwnerID, &ws.IsActive, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, &ws)
	}
	return workspaces, rows.Err()
}

// DeactivateWorkspace soft-deletes a workspace
func (r *DirectoryRepository) DeactivateWorkspace(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE workspaces SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate workspace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrWorkspaceNotFound
	}
	return nil
}

// CreateProject inserts a new project
func (r *DirectoryRepository) CreateProject(ctx context.Context, p *directory.Project) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO projects (id, workspace_id, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.WorkspaceID, p.Name, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID
func (r *DirectoryRepository) GetProject(ctx context.Context, id string) (*directory.Project, error) {
	var p directory.Project
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, workspace_id, name, owner_id, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// CreateDocument inserts a new document
func (r *DirectoryRepository) CreateDocument(ctx context.Context, doc *directory.Document) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO documents (id, workspace_id, project_id, owner_id, title, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, doc.ID, doc.WorkspaceID, doc.ProjectID, doc.OwnerID, doc.Title, doc.Visibility, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a live document by ID
func (r *DirectoryRepository) GetDocument(ctx context.Context, id string) (*directory.Document, error) {
	var doc directory.Document
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, workspace_id, project_id, owner_id, title, visibility, created_at, updated_at, deleted_at
		FROM documents
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&doc.ID, &doc.WorkspaceID, &doc.ProjectID, &doc.OwnerID, &doc.Title, &doc.Visibility, &doc.CreatedAt, &doc.UpdatedAt, &doc.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// UpdateDocument updates a live document's title, visibility and project
func (r *DirectoryRepository) UpdateDocument(ctx context.Context, doc *directory.Document) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE documents
		SET title = $2, visibility = $3, project_id = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`, doc.ID, doc.Title, doc.Visibility, doc.ProjectID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrDocumentNotFound
	}
	return nil
}

// SoftDeleteDocument marks a document as deleted
func (r *DirectoryRepository) SoftDeleteDocument(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE documents SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrDocumentNotFound
	}
	return nil
}

// ListDocuments returns the workspace's live documents. Unless includePrivate
// is set, private documents owned by other users are filtered out.
func (r *DirectoryRepository) ListDocuments(ctx context.Context, workspaceID, forUser string, includePrivate bool) ([]*directory.Document, error) {
	query := `
		SELECT id, workspace_id, project_id, owner_id, title, visibility, created_at, updated_at, deleted_at
		FROM documents
		WHERE workspace_id = $1 AND deleted_at IS NULL
	`
	args := []any{workspaceID}
	if !includePrivate {
		query += ` AND (visibility != $2 OR owner_id = $3)`
		args = append(args, directory.VisibilityPrivate, forUser)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*directory.Document
	for rows.Next() {
		var doc directory.Document
		if err := rows.Scan(&doc.ID, &doc.WorkspaceID, &doc.ProjectID, &doc.OwnerID, &doc.Title, &doc.Visibility, &doc.CreatedAt, &doc.UpdatedAt, &doc.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DocumentRef returns the containment edges and owner of a live document.
func (r *DirectoryRepository) DocumentRef(ctx context.Context, id string) (*authz.DocumentRef, error) {
	var ref authz.DocumentRef
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, workspace_id, project_id, owner_id
		FROM documents
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&ref.ID, &ref.WorkspaceID, &ref.ProjectID, &ref.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to resolve document: %w", err)
	}
	return &ref, nil
}

// WorkspaceRef returns the containment edge of an active workspace.
func (r *DirectoryRepository) WorkspaceRef(ctx context.Context, id string) (*authz.WorkspaceRef, error) {
	var ref authz.WorkspaceRef
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, org_id, owner_id
		FROM workspaces
		WHERE id = $1 AND is_active
	`, id).Scan(&ref.ID, &ref.OrgID, &ref.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return &ref, nil
}

// ProjectRef returns the containment edge of a project.
func (r *DirectoryRepository) ProjectRef(ctx context.Context, id string) (*authz.ProjectRef, error) {
	var ref authz.ProjectRef
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, workspace_id
		FROM projects
		WHERE id = $1
	`, id).Scan(&ref.ID, &ref.WorkspaceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to resolve project: %w", err)
	}
	return &ref, nil
}

// OrganizationExists reports whether an active organization exists.
func (r *DirectoryRepository) OrganizationExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1 AND is_active)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check organization: %w", err)
	}
	return exists, nil
}
