package directory

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrOrgNotFound       = errors.New("organization not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidVisibility = errors.New("invalid document visibility")
	ErrLastOwner         = errors.New("cannot remove the only owner")
)

// Document visibility levels
const (
	VisibilityPrivate   = "private"
	VisibilityWorkspace = "workspace"
	VisibilityPublic    = "public"
)

// Organization is the top of the containment hierarchy.
type Organization struct {
	ID        string
	Name      string
	OwnerID   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Workspace groups projects and documents inside an organization.
type Workspace struct {
	ID        string
	OrgID     string
	Name      string
	OwnerID   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project is an optional grouping level between workspace and document.
type Project struct {
	ID          string
	WorkspaceID string
	Name        string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document is the leaf of the hierarchy. OwnerID is the source of truth for
// the ownership bypass; DeletedAt marks soft deletion.
type Document struct {
	ID          string
	WorkspaceID string
	ProjectID   *string
	OwnerID     string
	Title       string
	Visibility  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Member is one row of a member list: a user's effective role at a scope.
type Member struct {
	UserID    string
	Role      string
	GrantedBy string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Repository defines the interface for directory persistence. Soft-deleted
// documents and inactive workspaces are excluded from all reads.
type Repository interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)

	CreateWorkspace(ctx context.Context, ws *Workspace) error
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	ListWorkspaces(ctx context.Context, orgID string) ([]*Workspace, error)
	DeactivateWorkspace(ctx context.Context, id string) error

	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)

	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	UpdateDocument(ctx context.Context, doc *Document) error
	SoftDeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns the workspace's live documents. Unless
	// includePrivate is set, other users' private documents are hidden from
	// forUser.
	ListDocuments(ctx context.Context, workspaceID, forUser string, includePrivate bool) ([]*Document, error)
}
