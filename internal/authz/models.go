package authz

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrResourceNotFound  = errors.New("resource not found")
	ErrBindingNotFound   = errors.New("role binding not found")
	ErrInvalidScope      = errors.New("invalid scope type")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrAccessDenied      = errors.New("access denied")
)

// ScopeType is a level in the organization → workspace → project → document
// containment hierarchy at which a role can be granted. The order below is
// the precedence order: document is the most specific, organization the least.
type ScopeType string

const (
	ScopeOrganization ScopeType = "organization"
	ScopeWorkspace    ScopeType = "workspace"
	ScopeProject      ScopeType = "project"
	ScopeDocument     ScopeType = "document"
)

// IsValid reports whether s is a known scope type.
func (s ScopeType) IsValid() bool {
	switch s {
	case ScopeOrganization, ScopeWorkspace, ScopeProject, ScopeDocument:
		return true
	}
	return false
}

// ScopeRef identifies a single scope: a level plus the id of the resource at
// that level.
type ScopeRef struct {
	Type ScopeType
	ID   string
}

// RoleBinding is a grant of a role to a user at a scope. Bindings are never
// physically deleted; revocation sets IsActive to false so the grant history
// survives for audit.
type RoleBinding struct {
	ID        string
	UserID    string
	Role      string
	ScopeType ScopeType
	ScopeID   string
	GrantedBy string
	IsActive  bool
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Effective reports whether the binding currently grants its role: it must be
// active and either carry no expiry or expire in the future.
func (b *RoleBinding) Effective(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.ExpiresAt != nil && !b.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Scope returns the binding's scope reference.
func (b *RoleBinding) Scope() ScopeRef {
	return ScopeRef{Type: b.ScopeType, ID: b.ScopeID}
}

// PermissionOverride is a fine-grained per-resource, per-permission allow or
// deny record. An override bypasses role computation entirely for its exact
// (user, resource, permission) tuple.
type PermissionOverride struct {
	ID           string
	UserID       string
	ResourceType ScopeType
	ResourceID   string
	Permission   Permission
	Allowed      bool
	GrantedBy    string
	CreatedAt    time.Time
}

// DecisionRule names the rule that produced an authorization decision.
type DecisionRule string

const (
	RuleSuperuser DecisionRule = "superuser"
	RuleOwner     DecisionRule = "owner"
	RuleOverride  DecisionRule = "override"
	RuleRole      DecisionRule = "role"
	RuleNone      DecisionRule = "none"
)

// Decision is the resolver's output: the verdict plus the contributing rule,
// for diagnostics and audit. Decisions are not persisted by the engine.
type Decision struct {
	Allowed bool
	Rule    DecisionRule

	// Role and Scope are set when Rule is RuleRole: the effective role and
	// the scope level it was found at.
	Role  string
	Scope ScopeRef
}

// BindingRepository persists role bindings. Implementations must serialize
// concurrent writes on the same (user, scope) pair so that at most one
// effective binding exists at a time.
type BindingRepository interface {
	// Upsert inserts the binding, or replaces the role, grantor and expiry of
	// the existing active binding for the same (user, scope).
	Upsert(ctx context.Context, binding *RoleBinding) error

	// Deactivate soft-deletes the single active binding for (user, scope).
	// It returns false when no active binding existed.
	Deactivate(ctx context.Context, userID string, scope ScopeRef) (bool, error)

	// RoleAt returns the role of the effective binding for (user, scope), or
	// "" when there is none.
	RoleAt(ctx context.Context, userID string, scope ScopeRef) (string, error)

	// ListAt returns all effective bindings at a scope, for member lists.
	ListAt(ctx context.Context, scope ScopeRef) ([]*RoleBinding, error)

	// ListForUser returns the user's effective bindings at a scope type.
	ListForUser(ctx context.Context, userID string, scopeType ScopeType) ([]*RoleBinding, error)

	// DeactivateExpired soft-deletes every binding whose expiry has passed
	// and returns the number of rows affected. Used by the cleanup job.
	DeactivateExpired(ctx context.Context) (int64, error)
}

// OverrideRepository persists permission overrides, unique per
// (user, resource_type, resource_id, permission).
type OverrideRepository interface {
	// Set upserts an override keyed by its four-tuple.
	Set(ctx context.Context, override *PermissionOverride) error

	// Lookup returns the override for the exact tuple, or nil when none exists.
	Lookup(ctx context.Context, userID string, resourceType ScopeType, resourceID string, permission Permission) (*PermissionOverride, error)
}

// SuperuserChecker reports whether a principal holds the platform superuser
// flag. Identity is established elsewhere; the resolver only consumes it.
type SuperuserChecker interface {
	IsSuperuser(ctx context.Context, userID string) (bool, error)
}

// DocumentRef is the slice of a document row the engine needs: containment
// edges for the scope graph and the owner id for the ownership bypass.
type DocumentRef struct {
	ID          string
	WorkspaceID string
	ProjectID   *string
	OwnerID     string
}

// WorkspaceRef carries a workspace's containment edge.
type WorkspaceRef struct {
	ID      string
	OrgID   string
	OwnerID string
}

// ProjectRef carries a project's containment edge.
type ProjectRef struct {
	ID          string
	WorkspaceID string
}

// DirectoryLookup supplies resource references for the scope graph. The
// engine never fetches or mutates the underlying rows directly.
type DirectoryLookup interface {
	// DocumentRef returns the reference for a document, or ErrResourceNotFound.
	DocumentRef(ctx context.Context, id string) (*DocumentRef, error)

	// WorkspaceRef returns the reference for a workspace, or ErrResourceNotFound.
	WorkspaceRef(ctx context.Context, id string) (*WorkspaceRef, error)

	// ProjectRef returns the reference for a project, or ErrResourceNotFound.
	ProjectRef(ctx context.Context, id string) (*ProjectRef, error)

	// OrganizationExists reports whether the organization exists.
	OrganizationExists(ctx context.Context, id string) (bool, error)
}
