package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/notarium/notarium/internal/audit"
	"github.com/notarium/notarium/internal/observability/logger"
	"github.com/notarium/notarium/internal/observability/metrics"
)

// Service is the authorization resolver. It combines the role catalog, the
// scope graph and the binding/override stores into a single decision
// function, and owns the grant/revoke/override write paths.
//
// Decision order for Check:
//  1. superuser flag (short-circuit allow)
//  2. permission override for the exact (user, resource, permission) tuple
//  3. nearest-scope-wins role walk down the ancestor chain
//  4. deny
//
// The role found at the most specific scope fully replaces any role at a
// less specific scope; permissions are never merged across levels.
type Service struct {
	catalog    Catalog
	graph      *ScopeGraph
	bindings   BindingRepository
	overrides  OverrideRepository
	superusers SuperuserChecker
	audit      audit.Logger
	decisions  metric.Int64Counter
}

// NewService creates the resolver. The meter is optional; without it no
// decision metrics are recorded.
func NewService(
	catalog Catalog,
	graph *ScopeGraph,
	bindings BindingRepository,
	overrides OverrideRepository,
	superusers SuperuserChecker,
	auditLogger audit.Logger,
	meter *metrics.Meter,
) *Service {
	s := &Service{
		catalog:    catalog,
		graph:      graph,
		bindings:   bindings,
		overrides:  overrides,
		superusers: superusers,
		audit:      auditLogger,
	}
	if meter != nil {
		counter, err := meter.CreateCounter("authz_decisions_total", "Authorization decisions by outcome and rule")
		if err != nil {
			slog.Warn("failed to create authz decision counter", logger.Error(err))
		} else {
			s.decisions = counter
		}
	}
	return s
}

// Explain computes the full decision for (user, permission, resource). It
// surfaces store and not-found errors so callers can distinguish a failed
// lookup from a plain deny; Check folds both into deny.
func (s *Service) Explain(ctx context.Context, userID string, permission Permission, resourceType ScopeType, resourceID string) (Decision, error) {
	if !permission.IsWellFormed() {
		return Decision{Rule: RuleNone}, fmt.Errorf("%w: %q", ErrInvalidPermission, permission)
	}

	// 1. Superuser short-circuit: no override or role lookup happens at all.
	su, err := s.superusers.IsSuperuser(ctx, userID)
	if err != nil {
		return Decision{Rule: RuleNone}, fmt.Errorf("superuser lookup: %w", err)
	}
	if su {
		return Decision{Allowed: true, Rule: RuleSuperuser}, nil
	}

	// 2. Fine-grained override beats role computation in both directions.
	override, err := s.overrides.Lookup(ctx, userID, resourceType, resourceID, permission)
	if err != nil {
		return Decision{Rule: RuleNone}, fmt.Errorf("override lookup: %w", err)
	}
	if override != nil {
		return Decision{Allowed: override.Allowed, Rule: RuleOverride}, nil
	}

	// 3. Nearest-scope-wins role walk.
	chain, err := s.graph.AncestorChain(ctx, resourceType, resourceID)
	if err != nil {
		return Decision{Rule: RuleNone}, err
	}
	for _, scope := range chain {
		role, err := s.bindings.RoleAt(ctx, userID, scope)
		if err != nil {
			return Decision{Rule: RuleNone}, fmt.Errorf("role lookup at %s/%s: %w", scope.Type, scope.ID, err)
		}
		if role == "" {
			continue
		}
		set := s.catalog.PermissionsOf(ctx, role)
		return Decision{
			Allowed: set.Has(permission),
			Rule:    RuleRole,
			Role:    role,
			Scope:   scope,
		}, nil
	}

	// 4. No binding anywhere on the chain.
	return Decision{Rule: RuleNone}, nil
}

// Check reports whether the user holds the permission on the resource. It
// never fails open: a missing resource or a failing store both deny. Invalid
// permission or scope names are caller bugs; they deny here but are logged
// loudly, and Explain surfaces them for callers that validate up front.
func (s *Service) Check(ctx context.Context, userID string, permission Permission, resourceType ScopeType, resourceID string) bool {
	decision, err := s.Explain(ctx, userID, permission, resourceType, resourceID)
	switch {
	case err == nil, errors.Is(err, ErrResourceNotFound):
		// deny is the verdict, not an error
	case errors.Is(err, ErrInvalidPermission), errors.Is(err, ErrInvalidScope):
		slog.ErrorContext(ctx, "authorization check called with invalid input",
			logger.Component("authz"),
			logger.Permission(string(permission)),
			logger.ResourceType(string(resourceType)),
			logger.Error(err),
		)
	default:
		slog.WarnContext(ctx, "authorization check failed closed",
			logger.Component("authz"),
			logger.UserID(userID),
			logger.Permission(string(permission)),
			logger.ResourceType(string(resourceType)),
			logger.ResourceID(resourceID),
			logger.Error(err),
		)
	}
	s.recordDecision(ctx, decision)
	return decision.Allowed
}

// CanRead checks read access on a document. The recorded owner always passes,
// before superuser, override and role evaluation: ownership is deliberately
// not revocable through overrides or role changes.
func (s *Service) CanRead(ctx context.Context, userID string, doc *DocumentRef) bool {
	if doc.OwnerID == userID {
		s.recordDecision(ctx, Decision{Allowed: true, Rule: RuleOwner})
		return true
	}
	return s.Check(ctx, userID, PermRead, ScopeDocument, doc.ID)
}

// CanWrite checks write access on a document, with the ownership bypass.
func (s *Service) CanWrite(ctx context.Context, userID string, doc *DocumentRef) bool {
	if doc.OwnerID == userID {
		s.recordDecision(ctx, Decision{Allowed: true, Rule: RuleOwner})
		return true
	}
	return s.Check(ctx, userID, PermWrite, ScopeDocument, doc.ID)
}

// CanDelete checks delete access on a document, with the ownership bypass.
func (s *Service) CanDelete(ctx context.Context, userID string, doc *DocumentRef) bool {
	if doc.OwnerID == userID {
		s.recordDecision(ctx, Decision{Allowed: true, Rule: RuleOwner})
		return true
	}
	return s.Check(ctx, userID, PermDelete, ScopeDocument, doc.ID)
}

// RoleAt returns the user's effective role at an exact scope, or "" when
// there is none. Used to render member lists.
func (s *Service) RoleAt(ctx context.Context, userID string, scopeType ScopeType, scopeID string) (string, error) {
	if !scopeType.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, scopeType)
	}
	return s.bindings.RoleAt(ctx, userID, ScopeRef{Type: scopeType, ID: scopeID})
}

// EffectiveRole resolves the user's role for a resource by walking the
// ancestor chain: the first scope with a binding wins.
func (s *Service) EffectiveRole(ctx context.Context, userID string, resourceType ScopeType, resourceID string) (string, ScopeRef, error) {
	chain, err := s.graph.AncestorChain(ctx, resourceType, resourceID)
	if err != nil {
		return "", ScopeRef{}, err
	}
	for _, scope := range chain {
		role, err := s.bindings.RoleAt(ctx, userID, scope)
		if err != nil {
			return "", ScopeRef{}, fmt.Errorf("role lookup at %s/%s: %w", scope.Type, scope.ID, err)
		}
		if role != "" {
			return role, scope, nil
		}
	}
	return "", ScopeRef{}, nil
}

// BindingsAt returns the effective bindings at an exact scope, for member
// lists.
func (s *Service) BindingsAt(ctx context.Context, scopeType ScopeType, scopeID string) ([]*RoleBinding, error) {
	if !scopeType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scopeType)
	}
	return s.bindings.ListAt(ctx, ScopeRef{Type: scopeType, ID: scopeID})
}

// BindingsForUser returns the user's effective bindings at a scope type.
func (s *Service) BindingsForUser(ctx context.Context, userID string, scopeType ScopeType) ([]*RoleBinding, error) {
	if !scopeType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scopeType)
	}
	return s.bindings.ListForUser(ctx, userID, scopeType)
}

// GrantRequest describes a role grant.
type GrantRequest struct {
	UserID    string
	Role      string
	ScopeType ScopeType
	ScopeID   string
	GrantedBy string
	ExpiresAt *time.Time
}

// Grant records a role binding. Granting over an existing active binding for
// the same (user, scope) replaces its role rather than stacking a second row,
// so at most one effective binding exists per (user, scope) at any time.
//
// The role must resolve to at least one permission; a name the catalog cannot
// resolve is rejected rather than stored as a binding that grants nothing.
func (s *Service) Grant(ctx context.Context, req GrantRequest) (*RoleBinding, error) {
	if !req.ScopeType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, req.ScopeType)
	}
	if req.UserID == "" || req.ScopeID == "" {
		return nil, fmt.Errorf("%w: user and scope id are required", ErrInvalidScope)
	}
	if len(s.catalog.PermissionsOf(ctx, req.Role)) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}

	oldRole, err := s.bindings.RoleAt(ctx, req.UserID, ScopeRef{Type: req.ScopeType, ID: req.ScopeID})
	if err != nil {
		return nil, fmt.Errorf("failed to read existing binding: %w", err)
	}

	binding := &RoleBinding{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    req.UserID,
		Role:      req.Role,
		ScopeType: req.ScopeType,
		ScopeID:   req.ScopeID,
		GrantedBy: req.GrantedBy,
		IsActive:  true,
		CreatedAt: time.Now(),
		ExpiresAt: req.ExpiresAt,
	}

	if err := s.bindings.Upsert(ctx, binding); err != nil {
		return nil, fmt.Errorf("failed to grant role: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:         audit.TypeRoleGranted,
		ActorID:      req.GrantedBy,
		TargetUserID: req.UserID,
		ScopeType:    string(req.ScopeType),
		ScopeID:      req.ScopeID,
		OldRole:      oldRole,
		NewRole:      req.Role,
		Outcome:      "success",
	})

	return binding, nil
}

// Revoke soft-deletes the active binding for (user, scope). It returns false
// when no active binding existed, which makes a double revoke safe.
func (s *Service) Revoke(ctx context.Context, userID string, scopeType ScopeType, scopeID, revokedBy string) (bool, error) {
	if !scopeType.IsValid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidScope, scopeType)
	}

	scope := ScopeRef{Type: scopeType, ID: scopeID}
	oldRole, err := s.bindings.RoleAt(ctx, userID, scope)
	if err != nil {
		return false, fmt.Errorf("failed to read existing binding: %w", err)
	}

	revoked, err := s.bindings.Deactivate(ctx, userID, scope)
	if err != nil {
		return false, fmt.Errorf("failed to revoke role: %w", err)
	}
	if !revoked {
		return false, nil
	}

	s.audit.Log(ctx, audit.Event{
		Type:         audit.TypeRoleRevoked,
		ActorID:      revokedBy,
		TargetUserID: userID,
		ScopeType:    string(scopeType),
		ScopeID:      scopeID,
		OldRole:      oldRole,
		Outcome:      "success",
	})

	return true, nil
}

// OverrideRequest describes a permission override upsert.
type OverrideRequest struct {
	UserID       string
	ResourceType ScopeType
	ResourceID   string
	Permission   Permission
	Allowed      bool
	GrantedBy    string
}

// SetOverride upserts a fine-grained allow/deny record, keyed by the
// (user, resource_type, resource_id, permission) tuple.
func (s *Service) SetOverride(ctx context.Context, req OverrideRequest) (*PermissionOverride, error) {
	if !req.ResourceType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, req.ResourceType)
	}
	if !req.Permission.IsWellFormed() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPermission, req.Permission)
	}

	override := &PermissionOverride{
		ID:           uuid.Must(uuid.NewV7()).String(),
		UserID:       req.UserID,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Permission:   req.Permission,
		Allowed:      req.Allowed,
		GrantedBy:    req.GrantedBy,
		CreatedAt:    time.Now(),
	}

	if err := s.overrides.Set(ctx, override); err != nil {
		return nil, fmt.Errorf("failed to set override: %w", err)
	}

	s.audit.Log(ctx, audit.Event{
		Type:         audit.TypeOverrideSet,
		ActorID:      req.GrantedBy,
		TargetUserID: req.UserID,
		ResourceType: string(req.ResourceType),
		ResourceID:   req.ResourceID,
		Outcome:      "success",
		Metadata: map[string]any{
			"permission": string(req.Permission),
			"allowed":    req.Allowed,
		},
	})

	return override, nil
}

func (s *Service) recordDecision(ctx context.Context, d Decision) {
	if s.decisions == nil {
		return
	}
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	s.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("rule", string(d.Rule)),
	))
}
