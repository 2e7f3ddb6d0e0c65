package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notarium/notarium/internal/authz"
)

// OverrideRepository implements authz.OverrideRepository
type OverrideRepository struct {
	db *DB
}

// NewOverrideRepository creates a new permission override repository
func NewOverrideRepository(db *DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Set upserts an override keyed by (user, resource_type, resource_id, permission)
func (r *OverrideRepository) Set(ctx context.Context, o *authz.PermissionOverride) error {
	var grantedBy sql.NullString
	if o.GrantedBy != "" {
		grantedBy = sql.NullString{String: o.GrantedBy, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permission_overrides (
			id, user_id, resource_type, resource_id, permission, allowed, granted_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, resource_type, resource_id, permission)
		DO UPDATE SET allowed = EXCLUDED.allowed,
		              granted_by = EXCLUDED.granted_by
	`,
		o.ID, o.UserID, string(o.ResourceType), o.ResourceID,
		string(o.Permission), o.Allowed, grantedBy, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set override: %w", err)
	}
	return nil
}

// Lookup returns the override for the exact tuple, or nil when none exists
func (r *OverrideRepository) Lookup(ctx context.Context, userID string, resourceType authz.ScopeType, resourceID string, permission authz.Permission) (*authz.PermissionOverride, error) {
	var o authz.PermissionOverride
	var rt, perm string

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, user_id, resource_type, resource_id, permission, allowed, COALESCE(granted_by, ''), created_at
		FROM permission_overrides
		WHERE user_id = $1 AND resource_type = $2 AND resource_id = $3 AND permission = $4
	`, userID, string(resourceType), resourceID, string(permission)).Scan(
		&o.ID, &o.UserID, &rt, &o.ResourceID, &perm, &o.Allowed, &o.GrantedBy, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up override: %w", err)
	}

	o.ResourceType = authz.ScopeType(rt)
	o.Permission = authz.Permission(perm)
	return &o, nil
}
