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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notarium/notarium/internal/authz"
)

// BindingRepository implements authz.BindingRepository
type BindingRepository struct {
	db *DB
}

// NewBindingRepository creates a new role binding repository
func NewBindingRepository(db *DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// Upsert inserts a binding, or replaces the role, grantor and expiry of the
// existing active binding for the same (user, scope). The partial unique
// index on active rows serializes concurrent grants on the same pair.
func (r *BindingRepository) Upsert(ctx context.Context, b *authz.RoleBinding) error {
	var grantedBy sql.NullString
	if b.GrantedBy != "" {
		grantedBy = sql.NullString{String: b.GrantedBy, Valid: true}
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO role_bindings (
			id, user_id, role, scope_type, scope_id, granted_by, is_active, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		ON CONFLICT (user_id, scope_type, scope_id) WHERE is_active
		DO UPDATE SET role = EXCLUDED.role,
		              granted_by = EXCLUDED.granted_by,
		              expires_at = EXCLUDED.expires_at
	`,
		b.ID, b.UserID, b.Role, string(b.ScopeType), b.ScopeID,
		grantedBy, b.CreatedAt, b.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert role binding: %w", err)
	}
	return nil
}

// Deactivate soft-deletes the active binding for (user, scope)
func (r *BindingRepository) Deactivate(ctx context.Context, userID string, scope authz.ScopeRef) (bool, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE role_bindings SET is_active = FALSE
		WHERE user_id = $1 AND scope_type = $2 AND scope_id = $3 AND is_active
	`, userID, string(scope.Type), scope.ID)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate role binding: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// RoleAt returns the role of the effective binding for (user, scope), or ""
func (r *BindingRepository) RoleAt(ctx context.Context, userID string, scope authz.ScopeRef) (string, error) {
	var role string
	err := r.db.pool.QueryRow(ctx, `
		SELECT role FROM role_bindings
		WHERE user_id = $1 AND scope_type = $2 AND scope_id = $3
		  AND is_active AND (expires_at IS NULL OR expires_at > NOW())
	`, userID, string(scope.Type), scope.ID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up role: %w", err)
	}
	return role, nil
}

// ListAt returns all effective bindings at a scope
func (r *BindingRepository) ListAt(ctx context.Context, scope authz.ScopeRef) ([]*authz.RoleBinding, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, user_id, role, scope_type, scope_id, COALESCE(granted_by, ''), is_active, created_at, expires_at
		FROM role_bindings
		WHERE scope_type = $1 AND scope_id = $2
		  AND is_active AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at
	`, string(scope.Type), scope.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	defer rows.Close()

	return scanBindings(rows)
}

// ListForUser returns the user's effective bindings at a scope type
func (r *BindingRepository) ListForUser(ctx context.Context, userID string, scopeType authz.ScopeType) ([]*authz.RoleBinding, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, user_id, role, scope_type, scope_id, COALESCE(granted_by, ''), is_active, created_at, expires_at
		FROM role_bindings
		WHERE user_id = $1 AND scope_type = $2
		  AND is_active AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at
	`, userID, string(scopeType))
	if err != nil {
		return nil, fmt.Errorf("failed to list user bindings: %w", err)
	}
	defer rows.Close()

	return scanBindings(rows)
}

// DeactivateExpired soft-deletes every binding whose expiry has passed
func (r *BindingRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE role_bindings SET is_active = FALSE
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired bindings: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanBindings(rows pgx.Rows) ([]*authz.RoleBinding, error) {
	var bindings []*authz.RoleBinding
	for rows.Next() {
		var b authz.RoleBinding
		var scopeType string
		var expiresAt sql.NullTime

		if err := rows.Scan(
			&b.ID, &b.UserID, &b.Role, &scopeType, &b.ScopeID,
			&b.GrantedBy, &b.IsActive, &b.CreatedAt, &expiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}

		b.ScopeType = authz.ScopeType(scopeType)
		if expiresAt.Valid {
			b.ExpiresAt = &expiresAt.Time
		}
		bindings = append(bindings, &b)
	}
	return bindings, rows.Err()
}
