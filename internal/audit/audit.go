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

package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Event types
const (
	TypeRoleGranted      = "role_granted"
	TypeRoleRevoked      = "role_revoked"
	TypeOverrideSet      = "override_set"
	TypeAccessDenied     = "access_denied"
	TypeOrgCreated       = "org_created"
	TypeWorkspaceCreated = "workspace_created"
	TypeWorkspaceDeleted = "workspace_deleted"
	TypeProjectCreated   = "project_created"
	TypeDocumentCreated  = "document_created"
	TypeDocumentUpdated  = "document_updated"
	TypeDocumentDeleted  = "document_deleted"
	TypeMemberAdded      = "member_added"
	TypeMemberRemoved    = "member_removed"
)

// Event represents an auditable action. For role changes, OldRole/NewRole
// carry the transition; TargetUserID is the user whose access changed, as
// opposed to ActorID, who performed the change.
type Event struct {
	Type         string
	ActorID      string
	TargetUserID string
	OrgID        string
	WorkspaceID  string
	ResourceType string
	ResourceID   string
	ScopeType    string
	ScopeID      string
	OldRole      string
	NewRole      string
	Outcome      string // success, failure, denied
	Metadata     map[string]any
	Timestamp    time.Time
	IPAddress    string
}

// Logger defines the interface for the audit sink. The engine emits events;
// the sink decides how they are recorded.
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger on the process-wide slog logger. Events are
// append-only log records; durable persistence is a deployment concern.
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger.
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event.
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("actor_id", event.ActorID),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.TargetUserID != "" {
		attrs = append(attrs, slog.String("target_user_id", event.TargetUserID))
	}
	if event.OrgID != "" {
		attrs = append(attrs, slog.String("org_id", event.OrgID))
	}
	if event.WorkspaceID != "" {
		attrs = append(attrs, slog.String("workspace_id", event.WorkspaceID))
	}
	if event.ResourceType != "" {
		attrs = append(attrs, slog.String("resource_type", event.ResourceType), slog.String("resource_id", event.ResourceID))
	}
	if event.ScopeType != "" {
		attrs = append(attrs, slog.String("scope_type", event.ScopeType), slog.String("scope_id", event.ScopeID))
	}
	if event.OldRole != "" {
		attrs = append(attrs, slog.String("old_role", event.OldRole))
	}
	if event.NewRole != "" {
		attrs = append(attrs, slog.String("new_role", event.NewRole))
	}
	if event.Outcome != "" {
		attrs = append(attrs, slog.String("outcome", event.Outcome))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}

	// Flatten metadata
	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			// Redact secrets
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	lowered := strings.ToLower(key)
	secrets := []string{"password", "secret", "token", "key", "hash", "credential", "authorization"}
	for _, s := range secrets {
		if strings.Contains(lowered, s) {
			return true
		}
	}
	return false
}
