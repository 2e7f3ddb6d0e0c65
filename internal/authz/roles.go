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

package authz

import "context"

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical names for the built-in roles. A role binding may
// carry any of these, or the name of an organization-defined custom role.
// -----------------------------------------------------------------------------

const (
	// RoleOwner has every permission, including manage_permissions and admin.
	RoleOwner = "owner"

	// RoleAdmin has every permission except manage_permissions and admin.
	RoleAdmin = "admin"

	// RoleEditor can read, write and export.
	RoleEditor = "editor"

	// RoleViewer can read and export.
	RoleViewer = "viewer"

	// RoleGuest can only read.
	RoleGuest = "guest"
)

// BuiltinRoles lists the names of the static role catalog entries.
var BuiltinRoles = []string{RoleOwner, RoleAdmin, RoleEditor, RoleViewer, RoleGuest}

// Catalog resolves a role name to the permission set it grants. Resolution is
// total: an unknown role name yields an empty set, never an error.
type Catalog interface {
	PermissionsOf(ctx context.Context, role string) PermissionSet
}

// StaticCatalog is the immutable built-in role catalog. It is constructed once
// at startup and injected into the Service; it is never mutated afterwards.
type StaticCatalog struct {
	roles map[string]PermissionSet
}

// NewCatalog builds the static role catalog.
func NewCatalog() *StaticCatalog {
	return &StaticCatalog{
		roles: map[string]PermissionSet{
			RoleOwner: {
				PermRead:              true,
				PermWrite:             true,
				PermDelete:            true,
				PermManageMembers:     true,
				PermManageSettings:    true,
				PermManagePermissions: true,
				PermExport:            true,
				PermAdmin:             true,
			},
			RoleAdmin: {
				PermRead:           true,
				PermWrite:          true,
				PermDelete:         true,
				PermManageMembers:  true,
				PermManageSettings: true,
				PermExport:         true,
			},
			RoleEditor: {
				PermRead:   true,
				PermWrite:  true,
				PermExport: true,
			},
			RoleViewer: {
				PermRead:   true,
				PermExport: true,
			},
			RoleGuest: {
				PermRead: true,
			},
		},
	}
}

// PermissionsOf returns the permissions granted by a built-in role. Unknown
// role names grant nothing.
func (c *StaticCatalog) PermissionsOf(_ context.Context, role string) PermissionSet {
	if set, ok := c.roles[role]; ok {
		return set.Clone()
	}
	return PermissionSet{}
}

// Knows reports whether the role name is part of the static catalog.
func (c *StaticCatalog) Knows(role string) bool {
	_, ok := c.roles[role]
	return ok
}

// CustomRoleSource supplies permission sets for organization-defined roles
// that are not part of the static catalog.
type CustomRoleSource interface {
	// Permissions returns the set for a custom role name, or (nil, nil) when
	// the name is unknown.
	Permissions(ctx context.Context, role string) (PermissionSet, error)
}

// ChainedCatalog consults the static catalog first and a custom-role source
// second. A name neither resolves falls back to deny-all, and a failing
// custom source is treated the same way: resolution never grants on error.
type ChainedCatalog struct {
	static *StaticCatalog
	custom CustomRoleSource
}

// NewChainedCatalog wraps a static catalog with a custom-role source.
func NewChainedCatalog(static *StaticCatalog, custom CustomRoleSource) *ChainedCatalog {
	return &ChainedCatalog{static: static, custom: custom}
}

// PermissionsOf resolves a role name through the static catalog, then the
// custom source.
func (c *ChainedCatalog) PermissionsOf(ctx context.Context, role string) PermissionSet {
	if c.static.Knows(role) {
		return c.static.PermissionsOf(ctx, role)
	}
	if c.custom != nil {
		set, err := c.custom.Permissions(ctx, role)
		if err == nil && set != nil {
			return set
		}
	}
	return PermissionSet{}
}
