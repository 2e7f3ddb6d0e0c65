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

// Permission is a named capability that a role grants or an override
// allows/denies on a specific resource.
type Permission string

const (
	PermRead              Permission = "read"
	PermWrite             Permission = "write"
	PermDelete            Permission = "delete"
	PermManageMembers     Permission = "manage_members"
	PermManageSettings    Permission = "manage_settings"
	PermManagePermissions Permission = "manage_permissions"
	PermExport            Permission = "export"
	PermAdmin             Permission = "admin"
)

// AllPermissions lists every permission the role matrix grants. Overrides
// are not limited to this list: a viewer can be granted "comment" on a
// single document even though no role carries it.
var AllPermissions = []Permission{
	PermRead,
	PermWrite,
	PermDelete,
	PermManageMembers,
	PermManageSettings,
	PermManagePermissions,
	PermExport,
	PermAdmin,
}

// IsWellFormed reports whether p is usable as a permission name: non-empty,
// at most 64 characters, lowercase letters, digits and underscores. The
// resolver validates shape only; a well-formed name no role or override
// carries simply denies.
func (p Permission) IsWellFormed() bool {
	if p == "" || len(p) > 64 {
		return false
	}
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// PermissionSet is the set of permissions a role grants. Permissions absent
// from the set are denied.
type PermissionSet map[Permission]bool

// Has reports whether the set grants the permission.
func (s PermissionSet) Has(p Permission) bool {
	return s[p]
}

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p, v := range s {
		out[p] = v
	}
	return out
}
