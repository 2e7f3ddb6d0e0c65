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

package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/notarium/notarium/internal/authz"
)

// TestPurpose: Validates the built-in role/permission matrix.
// Scope: Unit Test
// Security: Role definitions are the core of the permission model
// Expected: Each role grants exactly its documented permission set; unknown roles grant nothing.
// Test Case ID: ROL-01
func TestRoles_BuiltinMatrix(t *testing.T) {
	catalog := authz.NewCatalog()
	ctx := context.Background()

	cases := []struct {
		role    string
		granted []authz.Permission
		denied  []authz.Permission
	}{
		{authz.RoleOwner, authz.AllPermissions, nil},
		{authz.RoleAdmin,
			[]authz.Permission{authz.PermRead, authz.PermWrite, authz.PermDelete, authz.PermManageMembers, authz.PermManageSettings, authz.PermExport},
			[]authz.Permission{authz.PermManagePermissions, authz.PermAdmin}},
		{authz.RoleEditor,
			[]authz.Permission{authz.PermRead, authz.PermWrite, authz.PermExport},
			[]authz.Permission{authz.PermDelete, authz.PermManageMembers, authz.PermManageSettings, authz.PermManagePermissions, authz.PermAdmin}},
		{authz.RoleViewer,
			[]authz.Permission{authz.PermRead, authz.PermExport},
			[]authz.Permission{authz.PermWrite, authz.PermDelete, authz.PermManageMembers, authz.PermAdmin}},
		{authz.RoleGuest,
			[]authz.Permission{authz.PermRead},
			[]authz.Permission{authz.PermWrite, authz.PermExport, authz.PermDelete, authz.PermAdmin}},
	}

	for _, tc := range cases {
		set := catalog.PermissionsOf(ctx, tc.role)
		for _, p := range tc.granted {
			if !set.Has(p) {
				t.Errorf("%s should hold %q", tc.role, p)
			}
		}
		for _, p := range tc.denied {
			if set.Has(p) {
				t.Errorf("%s should NOT hold %q", tc.role, p)
			}
		}
	}

	if len(catalog.PermissionsOf(ctx, "archmage")) != 0 {
		t.Error("unknown role must grant nothing")
	}
}

// TestPurpose: Validates that catalog consumers cannot mutate the shared matrix.
// Scope: Unit Test
// Expected: Modifying a returned permission set leaves the catalog unchanged.
// Test Case ID: ROL-02
func TestRoles_CatalogIsImmutable(t *testing.T) {
	catalog := authz.NewCatalog()
	ctx := context.Background()

	set := catalog.PermissionsOf(ctx, authz.RoleGuest)
	set[authz.PermAdmin] = true

	if catalog.PermissionsOf(ctx, authz.RoleGuest).Has(authz.PermAdmin) {
		t.Error("mutating a returned set must not affect the catalog")
	}
}

type stubCustomRoles struct {
	roles map[string]authz.PermissionSet
	err   error
}

func (s *stubCustomRoles) Permissions(ctx context.Context, role string) (authz.PermissionSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	if set, ok := s.roles[role]; ok {
		return set, nil
	}
	return nil, nil
}

// TestPurpose: Validates chained catalog resolution order and its deny-all fallbacks.
// Scope: Unit Test
// Security: A failing custom-role source must never grant permissions
// Expected: Built-ins win over custom definitions; unknown names and source errors resolve to the empty set.
// Test Case ID: ROL-03
func TestRoles_ChainedCatalog(t *testing.T) {
	custom := &stubCustomRoles{roles: map[string]authz.PermissionSet{
		"reviewer": {authz.PermRead: true, authz.PermExport: true},
		// A shadowing attempt: custom "guest" must never be consulted.
		authz.RoleGuest: {authz.PermAdmin: true},
	}}
	catalog := authz.NewChainedCatalog(authz.NewCatalog(), custom)
	ctx := context.Background()

	if !catalog.PermissionsOf(ctx, "reviewer").Has(authz.PermExport) {
		t.Error("custom role should resolve through the chain")
	}
	if catalog.PermissionsOf(ctx, authz.RoleGuest).Has(authz.PermAdmin) {
		t.Error("built-in definition must shadow the custom one")
	}
	if len(catalog.PermissionsOf(ctx, "unknown")) != 0 {
		t.Error("unknown role must resolve to the empty set")
	}

	custom.err = errors.New("custom role store down")
	if len(catalog.PermissionsOf(ctx, "reviewer")) != 0 {
		t.Error("a failing source must resolve to the empty set, not grant")
	}
}
