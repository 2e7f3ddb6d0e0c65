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

// TestPurpose: Validates ancestor chain construction for every resource level.
// Scope: Unit Test
// Expected: Chains run from most specific to least specific; the project level appears only for documents filed in a project.
// Test Case ID: SCG-01
func TestScopeGraph_AncestorChain(t *testing.T) {
	dir := NewMockDirectory()
	dir.orgs["org-1"] = true
	dir.workspaces["ws-1"] = &authz.WorkspaceRef{ID: "ws-1", OrgID: "org-1"}
	projectID := "proj-1"
	dir.projects["proj-1"] = &authz.ProjectRef{ID: "proj-1", WorkspaceID: "ws-1"}
	dir.documents["doc-in-proj"] = &authz.DocumentRef{ID: "doc-in-proj", WorkspaceID: "ws-1", ProjectID: &projectID}
	dir.documents["doc-loose"] = &authz.DocumentRef{ID: "doc-loose", WorkspaceID: "ws-1"}

	graph := authz.NewScopeGraph(dir, authz.ScopeGraphConfig{})
	ctx := context.Background()

	chain, err := graph.AncestorChain(ctx, authz.ScopeDocument, "doc-in-proj")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []authz.ScopeRef{
		{Type: authz.ScopeDocument, ID: "doc-in-proj"},
		{Type: authz.ScopeProject, ID: "proj-1"},
		{Type: authz.ScopeWorkspace, ID: "ws-1"},
		{Type: authz.ScopeOrganization, ID: "org-1"},
	}
	if len(chain) != len(want) {
		t.Fatalf("chain length: got %d want %d", len(chain), len(want))
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d]: got %+v want %+v", i, chain[i], want[i])
		}
	}

	chain, err = graph.AncestorChain(ctx, authz.ScopeDocument, "doc-loose")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 3 {
		t.Errorf("project-less document chain should have 3 levels, got %d", len(chain))
	}

	chain, err = graph.AncestorChain(ctx, authz.ScopeProject, "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 3 || chain[0].Type != authz.ScopeProject || chain[1].Type != authz.ScopeWorkspace || chain[2].Type != authz.ScopeOrganization {
		t.Errorf("unexpected project chain: %+v", chain)
	}

	chain, err = graph.AncestorChain(ctx, authz.ScopeWorkspace, "ws-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 2 || chain[0].Type != authz.ScopeWorkspace || chain[1].Type != authz.ScopeOrganization {
		t.Errorf("unexpected workspace chain: %+v", chain)
	}

	chain, err = graph.AncestorChain(ctx, authz.ScopeOrganization, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 1 {
		t.Errorf("organization chain should be a single scope, got %+v", chain)
	}
}

// TestPurpose: Validates scope graph error handling for missing resources and unknown scope types.
// Scope: Unit Test
// Expected: ErrResourceNotFound for missing rows, ErrInvalidScope for unknown types; neither is cached.
// Test Case ID: SCG-02
func TestScopeGraph_Errors(t *testing.T) {
	dir := NewMockDirectory()
	graph := authz.NewScopeGraph(dir, authz.ScopeGraphConfig{})
	ctx := context.Background()

	if _, err := graph.AncestorChain(ctx, authz.ScopeDocument, "nope"); !errors.Is(err, authz.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
	if _, err := graph.AncestorChain(ctx, authz.ScopeProject, "nope"); !errors.Is(err, authz.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
	if _, err := graph.AncestorChain(ctx, authz.ScopeOrganization, "nope"); !errors.Is(err, authz.ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
	if _, err := graph.AncestorChain(ctx, "galaxy", "nope"); !errors.Is(err, authz.ErrInvalidScope) {
		t.Errorf("expected ErrInvalidScope, got %v", err)
	}

	// Not-found results are not negatively cached: once the resource exists
	// the chain resolves.
	dir.orgs["org-late"] = true
	if _, err := graph.AncestorChain(ctx, authz.ScopeOrganization, "org-late"); err != nil {
		t.Errorf("expected resolution after creation, got %v", err)
	}
}

// TestPurpose: Validates cache invalidation after a containment move.
// Scope: Unit Test
// Expected: After Invalidate the chain reflects the document's new project.
// Test Case ID: SCG-03
func TestScopeGraph_Invalidate(t *testing.T) {
	dir := NewMockDirectory()
	dir.orgs["org-1"] = true
	dir.workspaces["ws-1"] = &authz.WorkspaceRef{ID: "ws-1", OrgID: "org-1"}
	projA := "proj-a"
	dir.documents["doc-1"] = &authz.DocumentRef{ID: "doc-1", WorkspaceID: "ws-1", ProjectID: &projA}

	graph := authz.NewScopeGraph(dir, authz.ScopeGraphConfig{})
	ctx := context.Background()

	if _, err := graph.AncestorChain(ctx, authz.ScopeDocument, "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Move the document, then drop the stale chain.
	projB := "proj-b"
	dir.documents["doc-1"].ProjectID = &projB
	graph.Invalidate(authz.ScopeDocument, "doc-1")

	chain, err := graph.AncestorChain(ctx, authz.ScopeDocument, "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain[1].ID != "proj-b" {
		t.Errorf("expected chain to reflect the move, got %+v", chain)
	}
}
