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

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ScopeGraph resolves a resource reference to its ancestor chain, ordered
// from most specific to least specific scope. The chain for a document with
// a project is [document, project, workspace, organization]; without a
// project the project level is simply absent.
//
// Containment edges change rarely, so resolved chains are cached in an
// expirable LRU. The short TTL bounds how long a moved document can keep
// resolving against its old ancestors.
type ScopeGraph struct {
	dir   DirectoryLookup
	cache *lru.LRU[string, []ScopeRef]
}

// ScopeGraphConfig controls the chain cache.
type ScopeGraphConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// NewScopeGraph creates a scope graph backed by the given directory lookup.
func NewScopeGraph(dir DirectoryLookup, cfg ScopeGraphConfig) *ScopeGraph {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1024
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ScopeGraph{
		dir:   dir,
		cache: lru.NewLRU[string, []ScopeRef](size, nil, ttl),
	}
}

// AncestorChain returns the ordered scope chain for a resource. It returns
// ErrResourceNotFound when the resource does not exist and ErrInvalidScope
// for an unknown resource type.
func (g *ScopeGraph) AncestorChain(ctx context.Context, resourceType ScopeType, resourceID string) ([]ScopeRef, error) {
	key := string(resourceType) + ":" + resourceID
	if chain, ok := g.cache.Get(key); ok {
		return chain, nil
	}

	chain, err := g.resolve(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}

	g.cache.Add(key, chain)
	return chain, nil
}

// Invalidate drops the cached chain for a resource. Callers invoke it after
// moving a document between projects or workspaces.
func (g *ScopeGraph) Invalidate(resourceType ScopeType, resourceID string) {
	g.cache.Remove(string(resourceType) + ":" + resourceID)
}

func (g *ScopeGraph) resolve(ctx context.Context, resourceType ScopeType, resourceID string) ([]ScopeRef, error) {
	switch resourceType {
	case ScopeDocument:
		doc, err := g.dir.DocumentRef(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		ws, err := g.dir.WorkspaceRef(ctx, doc.WorkspaceID)
		if err != nil {
			return nil, err
		}

		chain := make([]ScopeRef, 0, 4)
		chain = append(chain, ScopeRef{Type: ScopeDocument, ID: doc.ID})
		if doc.ProjectID != nil && *doc.ProjectID != "" {
			chain = append(chain, ScopeRef{Type: ScopeProject, ID: *doc.ProjectID})
		}
		chain = append(chain,
			ScopeRef{Type: ScopeWorkspace, ID: ws.ID},
			ScopeRef{Type: ScopeOrganization, ID: ws.OrgID},
		)
		return chain, nil

	case ScopeProject:
		proj, err := g.dir.ProjectRef(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		ws, err := g.dir.WorkspaceRef(ctx, proj.WorkspaceID)
		if err != nil {
			return nil, err
		}
		return []ScopeRef{
			{Type: ScopeProject, ID: proj.ID},
			{Type: ScopeWorkspace, ID: ws.ID},
			{Type: ScopeOrganization, ID: ws.OrgID},
		}, nil

	case ScopeWorkspace:
		ws, err := g.dir.WorkspaceRef(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		return []ScopeRef{
			{Type: ScopeWorkspace, ID: ws.ID},
			{Type: ScopeOrganization, ID: ws.OrgID},
		}, nil

	case ScopeOrganization:
		exists, err := g.dir.OrganizationExists(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrResourceNotFound
		}
		return []ScopeRef{{Type: ScopeOrganization, ID: resourceID}}, nil

	default:
		return nil, ErrInvalidScope
	}
}
