package wiki

import (
	"errors"
	"testing"

	"wikiflow/internal/domain"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

func TestCreateNode(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	first := h.createNode(t, space.RootGroupID, "Setup", false)
	second := h.createNode(t, space.RootGroupID, "Setup", false)

	if first.Route != "docs/setup" || second.Route != "docs/setup-2" {
		t.Errorf("routes = %q, %q", first.Route, second.Route)
	}
	if second.SortOrder != 1 {
		t.Errorf("second sort order = %d, want 1", second.SortOrder)
	}
	if first.Lft == 0 || first.Rgt == 0 {
		t.Errorf("bounds not set: [%d,%d]", first.Lft, first.Rgt)
	}

	tests := []struct {
		name    string
		req     *wikiSvc.CreateNodeRequest
		wantErr error
	}{
		{"missing title", &wikiSvc.CreateNodeRequest{ParentID: space.RootGroupID}, domain.ErrValidation},
		{"parent is a page", &wikiSvc.CreateNodeRequest{ParentID: first.ID, Title: "Child"}, domain.ErrValidation},
		{"unknown parent", &wikiSvc.CreateNodeRequest{ParentID: "missing", Title: "Child"}, domain.ErrNotFound},
		{"negative sort order", &wikiSvc.CreateNodeRequest{ParentID: space.RootGroupID, Title: "X", SortOrder: intPtr(-1)}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.nodes.CreateNode(h.ctx, editor, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateNode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := h.nodes.CreateNode(h.ctx, contributor, &wikiSvc.CreateNodeRequest{ParentID: space.RootGroupID, Title: "X"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("CreateNode() by contributor error = %v, want forbidden", err)
	}
}

func TestUpdateNodeSlugRewritesSubtree(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	guides := h.createNode(t, space.RootGroupID, "Guides", true)
	install := h.createNode(t, guides.ID, "Install", false)

	if _, err := h.nodes.UpdateNode(h.ctx, editor, guides.ID, &wikiSvc.UpdateNodeRequest{Slug: strPtr("How To")}); err != nil {
		t.Fatalf("UpdateNode() error = %v", err)
	}
	child, err := h.nodes.GetNode(h.ctx, viewer, install.ID)
	if err != nil {
		t.Fatalf("GetNode() error = %v", err)
	}
	if child.Route != "docs/how-to/install" {
		t.Errorf("child route = %q, want docs/how-to/install", child.Route)
	}
	if !contains(h.cache.invalidated, "docs/guides/install") {
		t.Errorf("stale child route not invalidated: %v", h.cache.invalidated)
	}

	if _, err := h.nodes.UpdateNode(h.ctx, editor, space.RootGroupID, &wikiSvc.UpdateNodeRequest{Slug: strPtr("x")}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("UpdateNode(root slug) error = %v, want validation error", err)
	}
	if _, err := h.nodes.UpdateNode(h.ctx, editor, install.ID, &wikiSvc.UpdateNodeRequest{Content: wikiSvc.OptionalContent{Present: true}}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("UpdateNode(null page content) error = %v, want validation error", err)
	}
}

func TestDeleteNode(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	guides := h.createNode(t, space.RootGroupID, "Guides", true)
	install := h.createNode(t, guides.ID, "Install", false)
	h.createNode(t, space.RootGroupID, "FAQ", false)

	deleted, err := h.nodes.DeleteNode(h.ctx, editor, guides.ID)
	if err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if _, err := h.nodes.GetNode(h.ctx, viewer, install.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetNode(child) error = %v, want not found", err)
	}
	if !contains(h.indexer.removed, install.ID) {
		t.Errorf("removed from index = %v, want child included", h.indexer.removed)
	}
	h.assertNestedSet(t)

	if _, err := h.nodes.DeleteNode(h.ctx, editor, space.RootGroupID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("DeleteNode(root) error = %v, want validation error", err)
	}
}

func TestGetBreadcrumbs(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	guides := h.createNode(t, space.RootGroupID, "Guides", true)
	install := h.createNode(t, guides.ID, "Install", false)

	crumbs, err := h.nodes.GetBreadcrumbs(h.ctx, viewer, install.ID)
	if err != nil {
		t.Fatalf("GetBreadcrumbs() error = %v", err)
	}
	var titles []string
	for _, c := range crumbs {
		titles = append(titles, c.Title)
	}
	if !equalStrings(titles, []string{"Docs", "Guides", "Install"}) {
		t.Errorf("breadcrumbs = %v, want [Docs Guides Install]", titles)
	}
}

func TestResolveRoute(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	guides := h.createNode(t, space.RootGroupID, "Guides", true)
	page := h.createNode(t, guides.ID, "Install", false)

	got, err := h.nodes.ResolveRoute(h.ctx, viewer, "docs/guides/install")
	if err != nil {
		t.Fatalf("ResolveRoute() error = %v", err)
	}
	if got.ID != page.ID {
		t.Errorf("ResolveRoute() = %s, want %s", got.ID, page.ID)
	}
	if id, ok, _ := h.cache.Get(h.ctx, "docs/guides/install"); !ok || id != page.ID {
		t.Errorf("route not cached: %q %v", id, ok)
	}

	if _, err := h.nodes.ResolveRoute(h.ctx, viewer, "docs/guides"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveRoute(group) error = %v, want not found", err)
	}

	// A stale cache entry pointing at the wrong node is ignored
	h.cache.Set(h.ctx, "docs/guides/install", guides.ID)
	got, err = h.nodes.ResolveRoute(h.ctx, viewer, "docs/guides/install")
	if err != nil || got.ID != page.ID {
		t.Errorf("ResolveRoute() with stale cache = %v, %v", got, err)
	}

	if _, err := h.nodes.UpdateNode(h.ctx, editor, page.ID, &wikiSvc.UpdateNodeRequest{IsPublished: boolPtr(false)}); err != nil {
		t.Fatalf("UpdateNode() error = %v", err)
	}
	if _, err := h.nodes.ResolveRoute(h.ctx, viewer, "docs/guides/install"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveRoute(unpublished) error = %v, want not found", err)
	}
}
