package wiki

import (
	"errors"
	"testing"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

func TestDirectReorder(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	a := h.createNode(t, space.RootGroupID, "A", false)
	b := h.createNode(t, space.RootGroupID, "B", false)
	c := h.createNode(t, space.RootGroupID, "C", false)

	result, err := h.reorder.Reorder(h.ctx, editor, &wikiSvc.ReorderRequest{
		NodeID:   b.ID,
		NewIndex: 0,
		Siblings: []string{b.ID, a.ID, c.ID},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if result.Mode != wikiSvc.ReorderModeDirect {
		t.Errorf("mode = %s, want direct", result.Mode)
	}
	if got := h.childTitles(t, space.ID, space.RootGroupID); !equalStrings(got, []string{"B", "A", "C"}) {
		t.Errorf("children = %v, want [B A C]", got)
	}

	prevLft := -1
	for want, n := range []*models.Node{b, a, c} {
		got, err := h.nodeRepo.GetByID(h.ctx, n.ID)
		if err != nil {
			t.Fatalf("GetByID(%s) error = %v", n.Title, err)
		}
		if got.SortOrder != want {
			t.Errorf("%s sort order = %d, want %d", n.Title, got.SortOrder, want)
		}
		if got.Lft <= prevLft {
			t.Errorf("%s lft = %d, want greater than %d", n.Title, got.Lft, prevLft)
		}
		prevLft = got.Lft
	}
	h.assertNestedSet(t)
}

func TestDirectReorderSkipsMissingSibling(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	a := h.createNode(t, space.RootGroupID, "A", false)
	b := h.createNode(t, space.RootGroupID, "B", false)
	gone := h.createNode(t, space.RootGroupID, "Gone", false)
	if _, err := h.nodes.DeleteNode(h.ctx, editor, gone.ID); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}

	_, err := h.reorder.Reorder(h.ctx, editor, &wikiSvc.ReorderRequest{
		NodeID:   b.ID,
		NewIndex: 0,
		Siblings: []string{b.ID, gone.ID, a.ID},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if got := h.childTitles(t, space.ID, space.RootGroupID); !equalStrings(got, []string{"B", "A"}) {
		t.Errorf("children = %v, want [B A]", got)
	}
	h.assertNestedSet(t)
}

func TestDirectReparent(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	guides := h.createNode(t, space.RootGroupID, "Guides", true)
	first := h.createNode(t, guides.ID, "First", false)
	page := h.createNode(t, space.RootGroupID, "Loose", false)

	_, err := h.reorder.Reorder(h.ctx, editor, &wikiSvc.ReorderRequest{
		NodeID:      page.ID,
		NewParentID: strPtr(guides.ID),
		NewIndex:    0,
		Siblings:    []string{page.ID, first.ID},
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if got := h.childTitles(t, space.ID, guides.ID); !equalStrings(got, []string{"Loose", "First"}) {
		t.Errorf("children = %v, want [Loose First]", got)
	}
	moved, err := h.nodeRepo.GetByID(h.ctx, page.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if moved.Route != "docs/guides/loose" {
		t.Errorf("route = %q", moved.Route)
	}

	_, err = h.reorder.Reorder(h.ctx, editor, &wikiSvc.ReorderRequest{
		NodeID:      guides.ID,
		NewParentID: strPtr(guides.ID),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Reorder() into itself error = %v, want validation error", err)
	}
}

func TestReorderAsContribution(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	a := h.createNode(t, space.RootGroupID, "A", false)
	b := h.createNode(t, space.RootGroupID, "B", false)
	group := h.createNode(t, space.RootGroupID, "Group", true)

	t.Run("same parent records a Reorder", func(t *testing.T) {
		result, err := h.reorder.Reorder(h.ctx, contributor, &wikiSvc.ReorderRequest{
			NodeID:   b.ID,
			NewIndex: 0,
			Siblings: []string{b.ID, a.ID, group.ID},
		})
		if err != nil {
			t.Fatalf("Reorder() error = %v", err)
		}
		if result.Mode != wikiSvc.ReorderModeContribution || result.Contribution.Kind() != models.OpReorder {
			t.Fatalf("Reorder() = %s/%s, want contribution/Reorder", result.Mode, result.Contribution.Kind())
		}
	})

	t.Run("new parent records a Move", func(t *testing.T) {
		result, err := h.reorder.Reorder(h.ctx, contributor, &wikiSvc.ReorderRequest{
			NodeID:      a.ID,
			NewParentID: strPtr(group.ID),
			NewIndex:    0,
		})
		if err != nil {
			t.Fatalf("Reorder() error = %v", err)
		}
		if result.Contribution.Kind() != models.OpMove {
			t.Fatalf("kind = %s, want Move", result.Contribution.Kind())
		}
	})

	// The live tree is untouched until the batch merges
	if got := h.childTitles(t, space.ID, space.RootGroupID); !equalStrings(got, []string{"A", "B", "Group"}) {
		t.Errorf("live children = %v, want [A B Group]", got)
	}

	batch := h.draft(t, contributor, space.ID)
	h.approve(t, contributor, batch.ID)
	if _, err := h.batches.Merge(h.ctx, reviewer, batch.ID); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got := h.childTitles(t, space.ID, space.RootGroupID); !equalStrings(got, []string{"B", "Group"}) {
		t.Errorf("merged children = %v, want [B Group]", got)
	}
	if got := h.childTitles(t, space.ID, group.ID); !equalStrings(got, []string{"A"}) {
		t.Errorf("group children = %v, want [A]", got)
	}
}

func TestReorderUnsavedNode(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	existing := h.createNode(t, space.RootGroupID, "Existing", false)
	batch := h.draft(t, contributor, space.ID)
	h.contribute(t, contributor, batch.ID, models.OpCreate, wikiSvc.ContributionFields{
		TempID:        strPtr("temp_new"),
		ParentRef:     strPtr(space.RootGroupID),
		ProposedTitle: strPtr("New"),
	})

	if _, err := h.reorder.Reorder(h.ctx, contributor, &wikiSvc.ReorderRequest{NodeID: "temp_new"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Reorder() without batch error = %v, want validation error", err)
	}

	result, err := h.reorder.Reorder(h.ctx, contributor, &wikiSvc.ReorderRequest{
		NodeID:   "temp_new",
		NewIndex: 0,
		Siblings: []string{"temp_new", existing.ID},
		BatchID:  &batch.ID,
	})
	if err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if result.Mode != wikiSvc.ReorderModeDraft {
		t.Errorf("mode = %s, want draft", result.Mode)
	}
	op := result.Contribution.Operation.(*models.CreateOp)
	if op.SortOrder == nil || *op.SortOrder != 0 {
		t.Errorf("sort order = %v, want 0", op.SortOrder)
	}

	h.approve(t, contributor, batch.ID)
	if _, err := h.batches.Merge(h.ctx, reviewer, batch.ID); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got := h.childTitles(t, space.ID, space.RootGroupID); !equalStrings(got, []string{"New", "Existing"}) {
		t.Errorf("children = %v, want [New Existing]", got)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
