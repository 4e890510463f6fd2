package wiki

import (
	"errors"
	"testing"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

func TestGetTree(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	guides := h.createNode(t, space.RootGroupID, "Guides", true)
	h.createNode(t, guides.ID, "Install", false)
	h.createNode(t, space.RootGroupID, "FAQ", false)
	h.createSpace(t, "Elsewhere")

	tree, err := h.tree.GetTree(h.ctx, viewer, space.ID)
	if err != nil {
		t.Fatalf("GetTree() error = %v", err)
	}
	if tree.ID != space.RootGroupID || len(tree.Children) != 2 {
		t.Fatalf("root %s with %d children", tree.ID, len(tree.Children))
	}
	if tree.Children[0].Title != "Guides" || len(tree.Children[0].Children) != 1 {
		t.Errorf("first child = %q with %d children", tree.Children[0].Title, len(tree.Children[0].Children))
	}
	if tree.Children[0].Children[0].Route != "docs/guides/install" {
		t.Errorf("nested route = %q", tree.Children[0].Children[0].Route)
	}
}

func TestMergedTreePreview(t *testing.T) {
	h := newHarness(t)
	space := h.createSpace(t, "Docs")
	intro := h.createNode(t, space.RootGroupID, "Intro", false)
	archive := h.createNode(t, space.RootGroupID, "Archive", true)
	old := h.createNode(t, archive.ID, "Old", false)
	faq := h.createNode(t, space.RootGroupID, "FAQ", false)
	untouched := h.createNode(t, space.RootGroupID, "Untouched", false)

	batch := h.draft(t, contributor, space.ID)
	h.contribute(t, contributor, batch.ID, models.OpCreate, wikiSvc.ContributionFields{
		TempID:          strPtr("temp_news"),
		ParentRef:       strPtr(space.RootGroupID),
		ProposedTitle:   strPtr("News"),
		ProposedIsGroup: boolPtr(true),
	})
	h.contribute(t, contributor, batch.ID, models.OpEdit, wikiSvc.ContributionFields{
		TargetDocumentID: strPtr(intro.ID),
		ProposedTitle:    strPtr("Introduction"),
	})
	h.contribute(t, contributor, batch.ID, models.OpDelete, wikiSvc.ContributionFields{
		TargetDocumentID: strPtr(archive.ID),
	})
	h.contribute(t, contributor, batch.ID, models.OpMove, wikiSvc.ContributionFields{
		TargetDocumentID: strPtr(faq.ID),
		NewParentRef:     strPtr("temp_news"),
	})

	preview, err := h.tree.GetMergedTreePreview(h.ctx, contributor, space.ID, batch.ID)
	if err != nil {
		t.Fatalf("GetMergedTreePreview() error = %v", err)
	}

	statuses := make(map[string]models.PreviewStatus)
	titles := make(map[string]string)
	var walk func(n *models.PreviewNode)
	walk = func(n *models.PreviewNode) {
		statuses[n.ID] = n.Status
		titles[n.ID] = n.Title
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(preview)

	want := map[string]models.PreviewStatus{
		space.RootGroupID: models.PreviewLive,
		"temp_news":       models.PreviewNew,
		intro.ID:          models.PreviewModified,
		archive.ID:        models.PreviewDeleted,
		old.ID:            models.PreviewDeleted,
		faq.ID:            models.PreviewMoved,
		untouched.ID:      models.PreviewLive,
	}
	for id, status := range want {
		if statuses[id] != status {
			t.Errorf("status of %s = %q, want %q", titles[id], statuses[id], status)
		}
	}
	if titles[intro.ID] != "Introduction" {
		t.Errorf("edited title = %q, want Introduction", titles[intro.ID])
	}

	// Nothing was written
	live, err := h.nodeRepo.GetByID(h.ctx, intro.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if live.Title != "Intro" {
		t.Errorf("live title = %q, want Intro", live.Title)
	}

	t.Run("other users cannot preview", func(t *testing.T) {
		other := contributor
		other.UserID = "bob"
		if _, err := h.tree.GetMergedTreePreview(h.ctx, other, space.ID, batch.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("GetMergedTreePreview() error = %v, want forbidden", err)
		}
	})

	t.Run("batch must belong to the space", func(t *testing.T) {
		elsewhere := h.createSpace(t, "Elsewhere")
		if _, err := h.tree.GetMergedTreePreview(h.ctx, contributor, elsewhere.ID, batch.ID); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("GetMergedTreePreview() error = %v, want validation error", err)
		}
	})
}
