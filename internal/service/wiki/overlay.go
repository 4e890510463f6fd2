package wiki

import (
	"time"

	models "wikiflow/internal/domain/models/wiki"
)

// The overlay functions apply one operation to an in-memory node. The merge
// engine persists their result and the preview only displays it, so both
// agree on what a batch does.

// newNodeFromCreate builds the node a Create proposes. Pages default to empty
// content and every new node to sort order 0.
func newNodeFromCreate(op *models.CreateOp, parentID, route string, ts time.Time) models.Node {
	content := op.Content
	if content == nil && !op.IsGroup {
		empty := ""
		content = &empty
	}
	sortOrder := 0
	if op.SortOrder != nil {
		sortOrder = *op.SortOrder
	}
	parent := parentID
	return models.Node{
		Title:       op.Title,
		Content:     content,
		IsGroup:     op.IsGroup,
		IsPublished: op.IsPublished,
		ParentID:    &parent,
		SortOrder:   sortOrder,
		Route:       route,
		CreatedAt:   ts,
		ModifiedAt:  ts,
	}
}

// createSlug is the route segment a Create asks for
func createSlug(op *models.CreateOp) string {
	if op.Slug != nil && *op.Slug != "" {
		return Slugify(*op.Slug)
	}
	return Slugify(op.Title)
}

// applyEdit copies every proposed field onto n and returns the new slug, or ""
func applyEdit(n *models.Node, op *models.EditOp) string {
	if op.Title != nil {
		n.Title = *op.Title
	}
	if op.Content != nil {
		content := *op.Content
		n.Content = &content
	}
	if op.IsGroup != nil {
		n.IsGroup = *op.IsGroup
	}
	if op.IsPublished != nil {
		n.IsPublished = *op.IsPublished
	}
	if op.SortOrder != nil {
		n.SortOrder = *op.SortOrder
	}
	if op.Slug != nil && *op.Slug != "" {
		return Slugify(*op.Slug)
	}
	return ""
}

// applyMove reparents n and optionally repositions it
func applyMove(n *models.Node, parentID string, sortOrder *int) {
	parent := parentID
	n.ParentID = &parent
	if sortOrder != nil {
		n.SortOrder = *sortOrder
	}
}

// applyReorder sets the reorder's effective sort order and reports whether it had one
func applyReorder(n *models.Node, op *models.ReorderOp) bool {
	order, ok := op.EffectiveSortOrder()
	if ok {
		n.SortOrder = order
	}
	return ok
}

// siblingPositions maps each resolvable id in siblings to its index.
// Temp ids missing from m are skipped.
func siblingPositions(siblings []string, m models.TempIDMap) map[string]int {
	positions := make(map[string]int, len(siblings))
	for i, ref := range siblings {
		id, err := m.Resolve(ref)
		if err != nil {
			continue
		}
		positions[id] = i
	}
	return positions
}
