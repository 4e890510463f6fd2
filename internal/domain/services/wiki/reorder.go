package wiki

import (
	"context"

	"wikiflow/internal/domain/models"
	"wikiflow/internal/domain/models/wiki"
)

// Reorder modes
const (
	ReorderModeDirect       = "direct"       // live tree changed
	ReorderModeDraft        = "draft"        // unsaved node's Create contribution updated
	ReorderModeContribution = "contribution" // Move or Reorder contribution recorded
)

// ReorderService handles drag-and-drop moves from the tree editor
type ReorderService interface {
	Reorder(ctx context.Context, p models.Principal, req *ReorderRequest) (*ReorderResult, error)
}

// ReorderRequest represents a drop of NodeID at NewIndex under NewParentID
type ReorderRequest struct {
	NodeID      string   `json:"-"` // Set by handler from the URL
	NewParentID *string  `json:"new_parent_id,omitempty"`
	NewIndex    int      `json:"new_index"`
	Siblings    []string `json:"siblings"` // Full sibling order after the drop, may contain temp ids
	BatchID     *string  `json:"batch_id,omitempty"`
}

// ReorderResult reports how the drop was recorded
type ReorderResult struct {
	Mode         string             `json:"mode"`
	BatchID      string             `json:"batch_id,omitempty"`
	Contribution *wiki.Contribution `json:"contribution,omitempty"`
}
