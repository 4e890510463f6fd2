package wiki

import (
	"encoding/json"
	"time"
)

// Contribution is one proposed operation inside a batch.
type Contribution struct {
	ID        string    `json:"id" db:"id"`
	BatchID   string    `json:"batch_id" db:"batch_id"`
	Sequence  int       `json:"sequence" db:"sequence"`
	Operation Operation `json:"-" db:"payload"`
	// TargetDocumentID links to the live target; cleared once the target is deleted.
	TargetDocumentID *string   `json:"target_document_id" db:"target_document_id"`
	SiblingsOrder    []string  `json:"siblings_order,omitempty" db:"siblings_order"`
	Snapshot         *Snapshot `json:"snapshot,omitempty" db:"snapshot"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	ModifiedAt       time.Time `json:"modified_at" db:"modified_at"`
}

// Snapshot is the target's state when the contribution was created.
type Snapshot struct {
	OriginalTitle      string    `json:"original_title"`
	OriginalContent    *string   `json:"original_content,omitempty"`
	OriginalParent     *string   `json:"original_parent,omitempty"`
	OriginalModifiedAt time.Time `json:"original_modified_at"`
	OriginalRoute      string    `json:"original_route,omitempty"`
}

// SnapshotOf captures the fields conflict detection compares against.
func SnapshotOf(n *Node) *Snapshot {
	return &Snapshot{
		OriginalTitle:      n.Title,
		OriginalContent:    n.Content,
		OriginalParent:     n.ParentID,
		OriginalModifiedAt: n.ModifiedAt,
		OriginalRoute:      n.Route,
	}
}

// Kind returns the operation kind, or "" when no operation is set.
func (c *Contribution) Kind() OperationKind {
	if c.Operation == nil {
		return ""
	}
	return c.Operation.Kind()
}

// TempID returns the placeholder id minted by a Create contribution.
func (c *Contribution) TempID() string {
	if op, ok := c.Operation.(*CreateOp); ok {
		return op.TempID
	}
	return ""
}

// TempRefs lists the temp ids this contribution depends on.
func (c *Contribution) TempRefs() []string {
	var refs []string
	switch op := c.Operation.(type) {
	case *CreateOp:
		if IsTempID(op.ParentRef) {
			refs = append(refs, op.ParentRef)
		}
	case *MoveOp:
		if IsTempID(op.NewParentRef) {
			refs = append(refs, op.NewParentRef)
		}
	}
	return refs
}

// MarshalJSON flattens the operation into "operation" and "payload" keys.
func (c Contribution) MarshalJSON() ([]byte, error) {
	type alias Contribution
	return json.Marshal(struct {
		alias
		OperationKind OperationKind `json:"operation"`
		Payload       Operation     `json:"payload"`
	}{
		alias:         alias(c),
		OperationKind: c.Kind(),
		Payload:       c.Operation,
	})
}

// ContributionDiff compares an Edit contribution with its snapshot.
type ContributionDiff struct {
	ContributionID string        `json:"contribution_id"`
	Original       DiffSide      `json:"original"`
	Proposed       DiffSide      `json:"proposed"`
	Changed        bool          `json:"changed"`
	TitleDiff      []DiffSegment `json:"title_diff,omitempty"`
	ContentDiff    []DiffSegment `json:"content_diff,omitempty"`
}

// DiffSide is one side of a contribution diff.
type DiffSide struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DiffSegment is a run of text that is equal, inserted or deleted.
type DiffSegment struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}
