package wiki

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wikiflow/internal/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// OperationKind names the mutation a contribution proposes.
type OperationKind string

const (
	OpCreate  OperationKind = "Create"
	OpEdit    OperationKind = "Edit"
	OpDelete  OperationKind = "Delete"
	OpMove    OperationKind = "Move"
	OpReorder OperationKind = "Reorder"
)

// TempIDPrefix marks batch-local placeholder ids for nodes that do not exist yet.
const TempIDPrefix = "temp_"

// IsTempID reports whether ref is a placeholder rather than a real node id.
func IsTempID(ref string) bool {
	return strings.HasPrefix(ref, TempIDPrefix)
}

// NewTempID mints a fresh placeholder id.
func NewTempID() string {
	return TempIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Operation is one of CreateOp, EditOp, DeleteOp, MoveOp or ReorderOp.
type Operation interface {
	Kind() OperationKind
	// Target is the existing node the operation touches ("" for Create).
	Target() string
	Validate() error
}

// CreateOp inserts a new node under ParentRef, which may be a temp id.
type CreateOp struct {
	TempID      string  `json:"temp_id"`
	ParentRef   string  `json:"parent_ref"`
	Title       string  `json:"proposed_title"`
	Content     *string `json:"proposed_content,omitempty"`
	IsGroup     bool    `json:"proposed_is_group"`
	IsPublished bool    `json:"proposed_is_published"`
	SortOrder   *int    `json:"proposed_sort_order,omitempty"`
	Slug        *string `json:"proposed_slug,omitempty"`
}

// EditOp overlays every non-nil field onto the target.
type EditOp struct {
	TargetID    string  `json:"target_document_id"`
	Title       *string `json:"proposed_title,omitempty"`
	Content     *string `json:"proposed_content,omitempty"`
	IsGroup     *bool   `json:"proposed_is_group,omitempty"`
	IsPublished *bool   `json:"proposed_is_published,omitempty"`
	SortOrder   *int    `json:"proposed_sort_order,omitempty"`
	Slug        *string `json:"proposed_slug,omitempty"`
}

// DeleteOp removes the target and its whole subtree.
type DeleteOp struct {
	TargetID string `json:"target_document_id"`
}

// MoveOp reparents the target under NewParentRef, which may be a temp id.
type MoveOp struct {
	TargetID     string `json:"target_document_id"`
	NewParentRef string `json:"new_parent_ref"`
	NewSortOrder *int   `json:"new_sort_order,omitempty"`
}

// ReorderOp changes the target's position among its siblings.
type ReorderOp struct {
	TargetID     string `json:"target_document_id"`
	SortOrder    *int   `json:"proposed_sort_order,omitempty"`
	NewSortOrder *int   `json:"new_sort_order,omitempty"`
}

func (op *CreateOp) Kind() OperationKind  { return OpCreate }
func (op *EditOp) Kind() OperationKind    { return OpEdit }
func (op *DeleteOp) Kind() OperationKind  { return OpDelete }
func (op *MoveOp) Kind() OperationKind    { return OpMove }
func (op *ReorderOp) Kind() OperationKind { return OpReorder }

func (op *CreateOp) Target() string  { return "" }
func (op *EditOp) Target() string    { return op.TargetID }
func (op *DeleteOp) Target() string  { return op.TargetID }
func (op *MoveOp) Target() string    { return op.TargetID }
func (op *ReorderOp) Target() string { return op.TargetID }

// EnsureTempID assigns a placeholder id when the caller did not supply one.
func (op *CreateOp) EnsureTempID() {
	if op.TempID == "" {
		op.TempID = NewTempID()
	}
}

func (op *CreateOp) Validate() error {
	return opValidationError(op.Kind(), validation.ValidateStruct(op,
		validation.Field(&op.TempID, validation.Required, validation.By(tempIDRule)),
		validation.Field(&op.ParentRef, validation.Required),
		validation.Field(&op.Title, validation.Required),
	))
}

func (op *EditOp) Validate() error {
	return opValidationError(op.Kind(), validation.ValidateStruct(op,
		validation.Field(&op.TargetID, validation.Required, validation.By(realIDRule)),
		validation.Field(&op.Title, validation.NilOrNotEmpty),
	))
}

func (op *DeleteOp) Validate() error {
	return opValidationError(op.Kind(), validation.ValidateStruct(op,
		validation.Field(&op.TargetID, validation.Required, validation.By(realIDRule)),
	))
}

func (op *MoveOp) Validate() error {
	return opValidationError(op.Kind(), validation.ValidateStruct(op,
		validation.Field(&op.TargetID, validation.Required, validation.By(realIDRule)),
		validation.Field(&op.NewParentRef, validation.Required),
	))
}

func (op *ReorderOp) Validate() error {
	return opValidationError(op.Kind(), validation.ValidateStruct(op,
		validation.Field(&op.TargetID, validation.Required, validation.By(realIDRule)),
	))
}

// ResolveParentRef maps the create's parent reference to a real node id.
func (op *CreateOp) ResolveParentRef(m TempIDMap) (string, error) {
	return m.Resolve(op.ParentRef)
}

// ResolveNewParentRef maps the move's destination reference to a real node id.
func (op *MoveOp) ResolveNewParentRef(m TempIDMap) (string, error) {
	return m.Resolve(op.NewParentRef)
}

// EffectiveSortOrder prefers the proposed sort order and falls back to NewSortOrder.
func (op *ReorderOp) EffectiveSortOrder() (int, bool) {
	switch {
	case op.SortOrder != nil:
		return *op.SortOrder, true
	case op.NewSortOrder != nil:
		return *op.NewSortOrder, true
	}
	return 0, false
}

// TempIDMap maps temp ids to the real ids minted while applying one batch.
type TempIDMap map[string]string

// Resolve returns real ids unchanged and maps temp ids, failing with a
// ReferenceError when the temp id has not been created yet.
func (m TempIDMap) Resolve(ref string) (string, error) {
	if !IsTempID(ref) {
		return ref, nil
	}
	if id, ok := m[ref]; ok {
		return id, nil
	}
	return "", &domain.ReferenceError{Ref: ref}
}

// NewOperation returns an empty operation of the given kind.
func NewOperation(kind OperationKind) (Operation, error) {
	switch kind {
	case OpCreate:
		return &CreateOp{}, nil
	case OpEdit:
		return &EditOp{}, nil
	case OpDelete:
		return &DeleteOp{}, nil
	case OpMove:
		return &MoveOp{}, nil
	case OpReorder:
		return &ReorderOp{}, nil
	}
	return nil, domain.NewValidationError("unknown operation %q", kind)
}

// EncodeOperation serialises the operation payload for storage.
func EncodeOperation(op Operation) ([]byte, error) {
	return json.Marshal(op)
}

// DecodeOperation restores an operation payload written by EncodeOperation.
func DecodeOperation(kind OperationKind, payload []byte) (Operation, error) {
	op, err := NewOperation(kind)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, op); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	return op, nil
}

func tempIDRule(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !IsTempID(s) {
		return fmt.Errorf("must start with %q", TempIDPrefix)
	}
	return nil
}

func realIDRule(value interface{}) error {
	s, _ := value.(string)
	if IsTempID(s) {
		return errors.New("must reference an existing page, not an unsaved one")
	}
	return nil
}

func opValidationError(kind OperationKind, err error) error {
	if err == nil {
		return nil
	}
	return domain.NewValidationError("%s contribution: %v", kind, err)
}
