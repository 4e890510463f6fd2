package wiki

import (
	"errors"
	"testing"

	"wikiflow/internal/domain"
)

func TestTempIDMapResolve(t *testing.T) {
	m := TempIDMap{"temp_a": "real-a"}

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"real-b", "real-b", false},
		{"temp_a", "real-a", false},
		{"temp_missing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := m.Resolve(tt.ref)
			if tt.wantErr {
				var refErr *domain.ReferenceError
				if !errors.As(err, &refErr) || refErr.Ref != tt.ref {
					t.Fatalf("Resolve() error = %v, want ReferenceError for %s", err, tt.ref)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Resolve() = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
}

func TestOperationValidate(t *testing.T) {
	title := "Title"
	tests := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{"create", &CreateOp{TempID: "temp_x", ParentRef: "root", Title: "Page"}, false},
		{"create without temp prefix", &CreateOp{TempID: "x", ParentRef: "root", Title: "Page"}, true},
		{"create without parent", &CreateOp{TempID: "temp_x", Title: "Page"}, true},
		{"edit", &EditOp{TargetID: "n1", Title: &title}, false},
		{"edit of unsaved node", &EditOp{TargetID: "temp_x"}, true},
		{"delete without target", &DeleteOp{}, true},
		{"move to temp parent", &MoveOp{TargetID: "n1", NewParentRef: "temp_g"}, false},
		{"reorder", &ReorderOp{TargetID: "n1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Validate() error = %v, want validation error", err)
			}
		})
	}
}

func TestReorderEffectiveSortOrder(t *testing.T) {
	one, two := 1, 2
	if got, ok := (&ReorderOp{SortOrder: &one, NewSortOrder: &two}).EffectiveSortOrder(); !ok || got != 1 {
		t.Errorf("EffectiveSortOrder() = %d, %v, want 1", got, ok)
	}
	if got, ok := (&ReorderOp{NewSortOrder: &two}).EffectiveSortOrder(); !ok || got != 2 {
		t.Errorf("EffectiveSortOrder() = %d, %v, want 2", got, ok)
	}
	if _, ok := (&ReorderOp{}).EffectiveSortOrder(); ok {
		t.Error("EffectiveSortOrder() ok = true for an empty reorder")
	}
}

func TestDecodeOperationRoundTrip(t *testing.T) {
	order := 3
	op := &MoveOp{TargetID: "n1", NewParentRef: "temp_g", NewSortOrder: &order}
	payload, err := EncodeOperation(op)
	if err != nil {
		t.Fatalf("EncodeOperation() error = %v", err)
	}
	decoded, err := DecodeOperation(OpMove, payload)
	if err != nil {
		t.Fatalf("DecodeOperation() error = %v", err)
	}
	move, ok := decoded.(*MoveOp)
	if !ok || move.NewParentRef != "temp_g" || move.NewSortOrder == nil || *move.NewSortOrder != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
	if _, err := DecodeOperation("Rename", payload); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("DecodeOperation(unknown) error = %v, want validation error", err)
	}
}
