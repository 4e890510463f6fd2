package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
)

func TestExecTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	nodes := NewNodeRepository(s)

	root := &models.Node{Title: "Root", IsGroup: true, Route: "root", CreatedAt: time.Now()}
	if err := nodes.Create(ctx, root); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	boom := errors.New("boom")
	err := s.ExecTx(ctx, func(ctx context.Context) error {
		child := &models.Node{Title: "Child", ParentID: &root.ID, Route: "root/child"}
		if err := nodes.Create(ctx, child); err != nil {
			return err
		}
		root.Title = "Renamed"
		if err := nodes.Update(ctx, root); err != nil {
			return err
		}
		// Nested calls join the outer transaction
		return s.ExecTx(ctx, func(ctx context.Context) error { return boom })
	})
	if !errors.Is(err, boom) {
		t.Fatalf("ExecTx() error = %v, want boom", err)
	}

	all, err := nodes.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListAll() = %d nodes after rollback, want 1", len(all))
	}
	stored, err := nodes.GetByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Title != "Root" {
		t.Errorf("title = %q after rollback, want Root", stored.Title)
	}
}

func TestExecTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	nodes := NewNodeRepository(s)

	var id string
	err := s.ExecTx(ctx, func(ctx context.Context) error {
		n := &models.Node{Title: "Kept", IsGroup: true, Route: "kept"}
		if err := nodes.Create(ctx, n); err != nil {
			return err
		}
		id = n.ID
		return nil
	})
	if err != nil {
		t.Fatalf("ExecTx() error = %v", err)
	}
	if _, err := nodes.GetByID(ctx, id); err != nil {
		t.Errorf("GetByID() error = %v", err)
	}
	if _, err := nodes.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want not found", err)
	}
}

func TestContributionPayloadIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	nodes := NewNodeRepository(s)
	spaces := NewSpaceRepository(s)
	batches := NewBatchRepository(s)
	contribs := NewContributionRepository(s)

	root := &models.Node{Title: "Root", IsGroup: true, Route: "root"}
	if err := nodes.Create(ctx, root); err != nil {
		t.Fatalf("Create(node) error = %v", err)
	}
	space := &models.Space{Name: "Root", Route: "root", RootGroupID: root.ID}
	if err := spaces.Create(ctx, space); err != nil {
		t.Fatalf("Create(space) error = %v", err)
	}
	batch := &models.Batch{SpaceID: space.ID, ContributorID: "u1", Status: models.BatchDraft}
	if err := batches.Create(ctx, batch); err != nil {
		t.Fatalf("Create(batch) error = %v", err)
	}

	op := &models.CreateOp{TempID: "temp_a", ParentRef: root.ID, Title: "Original"}
	c := &models.Contribution{BatchID: batch.ID, Sequence: 1, Operation: op}
	if err := contribs.Create(ctx, c); err != nil {
		t.Fatalf("Create(contribution) error = %v", err)
	}
	op.Title = "Mutated after save"

	stored, err := contribs.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got := stored.Operation.(*models.CreateOp).Title; got != "Original" {
		t.Errorf("stored title = %q, want Original", got)
	}

	dup := &models.Contribution{BatchID: batch.ID, Sequence: 2, Operation: &models.CreateOp{TempID: "temp_a", ParentRef: root.ID, Title: "Dup"}}
	if err := contribs.Create(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Create(duplicate temp id) error = %v, want conflict", err)
	}

	counted, err := batches.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID(batch) error = %v", err)
	}
	if counted.ContributionCount != 1 {
		t.Errorf("ContributionCount = %d, want 1", counted.ContributionCount)
	}
}

func TestReadsWaitForRunningTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	nodes := NewNodeRepository(s)

	root := &models.Node{Title: "Root", IsGroup: true, Route: "root"}
	if err := nodes.Create(ctx, root); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	written := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- s.ExecTx(ctx, func(ctx context.Context) error {
			renamed := *root
			renamed.Title = "Half applied"
			if err := nodes.Update(ctx, &renamed); err != nil {
				return err
			}
			close(written)
			<-release
			return errors.New("later step failed")
		})
	}()
	<-written

	type readResult struct {
		title string
		err   error
	}
	read := make(chan readResult, 1)
	go func() {
		n, err := nodes.GetByID(ctx, root.ID)
		if err != nil {
			read <- readResult{err: err}
			return
		}
		read <- readResult{title: n.Title}
	}()

	select {
	case got := <-read:
		t.Fatalf("GetByID() returned %q while the transaction was running", got.title)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-txDone; err == nil {
		t.Fatal("ExecTx() error = nil, want failure")
	}
	got := <-read
	if got.err != nil {
		t.Fatalf("GetByID() error = %v", got.err)
	}
	if got.title != "Root" {
		t.Errorf("title = %q, want Root", got.title)
	}
}
