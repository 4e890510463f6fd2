// Package memory is an in-process implementation of the wiki repositories.
// It backs the test suites and STORE_DRIVER=memory development runs.
package memory

import (
	"context"
	"sync"

	models "wikiflow/internal/domain/models/wiki"
	"wikiflow/internal/domain/repositories"

	"github.com/google/uuid"
)

type txMarker struct{}

// Store holds every record. A transaction holds txMu exclusively until it
// commits or rolls back, so callers outside it never observe partial writes.
// A failed transaction restores the state captured when it began.
type Store struct {
	mu   sync.RWMutex
	txMu sync.RWMutex

	nodes         map[string]models.Node
	spaces        map[string]models.Space
	batches       map[string]models.Batch
	contributions map[string]storedContribution
}

type storedContribution struct {
	models.Contribution
	kind    models.OperationKind
	payload []byte
}

type state struct {
	nodes         map[string]models.Node
	spaces        map[string]models.Space
	batches       map[string]models.Batch
	contributions map[string]storedContribution
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		nodes:         make(map[string]models.Node),
		spaces:        make(map[string]models.Space),
		batches:       make(map[string]models.Batch),
		contributions: make(map[string]storedContribution),
	}
}

// TransactionManager returns the store as a repositories.TransactionManager
func (s *Store) TransactionManager() repositories.TransactionManager {
	return s
}

// ExecTx runs fn with rollback-on-error semantics. Nested calls join the outer transaction.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	saved := s.capture()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.restore(saved)
		return err
	}
	if err := ctx.Err(); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	return ctx != nil && ctx.Value(txMarker{}) != nil
}

// read locks the store for a single read. Outside a transaction it waits for
// any running transaction to finish.
func (s *Store) read(ctx context.Context) (unlock func()) {
	if inTx(ctx) {
		s.mu.RLock()
		return s.mu.RUnlock
	}
	s.txMu.RLock()
	s.mu.RLock()
	return func() {
		s.mu.RUnlock()
		s.txMu.RUnlock()
	}
}

// write locks the store for a single write, committed on return when no
// transaction is running.
func (s *Store) write(ctx context.Context) (unlock func()) {
	if inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) capture() state {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := state{
		nodes:         make(map[string]models.Node, len(s.nodes)),
		spaces:        make(map[string]models.Space, len(s.spaces)),
		batches:       make(map[string]models.Batch, len(s.batches)),
		contributions: make(map[string]storedContribution, len(s.contributions)),
	}
	for k, v := range s.nodes {
		st.nodes[k] = v
	}
	for k, v := range s.spaces {
		st.spaces[k] = v
	}
	for k, v := range s.batches {
		st.batches[k] = v
	}
	for k, v := range s.contributions {
		st.contributions[k] = v
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = st.nodes
	s.spaces = st.spaces
	s.batches = st.batches
	s.contributions = st.contributions
}

func newID() string {
	return uuid.NewString()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneNode(n models.Node) models.Node {
	n.Content = clonePtr(n.Content)
	n.ParentID = clonePtr(n.ParentID)
	return n
}

func cloneBatch(b models.Batch) models.Batch {
	b.SubmittedAt = clonePtr(b.SubmittedAt)
	b.ReviewedBy = clonePtr(b.ReviewedBy)
	b.ReviewedAt = clonePtr(b.ReviewedAt)
	b.ReviewComment = clonePtr(b.ReviewComment)
	return b
}
