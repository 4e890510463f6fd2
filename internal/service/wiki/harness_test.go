package wiki

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"wikiflow/internal/capabilities"
	domainModels "wikiflow/internal/domain/models"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	wikiSvc "wikiflow/internal/domain/services/wiki"
	"wikiflow/internal/repository/memory"
	"wikiflow/internal/service/auth"
)

var (
	editor      = domainModels.Principal{UserID: "edith", Role: "editor"}
	contributor = domainModels.Principal{UserID: "alice", Role: "contributor"}
	reviewer    = domainModels.Principal{UserID: "rita", Role: "reviewer"}
	viewer      = domainModels.Principal{UserID: "victor", Role: "viewer"}
)

// harness wires every service to one memory store
type harness struct {
	ctx context.Context

	store       *memory.Store
	nodeRepo    wikiRepo.NodeRepository
	batchRepo   wikiRepo.BatchRepository
	contribRepo wikiRepo.ContributionRepository

	spaces   wikiSvc.SpaceService
	nodes    wikiSvc.NodeService
	tree     wikiSvc.TreeService
	batches  wikiSvc.BatchService
	contribs wikiSvc.ContributionService
	reorder  wikiSvc.ReorderService

	cache   *fakeRouteCache
	indexer *fakeIndexer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	useFakeClock(t)

	registry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	authz := auth.NewRoleAuthorizer(registry)
	logger := discardLogger()

	store := memory.NewStore()
	nodeRepo := memory.NewNodeRepository(store)
	spaceRepo := memory.NewSpaceRepository(store)
	batchRepo := memory.NewBatchRepository(store)
	contribRepo := memory.NewContributionRepository(store)

	h := &harness{
		ctx:         context.Background(),
		store:       store,
		nodeRepo:    nodeRepo,
		batchRepo:   batchRepo,
		contribRepo: contribRepo,
		cache:       newFakeRouteCache(),
		indexer:     newFakeIndexer(),
	}

	svcs := SetupServices(Repositories{
		Nodes:         nodeRepo,
		Spaces:        spaceRepo,
		Batches:       batchRepo,
		Contributions: contribRepo,
		TxManager:     store.TransactionManager(),
	}, h.indexer, h.cache, authz, logger)
	h.spaces = svcs.Spaces
	h.nodes = svcs.Nodes
	h.tree = svcs.Tree
	h.batches = svcs.Batches
	h.contribs = svcs.Contributions
	h.reorder = svcs.Reorder
	return h
}

// useFakeClock makes now() tick one second per call
func useFakeClock(t *testing.T) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	ticks := 0

	prev := now
	now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	t.Cleanup(func() { now = prev })
}

func (h *harness) createSpace(t *testing.T, name string) *models.Space {
	t.Helper()
	space, err := h.spaces.CreateSpace(h.ctx, editor, &wikiSvc.CreateSpaceRequest{Name: name})
	if err != nil {
		t.Fatalf("CreateSpace(%q) error = %v", name, err)
	}
	return space
}

func (h *harness) createNode(t *testing.T, parentID, title string, isGroup bool) *models.Node {
	t.Helper()
	req := &wikiSvc.CreateNodeRequest{ParentID: parentID, Title: title, IsGroup: isGroup, IsPublished: true}
	if !isGroup {
		content := title + " body"
		req.Content = &content
	}
	node, err := h.nodes.CreateNode(h.ctx, editor, req)
	if err != nil {
		t.Fatalf("CreateNode(%q) error = %v", title, err)
	}
	return node
}

func (h *harness) draft(t *testing.T, p domainModels.Principal, spaceID string) *models.Batch {
	t.Helper()
	batch, err := h.batches.GetOrCreateDraft(h.ctx, p, spaceID, "")
	if err != nil {
		t.Fatalf("GetOrCreateDraft() error = %v", err)
	}
	return batch
}

func (h *harness) contribute(t *testing.T, p domainModels.Principal, batchID string, kind models.OperationKind, fields wikiSvc.ContributionFields) *models.Contribution {
	t.Helper()
	c, err := h.contribs.CreateContribution(h.ctx, p, &wikiSvc.CreateContributionRequest{
		BatchID:            batchID,
		Operation:          kind,
		ContributionFields: fields,
	})
	if err != nil {
		t.Fatalf("CreateContribution(%s) error = %v", kind, err)
	}
	return c
}

// approve submits the batch as its owner and approves it as the reviewer
func (h *harness) approve(t *testing.T, owner domainModels.Principal, batchID string) {
	t.Helper()
	if _, err := h.batches.Submit(h.ctx, owner, batchID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := h.batches.Approve(h.ctx, reviewer, batchID, nil); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
}

func (h *harness) childTitles(t *testing.T, spaceID, parentID string) []string {
	t.Helper()
	tree, err := h.tree.GetTree(h.ctx, viewer, spaceID)
	if err != nil {
		t.Fatalf("GetTree() error = %v", err)
	}
	var find func(n *models.TreeNode) *models.TreeNode
	find = func(n *models.TreeNode) *models.TreeNode {
		if n.ID == parentID {
			return n
		}
		for _, c := range n.Children {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	parent := find(tree)
	if parent == nil {
		t.Fatalf("node %s not in tree", parentID)
	}
	titles := make([]string, 0, len(parent.Children))
	for _, c := range parent.Children {
		titles = append(titles, c.Title)
	}
	return titles
}

// assertNestedSet checks the bounds of every stored node against its parent pointers
func (h *harness) assertNestedSet(t *testing.T) {
	t.Helper()
	nodes, err := h.nodeRepo.ListAll(h.ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	checkNestedSet(t, nodes)
}

func checkNestedSet(t *testing.T, nodes []models.Node) {
	t.Helper()
	byID := make(map[string]models.Node, len(nodes))
	used := make(map[int]bool, 2*len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		if n.Lft >= n.Rgt {
			t.Errorf("node %q: lft %d >= rgt %d", n.Title, n.Lft, n.Rgt)
		}
		for _, v := range []int{n.Lft, n.Rgt} {
			if v < 1 || v > 2*len(nodes) || used[v] {
				t.Errorf("node %q: bound %d duplicated or out of range", n.Title, v)
			}
			used[v] = true
		}
	}
	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			continue
		}
		if !parent.Contains(&n) {
			t.Errorf("node %q [%d,%d] not inside parent %q [%d,%d]",
				n.Title, n.Lft, n.Rgt, parent.Title, parent.Lft, parent.Rgt)
		}
	}
}

type fakeRouteCache struct {
	mu          sync.Mutex
	routes      map[string]string
	invalidated []string
}

func newFakeRouteCache() *fakeRouteCache {
	return &fakeRouteCache{routes: make(map[string]string)}
}

func (c *fakeRouteCache) Get(ctx context.Context, route string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.routes[route]
	return id, ok, nil
}

func (c *fakeRouteCache) Set(ctx context.Context, route, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[route] = nodeID
	return nil
}

func (c *fakeRouteCache) Invalidate(ctx context.Context, routes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range routes {
		delete(c.routes, r)
	}
	c.invalidated = append(c.invalidated, routes...)
	return nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[string]models.Node
	removed []string
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{indexed: make(map[string]models.Node)}
}

func (f *fakeIndexer) IndexNodes(ctx context.Context, nodes []models.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range nodes {
		f.indexed[n.ID] = n
	}
	return nil
}

func (f *fakeIndexer) RemoveNodes(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.indexed, id)
	}
	f.removed = append(f.removed, ids...)
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
