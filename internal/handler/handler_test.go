package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/domain"
	"wikiflow/internal/domain/models"
	"wikiflow/internal/domain/models/wiki"
	"wikiflow/internal/httputil"
	"wikiflow/internal/repository/memory"
	"wikiflow/internal/service/auth"
	serviceWiki "wikiflow/internal/service/wiki"
)

// testServer serves the API, taking the caller from the X-User and X-Role headers
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewStore()
	svcs := serviceWiki.SetupServices(serviceWiki.Repositories{
		Nodes:         memory.NewNodeRepository(store),
		Spaces:        memory.NewSpaceRepository(store),
		Batches:       memory.NewBatchRepository(store),
		Contributions: memory.NewContributionRepository(store),
		TxManager:     store.TransactionManager(),
	}, nil, nil, auth.NewRoleAuthorizer(registry), logger)

	mux := http.NewServeMux()
	NewRouter(svcs, NewHealthHandler(nil), logger).Register(mux)

	withCaller := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get("X-User"); user != "" {
			r = httputil.WithPrincipal(r, models.Principal{UserID: user, Role: r.Header.Get("X-Role")})
		}
		mux.ServeHTTP(w, r)
	})

	srv := httptest.NewServer(withCaller)
	t.Cleanup(srv.Close)
	return srv
}

type caller struct {
	user, role string
}

var (
	edith = caller{"edith", "editor"}
	alice = caller{"alice", "contributor"}
	rita  = caller{"rita", "reviewer"}
)

func do(t *testing.T, srv *httptest.Server, c caller, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if c.user != "" {
		req.Header.Set("X-User", c.user)
		req.Header.Set("X-Role", c.role)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d: %s", method, path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func TestContributionWorkflowOverHTTP(t *testing.T) {
	srv := testServer(t)

	var space wiki.Space
	do(t, srv, edith, http.MethodPost, "/api/spaces", map[string]any{"name": "Docs"}, http.StatusCreated, &space)
	if space.Route != "docs" {
		t.Fatalf("space route = %q, want docs", space.Route)
	}

	var batch wiki.Batch
	do(t, srv, alice, http.MethodPost, "/api/spaces/"+space.ID+"/draft-batch", nil, http.StatusOK, &batch)
	if batch.Status != wiki.BatchDraft {
		t.Fatalf("batch status = %q, want Draft", batch.Status)
	}

	do(t, srv, alice, http.MethodPost, "/api/batches/"+batch.ID+"/contributions", map[string]any{
		"operation":             "Create",
		"temp_id":               "temp_install",
		"parent_ref":            space.RootGroupID,
		"proposed_title":        "Install Guide",
		"proposed_content":      "run the installer",
		"proposed_is_published": true,
	}, http.StatusCreated, nil)

	var preview wiki.PreviewNode
	do(t, srv, alice, http.MethodGet, "/api/spaces/"+space.ID+"/preview?batch="+batch.ID, nil, http.StatusOK, &preview)
	if len(preview.Children) != 1 || preview.Children[0].Status != wiki.PreviewNew {
		t.Fatalf("preview children = %+v, want one new node", preview.Children)
	}

	// Contributors cannot merge their own work
	do(t, srv, alice, http.MethodPost, "/api/batches/"+batch.ID+"/submit", nil, http.StatusOK, &batch)
	do(t, srv, alice, http.MethodPost, "/api/batches/"+batch.ID+"/approve", nil, http.StatusForbidden, nil)

	var pending []wiki.Batch
	do(t, srv, rita, http.MethodGet, "/api/batches/pending", nil, http.StatusOK, &pending)
	if len(pending) != 1 || pending[0].ID != batch.ID {
		t.Fatalf("pending = %+v, want the submitted batch", pending)
	}

	do(t, srv, rita, http.MethodPost, "/api/batches/"+batch.ID+"/approve", map[string]any{"comment": "looks good"}, http.StatusOK, &batch)
	if batch.ReviewComment == nil || *batch.ReviewComment != "looks good" {
		t.Errorf("review comment = %v, want looks good", batch.ReviewComment)
	}

	var result struct {
		Batch   wiki.Batch        `json:"batch"`
		Created map[string]string `json:"created"`
	}
	do(t, srv, rita, http.MethodPost, "/api/batches/"+batch.ID+"/merge", nil, http.StatusOK, &result)
	if result.Batch.Status != wiki.BatchMerged {
		t.Errorf("merged status = %q, want Merged", result.Batch.Status)
	}
	if result.Created["temp_install"] == "" {
		t.Fatalf("created = %v, want temp_install resolved", result.Created)
	}

	var page wiki.Node
	do(t, srv, alice, http.MethodGet, "/api/pages/resolve?route=docs/install-guide", nil, http.StatusOK, &page)
	if page.ID != result.Created["temp_install"] {
		t.Errorf("resolved page = %s, want %s", page.ID, result.Created["temp_install"])
	}
}

func TestErrorResponses(t *testing.T) {
	srv := testServer(t)

	var space wiki.Space
	do(t, srv, edith, http.MethodPost, "/api/spaces", map[string]any{"name": "Docs"}, http.StatusCreated, &space)

	var batch wiki.Batch
	do(t, srv, alice, http.MethodPost, "/api/spaces/"+space.ID+"/draft-batch", nil, http.StatusOK, &batch)

	tests := []struct {
		name   string
		caller caller
		method string
		path   string
		body   any
		want   int
	}{
		{"unauthenticated", caller{}, http.MethodGet, "/api/spaces", nil, http.StatusUnauthorized},
		{"missing node", edith, http.MethodGet, "/api/nodes/nope", nil, http.StatusNotFound},
		{"contributor cannot edit live tree", alice, http.MethodPost, "/api/nodes", map[string]any{"parent_id": space.RootGroupID, "title": "X"}, http.StatusForbidden},
		{"unknown status filter", alice, http.MethodGet, "/api/batches?status=Lost", nil, http.StatusBadRequest},
		{"preview without batch", alice, http.MethodGet, "/api/spaces/" + space.ID + "/preview", nil, http.StatusBadRequest},
		{"empty batch submit", alice, http.MethodPost, "/api/batches/" + batch.ID + "/submit", nil, http.StatusBadRequest},
		{"unresolved temp parent", alice, http.MethodPost, "/api/batches/" + batch.ID + "/contributions", map[string]any{
			"operation":      "Create",
			"temp_id":        "temp_child",
			"parent_ref":     "temp_missing",
			"proposed_title": "Child",
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var problem map[string]any
			do(t, srv, tt.caller, tt.method, tt.path, tt.body, tt.want, &problem)
			if status, _ := problem["status"].(float64); int(status) != tt.want {
				t.Errorf("problem status = %v, want %d", problem["status"], tt.want)
			}
		})
	}
}

func TestUpdateNodeContentTriState(t *testing.T) {
	srv := testServer(t)

	var space wiki.Space
	do(t, srv, edith, http.MethodPost, "/api/spaces", map[string]any{"name": "Docs"}, http.StatusCreated, &space)

	var node wiki.Node
	do(t, srv, edith, http.MethodPost, "/api/nodes", map[string]any{
		"parent_id":    space.RootGroupID,
		"title":        "FAQ",
		"content":      "first",
		"is_published": true,
	}, http.StatusCreated, &node)

	// Absent content keeps the body
	do(t, srv, edith, http.MethodPatch, "/api/nodes/"+node.ID, map[string]any{"title": "Questions"}, http.StatusOK, &node)
	if node.Content == nil || *node.Content != "first" {
		t.Errorf("content = %v, want first", node.Content)
	}

	// Null content on a page is rejected
	var problem map[string]any
	do(t, srv, edith, http.MethodPatch, "/api/nodes/"+node.ID, map[string]any{"content": nil}, http.StatusBadRequest, &problem)
	if detail, _ := problem["detail"].(string); !strings.Contains(strings.ToLower(detail), "content") {
		t.Errorf("detail = %q, want a content message", detail)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := testServer(t)

	var body map[string]any
	do(t, srv, caller{}, http.MethodGet, "/health", nil, http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestHandleError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name  string
		err   error
		want  int
		extra string
	}{
		{"validation", domain.NewValidationError("bad title"), http.StatusBadRequest, ""},
		{"not found", fmt.Errorf("node x: %w", domain.ErrNotFound), http.StatusNotFound, ""},
		{"forbidden", fmt.Errorf("wrap: %w", domain.ErrForbidden), http.StatusForbidden, ""},
		{"conflict", &domain.ConflictError{Message: "FAQ changed", ResourceType: "document", ResourceID: "n1"}, http.StatusConflict, "resource_id"},
		{"reference", fmt.Errorf("merge: %w", &domain.ReferenceError{Ref: "temp_a", Sequence: 2}), http.StatusUnprocessableEntity, "ref"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, logger, tt.err)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var problem map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.extra != "" {
				if _, ok := problem[tt.extra]; !ok {
					t.Errorf("problem %v missing %q", problem, tt.extra)
				}
			}
			if tt.want == http.StatusInternalServerError && problem["detail"] != "internal server error" {
				t.Errorf("detail = %v, internal errors must not leak", problem["detail"])
			}
		})
	}
}
