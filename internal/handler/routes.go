package handler

import (
	"log/slog"
	"net/http"

	serviceWiki "wikiflow/internal/service/wiki"
)

// Router holds every HTTP handler of the wiki API
type Router struct {
	Health        *HealthHandler
	Spaces        *SpaceHandler
	Nodes         *NodeHandler
	Batches       *BatchHandler
	Contributions *ContributionHandler
}

// NewRouter creates the handlers over the wiki services
func NewRouter(svcs *serviceWiki.Services, health *HealthHandler, logger *slog.Logger) *Router {
	return &Router{
		Health:        health,
		Spaces:        NewSpaceHandler(svcs.Spaces, svcs.Tree, svcs.Batches, logger),
		Nodes:         NewNodeHandler(svcs.Nodes, svcs.Reorder, logger),
		Batches:       NewBatchHandler(svcs.Batches, logger),
		Contributions: NewContributionHandler(svcs.Contributions, logger),
	}
}

// Register adds every route to the mux (Go 1.22+ enhanced patterns)
func (rt *Router) Register(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", rt.Health.HealthCheck)

	// Space routes
	mux.HandleFunc("GET /api/spaces", rt.Spaces.ListSpaces)
	mux.HandleFunc("POST /api/spaces", rt.Spaces.CreateSpace)
	mux.HandleFunc("GET /api/spaces/{id}", rt.Spaces.GetSpace)
	mux.HandleFunc("GET /api/spaces/{id}/tree", rt.Spaces.GetTree)
	mux.HandleFunc("GET /api/spaces/{id}/preview", rt.Spaces.GetPreview)
	mux.HandleFunc("POST /api/spaces/{id}/draft-batch", rt.Spaces.GetOrCreateDraft)

	// Node routes
	mux.HandleFunc("POST /api/nodes", rt.Nodes.CreateNode)
	mux.HandleFunc("GET /api/nodes/{id}", rt.Nodes.GetNode)
	mux.HandleFunc("PATCH /api/nodes/{id}", rt.Nodes.UpdateNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", rt.Nodes.DeleteNode)
	mux.HandleFunc("GET /api/nodes/{id}/breadcrumbs", rt.Nodes.GetBreadcrumbs)
	mux.HandleFunc("POST /api/nodes/{id}/reorder", rt.Nodes.Reorder)
	mux.HandleFunc("GET /api/pages/resolve", rt.Nodes.ResolvePage)

	// Batch routes
	mux.HandleFunc("GET /api/batches", rt.Batches.ListMyBatches)
	mux.HandleFunc("GET /api/batches/pending", rt.Batches.ListPending) // More specific than {id}
	mux.HandleFunc("GET /api/batches/{id}", rt.Batches.GetBatch)
	mux.HandleFunc("POST /api/batches/{id}/submit", rt.Batches.Submit)
	mux.HandleFunc("POST /api/batches/{id}/withdraw", rt.Batches.Withdraw)
	mux.HandleFunc("POST /api/batches/{id}/start-review", rt.Batches.StartReview)
	mux.HandleFunc("POST /api/batches/{id}/approve", rt.Batches.Approve)
	mux.HandleFunc("POST /api/batches/{id}/reject", rt.Batches.Reject)
	mux.HandleFunc("POST /api/batches/{id}/reopen", rt.Batches.Reopen)
	mux.HandleFunc("POST /api/batches/{id}/merge", rt.Batches.Merge)

	// Contribution routes
	mux.HandleFunc("GET /api/batches/{id}/contributions", rt.Contributions.ListContributions)
	mux.HandleFunc("POST /api/batches/{id}/contributions", rt.Contributions.CreateContribution)
	mux.HandleFunc("PATCH /api/contributions/{id}", rt.Contributions.UpdateContribution)
	mux.HandleFunc("DELETE /api/contributions/{id}", rt.Contributions.DeleteContribution)
	mux.HandleFunc("GET /api/contributions/{id}/diff", rt.Contributions.GetDiff)
}
