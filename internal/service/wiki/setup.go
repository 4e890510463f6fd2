package wiki

import (
	"log/slog"

	"wikiflow/internal/domain/repositories"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/domain/services"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

// Repositories groups the stores the wiki services read and write
type Repositories struct {
	Nodes         wikiRepo.NodeRepository
	Spaces        wikiRepo.SpaceRepository
	Batches       wikiRepo.BatchRepository
	Contributions wikiRepo.ContributionRepository
	TxManager     repositories.TransactionManager
}

// Services holds all wiki services
type Services struct {
	Spaces        wikiSvc.SpaceService
	Nodes         wikiSvc.NodeService
	Tree          wikiSvc.TreeService
	Batches       wikiSvc.BatchService
	Contributions wikiSvc.ContributionService
	Reorder       wikiSvc.ReorderService
	Rebuilder     wikiSvc.TreeRebuilder
}

// SetupServices wires the wiki services around one rebuilder.
// indexer and routeCache may be nil; pass an untyped nil, not a nil pointer.
func SetupServices(
	repos Repositories,
	indexer wikiSvc.SearchIndexer,
	routeCache wikiSvc.RouteCache,
	authorizer services.Authorizer,
	logger *slog.Logger,
) *Services {
	rebuilder := NewTreeRebuilder(repos.Nodes, logger)

	batches := NewBatchService(repos.Nodes, repos.Spaces, repos.Batches, repos.Contributions, repos.TxManager,
		rebuilder, indexer, routeCache, authorizer, logger)
	contributions := NewContributionService(repos.Nodes, repos.Spaces, repos.Batches, repos.Contributions,
		repos.TxManager, authorizer, logger)

	return &Services{
		Spaces:        NewSpaceService(repos.Nodes, repos.Spaces, repos.TxManager, rebuilder, authorizer, logger),
		Nodes:         NewNodeService(repos.Nodes, repos.Spaces, repos.Contributions, repos.TxManager, rebuilder, indexer, routeCache, authorizer, logger),
		Tree:          NewTreeService(repos.Nodes, repos.Spaces, repos.Batches, repos.Contributions, authorizer, logger),
		Batches:       batches,
		Contributions: contributions,
		Reorder: NewReorderService(repos.Nodes, repos.Spaces, repos.Batches, repos.Contributions, repos.TxManager,
			rebuilder, batches, contributions, indexer, routeCache, authorizer, logger),
		Rebuilder: rebuilder,
	}
}
