package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wikiflow/internal/auth"
	"wikiflow/internal/cache"
	"wikiflow/internal/capabilities"
	"wikiflow/internal/config"
	"wikiflow/internal/domain/models"
	wikiSvc "wikiflow/internal/domain/services/wiki"
	"wikiflow/internal/handler"
	"wikiflow/internal/middleware"
	"wikiflow/internal/repository/memory"
	"wikiflow/internal/repository/postgres"
	postgresWiki "wikiflow/internal/repository/postgres/wiki"
	serviceAuth "wikiflow/internal/service/auth"
	serviceWiki "wikiflow/internal/service/wiki"
	"wikiflow/internal/search"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	// Storage
	var repos serviceWiki.Repositories
	health := map[string]handler.Pinger{}
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		repos = serviceWiki.Repositories{
			Nodes:         memory.NewNodeRepository(store),
			Spaces:        memory.NewSpaceRepository(store),
			Batches:       memory.NewBatchRepository(store),
			Contributions: memory.NewContributionRepository(store),
			TxManager:     store.TransactionManager(),
		}
		logger.Warn("using in-memory store; data is lost on restart")
	case config.StoreDriverPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		logger.Info("database connected", "max_conns", postgres.MaxConns, "min_conns", postgres.MinConns)

		repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
		repos = serviceWiki.Repositories{
			Nodes:         postgresWiki.NewNodeRepository(repoConfig),
			Spaces:        postgresWiki.NewSpaceRepository(repoConfig),
			Batches:       postgresWiki.NewBatchRepository(repoConfig),
			Contributions: postgresWiki.NewContributionRepository(repoConfig),
			TxManager:     postgres.NewTransactionManager(pool),
		}
		health["database"] = pool
	default:
		log.Fatalf("Unknown STORE_DRIVER %q (want postgres or memory)", cfg.StoreDriver)
	}

	// Optional collaborators stay untyped nil when disabled
	var indexer wikiSvc.SearchIndexer
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, logger)
		defer meili.Close()
		indexer = meili
		health["search"] = meili
	} else {
		logger.Warn("MEILI_URL not set - search indexing disabled")
	}

	var routeCache wikiSvc.RouteCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRouteCache(cfg.RedisURL, cfg.TablePrefix)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rc.Close()
		routeCache = rc
		health["cache"] = rc
	} else {
		logger.Warn("REDIS_URL not set - route cache disabled")
	}

	// Role policy
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	authorizer := serviceAuth.NewRoleAuthorizer(capabilityRegistry)
	logger.Info("capability registry initialized")

	svcs := serviceWiki.SetupServices(repos, indexer, routeCache, authorizer, logger)
	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.NewRouter(svcs, handler.NewHealthHandler(health), logger).Register(mux)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	if cfg.JWKSURL != "" {
		jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
		h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	} else if cfg.Environment == "dev" {
		logger.Warn("DEV MODE: JWKS_URL not set, every request runs as the dev admin (NEVER use in production!)")
		h = middleware.DevPrincipal(models.Principal{UserID: "dev-admin", Role: "admin"})(h)
	} else {
		log.Fatalf("JWKS_URL is required outside dev")
	}
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("server failed", "error", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
