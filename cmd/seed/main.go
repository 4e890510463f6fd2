package main

import (
	"context"
	"flag"
	"log"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/config"
	"wikiflow/internal/domain/models"
	wikiSvc "wikiflow/internal/domain/services/wiki"
	"wikiflow/internal/repository/postgres"
	postgresWiki "wikiflow/internal/repository/postgres/wiki"
	serviceAuth "wikiflow/internal/service/auth"
	serviceWiki "wikiflow/internal/service/wiki"

	"github.com/joho/godotenv"
)

// seedAdmin owns the demo content
var seedAdmin = models.Principal{UserID: "seed", Role: "admin"}

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed the demo space")
	clearData := flag.Bool("clear-data", false, "Delete all rows (keep schema)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: cannot run -drop-tables or -clear-data in production")
	}

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	logger.Info("seeding", "environment", cfg.Environment, "prefix", cfg.TablePrefix)

	if *dropTables {
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		logger.Info("tables dropped")
	}

	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	logger.Info("schema ready")

	if *schemaOnly {
		return
	}

	if *clearData {
		if err := postgres.ClearData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		logger.Info("data cleared")
		return
	}

	registry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load role policy: %v", err)
	}

	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	svcs := serviceWiki.SetupServices(serviceWiki.Repositories{
		Nodes:         postgresWiki.NewNodeRepository(repoConfig),
		Spaces:        postgresWiki.NewSpaceRepository(repoConfig),
		Batches:       postgresWiki.NewBatchRepository(repoConfig),
		Contributions: postgresWiki.NewContributionRepository(repoConfig),
		TxManager:     postgres.NewTransactionManager(pool),
	}, nil, nil, serviceAuth.NewRoleAuthorizer(registry), logger)

	if err := seedDemoSpace(ctx, svcs); err != nil {
		log.Fatalf("Failed to seed demo space: %v", err)
	}
	logger.Info("seeding complete")
}

type seedPage struct {
	title   string
	content string
}

type seedGroup struct {
	title string
	pages []seedPage
}

var demoGroups = []seedGroup{
	{
		title: "Getting Started",
		pages: []seedPage{
			{"Introduction", "# Introduction\n\nWelcome to the demo wiki.\n"},
			{"Installation", "# Installation\n\nDownload the release and run the installer.\n"},
		},
	},
	{
		title: "Guides",
		pages: []seedPage{
			{"Writing Pages", "# Writing Pages\n\nPropose changes through a contribution batch.\n"},
			{"Reviewing", "# Reviewing\n\nReviewers approve or reject submitted batches.\n"},
		},
	},
}

// seedDemoSpace creates the Docs space with a couple of published groups and pages
func seedDemoSpace(ctx context.Context, svcs *serviceWiki.Services) error {
	space, err := svcs.Spaces.CreateSpace(ctx, seedAdmin, &wikiSvc.CreateSpaceRequest{Name: "Docs"})
	if err != nil {
		return err
	}

	for _, g := range demoGroups {
		group, err := svcs.Nodes.CreateNode(ctx, seedAdmin, &wikiSvc.CreateNodeRequest{
			ParentID:    space.RootGroupID,
			Title:       g.title,
			IsGroup:     true,
			IsPublished: true,
		})
		if err != nil {
			return err
		}

		for _, p := range g.pages {
			content := p.content
			if _, err := svcs.Nodes.CreateNode(ctx, seedAdmin, &wikiSvc.CreateNodeRequest{
				ParentID:    group.ID,
				Title:       p.title,
				Content:     &content,
				IsPublished: true,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
