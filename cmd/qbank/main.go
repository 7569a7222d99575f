package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"qbank/internal/config"
	"qbank/internal/domain/models"
	"qbank/internal/repository/memory"
	"qbank/internal/repository/postgres"
	"qbank/internal/seed"
	"qbank/internal/service"
)

func main() {
	// Parse command-line flags
	setupSchema := flag.Bool("setup-schema", false, "Create tables and indexes if they don't exist")
	dropTables := flag.Bool("drop-tables", false, "Drop all engine tables (fresh start)")
	seedTaxonomy := flag.Bool("seed", false, "Load the sample taxonomy through the service layer")
	runValidate := flag.Bool("validate", false, "Run a full integrity scan and print the report")
	runRepair := flag.Bool("repair", false, "Rebuild paths and closure rows from parent pointers")
	showStats := flag.Bool("stats", false, "Print tree statistics")
	exportID := flag.String("export", "", "Export the subtree rooted at this node id")
	importFile := flag.String("import", "", "Import a tree document from this YAML file")
	parentID := flag.String("parent", "", "Target parent id for -import (empty = root level)")
	outFile := flag.String("out", "", "Output file for -export (default stdout)")
	includeInactive := flag.Bool("include-inactive", false, "Include inactive categories in -export")
	actor := flag.String("actor", "admin-cli", "Actor recorded in audit fields")
	flag.Parse()

	// Load .env file (silently ignore if it doesn't exist)
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	logger := setupLogger(cfg)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Printf("Dropped tables (prefix: %s)", cfg.TablePrefix)
	}
	if *setupSchema || *dropTables {
		if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
			log.Fatalf("Failed to set up schema: %v", err)
		}
		log.Printf("Schema ready (prefix: %s)", cfg.TablePrefix)
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}

	// The attached-item collaborator is the question store, which lives
	// outside this tool; the zero-count stand-in keeps delete checks
	// permissive here.
	svc := service.New(
		postgres.NewNodeStore(repoConfig),
		postgres.NewClosureIndex(repoConfig),
		memory.NewItemCounter(),
		postgres.NewTransactionManager(pool),
		logger,
	)

	if *seedTaxonomy {
		if err := seed.Taxonomy(ctx, svc, *actor, logger); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Sample taxonomy seeded")
	}

	if *runRepair {
		paths, err := svc.RebuildPaths(ctx)
		if err != nil {
			log.Fatalf("Path rebuild failed: %v", err)
		}
		rows, err := svc.RebuildClosure(ctx)
		if err != nil {
			log.Fatalf("Closure rebuild failed: %v", err)
		}
		log.Printf("Repair complete: %d paths rewritten, %d closure rows", paths, rows)
	}

	if *runValidate {
		report, err := svc.Validate(ctx)
		if err != nil {
			log.Fatalf("Validation failed to run: %v", err)
		}
		if report.Valid {
			log.Println("Integrity OK")
		} else {
			log.Printf("Integrity check found %d issue(s):", len(report.Issues))
			for _, issue := range report.Issues {
				log.Printf("  [%s] node %s: %s", issue.Kind, issue.NodeID, issue.Detail)
			}
			os.Exit(1)
		}
	}

	if *showStats {
		stats, err := svc.Statistics(ctx)
		if err != nil {
			log.Fatalf("Statistics failed: %v", err)
		}
		log.Printf("Nodes: %d, max depth: %d, leaves: %d, internal: %d, last modified: %s",
			stats.TotalNodes, stats.MaxDepth, stats.LeafCount, stats.InternalCount,
			stats.LastModified.Format("2006-01-02 15:04:05"))
	}

	if *exportID != "" {
		if err := runExport(ctx, svc, *exportID, *includeInactive, *outFile); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	}

	if *importFile != "" {
		if err := runImport(ctx, svc, *importFile, *parentID, *actor); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if logFile, err := config.SetupLogFile(cfg.LogDir, 10); err == nil {
		out = io.MultiWriter(os.Stdout, logFile)
	} else {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func runExport(ctx context.Context, svc *service.Service, nodeID string, includeInactive bool, outFile string) error {
	doc, err := svc.ExportSubtree(ctx, nodeID, includeInactive)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal tree document: %w", err)
	}

	if outFile == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outFile, err)
	}
	log.Printf("Exported subtree %s to %s", nodeID, outFile)
	return nil
}

func runImport(ctx context.Context, svc *service.Service, importFile, parentID, actor string) error {
	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", importFile, err)
	}

	var doc models.TreeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse tree document: %w", err)
	}

	var target *string
	if parentID != "" {
		target = &parentID
	}

	result, err := svc.ImportSubtree(ctx, &doc, target, actor)
	if err != nil {
		return err
	}
	log.Printf("Imported %d categories, new root %s", len(result.CreatedIDs), result.RootID)
	return nil
}
