package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/franckalain/nutriledger/internal/ai"
	"github.com/franckalain/nutriledger/internal/budget"
	"github.com/franckalain/nutriledger/internal/config"
	"github.com/franckalain/nutriledger/internal/favorites"
	"github.com/franckalain/nutriledger/internal/health"
	"github.com/franckalain/nutriledger/internal/inventory"
	"github.com/franckalain/nutriledger/internal/mealplan"
	"github.com/franckalain/nutriledger/internal/product"
	"github.com/franckalain/nutriledger/internal/scoring"
	"github.com/franckalain/nutriledger/internal/server"
	"github.com/franckalain/nutriledger/internal/store"
)

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "path to configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env")
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Server.Debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.Debug("Debug logging enabled")
	}

	// Initialize storage
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()
	collections := store.NewCollections(db)

	// Initialize the text generator
	generator, err := ai.NewGenerator(cfg.AI.Type, *configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create text generator")
	}
	ctx := context.Background()
	if err := generator.Load(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to load text generator")
	}

	// Seed the engine from stored collections
	items, err := collections.LoadInventory(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load inventory")
	}
	plans, err := collections.LoadMealPlans(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load meal plans")
	}
	entries, err := collections.LoadBudgetEntries(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load budget entries")
	}

	ledger := inventory.NewLedger(logger, items)
	planner := mealplan.NewPlanner(logger, ledger, plans)
	tracker := budget.NewTracker(entries)

	var favoritesClient *favorites.Client
	if cfg.Favorites.BaseURL != "" {
		favoritesClient = favorites.NewClient(cfg.Favorites.BaseURL, logger)
	} else {
		logger.Warn("Favorites service not configured")
	}

	// Initialize and start server
	srv := server.New(server.Deps{
		Logger:      logger,
		Scorer:      scoring.NewScorer(generator),
		Ledger:      ledger,
		Planner:     planner,
		Assessor:    health.NewAssessor(logger, generator),
		Tracker:     tracker,
		Collections: collections,
		Products:    product.NewService(cfg.Product.BaseURL, generator, logger),
		Favorites:   favoritesClient,
		Generator:   generator,
	})
	if err := srv.Start(cfg.Server.Port); err != nil {
		logger.WithError(err).Error("Server shutdown with error")
		os.Exit(1)
	}
}
