// Package main contains the entrypoint for the fridge bot: it runs the
// Telegram bot, imports catalog files and migrates the database.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/fridgebot/fridgebot/internal/catalog"
	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/logger"
)

type options struct {
	Config string `short:"c" long:"config" env:"FRIDGEBOT_CONFIG" default:"./config.yaml" description:"Path to configuration file"`

	Serve   struct{} `command:"serve" description:"Run the Telegram bot (default)"`
	Import  importOptions `command:"import" description:"Import categories, products, equipment and recipes from a YAML catalog"`
	Migrate struct{} `command:"migrate" description:"Apply database migrations and exit"`
}

type importOptions struct {
	File string `short:"f" long:"file" required:"true" description:"Path to the catalog YAML file"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:])
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run parses the command line, dispatches to the selected command and
// returns the process exit code.
func run(ctx context.Context, args []string) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	command := "serve"
	if parser.Active != nil {
		command = parser.Active.Name
	}

	switch command {
	case "import":
		return runImport(ctx, opts.Config, opts.Import.File)
	case "migrate":
		return runMigrate(opts.Config)
	default:
		return serve(ctx, opts.Config)
	}
}

// openStore loads the storage configuration, sets up logging and opens the
// migrated database.
func openStore(configPath string) (*config.Config, *slog.Logger, func(), database.Store, error) {
	cfg, err := config.LoadStorageConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return nil, nil, nil, nil, err
	}
	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return nil, nil, nil, nil, err
	}
	return cfg, log, func() { database.CloseDB(db) }, database.NewStore(db, log), nil
}

func runImport(ctx context.Context, configPath, file string) int {
	_, log, closeDB, store, err := openStore(configPath)
	if err != nil {
		return 1
	}
	defer closeDB()

	cat, err := catalog.Load(file)
	if err != nil {
		log.Error("Failed to load catalog", "file", file, "error", err)
		return 1
	}

	stats, err := catalog.Import(ctx, store, cat, log)
	if err != nil {
		log.Error("Catalog import failed", "file", file, "error", err)
		return 1
	}
	log.Info("Catalog import finished", "file", file, "recipes", stats.Recipes, "products", stats.Products)
	return 0
}

func runMigrate(configPath string) int {
	cfg, err := config.LoadStorageConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}
	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to migrate database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)

	version, err := database.ApplyMigrations(db.DB, database.ExtractDBNameFromPath(cfg.Database.Path))
	if err != nil {
		log.Error("Failed to read schema version", "error", err)
		return 1
	}
	log.Info("Database is up to date", "path", cfg.Database.Path, "version", version)
	return 0
}

// flushDelay lets buffered log output reach its destination before exit.
const flushDelay = time.Second
