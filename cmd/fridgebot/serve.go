package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/fridgebot/fridgebot/internal/assistant"
	"github.com/fridgebot/fridgebot/internal/bot"
	"github.com/fridgebot/fridgebot/internal/bot/handlers"
	"github.com/fridgebot/fridgebot/internal/bot/tasks"
	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/gemini"
	"github.com/fridgebot/fridgebot/internal/logger"
	"github.com/fridgebot/fridgebot/internal/openai"
	"github.com/fridgebot/fridgebot/internal/telegram"
)

// serve initializes and starts all application components (config, logger,
// db, language model client, bot, scheduler), handles graceful shutdown,
// and returns an exit code (0 for success, 1 for failure).
func serve(ctx context.Context, configPath string) int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db) // Ensure DB is closed on function exit
	store := database.NewStore(db, log)

	llm, err := newAssistant(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize language model client", "error", err)
		return 1
	}

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Assistant: llm,
	}
	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log), handlers.RegisterUser(hDeps)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	// Retrieve bot info and store it in the config for runtime use
	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	registered := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, registered); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.PublishCommands(ctx, tg, log, registered); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(flushDelay)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(flushDelay)
	return 0
}

// newAssistant builds the enabled language-model backend behind a circuit
// breaker. It returns nil when no backend is enabled.
func newAssistant(ctx context.Context, cfg *config.Config, log *slog.Logger) (assistant.Client, error) {
	var (
		name   string
		client assistant.Client
		err    error
	)
	switch {
	case cfg.Gemini.Enabled:
		name = "gemini"
		client, err = gemini.NewClient(ctx, cfg.Gemini, log)
	case cfg.OpenAI.Enabled:
		name = "openai"
		client, err = openai.NewClient(cfg.OpenAI, log)
	default:
		log.Info("No language model enabled, using the built-in product parser")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return assistant.NewBreakerClient(name, client, assistant.BreakerConfig{
		MaxFailures:   cfg.Assistant.BreakerFailures,
		ResetInterval: time.Duration(cfg.Assistant.BreakerResetSeconds) * time.Second,
	}, log), nil
}
