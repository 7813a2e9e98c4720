package handlers

import (
	"log/slog"

	"github.com/fridgebot/fridgebot/internal/assistant"
	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/database"
)

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	// Assistant is nil when no language-model backend is enabled.
	Assistant assistant.Client
}
