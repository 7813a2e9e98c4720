package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/matcher"
)

var errBadRecipeArgs = errors.New("bad /recipes arguments")

// NewRecipesHandler returns a handler for /recipes [minutes] [any|available|missing].
func NewRecipesHandler(deps HandlerDeps) bot.HandlerFunc {
	return recipesHandler{deps}.Handle
}

type recipesHandler struct {
	deps HandlerDeps
}

func (h recipesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "recipes")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Recipes handler received update without message or user", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	opts, err := recipeOptions(h.deps.Config.Matching, commandArgs(msg.Text))
	if err != nil {
		sendText(ctx, b, log, chatID, msgs.RecipesUsage)
		return
	}

	matches, err := h.deps.Store.FindRecipesByAvailability(ctx, user.ID, opts)
	if err != nil {
		log.ErrorContext(ctx, "Failed to find recipes", "error", err, "user_id", user.ID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}
	if len(matches) == 0 {
		sendText(ctx, b, log, chatID, msgs.NoRecipes)
		return
	}

	log.InfoContext(ctx, "Recipes found", "user_id", user.ID, "count", len(matches), "mode", opts.Mode)
	sendMessage(ctx, b, log, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        formatMatches(msgs.RecipesHeader, matches),
		ReplyMarkup: recipeKeyboard(matches),
	})
}

// recipeOptions builds search options from the configured defaults and the
// command arguments: an optional cooking time limit in minutes and an
// optional mode, in any order.
func recipeOptions(cfg config.MatchingConfig, args string) (matcher.Options, error) {
	opts := matcher.Options{
		Mode:             matcher.Mode(cfg.DefaultMode),
		MaxMissing:       cfg.MaxMissing,
		RequireEquipment: cfg.RequireEquipment,
		Limit:            cfg.ResultLimit,
	}
	if opts.Mode == "" {
		opts.Mode = matcher.ModeAny
	}

	seenTime, seenMode := false, false
	for _, field := range strings.Fields(strings.ToLower(args)) {
		if minutes, err := strconv.Atoi(field); err == nil {
			if seenTime || minutes <= 0 {
				return opts, errBadRecipeArgs
			}
			opts.MaxCookingTime = minutes
			seenTime = true
			continue
		}
		switch mode := matcher.Mode(field); mode {
		case matcher.ModeAny, matcher.ModeAvailable, matcher.ModeMissing:
			if seenMode {
				return opts, errBadRecipeArgs
			}
			opts.Mode = mode
			seenMode = true
		default:
			return opts, errBadRecipeArgs
		}
	}
	return opts, nil
}
