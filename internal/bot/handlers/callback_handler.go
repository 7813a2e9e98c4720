package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/database"
)

const (
	recipeCallbackPrefix = "recipe_"
	cookCallbackPrefix   = "cook_"
)

// NewRecipeCallbackHandler returns a handler for recipe_<id> buttons, which
// show a recipe's details.
func NewRecipeCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.HandleRecipe
}

// NewCookCallbackHandler returns a handler for cook_<id> buttons, which
// deduct a recipe's ingredients from the inventory.
func NewCookCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.HandleCook
}

type callbackHandler struct {
	deps HandlerDeps
}

// callbackRecipeID parses the recipe id following prefix.
func callbackRecipeID(data, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// begin answers the callback query and returns the chat, user and recipe id
// it refers to.
func (h callbackHandler) begin(ctx context.Context, b *bot.Bot, log *slog.Logger, update *models.Update, prefix string) (chatID int64, user *database.User, recipeID int64, ok bool) {
	cq := update.CallbackQuery
	if cq == nil {
		return 0, nil, 0, false
	}

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}

	_, chatID = sender(update)
	user, ok = userFromContext(ctx)
	if !ok {
		return 0, nil, 0, false
	}
	recipeID, ok = callbackRecipeID(cq.Data, prefix)
	if !ok {
		log.WarnContext(ctx, "Malformed callback data", "data", cq.Data)
		return 0, nil, 0, false
	}
	return chatID, user, recipeID, true
}

func (h callbackHandler) HandleRecipe(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "recipe_callback")
	msgs := h.deps.Config.Messages

	chatID, _, recipeID, ok := h.begin(ctx, b, log, update, recipeCallbackPrefix)
	if !ok {
		return
	}

	detail, err := h.deps.Store.GetRecipeDetail(ctx, recipeID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		sendText(ctx, b, log, chatID, msgs.RecipeNotFound)
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to load recipe", "error", err, "recipe_id", recipeID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	sendMessage(ctx, b, log, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   formatRecipeDetail(detail),
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{{{
			Text:         "Cook",
			CallbackData: fmt.Sprintf("%s%d", cookCallbackPrefix, detail.ID),
		}}}},
	})
}

func (h callbackHandler) HandleCook(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "cook_callback")
	msgs := h.deps.Config.Messages

	chatID, user, recipeID, ok := h.begin(ctx, b, log, update, cookCallbackPrefix)
	if !ok {
		return
	}

	report, err := h.deps.Store.ConsumeRecipe(ctx, user.ID, recipeID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		sendText(ctx, b, log, chatID, msgs.RecipeNotFound)
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to consume recipe", "error", err, "recipe_id", recipeID, "user_id", user.ID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	log.InfoContext(ctx, "Recipe cooked", "user_id", user.ID, "recipe_id", recipeID,
		"used_up", len(report.UsedUp), "reduced", len(report.Reduced))
	sendText(ctx, b, log, chatID, formatConsumeReport(msgs.CookedFmt, msgs.RemovedFmt, msgs.ReducedFmt, report))
}

func formatConsumeReport(cookedFmt, removedFmt, reducedFmt string, r *database.ConsumeReport) string {
	lines := []string{fmt.Sprintf(cookedFmt, r.RecipeName)}
	for _, name := range r.UsedUp {
		lines = append(lines, fmt.Sprintf(removedFmt, name))
	}
	for _, item := range r.Reduced {
		lines = append(lines, fmt.Sprintf(reducedFmt, item.ProductName, formatAmount(item.Quantity, item.Unit)))
	}
	return strings.Join(lines, "\n")
}
