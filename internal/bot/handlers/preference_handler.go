package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/parser"
)

// NewPreferenceHandler returns a handler for /like or /avoid, depending on
// polarity.
func NewPreferenceHandler(deps HandlerDeps, polarity database.Polarity) bot.HandlerFunc {
	return preferenceHandler{deps: deps, polarity: polarity}.Handle
}

type preferenceHandler struct {
	deps     HandlerDeps
	polarity database.Polarity
}

func (h preferenceHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "preference", "polarity", h.polarity)
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Preference handler received update without message or user", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	name := parser.NormalizeName(commandArgs(msg.Text))
	if name == "" {
		sendText(ctx, b, log, chatID, msgs.PreferenceUsage)
		return
	}

	product, err := h.deps.Store.FindProductByName(ctx, name)
	switch {
	case errors.Is(err, database.ErrNotFound):
		sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.ProductNotFoundFmt, name))
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to look up product", "error", err, "product", name)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	if _, err := h.deps.Store.SetPreference(ctx, user.ID, product.ID, h.polarity, ""); err != nil {
		log.ErrorContext(ctx, "Failed to save preference", "error", err, "user_id", user.ID, "product_id", product.ID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	log.InfoContext(ctx, "Preference saved", "user_id", user.ID, "product_id", product.ID)
	sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.PreferenceSavedFmt, h.polarity, product.Name))
}
