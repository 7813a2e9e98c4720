package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/parser"
)

// NewSetHandler returns a handler for the /set command, which replaces the
// stored quantity of one product.
func NewSetHandler(deps HandlerDeps) bot.HandlerFunc {
	return setHandler{deps}.Handle
}

type setHandler struct {
	deps HandlerDeps
}

func (h setHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "set")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Set handler received update without message or user", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	items := parser.ParseProductList(commandArgs(msg.Text))
	if len(items) != 1 || !items[0].Quantity.Valid {
		sendText(ctx, b, log, chatID, msgs.SetUsage)
		return
	}
	p := items[0]

	item, err := h.deps.Store.AddOrUpdateInventoryItem(ctx, user.ID, p.Name, p.Quantity, p.Unit)
	switch {
	case errors.Is(err, database.ErrValidation):
		sendText(ctx, b, log, chatID, msgs.InvalidQuantity)
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to set inventory item", "error", err, "product", p.Name, "user_id", user.ID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	log.InfoContext(ctx, "Inventory quantity set", "user_id", user.ID, "product_id", item.ProductID)
	sendText(ctx, b, log, chatID, formatInventory(msgs.ItemsAddedHeader, []database.InventoryItem{*item}))
}
