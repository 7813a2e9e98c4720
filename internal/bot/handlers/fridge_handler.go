package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewFridgeHandler returns a handler for the /fridge command.
func NewFridgeHandler(deps HandlerDeps) bot.HandlerFunc {
	return fridgeHandler{deps}.Handle
}

// fridgeHandler lists the sender's inventory.
type fridgeHandler struct {
	deps HandlerDeps
}

func (h fridgeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "fridge")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Fridge handler received update without message or user", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	items, err := h.deps.Store.ListInventory(ctx, user.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list inventory", "error", err, "user_id", user.ID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}
	if len(items) == 0 {
		sendText(ctx, b, log, chatID, msgs.InventoryEmpty)
		return
	}

	log.DebugContext(ctx, "Listing inventory", "user_id", user.ID, "items", len(items))
	sendText(ctx, b, log, chatID, formatInventory(msgs.InventoryHeader, items))
}
