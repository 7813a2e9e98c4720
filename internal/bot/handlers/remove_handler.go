package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/parser"
)

// NewRemoveHandler returns a handler for /remove <product> [quantity unit], ...
// Entries without a quantity are removed entirely. Each entry gets its own
// line in the reply.
func NewRemoveHandler(deps HandlerDeps) bot.HandlerFunc {
	return removeHandler{deps}.Handle
}

type removeHandler struct {
	deps HandlerDeps
}

func (h removeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "remove")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Remove handler received update without message or user", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	items := parser.ParseProductList(commandArgs(msg.Text))
	if len(items) == 0 {
		sendText(ctx, b, log, chatID, msgs.RemoveUsage)
		return
	}

	lines := make([]string, 0, len(items))
	for _, p := range items {
		line, err := h.removeOne(ctx, log, user.ID, p)
		if err != nil {
			log.ErrorContext(ctx, "Failed to remove product", "error", err, "product", p.Name, "user_id", user.ID)
			sendText(ctx, b, log, chatID, msgs.GeneralError)
			return
		}
		lines = append(lines, line)
	}
	sendText(ctx, b, log, chatID, strings.Join(lines, "\n"))
}

// removeOne applies a single entry and returns its report line. Only
// unexpected store failures are returned as errors.
func (h removeHandler) removeOne(ctx context.Context, log *slog.Logger, userID int64, p parser.ParsedProduct) (string, error) {
	msgs := h.deps.Config.Messages

	product, err := h.deps.Store.FindProductByName(ctx, p.Name)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fmt.Sprintf(msgs.ProductNotFoundFmt, p.Name), nil
	case err != nil:
		return "", err
	}

	if !p.Quantity.Valid {
		err = h.deps.Store.RemoveInventoryItem(ctx, userID, product.ID)
		switch {
		case errors.Is(err, database.ErrNotFound):
			return fmt.Sprintf(msgs.NotInInventoryFmt, product.Name), nil
		case err != nil:
			return "", err
		}
		log.InfoContext(ctx, "Inventory item removed", "user_id", userID, "product_id", product.ID)
		return fmt.Sprintf(msgs.RemovedFmt, product.Name), nil
	}

	item, err := h.deps.Store.DecreaseInventoryItem(ctx, userID, product.ID, p.Quantity.Decimal, p.Unit)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fmt.Sprintf(msgs.NotInInventoryFmt, product.Name), nil
	case errors.Is(err, database.ErrValidation):
		log.WarnContext(ctx, "Rejected inventory decrease", "error", err, "product_id", product.ID)
		return fmt.Sprintf("%s: %s", product.Name, msgs.InvalidQuantity), nil
	case err != nil:
		return "", err
	case item == nil:
		return fmt.Sprintf(msgs.RemovedFmt, product.Name), nil
	}
	return fmt.Sprintf(msgs.ReducedFmt, product.Name, formatAmount(item.Quantity, item.Unit)), nil
}
