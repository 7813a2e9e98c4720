package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/database"
)

// NewRestrictHandler returns a handler for /restrict <product or category>[: note].
// A target that is neither a known category nor a known product is stored
// as a free-text restriction.
func NewRestrictHandler(deps HandlerDeps) bot.HandlerFunc {
	return restrictHandler{deps}.HandleAdd
}

// NewRestrictionsHandler returns a handler for /restrictions.
func NewRestrictionsHandler(deps HandlerDeps) bot.HandlerFunc {
	return restrictHandler{deps}.HandleList
}

// NewUnrestrictHandler returns a handler for /unrestrict <id>.
func NewUnrestrictHandler(deps HandlerDeps) bot.HandlerFunc {
	return restrictHandler{deps}.HandleRemove
}

type restrictHandler struct {
	deps HandlerDeps
}

// splitTarget separates "target: note" into its parts.
func splitTarget(args string) (target, note string) {
	target, note, _ = strings.Cut(args, ":")
	return strings.TrimSpace(target), strings.TrimSpace(note)
}

// resolveConstraint maps the target onto a category first, then a product.
func (h restrictHandler) resolveConstraint(ctx context.Context, userID int64, args string) (database.ConstraintInput, error) {
	target, note := splitTarget(args)
	input := database.ConstraintInput{UserID: userID, Note: note}

	category, err := h.deps.Store.FindCategoryByName(ctx, target)
	switch {
	case err == nil:
		input.CategoryID = sql.NullInt64{Int64: category.ID, Valid: true}
		return input, nil
	case !errors.Is(err, database.ErrNotFound):
		return input, err
	}

	product, err := h.deps.Store.FindProductByName(ctx, target)
	switch {
	case err == nil:
		input.ProductID = sql.NullInt64{Int64: product.ID, Valid: true}
		return input, nil
	case !errors.Is(err, database.ErrNotFound):
		return input, err
	}

	input.Note = strings.TrimSpace(args)
	return input, nil
}

func (h restrictHandler) HandleAdd(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "restrict")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Restrict handler received update without message or user", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	args := commandArgs(msg.Text)
	if args == "" {
		sendText(ctx, b, log, chatID, msgs.RestrictUsage)
		return
	}

	input, err := h.resolveConstraint(ctx, user.ID, args)
	if err == nil {
		_, err = h.deps.Store.AddConstraint(ctx, input)
	}
	switch {
	case errors.Is(err, database.ErrValidation):
		sendText(ctx, b, log, chatID, msgs.RestrictUsage)
	case err != nil:
		log.ErrorContext(ctx, "Failed to add constraint", "error", err, "user_id", user.ID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
	default:
		log.InfoContext(ctx, "Constraint added", "user_id", user.ID,
			"product_id", input.ProductID.Int64, "category_id", input.CategoryID.Int64)
		sendText(ctx, b, log, chatID, msgs.RestrictionAdded)
	}
}

func (h restrictHandler) HandleList(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "restrictions")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		return
	}

	constraints, err := h.deps.Store.ListConstraints(ctx, user.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list constraints", "error", err, "user_id", user.ID)
		sendText(ctx, b, log, msg.Chat.ID, msgs.GeneralError)
		return
	}
	if len(constraints) == 0 {
		sendText(ctx, b, log, msg.Chat.ID, msgs.RestrictionsEmpty)
		return
	}
	sendText(ctx, b, log, msg.Chat.ID, formatConstraints(constraints))
}

func formatConstraints(constraints []database.FoodConstraint) string {
	lines := make([]string, 0, len(constraints))
	for _, c := range constraints {
		var target string
		switch {
		case c.CategoryName.Valid:
			target = "category " + c.CategoryName.String
		case c.ProductName.Valid:
			target = c.ProductName.String
		}
		switch {
		case target == "":
			lines = append(lines, fmt.Sprintf("#%d %s", c.ID, c.Note))
		case c.Note != "":
			lines = append(lines, fmt.Sprintf("#%d %s (%s)", c.ID, target, c.Note))
		default:
			lines = append(lines, fmt.Sprintf("#%d %s", c.ID, target))
		}
	}
	return strings.Join(lines, "\n")
}

func (h restrictHandler) HandleRemove(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "unrestrict")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		return
	}
	chatID := msg.Chat.ID

	id, err := strconv.ParseInt(strings.TrimPrefix(commandArgs(msg.Text), "#"), 10, 64)
	if err != nil || id <= 0 {
		sendText(ctx, b, log, chatID, msgs.UnrestrictUsage)
		return
	}

	err = h.deps.Store.RemoveConstraint(ctx, user.ID, id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		sendText(ctx, b, log, chatID, msgs.UnrestrictUsage)
	case err != nil:
		log.ErrorContext(ctx, "Failed to remove constraint", "error", err, "constraint_id", id)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
	default:
		sendText(ctx, b, log, chatID, msgs.RestrictionRemoved)
	}
}
