package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/parser"
)

// NewEquipmentHandler returns a handler for /equipment [add|remove] <items>.
// Without arguments it lists the sender's equipment.
func NewEquipmentHandler(deps HandlerDeps) bot.HandlerFunc {
	return equipmentHandler{deps}.Handle
}

type equipmentHandler struct {
	deps HandlerDeps
}

// equipmentNames splits a comma separated list into normalized names.
func equipmentNames(list string) []string {
	var names []string
	for _, field := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ';' || r == '\n' }) {
		if name := parser.NormalizeName(field); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (h equipmentHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "equipment")
	msgs := h.deps.Config.Messages

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Equipment handler received update without message or user", "update_id", update.ID)
		return
	}
	chatID := msg.Chat.ID

	args := commandArgs(msg.Text)
	if args == "" {
		owned, err := h.deps.Store.ListUserEquipment(ctx, user.ID)
		switch {
		case err != nil:
			log.ErrorContext(ctx, "Failed to list equipment", "error", err, "user_id", user.ID)
			sendText(ctx, b, log, chatID, msgs.GeneralError)
		case len(owned) == 0:
			sendText(ctx, b, log, chatID, msgs.EquipmentEmpty)
		default:
			sendText(ctx, b, log, chatID, strings.Join(owned, "\n"))
		}
		return
	}

	action, list, _ := strings.Cut(args, " ")
	names := equipmentNames(list)
	if len(names) == 0 {
		sendText(ctx, b, log, chatID, msgs.EquipmentUsage)
		return
	}

	switch strings.ToLower(action) {
	case "add":
		unknown, err := h.deps.Store.AddUserEquipment(ctx, user.ID, names)
		if err != nil {
			log.ErrorContext(ctx, "Failed to add equipment", "error", err, "user_id", user.ID)
			sendText(ctx, b, log, chatID, msgs.GeneralError)
			return
		}
		reply := msgs.EquipmentUpdated
		if len(unknown) > 0 {
			reply += "\n" + msgs.EquipmentUnknown + " " + strings.Join(unknown, ", ")
		}
		sendText(ctx, b, log, chatID, reply)
	case "remove":
		removed, err := h.deps.Store.RemoveUserEquipment(ctx, user.ID, names)
		if err != nil {
			log.ErrorContext(ctx, "Failed to remove equipment", "error", err, "user_id", user.ID)
			sendText(ctx, b, log, chatID, msgs.GeneralError)
			return
		}
		log.InfoContext(ctx, "Equipment removed", "user_id", user.ID, "count", removed)
		sendText(ctx, b, log, chatID, msgs.EquipmentUpdated)
	default:
		sendText(ctx, b, log, chatID, msgs.EquipmentUsage)
	}
}
