package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/parser"
)

// NewAddHandler returns a handler for the /add command.
func NewAddHandler(deps HandlerDeps) bot.HandlerFunc {
	return addHandler{deps}.Handle
}

// NewMessageHandler returns the default handler: plain text and voice
// messages are treated as lists of products to add.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return addHandler{deps}.HandleMessage
}

// addHandler turns product lists into inventory updates.
type addHandler struct {
	deps HandlerDeps
}

func (h addHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "add")

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		log.WarnContext(ctx, "Add handler received update without message or user", "update_id", update.ID)
		return
	}

	text := commandArgs(msg.Text)
	if text == "" {
		sendText(ctx, b, log, msg.Chat.ID, h.deps.Config.Messages.AddUsage)
		return
	}
	h.addProducts(ctx, b, log, msg.Chat.ID, user, text)
}

func (h addHandler) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg, user, ok := messageContext(ctx, update)
	if !ok {
		return
	}
	if msg.Chat.Type != models.ChatTypePrivate {
		// Group chatter is not addressed to the bot.
		return
	}

	switch {
	case msg.Voice != nil:
		text, ok := h.transcribe(ctx, b, log, msg)
		if !ok {
			return
		}
		h.addProducts(ctx, b, log, msg.Chat.ID, user, text)
	case strings.TrimSpace(msg.Text) != "" && !strings.HasPrefix(msg.Text, "/"):
		h.addProducts(ctx, b, log, msg.Chat.ID, user, msg.Text)
	default:
		log.DebugContext(ctx, "Ignoring unsupported message", "chat_id", msg.Chat.ID)
	}
}

func (h addHandler) transcribe(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message) (string, bool) {
	msgs := h.deps.Config.Messages
	if h.deps.Assistant == nil {
		sendText(ctx, b, log, msg.Chat.ID, msgs.VoiceUnavailable)
		return "", false
	}

	audio, err := downloadFile(ctx, b, msg.Voice.FileID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to download voice message", "error", err, "chat_id", msg.Chat.ID)
		sendText(ctx, b, log, msg.Chat.ID, msgs.VoiceFailed)
		return "", false
	}

	mimeType := msg.Voice.MimeType
	if mimeType == "" {
		mimeType = "audio/ogg"
	}
	text, err := h.deps.Assistant.Transcribe(ctx, mimeType, audio)
	if err != nil || strings.TrimSpace(text) == "" {
		log.ErrorContext(ctx, "Failed to transcribe voice message", "error", err, "chat_id", msg.Chat.ID)
		sendText(ctx, b, log, msg.Chat.ID, msgs.VoiceFailed)
		return "", false
	}
	log.InfoContext(ctx, "Voice message transcribed", "chat_id", msg.Chat.ID, "length", len(text))
	return text, true
}

// parseProducts asks the language model first and falls back to the
// deterministic parser when it is disabled, fails or finds nothing.
func (h addHandler) parseProducts(ctx context.Context, log *slog.Logger, text string) []parser.ParsedProduct {
	if h.deps.Assistant != nil {
		items, err := h.deps.Assistant.ParseProducts(ctx, text)
		if err == nil && len(items) > 0 {
			return items
		}
		log.WarnContext(ctx, "Language model parsing failed, using fallback parser", "error", err)
	}
	return parser.ParseProductList(text)
}

func (h addHandler) addProducts(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, user *database.User, text string) {
	msgs := h.deps.Config.Messages

	items := h.parseProducts(ctx, log, text)
	if len(items) == 0 {
		sendText(ctx, b, log, chatID, msgs.NothingParsed)
		return
	}

	added := make([]database.InventoryItem, 0, len(items))
	for _, p := range items {
		var (
			item *database.InventoryItem
			err  error
		)
		if h.deps.Config.Inventory.Accumulate {
			item, err = h.deps.Store.AdjustInventoryItem(ctx, user.ID, p.Name, p.Quantity, p.Unit)
		} else {
			item, err = h.deps.Store.AddOrUpdateInventoryItem(ctx, user.ID, p.Name, p.Quantity, p.Unit)
		}
		switch {
		case errors.Is(err, database.ErrValidation):
			log.WarnContext(ctx, "Rejected inventory item", "error", err, "product", p.Name)
			sendText(ctx, b, log, chatID, msgs.InvalidQuantity)
			continue
		case err != nil:
			log.ErrorContext(ctx, "Failed to update inventory", "error", err, "product", p.Name, "user_id", user.ID)
			sendText(ctx, b, log, chatID, msgs.GeneralError)
			return
		}
		added = append(added, *item)
	}

	if len(added) == 0 {
		return
	}
	log.InfoContext(ctx, "Inventory updated", "user_id", user.ID, "items", len(added))
	sendText(ctx, b, log, chatID, formatInventory(msgs.ItemsAddedHeader, added))
}
