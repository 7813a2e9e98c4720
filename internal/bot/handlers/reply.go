package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/matcher"
)

const sendMessageTimeout = 10 * time.Second

// sendText sends a plain-text message and logs failures.
func sendText(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string) {
	sendMessage(ctx, b, log, &bot.SendMessageParams{ChatID: chatID, Text: text})
}

func sendMessage(ctx context.Context, b *bot.Bot, log *slog.Logger, params *bot.SendMessageParams) {
	if strings.TrimSpace(params.Text) == "" {
		log.WarnContext(ctx, "Refusing to send empty message", "chat_id", params.ChatID)
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	if _, err := b.SendMessage(sendCtx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", params.ChatID)
	}
}

// commandArgs returns the text after the leading /command (with or without
// @botname).
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		return strings.TrimSpace(text[i+1:])
	}
	return ""
}

// messageContext extracts the message, the chat and the registered user of
// a command update. ok is false when the update cannot be handled.
func messageContext(ctx context.Context, update *models.Update) (msg *models.Message, user *database.User, ok bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, nil, false
	}
	user, ok = userFromContext(ctx)
	return update.Message, user, ok
}

func formatAmount(q decimal.NullDecimal, unit string) string {
	if !q.Valid {
		return ""
	}
	if unit == "" {
		return q.Decimal.String()
	}
	return q.Decimal.String() + " " + unit
}

func formatItem(item database.InventoryItem) string {
	if amount := formatAmount(item.Quantity, item.Unit); amount != "" {
		return item.ProductName + ": " + amount
	}
	return item.ProductName
}

func formatInventory(header string, items []database.InventoryItem) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, item := range items {
		sb.WriteString("\n- ")
		sb.WriteString(formatItem(item))
	}
	return sb.String()
}

func formatMatch(i int, m matcher.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s", i+1, m.Name)
	if m.CookingTimeMinutes > 0 {
		fmt.Fprintf(&sb, " (%d min)", m.CookingTimeMinutes)
	}
	fmt.Fprintf(&sb, ", %d/%d ingredients", m.Matched, m.Total)
	if len(m.Missing) > 0 {
		fmt.Fprintf(&sb, ", missing: %s", strings.Join(m.Missing, ", "))
	}
	return sb.String()
}

func formatMatches(header string, matches []matcher.Match) string {
	lines := make([]string, 0, len(matches)+1)
	lines = append(lines, header)
	for i, m := range matches {
		lines = append(lines, formatMatch(i, m))
	}
	return strings.Join(lines, "\n")
}

func recipeKeyboard(matches []matcher.Match) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%d. %s", i+1, m.Name),
			CallbackData: fmt.Sprintf("%s%d", recipeCallbackPrefix, m.RecipeID),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func formatRecipeDetail(d *database.RecipeDetail) string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	if d.CookingTimeMinutes.Valid && d.CookingTimeMinutes.Int64 > 0 {
		fmt.Fprintf(&sb, "\nCooking time: %d min", d.CookingTimeMinutes.Int64)
	}
	if d.Description != "" {
		sb.WriteString("\n\n" + d.Description)
	}

	sb.WriteString("\n\nIngredients:")
	for _, ing := range d.Ingredients {
		sb.WriteString("\n- " + ing.ProductName)
		switch {
		case ing.QuantityDescription != "":
			sb.WriteString(": " + ing.QuantityDescription)
		case ing.Quantity.Valid:
			sb.WriteString(": " + formatAmount(ing.Quantity, ing.Unit))
		}
	}

	if len(d.Equipment) > 0 {
		sb.WriteString("\n\nEquipment: " + strings.Join(d.Equipment, ", "))
	}
	if !d.NutritionMissing {
		n := d.Nutrition
		fmt.Fprintf(&sb, "\n\nNutrition: %s kcal, protein %s, fat %s, carbs %s",
			orDash(n.Calories), orDash(n.Protein), orDash(n.Fat), orDash(n.Carbs))
	}
	if d.Instructions != "" {
		sb.WriteString("\n\n" + d.Instructions)
	}
	if len(d.Tags) > 0 {
		sb.WriteString("\n\n#" + strings.Join(d.Tags, " #"))
	}
	if d.URL != "" {
		sb.WriteString("\n\n" + d.URL)
	}
	return sb.String()
}

func orDash(v decimal.NullDecimal) string {
	if !v.Valid {
		return "-"
	}
	return v.Decimal.String()
}
