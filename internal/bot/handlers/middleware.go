// Package handlers contains the Telegram command, message and callback
// handlers of the bot, their registration and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/fridgebot/fridgebot/internal/database"
)

type userKey struct{}

// withUser stores the registered user in ctx.
func withUser(ctx context.Context, user *database.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// userFromContext returns the user registered by RegisterUser.
func userFromContext(ctx context.Context) (*database.User, bool) {
	user, ok := ctx.Value(userKey{}).(*database.User)
	return user, ok && user != nil
}

// sender returns the Telegram account and chat an update comes from.
func sender(update *models.Update) (from *models.User, chatID int64) {
	switch {
	case update.Message != nil:
		return update.Message.From, update.Message.Chat.ID
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		chatID = cq.From.ID
		if cq.Message.Message != nil {
			chatID = cq.Message.Message.Chat.ID
		}
		return &cq.From, chatID
	}
	return nil, 0
}

// RegisterUser creates or refreshes the sender's user row before any handler
// runs and makes it available to handlers through the context. Updates
// without a sender pass through untouched.
func RegisterUser(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			from, chatID := sender(update)
			if from == nil || from.IsBot {
				next(ctx, b, update)
				return
			}

			user, err := deps.Store.UpsertUser(ctx, from.ID, from.FirstName)
			if err != nil {
				log := deps.Logger.With("middleware", "RegisterUser")
				log.ErrorContext(ctx, "Failed to register user", "error", err, "telegram_id", from.ID)
				sendText(ctx, b, log, chatID, deps.Config.Messages.GeneralError)
				return
			}

			next(withUser(ctx, user), b, update)
		}
	}
}

// AdminOnly creates a middleware that checks if the message sender is the configured admin user.
// If not, it sends a "Not Authorized" message and stops processing by returning early.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			from, chatID := sender(update)
			adminID := deps.Config.Telegram.AdminUserID

			if from == nil || adminID == 0 || from.ID != adminID {
				log := deps.Logger.With("middleware", "AdminOnly")
				var userID int64
				if from != nil {
					userID = from.ID
				}
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
				if chatID != 0 {
					sendText(ctx, bot, log, chatID, deps.Config.Messages.Unauthorized)
				}
				return
			}

			next(ctx, bot, update)
		}
	}
}
