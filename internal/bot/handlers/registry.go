package handlers

import (
	tgbot "github.com/go-telegram/bot"

	"github.com/fridgebot/fridgebot/internal/database"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	// Description is shown in the Telegram command menu. Commands without
	// one are not listed.
	Description string
}

func command(pattern, description string, h tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     pattern,
		Handler:     h,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  mw,
		Description: description,
	}
}

func callback(prefix string, h tgbot.HandlerFunc) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     prefix,
		Handler:     h,
		MatchType:   tgbot.MatchTypePrefix,
	}
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// It configures each command with appropriate handlers and middleware.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	return map[string]RegisteredHandler{
		"/start":        command("start", "", NewStartHandler(deps)),
		"/help":         command("help", "Show available commands", NewHelpHandler(deps)),
		"/fridge":       command("fridge", "Show your fridge", NewFridgeHandler(deps)),
		"/add":          command("add", "Add products", NewAddHandler(deps)),
		"/set":          command("set", "Set the exact quantity of a product", NewSetHandler(deps)),
		"/remove":       command("remove", "Take a product out", NewRemoveHandler(deps)),
		"/recipes":      command("recipes", "Find recipes for what you have", NewRecipesHandler(deps)),
		"/like":         command("like", "Mark a product you like", NewPreferenceHandler(deps, database.PolarityLike)),
		"/avoid":        command("avoid", "Mark a product to avoid", NewPreferenceHandler(deps, database.PolarityAvoid)),
		"/restrict":     command("restrict", "Add a dietary restriction", NewRestrictHandler(deps)),
		"/restrictions": command("restrictions", "List your restrictions", NewRestrictionsHandler(deps)),
		"/unrestrict":   command("unrestrict", "Remove a restriction", NewUnrestrictHandler(deps)),
		"/equipment":    command("equipment", "Manage your kitchen equipment", NewEquipmentHandler(deps)),
		"/stats":        command("stats", "", NewStatsHandler(deps), AdminOnly(deps)),

		recipeCallbackPrefix: callback(recipeCallbackPrefix, NewRecipeCallbackHandler(deps)),
		cookCallbackPrefix:   callback(cookCallbackPrefix, NewCookCallbackHandler(deps)),
	}
}
