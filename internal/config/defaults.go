package config

import "github.com/spf13/viper"

const (
	DefaultLogLevel           = "info"
	DefaultDBPath             = "fridgebot.db"
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultTranscriptionModel = "whisper-1"
	DefaultResultLimit        = 5
)

// setDefaults registers every key with viper. Keys without a default are
// registered with a zero value so that FRIDGEBOT_* variables can set them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 2)
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", DefaultOpenAIModel)
	v.SetDefault("openai.transcription_model", DefaultTranscriptionModel)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.timeout_seconds", 60)
	v.SetDefault("assistant.breaker_failures", 5)
	v.SetDefault("assistant.breaker_reset_seconds", 60)

	v.SetDefault("matching.default_mode", "missing")
	v.SetDefault("matching.max_missing", 2)
	v.SetDefault("matching.result_limit", DefaultResultLimit)
	v.SetDefault("matching.require_equipment", true)

	v.SetDefault("inventory.accumulate", true)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance":  map[string]any{"enabled": true, "schedule": "0 3 * * 0"},
		"inventory_expiry": map[string]any{"enabled": true, "schedule": "0 4 * * *"},
	})

	for key, text := range defaultMessages {
		v.SetDefault("messages."+key, text)
	}
}

var defaultMessages = map[string]string{
	"welcome": "Hi! I'm your digital fridge. Send me what you have, like \"tomato 3 pcs, pasta 200 g\", " +
		"and ask /recipes for ideas. /help lists everything I can do.",
	"help": "/fridge - show your fridge\n" +
		"/add <products> - add products (or just send them as a message or voice note)\n" +
		"/set <product> <quantity> [unit] - set an exact quantity\n" +
		"/remove <product> [quantity unit], ... - take things out\n" +
		"/recipes [minutes] [any|available|missing] - find recipes\n" +
		"/like <product>, /avoid <product> - preferences\n" +
		"/restrict <product or category> - dietary restriction\n" +
		"/restrictions, /unrestrict <id> - manage restrictions\n" +
		"/equipment [add|remove] <items> - your kitchen equipment",
	"general_error":         "Something went wrong. Please try again later.",
	"unauthorized":          "You are not authorized to use this command.",
	"inventory_empty":       "Your fridge is empty.",
	"inventory_header":      "Your fridge:",
	"add_usage":             "Tell me what to add, e.g. /add tomato 3 pcs, pasta 200 g",
	"nothing_parsed":        "I could not find any products in that message.",
	"items_added_header":    "Added to your fridge:",
	"invalid_quantity":      "Quantities must be non-negative numbers.",
	"set_usage":             "Usage: /set <product> <quantity> [unit]",
	"remove_usage":          "Usage: /remove <product> [quantity unit], ...",
	"removed_fmt":           "Removed %s.",
	"reduced_fmt":           "%s: %s left.",
	"not_in_inventory_fmt":  "You don't have %s.",
	"product_not_found_fmt": "I don't know a product called %q.",
	"recipes_usage":         "Usage: /recipes [minutes] [any|available|missing]",
	"no_recipes":            "No recipes match your fridge right now.",
	"recipes_header":        "Recipes you can make:",
	"recipe_not_found":      "That recipe no longer exists.",
	"cooked_fmt":            "Enjoy your %s! I updated your fridge.",
	"preference_usage":      "Usage: /like <product> or /avoid <product>",
	"preference_saved_fmt":  "Noted: you %s %s.",
	"restrict_usage":        "Usage: /restrict <product or category> [note]",
	"restriction_added":     "Restriction saved.",
	"restrictions_empty":    "You have no restrictions.",
	"restriction_removed":   "Restriction removed.",
	"unrestrict_usage":      "Usage: /unrestrict <id> (see /restrictions)",
	"equipment_empty":       "You haven't added any equipment yet.",
	"equipment_usage":       "Usage: /equipment add <items> or /equipment remove <items>",
	"equipment_unknown":     "Not in the equipment list:",
	"equipment_updated":     "Equipment updated.",
	"voice_unavailable":     "Voice messages are not enabled.",
	"voice_failed":          "I could not understand that voice message.",
	"stats_fmt":             "Users: %d\nProducts: %d\nRecipes: %d\nInventory rows: %d",
}
