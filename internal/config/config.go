// Package config provides configuration loading, validation, and management
// for the fridgebot application. It reads a YAML file, applies defaults and
// FRIDGEBOT_* environment overrides, and validates the result.
package config

import (
	"github.com/go-telegram/bot/models"
)

// Config is the application configuration, built once at startup and passed
// to every component.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds the bot token and the admin account.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"gte=0"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// GeminiConfig configures the language model used to parse free-text product
// lists and transcribe voice notes. With no backend enabled the bot falls
// back to the deterministic parser and ignores voice messages.
type GeminiConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	APIKey            string  `mapstructure:"api_key"             validate:"required_if=Enabled true"`
	ModelName         string  `mapstructure:"model_name"          validate:"required_if=Enabled true"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
	SystemInstruction string  `mapstructure:"system_instruction"`
}

// OpenAIConfig configures an OpenAI-compatible backend for the same tasks.
// At most one of Gemini and OpenAI may be enabled.
type OpenAIConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	APIKey             string  `mapstructure:"api_key"             validate:"required_if=Enabled true"`
	BaseURL            string  `mapstructure:"base_url"            validate:"omitempty,url"`
	Model              string  `mapstructure:"model"               validate:"required_if=Enabled true"`
	TranscriptionModel string  `mapstructure:"transcription_model" validate:"required_if=Enabled true"`
	Temperature        float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	TimeoutSeconds     int     `mapstructure:"timeout_seconds"     validate:"min=1,max=600"`
}

// AssistantConfig guards whichever language-model backend is enabled.
type AssistantConfig struct {
	// BreakerFailures consecutive failures open the circuit for
	// BreakerResetSeconds, during which calls fail fast.
	BreakerFailures     int `mapstructure:"breaker_failures"      validate:"min=1,max=100"`
	BreakerResetSeconds int `mapstructure:"breaker_reset_seconds" validate:"min=1,max=3600"`
}

// MatchingConfig sets the defaults of recipe search.
type MatchingConfig struct {
	DefaultMode      string `mapstructure:"default_mode"      validate:"oneof=any available missing"`
	MaxMissing       int    `mapstructure:"max_missing"       validate:"min=0,max=20"`
	ResultLimit      int    `mapstructure:"result_limit"      validate:"min=1,max=50"`
	RequireEquipment bool   `mapstructure:"require_equipment"`
}

// InventoryConfig controls how free-text product lists update the inventory.
type InventoryConfig struct {
	// Accumulate adds reported quantities to what is stored instead of
	// replacing them.
	Accumulate bool `mapstructure:"accumulate"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and gives its cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-facing text. Fields ending in Fmt are
// fmt format strings.
type MessagesConfig struct {
	Welcome            string `mapstructure:"welcome"              validate:"required"`
	Help               string `mapstructure:"help"                 validate:"required"`
	GeneralError       string `mapstructure:"general_error"        validate:"required"`
	Unauthorized       string `mapstructure:"unauthorized"         validate:"required"`
	InventoryEmpty     string `mapstructure:"inventory_empty"      validate:"required"`
	InventoryHeader    string `mapstructure:"inventory_header"     validate:"required"`
	AddUsage           string `mapstructure:"add_usage"            validate:"required"`
	NothingParsed      string `mapstructure:"nothing_parsed"       validate:"required"`
	ItemsAddedHeader   string `mapstructure:"items_added_header"   validate:"required"`
	InvalidQuantity    string `mapstructure:"invalid_quantity"     validate:"required"`
	SetUsage           string `mapstructure:"set_usage"            validate:"required"`
	RemoveUsage        string `mapstructure:"remove_usage"         validate:"required"`
	RemovedFmt         string `mapstructure:"removed_fmt"          validate:"required"`
	ReducedFmt         string `mapstructure:"reduced_fmt"          validate:"required"`
	NotInInventoryFmt  string `mapstructure:"not_in_inventory_fmt" validate:"required"`
	ProductNotFoundFmt string `mapstructure:"product_not_found_fmt" validate:"required"`
	RecipesUsage       string `mapstructure:"recipes_usage"        validate:"required"`
	NoRecipes          string `mapstructure:"no_recipes"           validate:"required"`
	RecipesHeader      string `mapstructure:"recipes_header"       validate:"required"`
	RecipeNotFound     string `mapstructure:"recipe_not_found"     validate:"required"`
	CookedFmt          string `mapstructure:"cooked_fmt"           validate:"required"`
	PreferenceUsage    string `mapstructure:"preference_usage"     validate:"required"`
	PreferenceSavedFmt string `mapstructure:"preference_saved_fmt" validate:"required"`
	RestrictUsage      string `mapstructure:"restrict_usage"       validate:"required"`
	RestrictionAdded   string `mapstructure:"restriction_added"    validate:"required"`
	RestrictionsEmpty  string `mapstructure:"restrictions_empty"   validate:"required"`
	RestrictionRemoved string `mapstructure:"restriction_removed"  validate:"required"`
	UnrestrictUsage    string `mapstructure:"unrestrict_usage"     validate:"required"`
	EquipmentEmpty     string `mapstructure:"equipment_empty"      validate:"required"`
	EquipmentUsage     string `mapstructure:"equipment_usage"      validate:"required"`
	EquipmentUnknown   string `mapstructure:"equipment_unknown"    validate:"required"`
	EquipmentUpdated   string `mapstructure:"equipment_updated"    validate:"required"`
	VoiceUnavailable   string `mapstructure:"voice_unavailable"    validate:"required"`
	VoiceFailed        string `mapstructure:"voice_failed"         validate:"required"`
	StatsFmt           string `mapstructure:"stats_fmt"            validate:"required"`
}
