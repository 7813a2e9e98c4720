package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. FRIDGEBOT_TELEGRAM_TOKEN.
const EnvPrefix = "FRIDGEBOT"

// LoadConfig reads configuration from defaults, the YAML file at path and
// FRIDGEBOT_* environment variables, in increasing priority, and validates
// the result. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	return load(path)
}

// LoadStorageConfig is LoadConfig for commands that only touch the database
// and therefore run without a Telegram token.
func LoadStorageConfig(path string) (*Config, error) {
	return load(path, "Telegram.Token")
}

func load(path string, except ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg, except...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
