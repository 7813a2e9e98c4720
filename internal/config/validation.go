package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation wraps every configuration validation failure.
var ErrValidation = errors.New("invalid configuration")

// Validate checks cfg against its struct tags. Fields named in except, such
// as "Telegram.Token", are skipped.
func Validate(cfg *Config, except ...string) error {
	v := validator.New()
	var err error
	if len(except) > 0 {
		err = v.StructExcept(cfg, except...)
	} else {
		err = v.Struct(cfg)
	}
	if err == nil {
		return validateBackends(cfg)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func validateBackends(cfg *Config) error {
	if cfg.Gemini.Enabled && cfg.OpenAI.Enabled {
		return fmt.Errorf("%w: gemini and openai cannot both be enabled", ErrValidation)
	}
	return nil
}
