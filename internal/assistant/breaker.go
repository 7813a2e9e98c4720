package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fridgebot/fridgebot/internal/parser"
)

// ErrCircuitOpen is returned without calling the model while the circuit is
// open after repeated failures.
var ErrCircuitOpen = errors.New("assistant circuit breaker is open")

// BreakerConfig configures NewBreakerClient.
type BreakerConfig struct {
	MaxFailures   int
	ResetInterval time.Duration
}

// breakerClient guards a Client with a circuit breaker so that an
// unavailable model costs one fast error instead of a full retry cycle per
// message.
type breakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps next with a circuit breaker.
func NewBreakerClient(name string, next Client, cfg BreakerConfig, log *slog.Logger) Client {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetInterval <= 0 {
		cfg.ResetInterval = time.Minute
	}
	logger := log.With("component", "assistant_breaker", "backend", name)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.ResetInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		// Cancellations come from the caller, not from the model.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &breakerClient{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (c *breakerClient) ParseProducts(ctx context.Context, text string) ([]parser.ParsedProduct, error) {
	res, err := c.cb.Execute(func() (any, error) {
		return c.next.ParseProducts(ctx, text)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	products, _ := res.([]parser.ParsedProduct)
	return products, nil
}

func (c *breakerClient) Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error) {
	res, err := c.cb.Execute(func() (any, error) {
		return c.next.Transcribe(ctx, mimeType, audio)
	})
	if err != nil {
		return "", breakerError(err)
	}
	text, _ := res.(string)
	return text, nil
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
