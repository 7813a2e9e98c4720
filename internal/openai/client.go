// Package openai implements the assistant backend on any OpenAI-compatible
// API: chat completions in JSON mode for product lists and the audio
// transcription endpoint for voice notes.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/fridgebot/fridgebot/internal/assistant"
	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/parser"
	"github.com/fridgebot/fridgebot/internal/sanitize"
)

// ErrEmptyResponse is returned when the API answers without any content.
var ErrEmptyResponse = errors.New("openai returned an empty response")

const productListFormat = `Answer with a JSON object of the form {"products": [{"name": string, "quantity": number or null, "unit": string}]}.`

type client struct {
	api                *openai.Client
	log                *slog.Logger
	model              string
	transcriptionModel string
	temperature        float32
}

// NewClient creates an OpenAI-compatible client from cfg.
func NewClient(cfg config.OpenAIConfig, log *slog.Logger) (assistant.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized successfully", "model", cfg.Model, "base_url", apiCfg.BaseURL)
	return &client{
		api:                openai.NewClientWithConfig(apiCfg),
		log:                logger,
		model:              cfg.Model,
		transcriptionModel: cfg.TranscriptionModel,
		temperature:        cfg.Temperature,
	}, nil
}

func (c *client) ParseProducts(ctx context.Context, text string) ([]parser.ParsedProduct, error) {
	c.log.DebugContext(ctx, "Parsing product list", "text_length", len(text))
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: assistant.ProductParserInstruction + "\n\n" + productListFormat},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		c.log.ErrorContext(ctx, "OpenAI chat completion failed", "error", err, "status", statusCode(err))
		return nil, fmt.Errorf("failed to parse products: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyResponse
	}

	products, err := assistant.DecodeProductObject(resp.Choices[0].Message.Content)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to decode product list from OpenAI response", "error", err)
		return nil, err
	}
	c.log.DebugContext(ctx, "Parsed product list", "products", len(products))
	return products, nil
}

func (c *client) Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error) {
	c.log.DebugContext(ctx, "Transcribing voice note", "audio_size", len(audio), "mime_type", mimeType)
	if len(audio) == 0 || mimeType == "" {
		return "", fmt.Errorf("audio data and MIME type are required for transcription")
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: audioFileName(mimeType),
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		c.log.ErrorContext(ctx, "OpenAI transcription failed", "error", err, "status", statusCode(err))
		return "", fmt.Errorf("openai transcription failed: %w", err)
	}

	text := sanitize.PlainText(resp.Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// audioFileName names the upload so the API can detect its format.
func audioFileName(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/ogg", "audio/opus":
		return "voice.ogg"
	case "audio/mpeg":
		return "voice.mp3"
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return "voice" + exts[0]
	}
	return "voice.ogg"
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
