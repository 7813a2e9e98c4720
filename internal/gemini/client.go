// Package gemini implements the assistant backend on top of Google's Gemini
// API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/fridgebot/fridgebot/internal/assistant"
	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/parser"
	"github.com/fridgebot/fridgebot/internal/sanitize"
)

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
}

// NewClient creates a Gemini client with the provided configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (assistant.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	baseCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,
	}
	if cfg.SystemInstruction != "" {
		baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &sdkClient{
		genaiClient:      gi,
		log:              logger,
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		var genAiAPIError *genai.APIError
		code := 0
		if errors.As(err, &genAiAPIError) {
			code = genAiAPIError.Code
		}

		if code == 500 || code == 503 {
			if i < c.maxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", c.retryDelay, "code", code)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(c.retryDelay):
				}
				continue
			}
			c.log.ErrorContext(ctx, "Gemini API call failed after max retries with APIError", "error", err, "code", code)
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.maxRetries, code, err)
		}

		c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, err
}

var productListSchema = &genai.Schema{
	Type:        genai.TypeArray,
	Description: "Food products mentioned in the message.",
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":     {Type: genai.TypeString, Description: "Product name in singular, lower case, in the language of the message."},
			"quantity": {Type: genai.TypeNumber, Nullable: genai.Ptr(true), Description: "Amount, or null when not stated."},
			"unit":     {Type: genai.TypeString, Description: "Unit such as g, kg, ml, l, pcs. Empty when not stated."},
		},
		Required: []string{"name", "quantity", "unit"},
	},
}

func (c *sdkClient) ParseProducts(ctx context.Context, text string) ([]parser.ParsedProduct, error) {
	c.log.DebugContext(ctx, "Parsing product list", "text_length", len(text))
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	contents := []*genai.Content{
		genai.NewContentFromText(assistant.ProductParserInstruction+"\n\nMessage:\n"+text, genai.RoleUser),
	}

	copyCfg := *c.contentConfig
	copyCfg.ResponseMIMEType = "application/json"
	copyCfg.ResponseSchema = productListSchema

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, &copyCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse products: %w", err)
	}

	jsonText, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("failed to extract product list: %w", err)
	}

	products, err := assistant.DecodeProducts(jsonText)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to decode product list from Gemini response", "error", err, "response_text", jsonText)
		return nil, err
	}
	c.log.DebugContext(ctx, "Parsed product list", "products", len(products))
	return products, nil
}

func (c *sdkClient) Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error) {
	c.log.DebugContext(ctx, "Transcribing voice note", "audio_size", len(audio), "mime_type", mimeType)
	if len(audio) == 0 || mimeType == "" {
		return "", fmt.Errorf("audio data and MIME type are required for transcription")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(assistant.TranscriptionInstruction),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	copyCfg := *c.contentConfig
	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, &copyCfg)
	if err != nil {
		return "", fmt.Errorf("gemini transcription failed: %w", err)
	}

	text, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return "", err
	}
	return sanitize.PlainText(text), nil
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	op := "gemini_operation"
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			parts := strings.Split(fn.Name(), ".")
			if len(parts) >= 2 {
				op = parts[len(parts)-1]
			}
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)
		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)
		return "", fmt.Errorf("%s returned no content, finish reason: %s", op, finishReason)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s returned empty text", op)
	}
	return text, nil
}
