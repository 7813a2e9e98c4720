// Package assistant defines the language-model collaborator of the bot: it
// turns free-text and spoken product lists into structured items. Backends
// live in the gemini and openai packages.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/parser"
)

// Client defines the language-model operations used by the bot.
type Client interface {
	// ParseProducts extracts products with optional quantities and units
	// from a free-text message.
	ParseProducts(ctx context.Context, text string) ([]parser.ParsedProduct, error)

	// Transcribe converts a voice note to text.
	Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error)
}

// ProductParserInstruction asks the model to turn a grocery message into a
// product list.
const ProductParserInstruction = `You maintain the contents of a user's refrigerator. Extract every food product from the message below.

Rules:
- One entry per product. Use the singular, lower-case product name in the language of the message.
- "quantity" is the number the user stated for that product, or null if none was stated. Never guess an amount.
- "unit" is the unit the user stated (g, kg, ml, l, pcs, tbsp, tsp, cup or the user's own word). Use an empty string when no unit was stated.
- Ignore words that are not products, such as greetings or verbs.
- Return an empty list if the message contains no products.`

// TranscriptionInstruction asks the model for a verbatim transcript.
const TranscriptionInstruction = `Transcribe this voice message verbatim in its original language. Return only the transcript, without quotes or commentary.`

type rawProduct struct {
	Name     string           `json:"name"`
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     string           `json:"unit"`
}

// DecodeProducts converts a JSON array of {name, quantity, unit} objects
// into parsed products, dropping entries without a name. Quantities are kept
// as returned; the store rejects negative ones.
func DecodeProducts(jsonText string) ([]parser.ParsedProduct, error) {
	var raw []rawProduct
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("invalid product list JSON received: %w", err)
	}
	return toParsed(raw), nil
}

// DecodeProductObject is DecodeProducts for answers shaped as
// {"products": [...]}, which JSON-object response modes require.
func DecodeProductObject(jsonText string) ([]parser.ParsedProduct, error) {
	var wrapper struct {
		Products []rawProduct `json:"products"`
	}
	if err := json.Unmarshal([]byte(jsonText), &wrapper); err != nil {
		return nil, fmt.Errorf("invalid product list JSON received: %w", err)
	}
	return toParsed(wrapper.Products), nil
}

func toParsed(raw []rawProduct) []parser.ParsedProduct {
	products := make([]parser.ParsedProduct, 0, len(raw))
	for _, r := range raw {
		name := parser.NormalizeName(r.Name)
		if name == "" {
			continue
		}
		p := parser.ParsedProduct{Name: name, Unit: strings.TrimSpace(r.Unit)}
		if r.Quantity != nil {
			p.Quantity = decimal.NewNullDecimal(*r.Quantity)
		}
		products = append(products, p)
	}
	return products
}
