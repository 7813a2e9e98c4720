// Package parser turns free-text product lists such as
// "tomato 3 pcs, pasta 200 g, basil" into structured entries.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/units"
)

// ParsedProduct is one entry of a product list. Quantity is invalid when the
// entry carried no number.
type ParsedProduct struct {
	Name     string
	Quantity decimal.NullDecimal
	Unit     string
}

var (
	itemPattern   = regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)\s*([\p{L}.]+)?$`)
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// ParseProductList splits text on commas, semicolons and new lines and parses
// each entry as "<name> [<quantity> [<unit>]]". A comma between two digits is
// a decimal separator, not a split. Names are lower-cased and
// whitespace-collapsed; empty entries are dropped.
func ParseProductList(text string) []ParsedProduct {
	fields := splitEntries(text)

	result := make([]ParsedProduct, 0, len(fields))
	for _, field := range fields {
		item := NormalizeName(field)
		if item == "" {
			continue
		}

		m := itemPattern.FindStringSubmatch(item)
		if m == nil {
			result = append(result, ParsedProduct{Name: item})
			continue
		}

		qty, err := parseNumber(m[2])
		if err != nil {
			result = append(result, ParsedProduct{Name: item})
			continue
		}
		result = append(result, ParsedProduct{
			Name:     strings.TrimSpace(m[1]),
			Quantity: decimal.NewNullDecimal(qty),
			Unit:     units.Normalize(m[3]),
		})
	}
	return result
}

func splitEntries(text string) []string {
	runes := []rune(text)
	var fields []string
	start := 0
	for i, r := range runes {
		switch r {
		case ',':
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				continue
			}
		case ';', '\n':
		default:
			continue
		}
		fields = append(fields, string(runes[start:i]))
		start = i + 1
	}
	return append(fields, string(runes[start:]))
}

// LeadingQuantity extracts the first number in a recipe quantity description
// such as "2 tbsp" or "около 1,5 кг".
func LeadingQuantity(description string) decimal.NullDecimal {
	m := numberPattern.FindString(description)
	if m == "" {
		return decimal.NullDecimal{}
	}
	qty, err := parseNumber(m)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(qty)
}

// NormalizeName lower-cases name and collapses internal whitespace. Product,
// category and equipment names are stored in this form.
func NormalizeName(name string) string {
	return spacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
}

func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}
