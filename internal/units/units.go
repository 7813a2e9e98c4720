// Package units normalises the free-form measurement units users and recipe
// sources write, and converts quantities between units of the same dimension.
package units

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension groups units that can be converted into each other.
type Dimension int

const (
	DimensionUnknown Dimension = iota
	DimensionMass
	DimensionVolume
	DimensionCount
)

type unitInfo struct {
	canonical string
	dim       Dimension
	// factor converts one of this unit into the dimension's base unit (g, ml, pcs).
	factor decimal.Decimal
}

var known = map[string]unitInfo{}

func register(canonical string, dim Dimension, factor string, aliases ...string) {
	info := unitInfo{canonical: canonical, dim: dim, factor: decimal.RequireFromString(factor)}
	known[canonical] = info
	for _, a := range aliases {
		known[a] = info
	}
}

func init() {
	register("mg", DimensionMass, "0.001", "milligram", "milligrams", "мг")
	register("g", DimensionMass, "1", "gr", "gram", "grams", "gramm", "г", "гр", "грамм", "грамма", "граммов")
	register("kg", DimensionMass, "1000", "kilo", "kilogram", "kilograms", "кг", "килограмм")

	register("ml", DimensionVolume, "1", "milliliter", "milliliters", "millilitre", "мл")
	register("l", DimensionVolume, "1000", "liter", "liters", "litre", "litres", "л", "литр", "литра")
	register("tsp", DimensionVolume, "5", "teaspoon", "teaspoons", "чл", "ч.л", "ч.л.")
	register("tbsp", DimensionVolume, "15", "tablespoon", "tablespoons", "стл", "ст.л", "ст.л.")
	register("cup", DimensionVolume, "240", "cups", "стакан", "стакана")

	register("pcs", DimensionCount, "1", "pc", "piece", "pieces", "pcs.", "шт", "шт.", "штук", "штуки", "штука")
}

// Normalize returns the canonical spelling of unit, or the trimmed lower-cased
// input when the unit is not recognised.
func Normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if info, ok := known[u]; ok {
		return info.canonical
	}
	return u
}

// DimensionOf reports the dimension of unit. Empty and unrecognised units
// are DimensionUnknown.
func DimensionOf(unit string) Dimension {
	if info, ok := known[strings.ToLower(strings.TrimSpace(unit))]; ok {
		return info.dim
	}
	return DimensionUnknown
}

// Convert expresses qty measured in from as a quantity measured in to.
// Identical units (after normalisation) always convert; otherwise both units
// must be known and share a dimension.
func Convert(qty decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	if Normalize(from) == Normalize(to) {
		return qty, true
	}
	fi, ok := known[strings.ToLower(strings.TrimSpace(from))]
	if !ok {
		return decimal.Decimal{}, false
	}
	ti, ok := known[strings.ToLower(strings.TrimSpace(to))]
	if !ok || fi.dim != ti.dim {
		return decimal.Decimal{}, false
	}
	return qty.Mul(fi.factor).Div(ti.factor), true
}
