// Package matcher ranks recipes against the contents of a user's inventory.
//
// It works on plain values loaded by the data layer so the ranking policy can
// be exercised without a database.
package matcher

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/parser"
	"github.com/fridgebot/fridgebot/internal/units"
)

// Mode selects which recipes are eligible by the number of missing ingredients.
type Mode string

const (
	// ModeAny accepts every recipe with at least one available ingredient.
	ModeAny Mode = "any"
	// ModeAvailable accepts only recipes with nothing missing.
	ModeAvailable Mode = "available"
	// ModeMissing accepts recipes with at most Options.MaxMissing missing ingredients.
	ModeMissing Mode = "missing"
)

// DefaultMaxMissing is the missing-ingredient allowance of ModeMissing when
// Options.MaxMissing is not set.
const DefaultMaxMissing = 2

// Ingredient is one required product of a candidate recipe.
type Ingredient struct {
	ProductID   int64
	CategoryID  int64 // 0 when the product has no category
	Name        string
	Quantity    decimal.NullDecimal
	Unit        string
	Description string
}

// Candidate is a recipe considered for ranking.
type Candidate struct {
	RecipeID           int64
	Name               string
	CookingTimeMinutes int // 0 when unknown
	Ingredients        []Ingredient
	Equipment          []string
}

// Stock is what a user holds of one product. An invalid Quantity means the
// amount was never specified.
type Stock struct {
	Quantity decimal.NullDecimal
	Unit     string
}

// Profile is everything known about the user that affects matching.
type Profile struct {
	Inventory           map[int64]Stock
	Liked               map[int64]bool
	Avoided             map[int64]bool
	ForbiddenProducts   map[int64]bool
	ForbiddenCategories map[int64]bool
	Equipment           map[string]bool
}

// Options narrows the result set.
type Options struct {
	Mode             Mode
	MaxMissing       int
	MaxCookingTime   int // minutes, 0 means no limit
	RequireEquipment bool
	Limit            int // 0 means no limit
}

// Match is a ranked recipe.
type Match struct {
	RecipeID           int64
	Name               string
	CookingTimeMinutes int
	Matched            int
	Total              int
	Missing            []string
	Liked              int
}

// Fraction is the share of the recipe's ingredients the user has.
func (m Match) Fraction() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Matched) / float64(m.Total)
}

// Rank filters candidates for the profile and orders them by match fraction
// (descending), cooking time (ascending), liked ingredient count
// (descending) and recipe id.
func Rank(profile Profile, candidates []Candidate, opts Options) []Match {
	maxMissing := opts.MaxMissing
	if maxMissing <= 0 {
		maxMissing = DefaultMaxMissing
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Ingredients) == 0 || excluded(profile, c) {
			continue
		}
		if opts.MaxCookingTime > 0 && c.CookingTimeMinutes > opts.MaxCookingTime {
			continue
		}
		if opts.RequireEquipment && !hasEquipment(profile, c) {
			continue
		}

		m := Match{
			RecipeID:           c.RecipeID,
			Name:               c.Name,
			CookingTimeMinutes: c.CookingTimeMinutes,
			Total:              len(c.Ingredients),
		}
		for _, ing := range c.Ingredients {
			if profile.Liked[ing.ProductID] {
				m.Liked++
			}
			if Sufficient(profile.Inventory, ing) {
				m.Matched++
			} else {
				m.Missing = append(m.Missing, ing.Name)
			}
		}

		missing := m.Total - m.Matched
		switch opts.Mode {
		case ModeAvailable:
			if missing > 0 {
				continue
			}
		case ModeMissing:
			if missing > maxMissing || m.Matched == 0 {
				continue
			}
		default:
			if m.Matched == 0 {
				continue
			}
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		// Compare a.Matched/a.Total with b.Matched/b.Total without floats.
		if l, r := a.Matched*b.Total, b.Matched*a.Total; l != r {
			return l > r
		}
		if ta, tb := cookingTimeKey(a), cookingTimeKey(b); ta != tb {
			return ta < tb
		}
		if a.Liked != b.Liked {
			return a.Liked > b.Liked
		}
		return a.RecipeID < b.RecipeID
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches
}

// Sufficient reports whether inventory covers ing. Unknown amounts on either
// side count as enough, as do amounts whose units cannot be compared.
func Sufficient(inventory map[int64]Stock, ing Ingredient) bool {
	have, ok := inventory[ing.ProductID]
	if !ok {
		return false
	}
	need, needUnit := RequiredQuantity(ing)
	if !have.Quantity.Valid || !need.Valid {
		return true
	}

	if have.Unit == "" || needUnit == "" {
		return have.Quantity.Decimal.GreaterThanOrEqual(need.Decimal)
	}
	converted, ok := units.Convert(need.Decimal, needUnit, have.Unit)
	if !ok {
		return true
	}
	return have.Quantity.Decimal.GreaterThanOrEqual(converted)
}

// RequiredQuantity returns the structured quantity of ing, falling back to the
// first number of its free-text description.
func RequiredQuantity(ing Ingredient) (decimal.NullDecimal, string) {
	if ing.Quantity.Valid {
		return ing.Quantity, ing.Unit
	}
	return parser.LeadingQuantity(ing.Description), ing.Unit
}

// cookingTimeKey orders recipes with an unknown cooking time after all others.
func cookingTimeKey(m Match) int {
	if m.CookingTimeMinutes <= 0 {
		return math.MaxInt
	}
	return m.CookingTimeMinutes
}

func excluded(profile Profile, c Candidate) bool {
	for _, ing := range c.Ingredients {
		if profile.Avoided[ing.ProductID] || profile.ForbiddenProducts[ing.ProductID] {
			return true
		}
		if ing.CategoryID != 0 && profile.ForbiddenCategories[ing.CategoryID] {
			return true
		}
	}
	return false
}

func hasEquipment(profile Profile, c Candidate) bool {
	for _, e := range c.Equipment {
		if !profile.Equipment[e] {
			return false
		}
	}
	return true
}
