package matcher_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/matcher"
)

const (
	tomato int64 = iota + 1
	pasta
	basil
	milk
	cheese
	garlic
)

const dairy int64 = 10

func qty(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func ingredient(id int64, name, q, unit string) matcher.Ingredient {
	ing := matcher.Ingredient{ProductID: id, Name: name, Unit: unit}
	if q != "" {
		ing.Quantity = qty(q)
	}
	return ing
}

func pastaProfile() matcher.Profile {
	return matcher.Profile{
		Inventory: map[int64]matcher.Stock{
			tomato: {Quantity: qty("3"), Unit: "pcs"},
			pasta:  {Quantity: qty("200"), Unit: "g"},
		},
	}
}

func ids(matches []matcher.Match) []int64 {
	out := make([]int64, len(matches))
	for i, m := range matches {
		out[i] = m.RecipeID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRank_PartialMatchRankedBelowFullMatch(t *testing.T) {
	t.Parallel()

	candidates := []matcher.Candidate{
		{
			RecipeID:           1,
			Name:               "Pasta al Pomodoro",
			CookingTimeMinutes: 20,
			Ingredients: []matcher.Ingredient{
				ingredient(tomato, "tomato", "2", "pcs"),
				ingredient(pasta, "pasta", "200", "g"),
				ingredient(basil, "basil", "5", "g"),
			},
		},
		{
			RecipeID:           2,
			Name:               "Plain tomato pasta",
			CookingTimeMinutes: 25,
			Ingredients: []matcher.Ingredient{
				ingredient(tomato, "tomato", "2", "pcs"),
				ingredient(pasta, "pasta", "200", "g"),
			},
		},
	}

	got := matcher.Rank(pastaProfile(), candidates, matcher.Options{})
	if !equalIDs(ids(got), []int64{2, 1}) {
		t.Fatalf("Rank() order = %v, want [2 1]", ids(got))
	}
	if got[0].Fraction() != 1 {
		t.Errorf("full match fraction = %v, want 1", got[0].Fraction())
	}
	if got[1].Matched != 2 || got[1].Total != 3 {
		t.Errorf("partial match = %d/%d, want 2/3", got[1].Matched, got[1].Total)
	}
	if len(got[1].Missing) != 1 || got[1].Missing[0] != "basil" {
		t.Errorf("partial match missing = %v, want [basil]", got[1].Missing)
	}
}

func TestRank_TieBreaks(t *testing.T) {
	t.Parallel()

	profile := pastaProfile()
	profile.Liked = map[int64]bool{pasta: true}

	full := []matcher.Ingredient{ingredient(tomato, "tomato", "", ""), ingredient(pasta, "pasta", "", "")}
	candidates := []matcher.Candidate{
		{RecipeID: 1, CookingTimeMinutes: 40, Ingredients: full},
		{RecipeID: 2, CookingTimeMinutes: 10, Ingredients: full},
		{RecipeID: 3, CookingTimeMinutes: 0, Ingredients: full},
		{RecipeID: 4, CookingTimeMinutes: 10, Ingredients: []matcher.Ingredient{ingredient(tomato, "tomato", "", "")}},
		{RecipeID: 5, CookingTimeMinutes: 10, Ingredients: full},
	}

	got := matcher.Rank(profile, candidates, matcher.Options{})
	// 2 and 5 tie on time and likes, so id decides; 4 has no liked ingredient;
	// 3 has an unknown time and goes last.
	want := []int64{2, 5, 4, 1, 3}
	if !equalIDs(ids(got), want) {
		t.Errorf("Rank() order = %v, want %v", ids(got), want)
	}
}

func TestRank_Exclusions(t *testing.T) {
	t.Parallel()

	profile := pastaProfile()
	profile.Inventory[milk] = matcher.Stock{}
	profile.Inventory[cheese] = matcher.Stock{}
	profile.Avoided = map[int64]bool{garlic: true}
	profile.ForbiddenCategories = map[int64]bool{dairy: true}

	candidates := []matcher.Candidate{
		{RecipeID: 1, Ingredients: []matcher.Ingredient{
			ingredient(tomato, "tomato", "", ""),
			ingredient(garlic, "garlic", "1", "pcs"),
		}},
		{RecipeID: 2, Ingredients: []matcher.Ingredient{
			ingredient(pasta, "pasta", "", ""),
			{ProductID: cheese, CategoryID: dairy, Name: "cheese"},
		}},
		{RecipeID: 3, Ingredients: []matcher.Ingredient{
			ingredient(pasta, "pasta", "", ""),
		}},
	}

	got := matcher.Rank(profile, candidates, matcher.Options{})
	if !equalIDs(ids(got), []int64{3}) {
		t.Errorf("Rank() = %v, want only recipe 3", ids(got))
	}

	profile.ForbiddenCategories = nil
	profile.ForbiddenProducts = map[int64]bool{pasta: true}
	got = matcher.Rank(profile, candidates, matcher.Options{})
	if len(got) != 0 {
		t.Errorf("Rank() with forbidden pasta = %v, want none", ids(got))
	}
}

func TestRank_ModesAndFilters(t *testing.T) {
	t.Parallel()

	profile := pastaProfile()
	profile.Equipment = map[string]bool{"oven": true}

	candidates := []matcher.Candidate{
		{RecipeID: 1, CookingTimeMinutes: 15, Ingredients: []matcher.Ingredient{
			ingredient(tomato, "tomato", "", ""),
			ingredient(pasta, "pasta", "", ""),
		}},
		{RecipeID: 2, CookingTimeMinutes: 30, Equipment: []string{"oven"}, Ingredients: []matcher.Ingredient{
			ingredient(tomato, "tomato", "", ""),
			ingredient(basil, "basil", "", ""),
			ingredient(garlic, "garlic", "", ""),
		}},
		{RecipeID: 3, CookingTimeMinutes: 60, Equipment: []string{"blender"}, Ingredients: []matcher.Ingredient{
			ingredient(tomato, "tomato", "", ""),
			ingredient(basil, "basil", "", ""),
		}},
		{RecipeID: 4, Ingredients: []matcher.Ingredient{
			ingredient(milk, "milk", "", ""),
		}},
	}

	tests := []struct {
		name string
		opts matcher.Options
		want []int64
	}{
		{name: "any", opts: matcher.Options{}, want: []int64{1, 3, 2}},
		{name: "available only", opts: matcher.Options{Mode: matcher.ModeAvailable}, want: []int64{1}},
		{name: "one missing", opts: matcher.Options{Mode: matcher.ModeMissing, MaxMissing: 1}, want: []int64{1, 3}},
		{name: "default two missing", opts: matcher.Options{Mode: matcher.ModeMissing}, want: []int64{1, 3, 2}},
		{name: "max time", opts: matcher.Options{MaxCookingTime: 30}, want: []int64{1, 2}},
		{name: "equipment", opts: matcher.Options{RequireEquipment: true}, want: []int64{1, 2}},
		{name: "limit", opts: matcher.Options{Limit: 2}, want: []int64{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := matcher.Rank(profile, candidates, tt.opts)
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("Rank(%+v) = %v, want %v", tt.opts, ids(got), tt.want)
			}
		})
	}
}

func TestSufficient(t *testing.T) {
	t.Parallel()

	inventory := map[int64]matcher.Stock{
		tomato: {Quantity: qty("3"), Unit: "pcs"},
		pasta:  {Quantity: qty("0.5"), Unit: "kg"},
		milk:   {Unit: "l"},
		cheese: {Quantity: qty("100"), Unit: ""},
	}

	tests := []struct {
		name string
		ing  matcher.Ingredient
		want bool
	}{
		{name: "enough pieces", ing: ingredient(tomato, "tomato", "2", "pcs"), want: true},
		{name: "too few pieces", ing: ingredient(tomato, "tomato", "4", "шт"), want: false},
		{name: "converted grams", ing: ingredient(pasta, "pasta", "400", "g"), want: true},
		{name: "converted grams short", ing: ingredient(pasta, "pasta", "600", "g"), want: false},
		{name: "unknown held amount", ing: ingredient(milk, "milk", "200", "ml"), want: true},
		{name: "description fallback", ing: matcher.Ingredient{ProductID: cheese, Description: "150 g"}, want: false},
		{name: "no required amount", ing: matcher.Ingredient{ProductID: cheese, Description: "to taste"}, want: true},
		{name: "incompatible units", ing: ingredient(tomato, "tomato", "500", "g"), want: true},
		{name: "absent product", ing: ingredient(basil, "basil", "", ""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := matcher.Sufficient(inventory, tt.ing); got != tt.want {
				t.Errorf("Sufficient(%+v) = %v, want %v", tt.ing, got, tt.want)
			}
		})
	}
}
