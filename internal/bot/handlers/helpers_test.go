package handlers

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/config"
	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/matcher"
)

func TestCommandArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"/add tomato 3 pcs", "tomato 3 pcs"},
		{"/add@fridge_bot  pasta 200 g ", "pasta 200 g"},
		{"/fridge", ""},
		{"/add\ntomato\nbasil", "tomato\nbasil"},
		{"tomato", "tomato"},
	}
	for _, tt := range tests {
		if got := commandArgs(tt.in); got != tt.want {
			t.Errorf("commandArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecipeOptions(t *testing.T) {
	t.Parallel()

	cfg := config.MatchingConfig{DefaultMode: "any", MaxMissing: 3, ResultLimit: 5, RequireEquipment: true}

	tests := []struct {
		name     string
		args     string
		wantMode matcher.Mode
		wantTime int
		wantErr  bool
	}{
		{name: "defaults", args: "", wantMode: matcher.ModeAny},
		{name: "time only", args: "30", wantMode: matcher.ModeAny, wantTime: 30},
		{name: "mode and time", args: "available 45", wantMode: matcher.ModeAvailable, wantTime: 45},
		{name: "case insensitive", args: "MISSING", wantMode: matcher.ModeMissing},
		{name: "unknown word", args: "soon", wantErr: true},
		{name: "zero minutes", args: "0", wantErr: true},
		{name: "two times", args: "10 20", wantErr: true},
		{name: "two modes", args: "any missing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts, err := recipeOptions(cfg, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("recipeOptions(%q) succeeded, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("recipeOptions(%q): %v", tt.args, err)
			}
			if opts.Mode != tt.wantMode || opts.MaxCookingTime != tt.wantTime {
				t.Errorf("got mode %q time %d, want %q %d", opts.Mode, opts.MaxCookingTime, tt.wantMode, tt.wantTime)
			}
			if opts.MaxMissing != 3 || opts.Limit != 5 || !opts.RequireEquipment {
				t.Errorf("configured defaults not applied: %+v", opts)
			}
		})
	}
}

func TestCallbackRecipeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data   string
		prefix string
		want   int64
		ok     bool
	}{
		{"recipe_12", recipeCallbackPrefix, 12, true},
		{"cook_7", cookCallbackPrefix, 7, true},
		{"cook_7", recipeCallbackPrefix, 0, false},
		{"recipe_", recipeCallbackPrefix, 0, false},
		{"recipe_-3", recipeCallbackPrefix, 0, false},
		{"recipe_x", recipeCallbackPrefix, 0, false},
	}
	for _, tt := range tests {
		got, ok := callbackRecipeID(tt.data, tt.prefix)
		if got != tt.want || ok != tt.ok {
			t.Errorf("callbackRecipeID(%q, %q) = %d, %v; want %d, %v", tt.data, tt.prefix, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSplitTargetAndEquipmentNames(t *testing.T) {
	t.Parallel()

	target, note := splitTarget(" dairy : lactose intolerance ")
	if target != "dairy" || note != "lactose intolerance" {
		t.Errorf("splitTarget = %q, %q", target, note)
	}
	target, note = splitTarget("peanuts")
	if target != "peanuts" || note != "" {
		t.Errorf("splitTarget = %q, %q", target, note)
	}

	got := equipmentNames(" Oven,  Frying  Pan ;; blender")
	want := []string{"oven", "frying pan", "blender"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("equipmentNames = %q, want %q", got, want)
	}
}

func TestFormatMatches(t *testing.T) {
	t.Parallel()

	matches := []matcher.Match{
		{RecipeID: 2, Name: "Cheesy pasta", CookingTimeMinutes: 15, Matched: 2, Total: 2},
		{RecipeID: 1, Name: "Pasta al pomodoro", Matched: 2, Total: 3, Missing: []string{"basil"}},
	}
	got := formatMatches("Recipes:", matches)
	want := "Recipes:\n1. Cheesy pasta (15 min), 2/2 ingredients\n2. Pasta al pomodoro, 2/3 ingredients, missing: basil"
	if got != want {
		t.Errorf("formatMatches =\n%s\nwant\n%s", got, want)
	}

	kb := recipeKeyboard(matches)
	if len(kb.InlineKeyboard) != 2 || kb.InlineKeyboard[1][0].CallbackData != "recipe_1" {
		t.Errorf("unexpected keyboard: %+v", kb.InlineKeyboard)
	}
}

func TestFormatRecipeDetail(t *testing.T) {
	t.Parallel()

	d := &database.RecipeDetail{
		Recipe: database.Recipe{
			ID:                 1,
			URL:                "https://example.com/pasta",
			Name:               "Pasta",
			CookingTimeMinutes: sql.NullInt64{Int64: 20, Valid: true},
			NutritionMissing:   true,
		},
		Ingredients: []database.RecipeIngredient{
			{ProductName: "pasta", Quantity: decimal.NewNullDecimal(decimal.RequireFromString("0.1")), Unit: "kg"},
			{ProductName: "salt", QuantityDescription: "to taste"},
		},
		Tags:      []string{"italian"},
		Equipment: []string{"pot"},
	}
	got := formatRecipeDetail(d)
	for _, want := range []string{"Pasta\nCooking time: 20 min", "- pasta: 0.1 kg", "- salt: to taste", "Equipment: pot", "#italian", "https://example.com/pasta"} {
		if !strings.Contains(got, want) {
			t.Errorf("recipe detail missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Nutrition") {
		t.Errorf("missing nutrition should not be shown:\n%s", got)
	}
}

func TestFormatConsumeReport(t *testing.T) {
	t.Parallel()

	r := &database.ConsumeReport{
		RecipeName: "Pasta",
		UsedUp:     []string{"tomato"},
		Reduced: []database.InventoryItem{
			{ProductName: "pasta", Quantity: decimal.NewNullDecimal(decimal.RequireFromString("0.4")), Unit: "kg"},
		},
	}
	got := formatConsumeReport("Enjoy %s!", "Removed %s.", "%s: %s left.", r)
	want := "Enjoy Pasta!\nRemoved tomato.\npasta: 0.4 kg left."
	if got != want {
		t.Errorf("formatConsumeReport = %q, want %q", got, want)
	}
}
