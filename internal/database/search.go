package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fridgebot/fridgebot/internal/matcher"
	"github.com/fridgebot/fridgebot/internal/parser"
)

// FindRecipesByAvailability loads the user's profile and every recipe in one
// transaction and ranks them with matcher.Rank.
func (s *sqlxStore) FindRecipesByAvailability(ctx context.Context, userID int64, opts matcher.Options) ([]matcher.Match, error) {
	var (
		profile    matcher.Profile
		candidates []matcher.Candidate
	)
	err := s.withTx(ctx, "find_recipes_by_availability", func(tx *sqlx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		if profile, err = loadProfile(ctx, tx, userID); err != nil {
			return err
		}
		candidates, err = loadCandidates(ctx, tx)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error loading recipe candidates", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to find recipes for user %d: %w", userID, err)
	}

	matches := matcher.Rank(profile, candidates, opts)
	s.logger.DebugContext(ctx, "Recipes ranked", "user_id", userID, "candidates", len(candidates), "matches", len(matches), "mode", opts.Mode)
	return matches, nil
}

func loadProfile(ctx context.Context, q sqlx.QueryerContext, userID int64) (matcher.Profile, error) {
	profile := matcher.Profile{
		Inventory:           map[int64]matcher.Stock{},
		Liked:               map[int64]bool{},
		Avoided:             map[int64]bool{},
		ForbiddenProducts:   map[int64]bool{},
		ForbiddenCategories: map[int64]bool{},
		Equipment:           map[string]bool{},
	}

	var items []InventoryItem
	if err := sqlx.SelectContext(ctx, q, &items, inventorySelect+` WHERE up.user_id = ?`, userID); err != nil {
		return profile, fmt.Errorf("failed to load inventory: %w", err)
	}
	for _, it := range items {
		profile.Inventory[it.ProductID] = matcher.Stock{Quantity: it.Quantity, Unit: it.Unit}
	}

	var prefs []struct {
		ProductID int64          `db:"product_id"`
		Polarity  sql.NullString `db:"preference"`
	}
	if err := sqlx.SelectContext(ctx, q, &prefs, `
        SELECT product_id, preference FROM user_product_preferences
        WHERE user_id = ? AND product_id IS NOT NULL`, userID); err != nil {
		return profile, fmt.Errorf("failed to load preferences: %w", err)
	}
	for _, p := range prefs {
		switch Polarity(p.Polarity.String) {
		case PolarityLike:
			profile.Liked[p.ProductID] = true
		case PolarityAvoid:
			profile.Avoided[p.ProductID] = true
		}
	}

	var constraints []struct {
		ProductID  sql.NullInt64 `db:"product_id"`
		CategoryID sql.NullInt64 `db:"category_id"`
	}
	if err := sqlx.SelectContext(ctx, q, &constraints, `
        SELECT product_id, category_id FROM user_food_constraints WHERE user_id = ?`, userID); err != nil {
		return profile, fmt.Errorf("failed to load constraints: %w", err)
	}
	for _, c := range constraints {
		if c.ProductID.Valid {
			profile.ForbiddenProducts[c.ProductID.Int64] = true
		}
		if c.CategoryID.Valid {
			profile.ForbiddenCategories[c.CategoryID.Int64] = true
		}
	}

	var equipment []string
	if err := sqlx.SelectContext(ctx, q, &equipment, `
        SELECT e.name FROM user_equipment ue JOIN equipment e ON e.id = ue.equipment_id
        WHERE ue.user_id = ?`, userID); err != nil {
		return profile, fmt.Errorf("failed to load equipment: %w", err)
	}
	for _, e := range equipment {
		profile.Equipment[e] = true
	}

	return profile, nil
}

func loadCandidates(ctx context.Context, q sqlx.QueryerContext) ([]matcher.Candidate, error) {
	var recipes []struct {
		ID                 int64         `db:"id"`
		Name               string        `db:"name"`
		CookingTimeMinutes sql.NullInt64 `db:"cooking_time_minutes"`
		Equipment          string        `db:"equipment"`
	}
	if err := sqlx.SelectContext(ctx, q, &recipes, `
        SELECT id, name, cooking_time_minutes, equipment FROM recipes ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load recipes: %w", err)
	}

	var ingredients []RecipeIngredient
	if err := sqlx.SelectContext(ctx, q, &ingredients, `
        SELECT ri.recipe_id, ri.product_id, p.name AS product_name, p.category_id,
               ri.quantity_description, ri.quantity, ri.unit
        FROM recipe_ingredients ri
        JOIN products p ON p.id = ri.product_id
        ORDER BY ri.recipe_id, p.name`); err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	byRecipe := make(map[int64][]matcher.Ingredient, len(recipes))
	for _, ri := range ingredients {
		byRecipe[ri.RecipeID] = append(byRecipe[ri.RecipeID], toMatcherIngredient(ri))
	}

	var links []struct {
		RecipeID int64  `db:"recipe_id"`
		Name     string `db:"name"`
	}
	if err := sqlx.SelectContext(ctx, q, &links, `
        SELECT re.recipe_id, e.name FROM recipe_equipment re
        JOIN equipment e ON e.id = re.equipment_id`); err != nil {
		return nil, fmt.Errorf("failed to load recipe equipment: %w", err)
	}
	linked := make(map[int64][]string)
	for _, l := range links {
		linked[l.RecipeID] = append(linked[l.RecipeID], l.Name)
	}

	candidates := make([]matcher.Candidate, 0, len(recipes))
	for _, r := range recipes {
		candidates = append(candidates, matcher.Candidate{
			RecipeID:           r.ID,
			Name:               r.Name,
			CookingTimeMinutes: int(r.CookingTimeMinutes.Int64),
			Ingredients:        byRecipe[r.ID],
			Equipment:          mergeEquipment(r.Equipment, linked[r.ID]),
		})
	}
	return candidates, nil
}

// mergeEquipment combines the comma separated equipment column with the
// linked equipment rows.
func mergeEquipment(text string, linked []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range append(strings.Split(text, ","), linked...) {
		name = parser.NormalizeName(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
