package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/matcher"
	"github.com/fridgebot/fridgebot/internal/parser"
	"github.com/fridgebot/fridgebot/internal/units"
)

// IngredientInput is one ingredient of a RecipeInput. Unknown products are
// created.
type IngredientInput struct {
	Product             string
	QuantityDescription string
	Quantity            decimal.NullDecimal
	Unit                string
}

// ImageInput is a recipe image. StepNumber is invalid or zero for the cover.
type ImageInput struct {
	URL        string
	StepNumber sql.NullInt64
}

// RecipeInput describes a recipe keyed by its source URL.
type RecipeInput struct {
	URL                string
	Name               string
	Description        string
	Instructions       string
	CookingTimeMinutes sql.NullInt64
	ImageURL           string
	Nutrition          Nutrition
	NutritionMissing   bool
	Ingredients        []IngredientInput
	Tags               []string
	Images             []ImageInput
	Equipment          []string
}

func (in RecipeInput) validate() error {
	if strings.TrimSpace(in.URL) == "" {
		return validationErrorf("recipe url cannot be empty")
	}
	if strings.TrimSpace(in.Name) == "" {
		return validationErrorf("recipe name cannot be empty")
	}
	if in.CookingTimeMinutes.Valid && in.CookingTimeMinutes.Int64 < 0 {
		return validationErrorf("cooking time must not be negative, got %d", in.CookingTimeMinutes.Int64)
	}
	seen := make(map[string]bool, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		name := parser.NormalizeName(ing.Product)
		if name == "" {
			return validationErrorf("recipe %q has an ingredient without a product", in.Name)
		}
		if seen[name] {
			return validationErrorf("recipe %q lists %q twice", in.Name, name)
		}
		seen[name] = true
	}
	for _, img := range in.Images {
		if strings.TrimSpace(img.URL) == "" {
			return validationErrorf("recipe %q has an image without a url", in.Name)
		}
		if img.StepNumber.Valid && img.StepNumber.Int64 < 0 {
			return validationErrorf("recipe %q has a negative step number", in.Name)
		}
	}
	return nil
}

// UpsertRecipe inserts the recipe or updates the one with the same URL. The
// ingredients, tags, images and equipment links are replaced as a whole.
func (s *sqlxStore) UpsertRecipe(ctx context.Context, input RecipeInput) (int64, error) {
	if err := input.validate(); err != nil {
		return 0, err
	}
	nutrition, err := normalizeNutrition(input.Nutrition)
	if err != nil {
		return 0, err
	}

	equipment := make([]string, 0, len(input.Equipment))
	for _, e := range input.Equipment {
		if name := parser.NormalizeName(e); name != "" {
			equipment = append(equipment, name)
		}
	}

	var recipeID int64
	err = s.withTx(ctx, "upsert_recipe", func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &recipeID, `
            INSERT INTO recipes (url, name, description, instructions, cooking_time_minutes, image_url, equipment,
                                 calories, protein, fat, carbs, nutrition_missing)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (url) DO UPDATE SET
                name                 = excluded.name,
                description          = excluded.description,
                instructions         = excluded.instructions,
                cooking_time_minutes = excluded.cooking_time_minutes,
                image_url            = excluded.image_url,
                equipment            = excluded.equipment,
                calories             = excluded.calories,
                protein              = excluded.protein,
                fat                  = excluded.fat,
                carbs                = excluded.carbs,
                nutrition_missing    = excluded.nutrition_missing
            RETURNING id;
        `, strings.TrimSpace(input.URL), strings.TrimSpace(input.Name), input.Description, input.Instructions,
			input.CookingTimeMinutes, input.ImageURL, strings.Join(equipment, ", "),
			nutrition.Calories, nutrition.Protein, nutrition.Fat, nutrition.Carbs, input.NutritionMissing)
		if err != nil {
			return fmt.Errorf("failed to upsert recipe row: %w", err)
		}

		for _, table := range []string{"recipe_ingredients", "recipe_tags", "recipe_images", "recipe_equipment"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE recipe_id = ?`, recipeID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, ing := range input.Ingredients {
			productID, err := ensureNamed(ctx, tx, "products", parser.NormalizeName(ing.Product))
			if err != nil {
				return err
			}
			quantity, err := normalizeAmount("ingredient quantity", ing.Quantity)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO recipe_ingredients (recipe_id, product_id, quantity_description, quantity, unit)
                VALUES (?, ?, ?, ?, ?);
            `, recipeID, productID, strings.TrimSpace(ing.QuantityDescription), quantity, units.Normalize(ing.Unit)); err != nil {
				return fmt.Errorf("failed to insert ingredient %q: %w", ing.Product, err)
			}
		}

		for _, tag := range input.Tags {
			name := parser.NormalizeName(tag)
			if name == "" {
				continue
			}
			tagID, err := ensureNamed(ctx, tx, "tags", name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)
                ON CONFLICT (recipe_id, tag_id) DO NOTHING;
            `, recipeID, tagID); err != nil {
				return fmt.Errorf("failed to tag recipe with %q: %w", name, err)
			}
		}

		for _, img := range input.Images {
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO recipe_images (recipe_id, image_url, step_number) VALUES (?, ?, ?);
            `, recipeID, strings.TrimSpace(img.URL), img.StepNumber); err != nil {
				return fmt.Errorf("failed to insert recipe image: %w", err)
			}
		}

		for _, name := range equipment {
			equipmentID, err := ensureNamed(ctx, tx, "equipment", name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO recipe_equipment (recipe_id, equipment_id) VALUES (?, ?)
                ON CONFLICT (recipe_id, equipment_id) DO NOTHING;
            `, recipeID, equipmentID); err != nil {
				return fmt.Errorf("failed to link equipment %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting recipe", "url", input.URL, "error", err)
		return 0, fmt.Errorf("failed to upsert recipe %q: %w", input.URL, err)
	}

	s.logger.DebugContext(ctx, "Recipe upserted", "recipe_id", recipeID, "url", input.URL, "ingredients", len(input.Ingredients))
	return recipeID, nil
}

func selectIngredients(ctx context.Context, q sqlx.QueryerContext, recipeID int64) ([]RecipeIngredient, error) {
	ingredients := []RecipeIngredient{}
	err := sqlx.SelectContext(ctx, q, &ingredients, `
        SELECT ri.recipe_id, ri.product_id, p.name AS product_name, p.category_id,
               ri.quantity_description, ri.quantity, ri.unit
        FROM recipe_ingredients ri
        JOIN products p ON p.id = ri.product_id
        WHERE ri.recipe_id = ?
        ORDER BY p.name;
    `, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to select ingredients of recipe %d: %w", recipeID, err)
	}
	return ingredients, nil
}

func toMatcherIngredient(ri RecipeIngredient) matcher.Ingredient {
	return matcher.Ingredient{
		ProductID:   ri.ProductID,
		CategoryID:  ri.CategoryID.Int64,
		Name:        ri.ProductName,
		Quantity:    ri.Quantity,
		Unit:        ri.Unit,
		Description: ri.QuantityDescription,
	}
}

// GetRecipeDetail returns the recipe with its ingredients, tags, images and
// equipment, or ErrNotFound.
func (s *sqlxStore) GetRecipeDetail(ctx context.Context, recipeID int64) (*RecipeDetail, error) {
	detail := &RecipeDetail{}
	err := s.db.GetContext(ctx, &detail.Recipe, `
        SELECT id, url, name, description, instructions, cooking_time_minutes, image_url, equipment,
               nutrition_missing, calories, protein, fat, carbs
        FROM recipes WHERE id = ?`, recipeID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFoundErrorf("recipe %d", recipeID)
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting recipe", "recipe_id", recipeID, "error", err)
		return nil, fmt.Errorf("failed to get recipe %d: %w", recipeID, err)
	}

	if detail.Ingredients, err = selectIngredients(ctx, s.db, recipeID); err != nil {
		return nil, err
	}

	detail.Tags = []string{}
	if err := s.db.SelectContext(ctx, &detail.Tags, `
        SELECT t.name FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
        WHERE rt.recipe_id = ? ORDER BY t.name`, recipeID); err != nil {
		return nil, fmt.Errorf("failed to select tags of recipe %d: %w", recipeID, err)
	}

	detail.Images = []RecipeImage{}
	if err := s.db.SelectContext(ctx, &detail.Images, `
        SELECT id, recipe_id, image_url, step_number FROM recipe_images
        WHERE recipe_id = ? ORDER BY COALESCE(step_number, 0), id`, recipeID); err != nil {
		return nil, fmt.Errorf("failed to select images of recipe %d: %w", recipeID, err)
	}

	detail.Equipment = []string{}
	if err := s.db.SelectContext(ctx, &detail.Equipment, `
        SELECT e.name FROM recipe_equipment re JOIN equipment e ON e.id = re.equipment_id
        WHERE re.recipe_id = ? ORDER BY e.name`, recipeID); err != nil {
		return nil, fmt.Errorf("failed to select equipment of recipe %d: %w", recipeID, err)
	}

	return detail, nil
}
