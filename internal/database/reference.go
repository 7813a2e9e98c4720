package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fridgebot/fridgebot/internal/parser"
)

// ProductInput describes a product to create or update. An empty Category
// leaves the product uncategorised; an empty UnitBasis keeps the default.
type ProductInput struct {
	Name      string
	Category  string
	UnitBasis string
	Nutrition
}

// namedTables are the reference tables keyed by a unique name column.
var namedTables = map[string]bool{
	"products":   true,
	"categories": true,
	"tags":       true,
	"equipment":  true,
}

// ensureNamed returns the id of the row called name in table, inserting it
// first when missing. name must already be normalised.
func ensureNamed(ctx context.Context, q sqlx.ExtContext, table, name string) (int64, error) {
	if !namedTables[table] {
		return 0, fmt.Errorf("table %q is not a named reference table", table)
	}
	if name == "" {
		return 0, validationErrorf("%s name cannot be empty", table)
	}

	if _, err := q.ExecContext(ctx, `INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM `+table+` WHERE name = ?`, name); err != nil {
		return 0, fmt.Errorf("failed to resolve %s %q: %w", table, name, err)
	}
	return id, nil
}

// UpsertCategory creates the category or updates its shelf life.
func (s *sqlxStore) UpsertCategory(ctx context.Context, name string, shelfLifeDays sql.NullInt64) (*Category, error) {
	name = parser.NormalizeName(name)
	if name == "" {
		return nil, validationErrorf("category name cannot be empty")
	}
	if shelfLifeDays.Valid && shelfLifeDays.Int64 < 0 {
		return nil, validationErrorf("shelf life must not be negative, got %d", shelfLifeDays.Int64)
	}

	var category Category
	err := s.withTx(ctx, "upsert_category", func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &category, `
            INSERT INTO categories (name, shelf_life_days) VALUES (?, ?)
            ON CONFLICT (name) DO UPDATE SET shelf_life_days = excluded.shelf_life_days
            RETURNING id, name, shelf_life_days;
        `, name, shelfLifeDays)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting category", "name", name, "error", err)
		return nil, fmt.Errorf("failed to upsert category %q: %w", name, err)
	}
	return &category, nil
}

// UpsertProduct creates the product or updates its category, unit basis and
// nutrition.
func (s *sqlxStore) UpsertProduct(ctx context.Context, input ProductInput) (*Product, error) {
	name := parser.NormalizeName(input.Name)
	if name == "" {
		return nil, validationErrorf("product name cannot be empty")
	}
	nutrition, err := normalizeNutrition(input.Nutrition)
	if err != nil {
		return nil, err
	}
	unitBasis := input.UnitBasis
	if unitBasis == "" {
		unitBasis = "100g"
	}

	var product Product
	err = s.withTx(ctx, "upsert_product", func(tx *sqlx.Tx) error {
		var categoryID sql.NullInt64
		if c := parser.NormalizeName(input.Category); c != "" {
			id, err := ensureNamed(ctx, tx, "categories", c)
			if err != nil {
				return err
			}
			categoryID = sql.NullInt64{Int64: id, Valid: true}
		}

		return tx.GetContext(ctx, &product, `
            INSERT INTO products (name, category_id, unit_basis, calories, protein, fat, carbs)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT (name) DO UPDATE SET
                category_id = COALESCE(excluded.category_id, products.category_id),
                unit_basis  = excluded.unit_basis,
                calories    = COALESCE(excluded.calories, products.calories),
                protein     = COALESCE(excluded.protein, products.protein),
                fat         = COALESCE(excluded.fat, products.fat),
                carbs       = COALESCE(excluded.carbs, products.carbs)
            RETURNING id, name, category_id, unit_basis, calories, protein, fat, carbs;
        `, name, categoryID, unitBasis, nutrition.Calories, nutrition.Protein, nutrition.Fat, nutrition.Carbs)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting product", "name", name, "error", err)
		return nil, fmt.Errorf("failed to upsert product %q: %w", name, err)
	}
	return &product, nil
}

// UpsertEquipment returns the id of the named equipment, creating it if needed.
func (s *sqlxStore) UpsertEquipment(ctx context.Context, name string) (int64, error) {
	name = parser.NormalizeName(name)
	var id int64
	err := s.withTx(ctx, "upsert_equipment", func(tx *sqlx.Tx) error {
		var err error
		id, err = ensureNamed(ctx, tx, "equipment", name)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert equipment %q: %w", name, err)
	}
	return id, nil
}

// FindProductByName returns ErrNotFound when no product has the name.
func (s *sqlxStore) FindProductByName(ctx context.Context, name string) (*Product, error) {
	name = parser.NormalizeName(name)
	var product Product
	err := s.db.GetContext(ctx, &product, `
        SELECT id, name, category_id, unit_basis, calories, protein, fat, carbs
        FROM products WHERE name = ?`, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFoundErrorf("product %q", name)
	case err != nil:
		s.logger.ErrorContext(ctx, "Error finding product", "name", name, "error", err)
		return nil, fmt.Errorf("failed to find product %q: %w", name, err)
	}
	return &product, nil
}

// FindCategoryByName returns ErrNotFound when no category has the name.
func (s *sqlxStore) FindCategoryByName(ctx context.Context, name string) (*Category, error) {
	name = parser.NormalizeName(name)
	var category Category
	err := s.db.GetContext(ctx, &category, `SELECT id, name, shelf_life_days FROM categories WHERE name = ?`, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFoundErrorf("category %q", name)
	case err != nil:
		s.logger.ErrorContext(ctx, "Error finding category", "name", name, "error", err)
		return nil, fmt.Errorf("failed to find category %q: %w", name, err)
	}
	return &category, nil
}
