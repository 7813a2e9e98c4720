package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/matcher"
	"github.com/fridgebot/fridgebot/internal/parser"
	"github.com/fridgebot/fridgebot/internal/units"
)

// ConsumeReport describes what cooking a recipe did to the inventory.
type ConsumeReport struct {
	RecipeName string
	// UsedUp lists products whose rows were deleted.
	UsedUp []string
	// Reduced lists rows that still hold something.
	Reduced []InventoryItem
	// Untouched lists ingredients that were absent or had no comparable amount.
	Untouched []string
}

const inventorySelect = `
    SELECT up.user_id, up.product_id, p.name AS product_name, p.category_id,
           up.quantity, up.unit, up.added_at
    FROM user_products up
    JOIN products p ON p.id = up.product_id`

func getInventoryItem(ctx context.Context, q sqlx.QueryerContext, userID, productID int64) (*InventoryItem, error) {
	var item InventoryItem
	err := sqlx.GetContext(ctx, q, &item, inventorySelect+` WHERE up.user_id = ? AND up.product_id = ?`, userID, productID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get inventory item (user %d, product %d): %w", userID, productID, err)
	}
	return &item, nil
}

func writeInventoryItem(ctx context.Context, q sqlx.ExtContext, userID, productID int64, quantity decimal.NullDecimal, unit string, addedAt time.Time) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO user_products (user_id, product_id, quantity, unit, added_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, product_id) DO UPDATE SET
            quantity = excluded.quantity,
            unit     = excluded.unit,
            added_at = excluded.added_at;
    `, userID, productID, quantity, unit, addedAt)
	if err != nil {
		return fmt.Errorf("failed to write inventory item (user %d, product %d): %w", userID, productID, err)
	}
	return nil
}

func deleteInventoryItem(ctx context.Context, q sqlx.ExecerContext, userID, productID int64) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM user_products WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete inventory item (user %d, product %d): %w", userID, productID, err)
	}
	return result.RowsAffected()
}

// AddOrUpdateInventoryItem sets the user's quantity of the named product,
// creating the product when it is not in the catalogue yet.
func (s *sqlxStore) AddOrUpdateInventoryItem(ctx context.Context, userID int64, productName string, quantity decimal.NullDecimal, unit string) (*InventoryItem, error) {
	name := parser.NormalizeName(productName)
	if name == "" {
		return nil, validationErrorf("product name cannot be empty")
	}
	quantity, err := normalizeAmount("quantity", quantity)
	if err != nil {
		return nil, err
	}
	unit = units.Normalize(unit)

	var item *InventoryItem
	err = s.withTx(ctx, "add_or_update_inventory_item", func(tx *sqlx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		productID, err := ensureNamed(ctx, tx, "products", name)
		if err != nil {
			return err
		}
		if err := writeInventoryItem(ctx, tx, userID, productID, quantity, unit, time.Now().UTC()); err != nil {
			return err
		}
		item, err = getInventoryItem(ctx, tx, userID, productID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting inventory item", "user_id", userID, "product", name, "error", err)
		return nil, fmt.Errorf("failed to set inventory item %q: %w", name, err)
	}

	s.logger.DebugContext(ctx, "Inventory item set", "user_id", userID, "product", name, "quantity", item.Quantity)
	return item, nil
}

// AdjustInventoryItem adds delta to what the user holds. Quantities in
// convertible units are summed in the unit already stored; incomparable
// units replace the stored amount. An unknown delta keeps the stored amount.
func (s *sqlxStore) AdjustInventoryItem(ctx context.Context, userID int64, productName string, delta decimal.NullDecimal, unit string) (*InventoryItem, error) {
	name := parser.NormalizeName(productName)
	if name == "" {
		return nil, validationErrorf("product name cannot be empty")
	}
	delta, err := normalizeAmount("quantity", delta)
	if err != nil {
		return nil, err
	}
	unit = units.Normalize(unit)

	var item *InventoryItem
	err = s.withTx(ctx, "adjust_inventory_item", func(tx *sqlx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		productID, err := ensureNamed(ctx, tx, "products", name)
		if err != nil {
			return err
		}
		existing, err := getInventoryItem(ctx, tx, userID, productID)
		if err != nil {
			return err
		}

		quantity, finalUnit := delta, unit
		if existing != nil {
			quantity, finalUnit = addAmounts(existing.Quantity, existing.Unit, delta, unit)
		}
		if quantity, err = normalizeAmount("quantity", quantity); err != nil {
			return err
		}

		if err := writeInventoryItem(ctx, tx, userID, productID, quantity, finalUnit, time.Now().UTC()); err != nil {
			return err
		}
		item, err = getInventoryItem(ctx, tx, userID, productID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adjusting inventory item", "user_id", userID, "product", name, "error", err)
		return nil, fmt.Errorf("failed to adjust inventory item %q: %w", name, err)
	}

	s.logger.DebugContext(ctx, "Inventory item adjusted", "user_id", userID, "product", name, "quantity", item.Quantity)
	return item, nil
}

func addAmounts(have decimal.NullDecimal, haveUnit string, delta decimal.NullDecimal, deltaUnit string) (decimal.NullDecimal, string) {
	switch {
	case !delta.Valid:
		return have, haveUnit
	case !have.Valid:
		return delta, deltaUnit
	case haveUnit == "" || deltaUnit == "":
		u := haveUnit
		if u == "" {
			u = deltaUnit
		}
		return decimal.NewNullDecimal(have.Decimal.Add(delta.Decimal)), u
	}
	if converted, ok := units.Convert(delta.Decimal, deltaUnit, haveUnit); ok {
		return decimal.NewNullDecimal(have.Decimal.Add(converted)), haveUnit
	}
	return delta, deltaUnit
}

// DecreaseInventoryItem subtracts amount from the user's row for productID.
func (s *sqlxStore) DecreaseInventoryItem(ctx context.Context, userID, productID int64, amount decimal.Decimal, unit string) (*InventoryItem, error) {
	if !amount.IsPositive() {
		return nil, validationErrorf("amount to remove must be positive, got %s", amount)
	}
	unit = units.Normalize(unit)

	var item *InventoryItem
	err := s.withTx(ctx, "decrease_inventory_item", func(tx *sqlx.Tx) error {
		existing, err := getInventoryItem(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		if existing == nil {
			return notFoundErrorf("inventory item (user %d, product %d)", userID, productID)
		}
		if !existing.Quantity.Valid {
			return validationErrorf("quantity of %q was never set, cannot subtract", existing.ProductName)
		}

		sub := amount
		if unit != "" && existing.Unit != "" {
			converted, ok := units.Convert(amount, unit, existing.Unit)
			if !ok {
				return validationErrorf("cannot subtract %s from %s", unit, existing.Unit)
			}
			sub = converted
		}

		remaining := existing.Quantity.Decimal.Sub(sub).Round(2)
		if !remaining.IsPositive() {
			_, err := deleteInventoryItem(ctx, tx, userID, productID)
			return err
		}
		if err := writeInventoryItem(ctx, tx, userID, productID, decimal.NewNullDecimal(remaining), existing.Unit, existing.AddedAt); err != nil {
			return err
		}
		item, err = getInventoryItem(ctx, tx, userID, productID)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error decreasing inventory item", "user_id", userID, "product_id", productID, "error", err)
		return nil, fmt.Errorf("failed to decrease inventory item: %w", err)
	}
	return item, nil
}

// RemoveInventoryItem deletes the user's row for productID.
func (s *sqlxStore) RemoveInventoryItem(ctx context.Context, userID, productID int64) error {
	affected, err := deleteInventoryItem(ctx, s.db, userID, productID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error removing inventory item", "user_id", userID, "product_id", productID, "error", err)
		return err
	}
	if affected == 0 {
		return notFoundErrorf("inventory item (user %d, product %d)", userID, productID)
	}
	s.logger.DebugContext(ctx, "Inventory item removed", "user_id", userID, "product_id", productID)
	return nil
}

// ListInventory returns the user's inventory ordered by product name.
func (s *sqlxStore) ListInventory(ctx context.Context, userID int64) ([]InventoryItem, error) {
	if err := requireUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	items := []InventoryItem{}
	if err := s.db.SelectContext(ctx, &items, inventorySelect+` WHERE up.user_id = ? ORDER BY p.name`, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing inventory", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list inventory for user %d: %w", userID, err)
	}
	return items, nil
}

// ConsumeRecipe deducts every ingredient with a known required amount from
// the user's inventory in one transaction.
func (s *sqlxStore) ConsumeRecipe(ctx context.Context, userID, recipeID int64) (*ConsumeReport, error) {
	report := &ConsumeReport{}
	err := s.withTx(ctx, "consume_recipe", func(tx *sqlx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &report.RecipeName, `SELECT name FROM recipes WHERE id = ?`, recipeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFoundErrorf("recipe %d", recipeID)
			}
			return fmt.Errorf("failed to get recipe %d: %w", recipeID, err)
		}

		ingredients, err := selectIngredients(ctx, tx, recipeID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, ing := range ingredients {
			held, err := getInventoryItem(ctx, tx, userID, ing.ProductID)
			if err != nil {
				return err
			}
			need, needUnit := matcher.RequiredQuantity(toMatcherIngredient(ing))
			if held == nil || !held.Quantity.Valid || !need.Valid {
				report.Untouched = append(report.Untouched, ing.ProductName)
				continue
			}

			sub := need.Decimal
			if needUnit != "" && held.Unit != "" {
				converted, ok := units.Convert(need.Decimal, needUnit, held.Unit)
				if !ok {
					report.Untouched = append(report.Untouched, ing.ProductName)
					continue
				}
				sub = converted
			}

			remaining := held.Quantity.Decimal.Sub(sub).Round(2)
			if !remaining.IsPositive() {
				if _, err := deleteInventoryItem(ctx, tx, userID, ing.ProductID); err != nil {
					return err
				}
				report.UsedUp = append(report.UsedUp, ing.ProductName)
				continue
			}
			if err := writeInventoryItem(ctx, tx, userID, ing.ProductID, decimal.NewNullDecimal(remaining), held.Unit, held.AddedAt); err != nil {
				return err
			}
			held.Quantity = decimal.NewNullDecimal(remaining)
			report.Reduced = append(report.Reduced, *held)
		}
		s.logger.DebugContext(ctx, "Recipe consumed", "user_id", userID, "recipe_id", recipeID, "at", now,
			"used_up", len(report.UsedUp), "reduced", len(report.Reduced), "untouched", len(report.Untouched))
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error consuming recipe", "user_id", userID, "recipe_id", recipeID, "error", err)
		return nil, fmt.Errorf("failed to consume recipe %d: %w", recipeID, err)
	}
	return report, nil
}

// DeleteExpiredInventory removes inventory rows whose category shelf life has
// elapsed since the row was added. Products without a category, or in a
// category without a shelf life, never expire.
func (s *sqlxStore) DeleteExpiredInventory(ctx context.Context, now time.Time) (int64, error) {
	type candidate struct {
		UserID        int64     `db:"user_id"`
		ProductID     int64     `db:"product_id"`
		AddedAt       time.Time `db:"added_at"`
		ShelfLifeDays int64     `db:"shelf_life_days"`
	}

	var deleted int64
	err := s.withTx(ctx, "delete_expired_inventory", func(tx *sqlx.Tx) error {
		var candidates []candidate
		err := tx.SelectContext(ctx, &candidates, `
            SELECT up.user_id, up.product_id, up.added_at, c.shelf_life_days
            FROM user_products up
            JOIN products p   ON p.id = up.product_id
            JOIN categories c ON c.id = p.category_id
            WHERE c.shelf_life_days IS NOT NULL;
        `)
		if err != nil {
			return fmt.Errorf("failed to select expiry candidates: %w", err)
		}

		for _, c := range candidates {
			if c.AddedAt.AddDate(0, 0, int(c.ShelfLifeDays)).After(now) {
				continue
			}
			n, err := deleteInventoryItem(ctx, tx, c.UserID, c.ProductID)
			if err != nil {
				return err
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting expired inventory", "error", err)
		return 0, fmt.Errorf("failed to delete expired inventory: %w", err)
	}

	s.logger.InfoContext(ctx, "Expired inventory removed", "deleted", deleted)
	return deleted, nil
}
