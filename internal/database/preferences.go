package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fridgebot/fridgebot/internal/parser"
)

// ConstraintInput describes a dietary restriction. At most one of ProductID
// and CategoryID may be set; with neither, Note must carry the restriction.
type ConstraintInput struct {
	UserID     int64
	ProductID  sql.NullInt64
	CategoryID sql.NullInt64
	Note       string
}

const preferenceSelect = `
    SELECT pr.id, pr.user_id, pr.product_id, p.name AS product_name, pr.preference, pr.note
    FROM user_product_preferences pr
    LEFT JOIN products p ON p.id = pr.product_id`

const constraintSelect = `
    SELECT c.id, c.user_id, c.product_id, p.name AS product_name,
           c.category_id, cat.name AS category_name, c.note
    FROM user_food_constraints c
    LEFT JOIN products p     ON p.id = c.product_id
    LEFT JOIN categories cat ON cat.id = c.category_id`

func requireRow(ctx context.Context, q sqlx.QueryerContext, table string, id int64) error {
	if !namedTables[table] && table != "recipes" {
		return fmt.Errorf("table %q cannot be checked", table)
	}
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = ?)`, id); err != nil {
		return fmt.Errorf("failed to check %s %d: %w", table, id, err)
	}
	if !exists {
		return notFoundErrorf("%s row %d", table, id)
	}
	return nil
}

// SetPreference records how the user feels about a product, replacing any
// earlier preference on the same product.
func (s *sqlxStore) SetPreference(ctx context.Context, userID, productID int64, polarity Polarity, note string) (*Preference, error) {
	if !polarity.Valid() {
		return nil, validationErrorf("preference must be %q or %q, got %q", PolarityLike, PolarityAvoid, polarity)
	}
	note = strings.TrimSpace(note)

	var pref Preference
	err := s.withTx(ctx, "set_preference", func(tx *sqlx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, "products", productID); err != nil {
			return err
		}

		var id int64
		err := tx.GetContext(ctx, &id, `
            INSERT INTO user_product_preferences (user_id, product_id, preference, note)
            VALUES (?, ?, ?, ?)
            ON CONFLICT (user_id, product_id) DO UPDATE SET
                preference = excluded.preference,
                note       = excluded.note
            RETURNING id;
        `, userID, productID, string(polarity), note)
		if err != nil {
			return fmt.Errorf("failed to upsert preference: %w", err)
		}
		return tx.GetContext(ctx, &pref, preferenceSelect+` WHERE pr.id = ?`, id)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting preference", "user_id", userID, "product_id", productID, "error", err)
		return nil, fmt.Errorf("failed to set preference: %w", err)
	}

	s.logger.DebugContext(ctx, "Preference set", "user_id", userID, "product_id", productID, "polarity", polarity)
	return &pref, nil
}

// ListPreferences returns the user's preferences ordered by product name.
func (s *sqlxStore) ListPreferences(ctx context.Context, userID int64) ([]Preference, error) {
	prefs := []Preference{}
	if err := s.db.SelectContext(ctx, &prefs, preferenceSelect+` WHERE pr.user_id = ? ORDER BY p.name, pr.id`, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing preferences", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list preferences for user %d: %w", userID, err)
	}
	return prefs, nil
}

// AddConstraint stores a dietary restriction of the user.
func (s *sqlxStore) AddConstraint(ctx context.Context, input ConstraintInput) (*FoodConstraint, error) {
	input.Note = strings.TrimSpace(input.Note)
	switch {
	case input.ProductID.Valid && input.CategoryID.Valid:
		return nil, validationErrorf("constraint targets either a product or a category, not both")
	case !input.ProductID.Valid && !input.CategoryID.Valid && input.Note == "":
		return nil, validationErrorf("constraint needs a product, a category or a note")
	}

	var constraint FoodConstraint
	err := s.withTx(ctx, "add_constraint", func(tx *sqlx.Tx) error {
		if err := requireUser(ctx, tx, input.UserID); err != nil {
			return err
		}
		if input.ProductID.Valid {
			if err := requireRow(ctx, tx, "products", input.ProductID.Int64); err != nil {
				return err
			}
		}
		if input.CategoryID.Valid {
			if err := requireRow(ctx, tx, "categories", input.CategoryID.Int64); err != nil {
				return err
			}
		}

		var id int64
		err := tx.GetContext(ctx, &id, `
            INSERT INTO user_food_constraints (user_id, product_id, category_id, note)
            VALUES (?, ?, ?, ?)
            RETURNING id;
        `, input.UserID, input.ProductID, input.CategoryID, input.Note)
		if err != nil {
			return fmt.Errorf("failed to insert constraint: %w", err)
		}
		return tx.GetContext(ctx, &constraint, constraintSelect+` WHERE c.id = ?`, id)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding constraint", "user_id", input.UserID, "error", err)
		return nil, fmt.Errorf("failed to add constraint: %w", err)
	}

	s.logger.DebugContext(ctx, "Constraint added", "user_id", input.UserID, "constraint_id", constraint.ID)
	return &constraint, nil
}

// ListConstraints returns the user's constraints in creation order.
func (s *sqlxStore) ListConstraints(ctx context.Context, userID int64) ([]FoodConstraint, error) {
	constraints := []FoodConstraint{}
	if err := s.db.SelectContext(ctx, &constraints, constraintSelect+` WHERE c.user_id = ? ORDER BY c.id`, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing constraints", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list constraints for user %d: %w", userID, err)
	}
	return constraints, nil
}

// RemoveConstraint deletes one of the user's constraints.
func (s *sqlxStore) RemoveConstraint(ctx context.Context, userID, constraintID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_food_constraints WHERE id = ? AND user_id = ?`, constraintID, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error removing constraint", "user_id", userID, "constraint_id", constraintID, "error", err)
		return fmt.Errorf("failed to remove constraint %d: %w", constraintID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return notFoundErrorf("constraint %d", constraintID)
	}
	return nil
}

// AddUserEquipment links the named equipment to the user. Only equipment
// present in the catalogue is linked; the remaining names are returned.
func (s *sqlxStore) AddUserEquipment(ctx context.Context, userID int64, names []string) ([]string, error) {
	var unknown []string
	err := s.withTx(ctx, "add_user_equipment", func(tx *sqlx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		for _, raw := range names {
			name := parser.NormalizeName(raw)
			if name == "" {
				continue
			}
			var id int64
			err := tx.GetContext(ctx, &id, `SELECT id FROM equipment WHERE name = ?`, name)
			if errors.Is(err, sql.ErrNoRows) {
				unknown = append(unknown, name)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to resolve equipment %q: %w", name, err)
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO user_equipment (user_id, equipment_id) VALUES (?, ?)
                ON CONFLICT (user_id, equipment_id) DO NOTHING;
            `, userID, id); err != nil {
				return fmt.Errorf("failed to link equipment %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding user equipment", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to add equipment: %w", err)
	}
	return unknown, nil
}

// RemoveUserEquipment unlinks the named equipment and reports how many links
// were removed.
func (s *sqlxStore) RemoveUserEquipment(ctx context.Context, userID int64, names []string) (int64, error) {
	var removed int64
	err := s.withTx(ctx, "remove_user_equipment", func(tx *sqlx.Tx) error {
		for _, raw := range names {
			result, err := tx.ExecContext(ctx, `
                DELETE FROM user_equipment
                WHERE user_id = ? AND equipment_id = (SELECT id FROM equipment WHERE name = ?);
            `, userID, parser.NormalizeName(raw))
			if err != nil {
				return fmt.Errorf("failed to unlink equipment %q: %w", raw, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error removing user equipment", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to remove equipment: %w", err)
	}
	return removed, nil
}

// ListUserEquipment returns the names of the user's equipment, sorted.
func (s *sqlxStore) ListUserEquipment(ctx context.Context, userID int64) ([]string, error) {
	names := []string{}
	err := s.db.SelectContext(ctx, &names, `
        SELECT e.name FROM user_equipment ue
        JOIN equipment e ON e.id = ue.equipment_id
        WHERE ue.user_id = ?
        ORDER BY e.name;
    `, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error listing user equipment", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list equipment for user %d: %w", userID, err)
	}
	return names, nil
}
