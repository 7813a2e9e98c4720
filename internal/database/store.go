package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fridgebot/fridgebot/internal/matcher"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// Stats counts users, products, recipes and inventory rows.
	Stats(ctx context.Context) (*Stats, error)

	// UpsertUser creates the user on first contact or returns the existing
	// one, refreshing its first name. It is idempotent per telegram ID.
	UpsertUser(ctx context.Context, telegramID int64, firstName string) (*User, error)

	// GetUserByTelegramID returns ErrNotFound for unknown users.
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)

	// --- Reference data ---

	UpsertCategory(ctx context.Context, name string, shelfLifeDays sql.NullInt64) (*Category, error)
	UpsertProduct(ctx context.Context, input ProductInput) (*Product, error)
	UpsertEquipment(ctx context.Context, name string) (int64, error)
	FindProductByName(ctx context.Context, name string) (*Product, error)
	FindCategoryByName(ctx context.Context, name string) (*Category, error)

	// --- Inventory ---

	// AddOrUpdateInventoryItem resolves or creates the product by name and
	// sets the user's quantity of it (last write wins).
	AddOrUpdateInventoryItem(ctx context.Context, userID int64, productName string, quantity decimal.NullDecimal, unit string) (*InventoryItem, error)

	// AdjustInventoryItem adds delta to the user's quantity of the product,
	// creating the row when absent.
	AdjustInventoryItem(ctx context.Context, userID int64, productName string, delta decimal.NullDecimal, unit string) (*InventoryItem, error)

	// DecreaseInventoryItem subtracts amount and deletes the row when nothing
	// is left. The returned item is nil when the row was deleted.
	DecreaseInventoryItem(ctx context.Context, userID, productID int64, amount decimal.Decimal, unit string) (*InventoryItem, error)

	// RemoveInventoryItem deletes the row, returning ErrNotFound when absent.
	RemoveInventoryItem(ctx context.Context, userID, productID int64) error

	// ListInventory returns the user's inventory ordered by product name.
	ListInventory(ctx context.Context, userID int64) ([]InventoryItem, error)

	// ConsumeRecipe deducts the recipe's ingredients from the inventory.
	ConsumeRecipe(ctx context.Context, userID, recipeID int64) (*ConsumeReport, error)

	// DeleteExpiredInventory removes rows older than their category's shelf life.
	DeleteExpiredInventory(ctx context.Context, now time.Time) (int64, error)

	// --- Preferences, constraints, equipment ---

	SetPreference(ctx context.Context, userID, productID int64, polarity Polarity, note string) (*Preference, error)
	ListPreferences(ctx context.Context, userID int64) ([]Preference, error)
	AddConstraint(ctx context.Context, input ConstraintInput) (*FoodConstraint, error)
	ListConstraints(ctx context.Context, userID int64) ([]FoodConstraint, error)
	RemoveConstraint(ctx context.Context, userID, constraintID int64) error
	// AddUserEquipment links catalogue equipment and returns unknown names.
	AddUserEquipment(ctx context.Context, userID int64, names []string) ([]string, error)
	RemoveUserEquipment(ctx context.Context, userID int64, names []string) (int64, error)
	ListUserEquipment(ctx context.Context, userID int64) ([]string, error)

	// --- Recipes ---

	// UpsertRecipe inserts or updates a recipe keyed by URL and replaces its
	// ingredients, tags, images and equipment.
	UpsertRecipe(ctx context.Context, input RecipeInput) (int64, error)
	GetRecipeDetail(ctx context.Context, recipeID int64) (*RecipeDetail, error)

	// FindRecipesByAvailability ranks recipes by how much of them the user's
	// inventory covers, excluding avoided and constrained ingredients.
	FindRecipesByAvailability(ctx context.Context, userID int64, opts matcher.Options) ([]matcher.Match, error)
}

// maxAmount is the largest value a NUMERIC(10,2) column holds.
var maxAmount = decimal.RequireFromString("99999999.99")

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing when fn succeeds and rolling
// back otherwise. Errors from fn are classified into the error taxonomy.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "operation", op, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "operation", op, "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return classifyError(err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "operation", op, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", classifyError(err))
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// Stats counts the rows of the main tables in one query.
func (s *sqlxStore) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	query := `
        SELECT
            (SELECT COUNT(*) FROM users)         AS users,
            (SELECT COUNT(*) FROM products)      AS products,
            (SELECT COUNT(*) FROM recipes)       AS recipes,
            (SELECT COUNT(*) FROM user_products) AS inventory_items;
    `
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		s.logger.ErrorContext(ctx, "Error collecting stats", "error", err)
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}
	return &stats, nil
}

// UpsertUser inserts the user or refreshes the first name of the existing row.
// An empty first name never overwrites a stored one.
func (s *sqlxStore) UpsertUser(ctx context.Context, telegramID int64, firstName string) (*User, error) {
	if telegramID == 0 {
		return nil, validationErrorf("telegram_id cannot be zero")
	}

	query := `
        INSERT INTO users (telegram_id, first_name, created_at)
        VALUES (?, ?, ?)
        ON CONFLICT (telegram_id) DO UPDATE SET
            first_name = CASE WHEN excluded.first_name <> '' THEN excluded.first_name ELSE users.first_name END
        RETURNING id, telegram_id, first_name, created_at;
    `

	var user User
	err := s.withTx(ctx, "upsert_user", func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &user, query, telegramID, strings.TrimSpace(firstName), time.Now().UTC())
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user", "telegram_id", telegramID, "error", err)
		return nil, fmt.Errorf("failed to upsert user %d: %w", telegramID, err)
	}

	s.logger.DebugContext(ctx, "User upserted", "telegram_id", telegramID, "user_id", user.ID)
	return &user, nil
}

// GetUserByTelegramID looks a user up by Telegram account ID.
func (s *sqlxStore) GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, telegram_id, first_name, created_at FROM users WHERE telegram_id = ?`, telegramID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFoundErrorf("user with telegram_id %d", telegramID)
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user", "telegram_id", telegramID, "error", err)
		return nil, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}
	return &user, nil
}

// requireUser returns ErrNotFound when no user has the internal id userID.
func requireUser(ctx context.Context, q sqlx.QueryerContext, userID int64) error {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, userID); err != nil {
		return fmt.Errorf("failed to check user %d: %w", userID, err)
	}
	if !exists {
		return notFoundErrorf("user %d", userID)
	}
	return nil
}

// normalizeAmount validates a quantity or nutrition value and rounds it to
// two decimal places.
func normalizeAmount(field string, v decimal.NullDecimal) (decimal.NullDecimal, error) {
	if !v.Valid {
		return v, nil
	}
	if v.Decimal.IsNegative() {
		return v, validationErrorf("%s must not be negative, got %s", field, v.Decimal)
	}
	rounded := v.Decimal.Round(2)
	if rounded.GreaterThan(maxAmount) {
		return v, validationErrorf("%s %s exceeds %s", field, v.Decimal, maxAmount)
	}
	return decimal.NewNullDecimal(rounded), nil
}

func normalizeNutrition(n Nutrition) (Nutrition, error) {
	var err error
	if n.Calories, err = normalizeAmount("calories", n.Calories); err != nil {
		return n, err
	}
	if n.Protein, err = normalizeAmount("protein", n.Protein); err != nil {
		return n, err
	}
	if n.Fat, err = normalizeAmount("fat", n.Fat); err != nil {
		return n, err
	}
	if n.Carbs, err = normalizeAmount("carbs", n.Carbs); err != nil {
		return n, err
	}
	return n, nil
}
