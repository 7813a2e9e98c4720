package database

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Polarity is the direction of a user's product preference.
type Polarity string

const (
	PolarityLike  Polarity = "like"
	PolarityAvoid Polarity = "avoid"
)

// Valid reports whether p is one of the known polarities.
func (p Polarity) Valid() bool {
	return p == PolarityLike || p == PolarityAvoid
}

// User is a Telegram account owner. Users are created on first contact and
// never hard-deleted.
type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	FirstName  string    `db:"first_name"`
	CreatedAt  time.Time `db:"created_at"`
}

// Category classifies products and carries their shelf life.
type Category struct {
	ID            int64         `db:"id"`
	Name          string        `db:"name"`
	ShelfLifeDays sql.NullInt64 `db:"shelf_life_days"`
}

// Nutrition holds per-unit-basis or per-recipe nutrition figures.
type Nutrition struct {
	Calories decimal.NullDecimal `db:"calories"`
	Protein  decimal.NullDecimal `db:"protein"`
	Fat      decimal.NullDecimal `db:"fat"`
	Carbs    decimal.NullDecimal `db:"carbs"`
}

// Product is a distinct food item.
type Product struct {
	ID         int64         `db:"id"`
	Name       string        `db:"name"`
	CategoryID sql.NullInt64 `db:"category_id"`
	UnitBasis  string        `db:"unit_basis"`
	Nutrition
}

// InventoryItem is a quantity of a product a user currently holds. Quantity
// is invalid when the user never said how much they have.
type InventoryItem struct {
	UserID      int64               `db:"user_id"`
	ProductID   int64               `db:"product_id"`
	ProductName string              `db:"product_name"`
	CategoryID  sql.NullInt64       `db:"category_id"`
	Quantity    decimal.NullDecimal `db:"quantity"`
	Unit        string              `db:"unit"`
	AddedAt     time.Time           `db:"added_at"`
}

// Recipe is a cookable dish, identified externally by its source URL.
type Recipe struct {
	ID                 int64         `db:"id"`
	URL                string        `db:"url"`
	Name               string        `db:"name"`
	Description        string        `db:"description"`
	Instructions       string        `db:"instructions"`
	CookingTimeMinutes sql.NullInt64 `db:"cooking_time_minutes"`
	ImageURL           string        `db:"image_url"`
	Equipment          string        `db:"equipment"`
	NutritionMissing   bool          `db:"nutrition_missing"`
	Nutrition
}

// RecipeIngredient is a product required by a recipe.
type RecipeIngredient struct {
	RecipeID            int64               `db:"recipe_id"`
	ProductID           int64               `db:"product_id"`
	ProductName         string              `db:"product_name"`
	CategoryID          sql.NullInt64       `db:"category_id"`
	QuantityDescription string              `db:"quantity_description"`
	Quantity            decimal.NullDecimal `db:"quantity"`
	Unit                string              `db:"unit"`
}

// RecipeImage is a cover photo (step 0 or NULL) or a step illustration.
type RecipeImage struct {
	ID         int64         `db:"id"`
	RecipeID   int64         `db:"recipe_id"`
	URL        string        `db:"image_url"`
	StepNumber sql.NullInt64 `db:"step_number"`
}

// RecipeDetail is a recipe together with everything linked to it.
type RecipeDetail struct {
	Recipe
	Ingredients []RecipeIngredient
	Tags        []string
	Images      []RecipeImage
	Equipment   []string
}

// Preference is a like/avoid signal of a user on a product.
type Preference struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	ProductID   sql.NullInt64  `db:"product_id"`
	ProductName sql.NullString `db:"product_name"`
	Polarity    sql.NullString `db:"preference"`
	Note        string         `db:"note"`
}

// FoodConstraint is a dietary restriction on a product or a whole category.
// A constraint with neither target is a free-text note and does not affect
// recipe matching.
type FoodConstraint struct {
	ID           int64          `db:"id"`
	UserID       int64          `db:"user_id"`
	ProductID    sql.NullInt64  `db:"product_id"`
	ProductName  sql.NullString `db:"product_name"`
	CategoryID   sql.NullInt64  `db:"category_id"`
	CategoryName sql.NullString `db:"category_name"`
	Note         string         `db:"note"`
}

// Stats counts the rows of the main tables.
type Stats struct {
	Users          int64 `db:"users"`
	Products       int64 `db:"products"`
	Recipes        int64 `db:"recipes"`
	InventoryItems int64 `db:"inventory_items"`
}
