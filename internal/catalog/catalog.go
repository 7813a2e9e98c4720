// Package catalog loads reference data and recipes from YAML files and
// writes them through the data-access layer.
package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fridgebot/fridgebot/internal/database"
	"github.com/fridgebot/fridgebot/internal/sanitize"
)

// Amount is an optional non-negative decimal read from a YAML scalar.
type Amount struct {
	decimal.NullDecimal
}

// UnmarshalYAML accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", value.Line)
	}
	if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
		a.NullDecimal = decimal.NullDecimal{}
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(value.Value), ",", "."))
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q: %w", value.Line, value.Value, err)
	}
	a.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

// Catalog is the content of a catalog file.
type Catalog struct {
	Categories []Category `yaml:"categories" validate:"dive"`
	Products   []Product  `yaml:"products"   validate:"dive"`
	Equipment  []string   `yaml:"equipment"  validate:"dive,required"`
	Recipes    []Recipe   `yaml:"recipes"    validate:"dive"`
}

type Category struct {
	Name          string `yaml:"name"            validate:"required"`
	ShelfLifeDays *int64 `yaml:"shelf_life_days" validate:"omitempty,min=0"`
}

type Nutrition struct {
	Calories Amount `yaml:"calories"`
	Protein  Amount `yaml:"protein"`
	Fat      Amount `yaml:"fat"`
	Carbs    Amount `yaml:"carbs"`
}

func (n Nutrition) toDatabase() database.Nutrition {
	return database.Nutrition{
		Calories: n.Calories.NullDecimal,
		Protein:  n.Protein.NullDecimal,
		Fat:      n.Fat.NullDecimal,
		Carbs:    n.Carbs.NullDecimal,
	}
}

func (n Nutrition) empty() bool {
	return !n.Calories.Valid && !n.Protein.Valid && !n.Fat.Valid && !n.Carbs.Valid
}

type Product struct {
	Name      string `yaml:"name"       validate:"required"`
	Category  string `yaml:"category"`
	UnitBasis string `yaml:"unit_basis"`
	Nutrition `yaml:",inline"`
}

type Ingredient struct {
	Product  string `yaml:"product"  validate:"required"`
	Amount   string `yaml:"amount"`
	Quantity Amount `yaml:"quantity"`
	Unit     string `yaml:"unit"`
}

type Image struct {
	URL  string `yaml:"url"  validate:"required"`
	Step *int64 `yaml:"step" validate:"omitempty,min=0"`
}

type Recipe struct {
	URL                string       `yaml:"url"                  validate:"required"`
	Name               string       `yaml:"name"                 validate:"required"`
	Description        string       `yaml:"description"`
	Instructions       string       `yaml:"instructions"`
	CookingTimeMinutes *int64       `yaml:"cooking_time_minutes" validate:"omitempty,min=0"`
	ImageURL           string       `yaml:"image_url"`
	Nutrition          *Nutrition   `yaml:"nutrition"`
	Ingredients        []Ingredient `yaml:"ingredients"          validate:"required,dive"`
	Tags               []string     `yaml:"tags"`
	Images             []Image      `yaml:"images"               validate:"dive"`
	Equipment          []string     `yaml:"equipment"`
}

// Load reads and validates the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads and validates a catalog from r. Unknown keys are rejected.
func Decode(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cat Catalog
	if err := dec.Decode(&cat); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for _, amount := range cat.amounts() {
		if amount.Valid && amount.Decimal.IsNegative() {
			return nil, fmt.Errorf("invalid catalog: negative amount %s", amount.Decimal)
		}
	}
	if err := validator.New().Struct(&cat); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &cat, nil
}

func (c *Catalog) amounts() []Amount {
	var out []Amount
	add := func(n Nutrition) {
		out = append(out, n.Calories, n.Protein, n.Fat, n.Carbs)
	}
	for _, p := range c.Products {
		add(p.Nutrition)
	}
	for _, r := range c.Recipes {
		if r.Nutrition != nil {
			add(*r.Nutrition)
		}
		for _, ing := range r.Ingredients {
			out = append(out, ing.Quantity)
		}
	}
	return out
}

// Writer is the part of the store the importer needs.
type Writer interface {
	UpsertCategory(ctx context.Context, name string, shelfLifeDays sql.NullInt64) (*database.Category, error)
	UpsertProduct(ctx context.Context, input database.ProductInput) (*database.Product, error)
	UpsertEquipment(ctx context.Context, name string) (int64, error)
	UpsertRecipe(ctx context.Context, input database.RecipeInput) (int64, error)
}

// ImportStats counts what an import wrote.
type ImportStats struct {
	Categories int
	Products   int
	Equipment  int
	Recipes    int
}

// Import writes the catalog through w. Every entry is an upsert, so importing
// the same file twice leaves the database unchanged.
func Import(ctx context.Context, w Writer, cat *Catalog, log *slog.Logger) (*ImportStats, error) {
	stats := &ImportStats{}

	for _, c := range cat.Categories {
		var shelfLife sql.NullInt64
		if c.ShelfLifeDays != nil {
			shelfLife = sql.NullInt64{Int64: *c.ShelfLifeDays, Valid: true}
		}
		if _, err := w.UpsertCategory(ctx, c.Name, shelfLife); err != nil {
			return stats, fmt.Errorf("category %q: %w", c.Name, err)
		}
		stats.Categories++
	}

	for _, p := range cat.Products {
		if _, err := w.UpsertProduct(ctx, database.ProductInput{
			Name:      p.Name,
			Category:  p.Category,
			UnitBasis: p.UnitBasis,
			Nutrition: p.Nutrition.toDatabase(),
		}); err != nil {
			return stats, fmt.Errorf("product %q: %w", p.Name, err)
		}
		stats.Products++
	}

	for _, e := range cat.Equipment {
		if _, err := w.UpsertEquipment(ctx, e); err != nil {
			return stats, fmt.Errorf("equipment %q: %w", e, err)
		}
		stats.Equipment++
	}

	for _, r := range cat.Recipes {
		id, err := w.UpsertRecipe(ctx, r.toInput())
		if err != nil {
			return stats, fmt.Errorf("recipe %q: %w", r.URL, err)
		}
		log.DebugContext(ctx, "Recipe imported", "recipe_id", id, "url", r.URL)
		stats.Recipes++
	}

	log.InfoContext(ctx, "Catalog imported",
		"categories", stats.Categories, "products", stats.Products,
		"equipment", stats.Equipment, "recipes", stats.Recipes)
	return stats, nil
}

func (r Recipe) toInput() database.RecipeInput {
	in := database.RecipeInput{
		URL:              r.URL,
		Name:             r.Name,
		Description:      sanitize.PlainText(r.Description),
		Instructions:     sanitize.PlainText(r.Instructions),
		ImageURL:         r.ImageURL,
		Tags:             r.Tags,
		Equipment:        r.Equipment,
		NutritionMissing: r.Nutrition == nil || r.Nutrition.empty(),
	}
	if r.CookingTimeMinutes != nil {
		in.CookingTimeMinutes = sql.NullInt64{Int64: *r.CookingTimeMinutes, Valid: true}
	}
	if r.Nutrition != nil {
		in.Nutrition = r.Nutrition.toDatabase()
	}
	for _, ing := range r.Ingredients {
		in.Ingredients = append(in.Ingredients, database.IngredientInput{
			Product:             ing.Product,
			QuantityDescription: ing.Amount,
			Quantity:            ing.Quantity.NullDecimal,
			Unit:                ing.Unit,
		})
	}
	for _, img := range r.Images {
		image := database.ImageInput{URL: img.URL}
		if img.Step != nil {
			image.StepNumber = sql.NullInt64{Int64: *img.Step, Valid: true}
		}
		in.Images = append(in.Images, image)
	}
	return in
}
