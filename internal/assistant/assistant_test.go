package assistant

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeProducts(t *testing.T) {
	t.Parallel()

	products, err := DecodeProducts(`[
		{"name": " Tomato ", "quantity": 3, "unit": "pcs"},
		{"name": "pasta", "quantity": 200.5, "unit": "g"},
		{"name": "basil", "quantity": null, "unit": ""},
		{"name": "", "quantity": 1, "unit": "kg"},
		{"name": "salt", "quantity": -1, "unit": "g"}
	]`)
	if err != nil {
		t.Fatalf("DecodeProducts() error = %v", err)
	}
	if len(products) != 4 {
		t.Fatalf("DecodeProducts() returned %d products, want 4: %+v", len(products), products)
	}

	if products[0].Name != "tomato" || !products[0].Quantity.Decimal.Equal(decimal.NewFromInt(3)) || products[0].Unit != "pcs" {
		t.Errorf("products[0] = %+v", products[0])
	}
	if !products[1].Quantity.Decimal.Equal(decimal.RequireFromString("200.5")) {
		t.Errorf("products[1].Quantity = %s", products[1].Quantity.Decimal)
	}
	if products[2].Quantity.Valid {
		t.Errorf("basil quantity should be unknown, got %s", products[2].Quantity.Decimal)
	}
	if products[3].Name != "salt" || !products[3].Quantity.Valid || !products[3].Quantity.Decimal.Equal(decimal.NewFromInt(-1)) {
		t.Errorf("negative quantity should be passed through for validation, got %+v", products[3])
	}
}

func TestDecodeProducts_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := DecodeProducts(`{"name": "tomato"}`); err == nil {
		t.Error("DecodeProducts(object) error = nil, want error")
	}
}

func TestDecodeProductObject(t *testing.T) {
	t.Parallel()

	products, err := DecodeProductObject(`{"products": [{"name": "Milk", "quantity": 1, "unit": "l"}]}`)
	if err != nil {
		t.Fatalf("DecodeProductObject() error = %v", err)
	}
	if len(products) != 1 || products[0].Name != "milk" || products[0].Unit != "l" {
		t.Errorf("DecodeProductObject() = %+v", products)
	}

	if _, err := DecodeProductObject(`[]`); err == nil {
		t.Error("DecodeProductObject(array) error = nil, want error")
	}
}
