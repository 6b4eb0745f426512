package model

import "github.com/shopspring/decimal"

// PriceRecord is the cached view of an ingredient used by price computation.
type PriceRecord struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Unit  string          `json:"unit"`
}

// PriceRecordOf builds the cached view of an ingredient.
func PriceRecordOf(in Ingredient) PriceRecord {
	return PriceRecord{Name: in.Name, Price: in.Price, Unit: in.Unit}
}

// PriceRequest asks for the price of a product that may not be persisted yet.
// ProductID is the real or temporary id the price cache is keyed by.
type PriceRequest struct {
	ProductID   string              `json:"product_id"`
	Ingredients []ProductIngredient `json:"ingredients"`
}

// PriceLine is one priced ingredient of a PriceQuote.
type PriceLine struct {
	IngredientID string          `json:"ingredient_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// PriceQuote is the result of a price computation.
type PriceQuote struct {
	ProductID string          `json:"product_id"`
	Lines     []PriceLine     `json:"lines"`
	Total     decimal.Decimal `json:"total"`
}
