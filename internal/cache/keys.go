package cache

import "strings"

// Collection snapshot names.
const (
	CollectionIngredients = "ingredients"
	CollectionCategories  = "categories"
	CollectionProducts    = "products"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// Keys derives cache keys from a namespace prefix and entity ids.
type Keys struct {
	Prefix string
}

func (k Keys) join(parts ...string) string {
	if k.Prefix != "" {
		parts = append([]string{k.Prefix}, parts...)
	}
	return strings.Join(parts, KeySeparator)
}

// Collection is the key of a full-collection snapshot.
func (k Keys) Collection(name string) string {
	return k.join("collection", name)
}

// ProductPrices is the key of a product's ingredient-price hash.
func (k Keys) ProductPrices(productID string) string {
	return k.join("product", productID, "ingredient-prices")
}

// ProductVisitors is the key of the set of users who fetched a product.
func (k Keys) ProductVisitors(productID string) string {
	return k.join("product", productID, "visitors")
}

// UserProducts is the key of the set of products a user fetched.
func (k Keys) UserProducts(userID string) string {
	return k.join("user", userID, "products")
}

// IngredientPriceProducts is the key of the set of product ids whose price
// hash holds a record for the ingredient.
func (k Keys) IngredientPriceProducts(ingredientID string) string {
	return k.join("ingredient", ingredientID, "price-products")
}
