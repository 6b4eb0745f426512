package service

import (
	"context"
	"errors"
	"time"

	"freshmart-api/internal/cache"
	"freshmart-api/internal/model"
	"freshmart-api/internal/scheduler"

	"github.com/rs/zerolog"
)

// Scheduler arms and cancels the expiry timers owned by the coordinators.
type Scheduler interface {
	ScheduleOrReschedule(name string, fireAt time.Time, action scheduler.Action) bool
	Cancel(name string)
}

// ViewCache is the materialised-view surface the services read and invalidate.
type ViewCache interface {
	CheckExists(ctx context.Context, collection string) (bool, error)
	GetCollection(ctx context.Context, collection string, dest any) error
	StoreCollection(ctx context.Context, collection string, items any) error
	DeleteCollection(ctx context.Context, collection string) error

	GetProductIngredientPrices(ctx context.Context, productID string, ingredientIDs []string) ([]*model.PriceRecord, error)
	StoreProductIngredientPrices(ctx context.Context, productID string, records map[string]model.PriceRecord) error
	DeleteProductIngredientPrices(ctx context.Context, productID string) error
	InvalidateIngredientPrices(ctx context.Context, ingredientID string, productIDs ...string) ([]string, error)

	RecordVisit(ctx context.Context, productID, userID string) error
	GetVisitors(ctx context.Context, productID string) ([]string, error)
	RemoveVisit(ctx context.Context, productID, userID string) error
	RemoveAllVisitsForProduct(ctx context.Context, productID string) error
	RecordProductsForUser(ctx context.Context, productIDs []string, userID string) error
	GetProductsForUser(ctx context.Context, userID string) ([]string, error)
	RemoveProductsForUser(ctx context.Context, userID string) error
}

var (
	_ Scheduler = (*scheduler.Scheduler)(nil)
	_ ViewCache = (*cache.Store)(nil)
)

// IngredientJobName is the expiry job name of an ingredient.
func IngredientJobName(id string) string {
	return "delete-ingredient-" + id
}

// ProductJobName is the expiry job name of a product.
func ProductJobName(id string) string {
	return "update-product-status-" + id
}

// readThrough serves a collection snapshot, rebuilding and storing it from
// the data store when absent. Cache failures degrade to the data store.
func readThrough[T any](ctx context.Context, views ViewCache, logger zerolog.Logger, collection string, rebuild func(context.Context) ([]T, error)) ([]T, error) {
	exists, err := views.CheckExists(ctx, collection)
	if err != nil {
		logger.Warn().Err(err).Str("collection", collection).Msg("snapshot probe failed, reading data store")
		return rebuild(ctx)
	}

	if exists {
		var items []T
		err := views.GetCollection(ctx, collection, &items)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Str("collection", collection).Msg("snapshot read failed, rebuilding")
		}
	}

	items, err := rebuild(ctx)
	if err != nil {
		return nil, err
	}
	if err := views.StoreCollection(ctx, collection, items); err != nil {
		logger.Warn().Err(err).Str("collection", collection).Msg("snapshot store failed")
	}
	return items, nil
}
