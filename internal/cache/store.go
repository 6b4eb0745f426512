package cache

import (
	"context"
	"encoding/json"
	"time"

	"freshmart-api/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Recorder receives cache invalidation events, typically for metrics.
type Recorder interface {
	CacheInvalidated(kind string)
}

type noopRecorder struct{}

func (noopRecorder) CacheInvalidated(string) {}

// Store maintains the materialised views derived from the relational store:
// collection snapshots, per-product ingredient-price hashes and the
// product/user visitor indices.
//
// Every method returns the KeyValueStore error unchanged.
type Store struct {
	kv       KeyValueStore
	keys     Keys
	ttl      time.Duration
	priceTTL time.Duration
	logger   zerolog.Logger
	recorder Recorder
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL sets the lifetime of collection snapshots. Zero keeps them until invalidated.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithPriceTTL sets the lifetime of product price hashes and of the
// ingredient index pointing at them. Zero keeps them until invalidated.
func WithPriceTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.priceTTL = ttl }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithRecorder sets the invalidation recorder.
func WithRecorder(r Recorder) StoreOption {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates a Store over kv with keys namespaced by prefix.
func NewStore(kv KeyValueStore, prefix string, opts ...StoreOption) *Store {
	s := &Store{
		kv:       kv,
		keys:     Keys{Prefix: prefix},
		logger:   log.With().Str("component", "cache").Logger(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the key builder used by the store.
func (s *Store) Keys() Keys { return s.keys }

// --- Collection snapshots ---

// CheckExists reports whether the named collection snapshot is present.
func (s *Store) CheckExists(ctx context.Context, collection string) (bool, error) {
	return s.kv.Exists(ctx, s.keys.Collection(collection))
}

// GetCollection decodes the named snapshot into dest. Returns ErrCacheMiss if absent.
func (s *Store) GetCollection(ctx context.Context, collection string, dest any) error {
	return s.kv.GetJSON(ctx, s.keys.Collection(collection), dest)
}

// StoreCollection overwrites the named snapshot with items.
func (s *Store) StoreCollection(ctx context.Context, collection string, items any) error {
	return s.kv.SetJSON(ctx, s.keys.Collection(collection), items, s.ttl)
}

// DeleteCollection invalidates the named snapshot.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	if err := s.kv.Delete(ctx, s.keys.Collection(collection)); err != nil {
		return err
	}
	s.recorder.CacheInvalidated("collection")
	s.logger.Debug().Str("collection", collection).Msg("snapshot invalidated")
	return nil
}

// --- Product ingredient prices ---

// GetProductIngredientPrices returns the cached record for each ingredient id
// in order. A nil entry means the ingredient is not cached for this product.
func (s *Store) GetProductIngredientPrices(ctx context.Context, productID string, ingredientIDs []string) ([]*model.PriceRecord, error) {
	raw, err := s.kv.HMGet(ctx, s.keys.ProductPrices(productID), ingredientIDs...)
	if err != nil {
		return nil, err
	}

	out := make([]*model.PriceRecord, len(ingredientIDs))
	for i, v := range raw {
		if v == nil {
			continue
		}
		var rec model.PriceRecord
		if err := json.Unmarshal([]byte(*v), &rec); err != nil {
			s.logger.Warn().Err(err).
				Str("product", productID).
				Str("ingredient", ingredientIDs[i]).
				Msg("unreadable price record, treating as miss")
			continue
		}
		out[i] = &rec
	}
	return out, nil
}

// StoreProductIngredientPrices merges records into the product's price hash
// and indexes the product under each ingredient, in one atomic batch.
func (s *Store) StoreProductIngredientPrices(ctx context.Context, productID string, records map[string]model.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	values := make(map[string]string, len(records))
	for id, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		values[id] = string(data)
	}

	hashKey := s.keys.ProductPrices(productID)
	return s.kv.Pipelined(ctx, func(b Batch) error {
		b.HSet(hashKey, values)
		b.Expire(hashKey, s.priceTTL)
		for ingredientID := range values {
			indexKey := s.keys.IngredientPriceProducts(ingredientID)
			b.SAdd(indexKey, productID)
			b.Expire(indexKey, s.priceTTL)
		}
		return nil
	})
}

// DeleteProductIngredientPrices drops the product's whole price hash.
func (s *Store) DeleteProductIngredientPrices(ctx context.Context, productID string) error {
	if err := s.kv.Delete(ctx, s.keys.ProductPrices(productID)); err != nil {
		return err
	}
	s.recorder.CacheInvalidated("product-prices")
	return nil
}

// InvalidateIngredientPrices drops the price hash of every product that holds
// a record for the ingredient, plus those in productIDs, and clears the index.
// It returns the product ids whose hashes were dropped.
func (s *Store) InvalidateIngredientPrices(ctx context.Context, ingredientID string, productIDs ...string) ([]string, error) {
	indexKey := s.keys.IngredientPriceProducts(ingredientID)
	indexed, err := s.kv.SMembers(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(indexed)+len(productIDs))
	dropped := make([]string, 0, len(indexed)+len(productIDs))
	keys := make([]string, 0, len(indexed)+len(productIDs)+1)
	for _, id := range append(indexed, productIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		dropped = append(dropped, id)
		keys = append(keys, s.keys.ProductPrices(id))
	}
	keys = append(keys, indexKey)

	if err := s.kv.Delete(ctx, keys...); err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		s.recorder.CacheInvalidated("product-prices")
	}
	s.logger.Debug().Str("ingredient", ingredientID).Strs("products", dropped).Msg("price hashes invalidated")
	return dropped, nil
}

// --- Visitor indices ---

// RecordVisit adds the product/user edge on both indices.
func (s *Store) RecordVisit(ctx context.Context, productID, userID string) error {
	return s.kv.Pipelined(ctx, func(b Batch) error {
		b.SAdd(s.keys.ProductVisitors(productID), userID)
		b.SAdd(s.keys.UserProducts(userID), productID)
		return nil
	})
}

// GetVisitors returns the users who fetched the product.
func (s *Store) GetVisitors(ctx context.Context, productID string) ([]string, error) {
	return s.kv.SMembers(ctx, s.keys.ProductVisitors(productID))
}

// RemoveVisit removes the product/user edge from both indices.
func (s *Store) RemoveVisit(ctx context.Context, productID, userID string) error {
	return s.kv.Pipelined(ctx, func(b Batch) error {
		b.SRem(s.keys.ProductVisitors(productID), userID)
		b.SRem(s.keys.UserProducts(userID), productID)
		return nil
	})
}

// RemoveAllVisitsForProduct drops the product's visitor set and the reverse
// edges of every user in it.
func (s *Store) RemoveAllVisitsForProduct(ctx context.Context, productID string) error {
	visitors, err := s.GetVisitors(ctx, productID)
	if err != nil {
		return err
	}

	err = s.kv.Pipelined(ctx, func(b Batch) error {
		for _, userID := range visitors {
			b.SRem(s.keys.UserProducts(userID), productID)
		}
		b.Delete(s.keys.ProductVisitors(productID))
		return nil
	})
	if err != nil {
		return err
	}
	s.recorder.CacheInvalidated("visitors")
	return nil
}

// RecordProductsForUser adds an edge between userID and every product.
func (s *Store) RecordProductsForUser(ctx context.Context, productIDs []string, userID string) error {
	if len(productIDs) == 0 {
		return nil
	}
	return s.kv.Pipelined(ctx, func(b Batch) error {
		b.SAdd(s.keys.UserProducts(userID), productIDs...)
		for _, productID := range productIDs {
			b.SAdd(s.keys.ProductVisitors(productID), userID)
		}
		return nil
	})
}

// GetProductsForUser returns the products the user fetched.
func (s *Store) GetProductsForUser(ctx context.Context, userID string) ([]string, error) {
	return s.kv.SMembers(ctx, s.keys.UserProducts(userID))
}

// RemoveProductsForUser drops the user's product set. Callers remove the
// forward edges with RemoveVisit first.
func (s *Store) RemoveProductsForUser(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, s.keys.UserProducts(userID))
}
