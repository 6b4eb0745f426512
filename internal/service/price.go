package service

import (
	"context"

	"freshmart-api/internal/model"
	"freshmart-api/internal/repository"
	"freshmart-api/pkg/uid"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceService computes product prices through the per-product
// ingredient-price hash, resolving misses from the data store.
type PriceService struct {
	ingredients repository.IngredientRepository
	products    repository.ProductRepository
	views       ViewCache
	logger      zerolog.Logger
}

// NewPriceService creates a new price service.
func NewPriceService(ingredients repository.IngredientRepository, products repository.ProductRepository, views ViewCache, logger zerolog.Logger) *PriceService {
	return &PriceService{
		ingredients: ingredients,
		products:    products,
		views:       views,
		logger:      logger.With().Str("component", "price-service").Logger(),
	}
}

// Quote prices req. An empty ProductID gets a temporary id that keys the
// price hash and is returned in the quote.
func (s *PriceService) Quote(ctx context.Context, req model.PriceRequest) (*model.PriceQuote, error) {
	const action = "quote price"
	return guard(s.logger, action, func() (*model.PriceQuote, error) {
		if len(req.Ingredients) == 0 {
			return nil, invalid(action, "at least one ingredient is required")
		}
		if req.ProductID == "" {
			req.ProductID = uid.New()
		}
		return s.quote(ctx, action, req)
	})
}

// QuoteProduct prices a persisted product from its stored ingredient list.
func (s *PriceService) QuoteProduct(ctx context.Context, productID string) (*model.PriceQuote, error) {
	const action = "quote product price"
	return guard(s.logger, action, func() (*model.PriceQuote, error) {
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		return s.quote(ctx, action, model.PriceRequest{ProductID: p.ID, Ingredients: p.Ingredients})
	})
}

func (s *PriceService) quote(ctx context.Context, action string, req model.PriceRequest) (*model.PriceQuote, error) {
	ids := make([]string, len(req.Ingredients))
	for i, item := range req.Ingredients {
		if item.Quantity.IsNegative() {
			return nil, invalid(action, "negative quantity for ingredient %s", item.IngredientID)
		}
		ids[i] = item.IngredientID
	}

	records, err := s.views.GetProductIngredientPrices(ctx, req.ProductID, ids)
	if err != nil {
		s.logger.Warn().Err(err).Str("product", req.ProductID).Msg("price cache read failed, resolving from data store")
		records = make([]*model.PriceRecord, len(ids))
	}

	var misses []string
	for i, rec := range records {
		if rec == nil {
			misses = append(misses, ids[i])
		}
	}

	if len(misses) > 0 {
		found, err := s.ingredients.FindMany(ctx, model.IngredientFilter{IDs: misses})
		if err != nil {
			return nil, err
		}

		byID := make(map[string]model.PriceRecord, len(found))
		for _, in := range found {
			byID[in.ID] = model.PriceRecordOf(in)
		}

		backfill := make(map[string]model.PriceRecord, len(misses))
		for i, rec := range records {
			if rec != nil {
				continue
			}
			resolved, ok := byID[ids[i]]
			if !ok {
				return nil, notFound(action, "ingredient %s does not exist", ids[i])
			}
			records[i] = &resolved
			backfill[ids[i]] = resolved
		}

		if err := s.views.StoreProductIngredientPrices(ctx, req.ProductID, backfill); err != nil {
			s.logger.Warn().Err(err).Str("product", req.ProductID).Msg("price cache backfill failed")
		}
	}

	q := &model.PriceQuote{
		ProductID: req.ProductID,
		Lines:     make([]model.PriceLine, len(req.Ingredients)),
		Total:     decimal.Zero,
	}
	for i, item := range req.Ingredients {
		rec := records[i]
		subtotal := rec.Price.Mul(item.Quantity)
		q.Lines[i] = model.PriceLine{
			IngredientID: item.IngredientID,
			Name:         rec.Name,
			Unit:         rec.Unit,
			UnitPrice:    rec.Price,
			Quantity:     item.Quantity,
			Subtotal:     subtotal,
		}
		q.Total = q.Total.Add(subtotal)
	}
	return q, nil
}
