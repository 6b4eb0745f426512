package service

import (
	"context"

	"github.com/rs/zerolog"
)

// VisitorService maintains the product/user visitor indices.
type VisitorService struct {
	views  ViewCache
	logger zerolog.Logger
}

// NewVisitorService creates a new visitor service.
func NewVisitorService(views ViewCache, logger zerolog.Logger) *VisitorService {
	return &VisitorService{
		views:  views,
		logger: logger.With().Str("component", "visitor-service").Logger(),
	}
}

// RecordVisit records that userID fetched productID.
func (s *VisitorService) RecordVisit(ctx context.Context, productID, userID string) error {
	return guardErr(s.logger, "record visit", func() error {
		return s.views.RecordVisit(ctx, productID, userID)
	})
}

// Visitors returns the users who fetched productID.
func (s *VisitorService) Visitors(ctx context.Context, productID string) ([]string, error) {
	return guard(s.logger, "list visitors", func() ([]string, error) {
		return s.views.GetVisitors(ctx, productID)
	})
}

// ProductsForUser returns the products userID fetched.
func (s *VisitorService) ProductsForUser(ctx context.Context, userID string) ([]string, error) {
	return guard(s.logger, "list user products", func() ([]string, error) {
		return s.views.GetProductsForUser(ctx, userID)
	})
}

// RefreshUserView replaces the set of products associated with userID.
// The old set is read first and every reverse edge removed before the user's
// set is dropped, so no product keeps a stale visitor.
func (s *VisitorService) RefreshUserView(ctx context.Context, userID string, productIDs []string) error {
	return guardErr(s.logger, "refresh user view", func() error {
		previous, err := s.views.GetProductsForUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, productID := range previous {
			if err := s.views.RemoveVisit(ctx, productID, userID); err != nil {
				return err
			}
		}
		if err := s.views.RemoveProductsForUser(ctx, userID); err != nil {
			return err
		}
		return s.views.RecordProductsForUser(ctx, productIDs, userID)
	})
}
