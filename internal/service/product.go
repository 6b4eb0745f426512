package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"freshmart-api/internal/cache"
	"freshmart-api/internal/model"
	"freshmart-api/internal/repository"
	"freshmart-api/pkg/uid"

	"github.com/rs/zerolog"
)

// ProductService coordinates product writes with the product snapshot, the
// product's price hash, its visitor sets and its expiry timer.
type ProductService struct {
	repo      repository.ProductRepository
	views     ViewCache
	scheduler Scheduler
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, views ViewCache, sched Scheduler, logger zerolog.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		views:     views,
		scheduler: sched,
		logger:    logger.With().Str("component", "product-service").Logger(),
		now:       time.Now,
	}
}

// List returns every product, served from the snapshot when present.
func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	return guard(s.logger, "list products", func() ([]model.Product, error) {
		return readThrough(ctx, s.views, s.logger, cache.CollectionProducts,
			func(ctx context.Context) ([]model.Product, error) {
				return s.repo.FindMany(ctx, model.ProductFilter{})
			})
	})
}

// Get returns one product. A non-empty userID records the visit; a failure
// to record it is logged and does not fail the read.
func (s *ProductService) Get(ctx context.Context, id, userID string) (*model.Product, error) {
	return guard(s.logger, "get product", func() (*model.Product, error) {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if userID != "" {
			if err := s.views.RecordVisit(ctx, id, userID); err != nil {
				s.logger.Warn().Err(err).Str("product", id).Str("user", userID).Msg("visit not recorded")
			}
		}
		return p, nil
	})
}

// Create persists p with its ingredients, invalidates the snapshot and arms
// its expiry timer.
func (s *ProductService) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	const action = "create product"
	return guard(s.logger, action, func() (*model.Product, error) {
		if strings.TrimSpace(p.Name) == "" {
			return nil, invalid(action, "name is required")
		}
		if p.Status == "" {
			p.Status = model.StatusInStock
		}
		if !p.Status.IsValid() {
			return nil, invalid(action, "unknown status %q", p.Status)
		}
		if p.ID == "" {
			p.ID = uid.New()
		}
		if p.Ingredients == nil {
			p.Ingredients = []model.ProductIngredient{}
		}

		if err := s.repo.Create(ctx, p); err != nil {
			return nil, err
		}

		cacheErr := s.views.DeleteCollection(ctx, cache.CollectionProducts)
		s.arm(p.ID, p.ExpiredAt)

		if cacheErr != nil {
			return nil, inconsistent(action, cacheErr)
		}
		return p, nil
	})
}

// Update applies upd, drops the snapshot and the product's price hash,
// re-associates its visitors and re-arms the timer with the stored expiry.
func (s *ProductService) Update(ctx context.Context, id string, upd model.ProductUpdate) (*model.Product, error) {
	const action = "update product"
	return guard(s.logger, action, func() (*model.Product, error) {
		if upd.Status != nil && !upd.Status.IsValid() {
			return nil, invalid(action, "unknown status %q", *upd.Status)
		}

		updated, err := s.repo.Update(ctx, id, upd)
		if err != nil {
			return nil, err
		}

		cacheErr := errors.Join(
			s.views.DeleteCollection(ctx, cache.CollectionProducts),
			s.views.DeleteProductIngredientPrices(ctx, id),
			s.reassociateVisitors(ctx, id),
		)
		s.arm(updated.ID, updated.ExpiredAt)

		if cacheErr != nil {
			return nil, inconsistent(action, cacheErr)
		}
		return updated, nil
	})
}

// Delete removes the product and its ingredient links, then drops every view
// of it and cancels the timer. Nothing is touched on NotFound.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	const action = "delete product"
	return guardErr(s.logger, action, func() error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}

		cacheErr := errors.Join(
			s.views.DeleteCollection(ctx, cache.CollectionProducts),
			s.views.DeleteProductIngredientPrices(ctx, id),
			s.views.RemoveAllVisitsForProduct(ctx, id),
		)
		s.scheduler.Cancel(ProductJobName(id))

		if cacheErr != nil {
			return inconsistent(action, cacheErr)
		}
		return nil
	})
}

// Rearm restores timers after a restart: live products with a future expiry
// are armed, the rest are expired immediately.
func (s *ProductService) Rearm(ctx context.Context) (armed, expired int, err error) {
	err = guardErr(s.logger, "rearm products", func() error {
		items, err := s.repo.FindMany(ctx, model.ProductFilter{
			ExcludeStatus: []model.Status{model.StatusExpired},
		})
		if err != nil {
			return err
		}

		now := s.now()
		for _, p := range items {
			if p.ExpiredAt.After(now) {
				if s.arm(p.ID, p.ExpiredAt) {
					armed++
				}
				continue
			}
			if err := s.expire(ctx, p.ID); err != nil {
				return err
			}
			expired++
		}
		return nil
	})

	s.logger.Info().Int("armed", armed).Int("expired", expired).Msg("product timers restored")
	return armed, expired, err
}

// SweepExpired expires every live product whose expiry has passed.
func (s *ProductService) SweepExpired(ctx context.Context) (int, error) {
	return guard(s.logger, "sweep products", func() (int, error) {
		items, err := s.repo.FindMany(ctx, model.ProductFilter{
			ExcludeStatus: []model.Status{model.StatusExpired},
		})
		if err != nil {
			return 0, err
		}

		now := s.now()
		swept := 0
		for _, p := range items {
			if p.ExpiredAt.After(now) {
				continue
			}
			if err := s.expire(ctx, p.ID); err != nil {
				return swept, err
			}
			swept++
		}
		return swept, nil
	})
}

func (s *ProductService) arm(id string, expiredAt time.Time) bool {
	return s.scheduler.ScheduleOrReschedule(ProductJobName(id), expiredAt, func(ctx context.Context) error {
		return s.expire(ctx, id)
	})
}

// expire marks the product EXPIRED and drops the product snapshot.
func (s *ProductService) expire(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, model.StatusExpired); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Str("product", id).Msg("expired product no longer exists")
			return nil
		}
		return err
	}
	s.logger.Info().Str("product", id).Msg("product expired")
	return s.views.DeleteCollection(ctx, cache.CollectionProducts)
}

// reassociateVisitors clears the product's visitor set with its reverse
// edges and records the same visitors again against the updated product.
func (s *ProductService) reassociateVisitors(ctx context.Context, id string) error {
	visitors, err := s.views.GetVisitors(ctx, id)
	if err != nil {
		return err
	}
	if len(visitors) == 0 {
		return nil
	}
	if err := s.views.RemoveAllVisitsForProduct(ctx, id); err != nil {
		return err
	}
	for _, userID := range visitors {
		if err := s.views.RecordProductsForUser(ctx, []string{id}, userID); err != nil {
			return err
		}
	}
	return nil
}
