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

// IngredientService coordinates ingredient writes with the ingredient
// snapshot, the price hashes of dependent products and the expiry timers.
type IngredientService struct {
	repo      repository.IngredientRepository
	views     ViewCache
	scheduler Scheduler
	logger    zerolog.Logger
	now       func() time.Time
}

// NewIngredientService creates a new ingredient service.
func NewIngredientService(repo repository.IngredientRepository, views ViewCache, sched Scheduler, logger zerolog.Logger) *IngredientService {
	return &IngredientService{
		repo:      repo,
		views:     views,
		scheduler: sched,
		logger:    logger.With().Str("component", "ingredient-service").Logger(),
		now:       time.Now,
	}
}

// List returns every ingredient, served from the snapshot when present.
func (s *IngredientService) List(ctx context.Context) ([]model.Ingredient, error) {
	return guard(s.logger, "list ingredients", func() ([]model.Ingredient, error) {
		return readThrough(ctx, s.views, s.logger, cache.CollectionIngredients,
			func(ctx context.Context) ([]model.Ingredient, error) {
				return s.repo.FindMany(ctx, model.IngredientFilter{})
			})
	})
}

// Get returns one ingredient.
func (s *IngredientService) Get(ctx context.Context, id string) (*model.Ingredient, error) {
	return guard(s.logger, "get ingredient", func() (*model.Ingredient, error) {
		return s.repo.FindByID(ctx, id)
	})
}

// Create persists in, invalidates the snapshot and arms its expiry timer.
func (s *IngredientService) Create(ctx context.Context, in *model.Ingredient) (*model.Ingredient, error) {
	const action = "create ingredient"
	return guard(s.logger, action, func() (*model.Ingredient, error) {
		if strings.TrimSpace(in.Name) == "" {
			return nil, invalid(action, "name is required")
		}
		if in.Status == "" {
			in.Status = model.StatusInStock
		}
		if !in.Status.IsValid() {
			return nil, invalid(action, "unknown status %q", in.Status)
		}
		if in.ID == "" {
			in.ID = uid.New()
		}

		if err := s.repo.Create(ctx, in); err != nil {
			return nil, err
		}

		cacheErr := s.views.DeleteCollection(ctx, cache.CollectionIngredients)
		s.arm(in.ID, in.ExpiredAt)

		if cacheErr != nil {
			return nil, inconsistent(action, cacheErr)
		}
		return in, nil
	})
}

// Update applies upd, invalidates every view the ingredient appears in and
// re-arms the timer with the stored expiry.
func (s *IngredientService) Update(ctx context.Context, id string, upd model.IngredientUpdate) (*model.Ingredient, error) {
	const action = "update ingredient"
	return guard(s.logger, action, func() (*model.Ingredient, error) {
		if upd.Status != nil && !upd.Status.IsValid() {
			return nil, invalid(action, "unknown status %q", *upd.Status)
		}

		updated, productIDs, err := s.repo.Update(ctx, id, upd)
		if err != nil {
			return nil, err
		}

		cacheErr := s.invalidate(ctx, id, productIDs, false)
		s.arm(updated.ID, updated.ExpiredAt)

		if cacheErr != nil {
			return nil, inconsistent(action, cacheErr)
		}
		return updated, nil
	})
}

// Delete removes the ingredient and its product links, then invalidates the
// affected views, including the product snapshot when links were removed,
// and cancels the timer. Nothing is touched on NotFound.
func (s *IngredientService) Delete(ctx context.Context, id string) error {
	const action = "delete ingredient"
	return guardErr(s.logger, action, func() error {
		productIDs, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}

		cacheErr := s.invalidate(ctx, id, productIDs, len(productIDs) > 0)
		s.scheduler.Cancel(IngredientJobName(id))

		if cacheErr != nil {
			return inconsistent(action, cacheErr)
		}
		return nil
	})
}

// Rearm restores timers after a restart: live ingredients with a future
// expiry are armed, the rest are expired immediately.
func (s *IngredientService) Rearm(ctx context.Context) (armed, expired int, err error) {
	err = guardErr(s.logger, "rearm ingredients", func() error {
		items, err := s.repo.FindMany(ctx, model.IngredientFilter{
			ExcludeStatus: []model.Status{model.StatusExpired},
		})
		if err != nil {
			return err
		}

		now := s.now()
		for _, in := range items {
			if in.ExpiredAt.After(now) {
				if s.arm(in.ID, in.ExpiredAt) {
					armed++
				}
				continue
			}
			if err := s.expire(ctx, in.ID); err != nil {
				return err
			}
			expired++
		}
		return nil
	})

	s.logger.Info().Int("armed", armed).Int("expired", expired).Msg("ingredient timers restored")
	return armed, expired, err
}

// SweepExpired expires every live ingredient whose expiry has passed.
func (s *IngredientService) SweepExpired(ctx context.Context) (int, error) {
	return guard(s.logger, "sweep ingredients", func() (int, error) {
		items, err := s.repo.FindMany(ctx, model.IngredientFilter{
			ExcludeStatus: []model.Status{model.StatusExpired},
		})
		if err != nil {
			return 0, err
		}

		now := s.now()
		swept := 0
		for _, in := range items {
			if in.ExpiredAt.After(now) {
				continue
			}
			if err := s.expire(ctx, in.ID); err != nil {
				return swept, err
			}
			swept++
		}
		return swept, nil
	})
}

func (s *IngredientService) arm(id string, expiredAt time.Time) bool {
	return s.scheduler.ScheduleOrReschedule(IngredientJobName(id), expiredAt, func(ctx context.Context) error {
		return s.expire(ctx, id)
	})
}

// expire marks the ingredient EXPIRED and drops the ingredient snapshot.
func (s *IngredientService) expire(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, model.StatusExpired); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Str("ingredient", id).Msg("expired ingredient no longer exists")
			return nil
		}
		return err
	}
	s.logger.Info().Str("ingredient", id).Msg("ingredient expired")
	return s.views.DeleteCollection(ctx, cache.CollectionIngredients)
}

// invalidate drops the ingredient snapshot and every price hash holding a
// record for the ingredient, whether the product is persisted (productIDs)
// or was only quoted. linksChanged also drops the product snapshot.
// All deletions are attempted.
func (s *IngredientService) invalidate(ctx context.Context, id string, productIDs []string, linksChanged bool) error {
	errs := []error{s.views.DeleteCollection(ctx, cache.CollectionIngredients)}
	if linksChanged {
		errs = append(errs, s.views.DeleteCollection(ctx, cache.CollectionProducts))
	}
	_, err := s.views.InvalidateIngredientPrices(ctx, id, productIDs...)
	return errors.Join(append(errs, err)...)
}
