package service

import (
	"context"
	"strings"

	"freshmart-api/internal/cache"
	"freshmart-api/internal/model"
	"freshmart-api/internal/repository"
	"freshmart-api/pkg/uid"

	"github.com/rs/zerolog"
)

// CategoryService serves categories through the categories snapshot.
type CategoryService struct {
	repo   repository.CategoryRepository
	views  ViewCache
	logger zerolog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(repo repository.CategoryRepository, views ViewCache, logger zerolog.Logger) *CategoryService {
	return &CategoryService{
		repo:   repo,
		views:  views,
		logger: logger.With().Str("component", "category-service").Logger(),
	}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return guard(s.logger, "list categories", func() ([]model.Category, error) {
		return readThrough(ctx, s.views, s.logger, cache.CollectionCategories, s.repo.FindAll)
	})
}

func (s *CategoryService) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	const action = "create category"
	return guard(s.logger, action, func() (*model.Category, error) {
		if strings.TrimSpace(c.Name) == "" {
			return nil, invalid(action, "name is required")
		}
		if c.ID == "" {
			c.ID = uid.New()
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return nil, err
		}
		if err := s.views.DeleteCollection(ctx, cache.CollectionCategories); err != nil {
			return nil, inconsistent(action, err)
		}
		return c, nil
	})
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	const action = "delete category"
	return guardErr(s.logger, action, func() error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.views.DeleteCollection(ctx, cache.CollectionCategories); err != nil {
			return inconsistent(action, err)
		}
		return nil
	})
}
