package category

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tienda-barrio/internal/cache"
	"tienda-barrio/internal/domain"
	"tienda-barrio/internal/repository/category"
	"tienda-barrio/internal/slug"
)

type Input struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	Position    int    `json:"position" binding:"min=0"`
}

type Service struct {
	repo   category.Repository
	cache  cache.CatalogCache
	logger zerolog.Logger
}

func New(repo category.Repository, c cache.CatalogCache, logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{repo: repo, cache: c, logger: logger.With().Str("component", "category_service").Logger()}
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Category, error) {
	c, err := fromInput(in)
	if err != nil {
		return nil, err
	}
	if c.Slug, err = s.uniqueSlug(ctx, c.Name, ""); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, c)
}

// Update renames the category and regenerates its slug when the name
// changes. Listings filtered by the old slug are invalidated.
func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := fromInput(in)
	if err != nil {
		return nil, err
	}
	c.ID = existing.ID
	c.Slug = existing.Slug
	if c.Name != existing.Name {
		if c.Slug, err = s.uniqueSlug(ctx, c.Name, existing.ID); err != nil {
			return nil, err
		}
	}
	updated, err := s.repo.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes the category; its products remain, uncategorized.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func fromInput(in Input) (domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Category{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	return domain.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Position:    in.Position,
	}, nil
}

func (s *Service) uniqueSlug(ctx context.Context, name, exceptID string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "categoria"
	}
	return slug.Unique(base, func(candidate string) (bool, error) {
		return s.repo.SlugTaken(ctx, candidate, exceptID)
	})
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}
