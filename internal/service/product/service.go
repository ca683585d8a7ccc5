package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tienda-barrio/internal/cache"
	"tienda-barrio/internal/catalog"
	"tienda-barrio/internal/domain"
	productrepo "tienda-barrio/internal/repository/product"
	"tienda-barrio/internal/slug"
)

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name        string           `json:"name" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=2000"`
	ImageURL    string           `json:"imageUrl" binding:"omitempty,url"`
	CategoryID  *string          `json:"categoryId" binding:"omitempty,uuid"`
	BasePrice   *decimal.Decimal `json:"basePrice"`
	HasVariants bool             `json:"hasVariants"`
	IsAvailable *bool            `json:"isAvailable"`
	UnitKind    domain.UnitKind  `json:"unitKind" binding:"omitempty,oneof=unit weight"`
}

type VariantInput struct {
	Name        string          `json:"name" binding:"required,max=100"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"isAvailable"`
	Position    int              `json:"position" binding:"min=0"`
}

type Service struct {
	repo   productrepo.Repository
	cache  cache.CatalogCache
	logger zerolog.Logger
}

func New(repo productrepo.Repository, c cache.CatalogCache, logger zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{repo: repo, cache: c, logger: logger.With().Str("component", "product_service").Logger()}
}

// List serves the public catalog, reading through the listing cache. A
// listing is cached only after a clean miss, under the generation the miss
// was seen in.
func (s *Service) List(ctx context.Context, f catalog.Filter) ([]domain.Product, error) {
	key := f.Key()
	cached, gen, err := s.cache.GetProducts(ctx, key)
	if err == nil {
		return cached, nil
	}
	miss := errors.Is(err, cache.ErrCacheMiss)
	if !miss {
		s.logger.Warn().Err(err).Str("filter", key).Msg("catalog cache read failed")
	}

	products, err := s.repo.List(ctx, productrepo.ListFilter{
		CategorySlug:  strings.TrimSpace(f.Category),
		AvailableOnly: f.AvailableOnly(),
		Search:        strings.TrimSpace(f.Search),
	})
	if err != nil {
		return nil, err
	}
	if miss {
		if err := s.cache.SetProducts(ctx, gen, key, products); err != nil {
			s.logger.Warn().Err(err).Str("filter", key).Msg("catalog cache write failed")
		}
	}
	return products, nil
}

// ListAll returns every product, available or not, bypassing the cache.
func (s *Service) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx, productrepo.ListFilter{})
}

// Get returns ErrNotFound for unknown and malformed ids alike.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p, err := s.fromInput(in)
	if err != nil {
		return nil, err
	}
	p.Slug, err = s.uniqueSlug(ctx, p.Name, "")
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.fromInput(in)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.Slug = existing.Slug
	if p.Name != existing.Name {
		if p.Slug, err = s.uniqueSlug(ctx, p.Name, existing.ID); err != nil {
			return nil, err
		}
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) CreateVariant(ctx context.Context, productID string, in VariantInput) (*domain.Variant, error) {
	p, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.HasVariants {
		return nil, fmt.Errorf("%w: product %s does not use variants", domain.ErrInvalidInput, p.ID)
	}
	v, err := variantFromInput(in)
	if err != nil {
		return nil, err
	}
	v.ProductID = p.ID
	created, err := s.repo.CreateVariant(ctx, v)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) UpdateVariant(ctx context.Context, productID, variantID string, in VariantInput) (*domain.Variant, error) {
	if !validID(productID) || !validID(variantID) {
		return nil, domain.ErrNotFound
	}
	v, err := variantFromInput(in)
	if err != nil {
		return nil, err
	}
	v.ID = variantID
	v.ProductID = productID
	updated, err := s.repo.UpdateVariant(ctx, v)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) DeleteVariant(ctx context.Context, productID, variantID string) error {
	if !validID(productID) || !validID(variantID) {
		return domain.ErrNotFound
	}
	if err := s.repo.DeleteVariant(ctx, productID, variantID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) fromInput(in ProductInput) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	p := domain.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		HasVariants: in.HasVariants,
		IsAvailable: true,
		UnitKind:    in.UnitKind,
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if p.UnitKind == "" {
		p.UnitKind = domain.UnitKindUnit
	}
	if !p.UnitKind.Valid() {
		return domain.Product{}, fmt.Errorf("%w: unknown unit kind %q", domain.ErrInvalidInput, in.UnitKind)
	}
	if in.CategoryID != nil && strings.TrimSpace(*in.CategoryID) != "" {
		id := strings.TrimSpace(*in.CategoryID)
		if !validID(id) {
			return domain.Product{}, fmt.Errorf("%w: invalid category id", domain.ErrInvalidInput)
		}
		p.CategoryID = &id
	}
	if p.HasVariants {
		return p, nil
	}
	if in.BasePrice == nil {
		return domain.Product{}, fmt.Errorf("%w: basePrice is required for products without variants", domain.ErrInvalidInput)
	}
	if in.BasePrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: basePrice must not be negative", domain.ErrInvalidInput)
	}
	price := *in.BasePrice
	p.BasePrice = &price
	return p, nil
}

func variantFromInput(in VariantInput) (domain.Variant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Variant{}, fmt.Errorf("%w: variant name is required", domain.ErrInvalidInput)
	}
	if in.Price == nil {
		return domain.Variant{}, fmt.Errorf("%w: variant price is required", domain.ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return domain.Variant{}, fmt.Errorf("%w: variant price must not be negative", domain.ErrInvalidInput)
	}
	v := domain.Variant{Name: name, Price: *in.Price, IsAvailable: true, Position: in.Position}
	if in.IsAvailable != nil {
		v.IsAvailable = *in.IsAvailable
	}
	return v, nil
}

func (s *Service) uniqueSlug(ctx context.Context, name, exceptID string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "producto"
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

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
