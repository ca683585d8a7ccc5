package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tienda-barrio/internal/domain"
	"tienda-barrio/internal/slug"
)

type ProductWriter interface {
	UpsertBySlug(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type variantSeed struct {
	Name      string
	Price     int64
	Available bool
}

type productSeed struct {
	Name        string
	Category    string
	Description string
	UnitKind    domain.UnitKind
	BasePrice   int64
	Available   bool
	Variants    []variantSeed
}

var categories = []string{"Panadería", "Lácteos", "Bebidas", "Granos"}

var products = []productSeed{
	{Name: "Pan aliñado", Category: "Panadería", Description: "Pan de la casa, horneado cada mañana", UnitKind: domain.UnitKindUnit, BasePrice: 1500, Available: true},
	{Name: "Almojábana", Category: "Panadería", UnitKind: domain.UnitKindUnit, BasePrice: 1200, Available: true},
	{Name: "Queso campesino", Category: "Lácteos", UnitKind: domain.UnitKindWeight, Available: true, Variants: []variantSeed{
		{Name: "Media libra", Price: 7000, Available: true},
		{Name: "Libra", Price: 12000, Available: true},
	}},
	{Name: "Leche entera", Category: "Lácteos", Description: "Bolsa de 1 litro", UnitKind: domain.UnitKindUnit, BasePrice: 4200, Available: true},
	{Name: "Gaseosa", Category: "Bebidas", UnitKind: domain.UnitKindUnit, Available: true, Variants: []variantSeed{
		{Name: "Personal", Price: 2500, Available: true},
		{Name: "1.5 litros", Price: 5500, Available: true},
		{Name: "3 litros", Price: 8500, Available: false},
	}},
	{Name: "Arroz", Category: "Granos", UnitKind: domain.UnitKindWeight, BasePrice: 3800, Available: true},
	{Name: "Lentejas", Category: "Granos", UnitKind: domain.UnitKindWeight, BasePrice: 4500, Available: false},
}

// Apply upserts demo categories and products. Running it twice leaves the same rows.
func Apply(ctx context.Context, productRepo ProductWriter, categoryRepo CategoryWriter, logger zerolog.Logger) error {
	categoryIDs := make(map[string]string, len(categories))
	for pos, name := range categories {
		c, err := categoryRepo.Upsert(ctx, domain.Category{Name: name, Slug: slug.Make(name), Position: pos})
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", name, err)
		}
		categoryIDs[name] = c.ID
	}

	for _, ps := range products {
		p := domain.Product{
			Name:        ps.Name,
			Slug:        slug.Make(ps.Name),
			Description: ps.Description,
			HasVariants: len(ps.Variants) > 0,
			IsAvailable: ps.Available,
			UnitKind:    ps.UnitKind,
		}
		if id, ok := categoryIDs[ps.Category]; ok {
			p.CategoryID = &id
		}
		if !p.HasVariants {
			price := decimal.NewFromInt(ps.BasePrice)
			p.BasePrice = &price
		}

		saved, err := productRepo.UpsertBySlug(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Slug, err)
		}
		for pos, vs := range ps.Variants {
			_, err := productRepo.UpsertVariant(ctx, domain.Variant{
				ProductID:   saved.ID,
				Name:        vs.Name,
				Price:       decimal.NewFromInt(vs.Price),
				IsAvailable: vs.Available,
				Position:    pos,
			})
			if err != nil {
				return fmt.Errorf("upsert variant %s/%s: %w", p.Slug, vs.Name, err)
			}
		}
	}

	logger.Info().Int("categories", len(categories)).Int("products", len(products)).Msg("seed.applied")
	return nil
}
