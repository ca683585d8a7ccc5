package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda-barrio/internal/domain"
)

type memProducts struct {
	bySlug   map[string]domain.Product
	variants map[string]domain.Variant
	fail     bool
}

func (m *memProducts) UpsertBySlug(_ context.Context, p domain.Product) (*domain.Product, error) {
	if m.fail {
		return nil, errors.New("db down")
	}
	if existing, ok := m.bySlug[p.Slug]; ok {
		p.ID = existing.ID
	} else {
		p.ID = "p-" + p.Slug
	}
	m.bySlug[p.Slug] = p
	return &p, nil
}

func (m *memProducts) UpsertVariant(_ context.Context, v domain.Variant) (*domain.Variant, error) {
	m.variants[v.ProductID+"/"+v.Name] = v
	return &v, nil
}

type memCategories struct {
	bySlug map[string]domain.Category
}

func (m *memCategories) Upsert(_ context.Context, c domain.Category) (*domain.Category, error) {
	c.ID = "c-" + c.Slug
	m.bySlug[c.Slug] = c
	return &c, nil
}

func TestApply_Idempotent(t *testing.T) {
	prods := &memProducts{bySlug: map[string]domain.Product{}, variants: map[string]domain.Variant{}}
	cats := &memCategories{bySlug: map[string]domain.Category{}}

	require.NoError(t, Apply(context.Background(), prods, cats, zerolog.Nop()))
	require.NoError(t, Apply(context.Background(), prods, cats, zerolog.Nop()))

	assert.Len(t, cats.bySlug, len(categories))
	assert.Len(t, prods.bySlug, len(products))
	assert.Len(t, prods.variants, 5)

	queso := prods.bySlug["queso-campesino"]
	assert.True(t, queso.HasVariants)
	assert.Nil(t, queso.BasePrice)
	require.NotNil(t, queso.CategoryID)
	assert.Equal(t, "c-lacteos", *queso.CategoryID)

	pan := prods.bySlug["pan-alinado"]
	require.NotNil(t, pan.BasePrice)
	assert.Equal(t, int64(1500), pan.BasePrice.IntPart())
	assert.False(t, prods.variants["p-gaseosa/3 litros"].IsAvailable)
}

func TestApply_PropagatesErrors(t *testing.T) {
	prods := &memProducts{bySlug: map[string]domain.Product{}, variants: map[string]domain.Variant{}, fail: true}
	err := Apply(context.Background(), prods, &memCategories{bySlug: map[string]domain.Category{}}, zerolog.Nop())
	assert.Error(t, err)
}
