package category

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda-barrio/internal/cache"
	"tienda-barrio/internal/domain"
)

const categoryID = "3f6c8d2a-1b4e-4c7a-9f0d-5e2b1a3c4d5e"

type stubRepo struct {
	items map[string]domain.Category
	slugs map[string]bool
}

func (s *stubRepo) List(context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range s.items {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *stubRepo) GetBySlug(context.Context, string) (*domain.Category, error) {
	return nil, domain.ErrNotFound
}

func (s *stubRepo) SlugTaken(_ context.Context, slug, _ string) (bool, error) {
	return s.slugs[slug], nil
}

func (s *stubRepo) Create(_ context.Context, c domain.Category) (*domain.Category, error) {
	c.ID = categoryID
	s.items[c.ID] = c
	return &c, nil
}

func (s *stubRepo) Update(_ context.Context, c domain.Category) (*domain.Category, error) {
	s.items[c.ID] = c
	return &c, nil
}

func (s *stubRepo) Delete(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *stubRepo) Upsert(_ context.Context, c domain.Category) (*domain.Category, error) {
	return &c, nil
}

type countingCache struct {
	cache.Noop
	invalidations int
}

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidations++
	return nil
}

func TestService_CRUD(t *testing.T) {
	repo := &stubRepo{items: map[string]domain.Category{}, slugs: map[string]bool{"lacteos": true}}
	c := &countingCache{}
	svc := New(repo, c, zerolog.Nop())
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Name: "Lácteos"})
	require.NoError(t, err)
	assert.Equal(t, "lacteos-2", created.Slug)

	_, err = svc.Create(ctx, Input{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := svc.Update(ctx, categoryID, Input{Name: "Lácteos y huevos", Position: 3})
	require.NoError(t, err)
	assert.Equal(t, "lacteos-y-huevos", updated.Slug)
	assert.Equal(t, 3, updated.Position)

	_, err = svc.Update(ctx, "nope", Input{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, categoryID))
	assert.ErrorIs(t, svc.Delete(ctx, categoryID), domain.ErrNotFound)
	assert.Equal(t, 2, c.invalidations)
}
