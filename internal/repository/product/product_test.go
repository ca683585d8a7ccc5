package product

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tienda-barrio/internal/domain"
	"tienda-barrio/internal/migrate"
)

func TestPostgres_CreateListAndGet(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	var categoryID string
	if err := pool.QueryRow(ctx, `INSERT INTO categories (name, slug) VALUES ('Lácteos', 'lacteos') RETURNING id::text`).Scan(&categoryID); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	repo := NewPostgres(pool, zerolog.Nop())
	price := decimal.NewFromInt(4200)
	leche, err := repo.Create(ctx, domain.Product{
		CategoryID: &categoryID, Name: "Leche entera", Slug: "leche-entera", BasePrice: &price,
		IsAvailable: true, UnitKind: domain.UnitKindUnit,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	queso, err := repo.Create(ctx, domain.Product{
		CategoryID: &categoryID, Name: "Queso campesino", Slug: "queso-campesino", HasVariants: true,
		IsAvailable: true, UnitKind: domain.UnitKindWeight,
	})
	if err != nil {
		t.Fatalf("create variant product: %v", err)
	}
	if _, err := repo.CreateVariant(ctx, domain.Variant{ProductID: queso.ID, Name: "Libra", Price: decimal.NewFromInt(14000), IsAvailable: true, Position: 2}); err != nil {
		t.Fatalf("create variant: %v", err)
	}
	if _, err := repo.CreateVariant(ctx, domain.Variant{ProductID: queso.ID, Name: "Media libra", Price: decimal.NewFromInt(7500), IsAvailable: true, Position: 1}); err != nil {
		t.Fatalf("create variant: %v", err)
	}
	if _, err := repo.Create(ctx, domain.Product{Name: "Arepa", Slug: "arepa", BasePrice: &price, UnitKind: domain.UnitKindUnit}); err != nil {
		t.Fatalf("create unavailable: %v", err)
	}

	list, err := repo.List(ctx, ListFilter{CategorySlug: "lacteos", AvailableOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 products, got %d", len(list))
	}

	all, err := repo.List(ctx, ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: %d %v", len(all), err)
	}

	found, err := repo.List(ctx, ListFilter{Search: "QUESO", AvailableOnly: true})
	if err != nil || len(found) != 1 || found[0].ID != queso.ID {
		t.Fatalf("search: %+v %v", found, err)
	}

	got, err := repo.GetByID(ctx, queso.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BasePrice != nil || len(got.Variants) != 2 || got.Variants[0].Name != "Media libra" {
		t.Fatalf("unexpected product %+v", got)
	}
	if !got.Variants[0].Price.Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("unexpected variant price %s", got.Variants[0].Price)
	}

	got, err = repo.GetByID(ctx, leche.ID)
	if err != nil || got.BasePrice == nil || !got.BasePrice.Equal(price) {
		t.Fatalf("get leche: %+v %v", got, err)
	}
}

func TestPostgres_SlugConflictsAndDeletes(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, zerolog.Nop())
	price := decimal.NewFromInt(1000)
	p, err := repo.Create(ctx, domain.Product{Name: "Pan", Slug: "pan", BasePrice: &price, UnitKind: domain.UnitKindUnit})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	taken, err := repo.SlugTaken(ctx, "pan", "")
	if err != nil || !taken {
		t.Fatalf("expected slug taken, got %v %v", taken, err)
	}
	taken, err = repo.SlugTaken(ctx, "pan", p.ID)
	if err != nil || taken {
		t.Fatalf("expected slug free for itself, got %v %v", taken, err)
	}

	_, err = repo.Create(ctx, domain.Product{Name: "Pan", Slug: "pan", BasePrice: &price, UnitKind: domain.UnitKindUnit})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	up, err := repo.UpsertBySlug(ctx, domain.Product{Name: "Pan tajado", Slug: "pan", BasePrice: &price, IsAvailable: true, UnitKind: domain.UnitKindUnit})
	if err != nil || up.ID != p.ID {
		t.Fatalf("upsert: %+v %v", up, err)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE product_variants, products, categories RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
