package category

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"tienda-barrio/internal/domain"
	"tienda-barrio/internal/migrate"
)

func TestPostgres_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	if _, err := repo.Create(ctx, domain.Category{Name: "Panadería", Slug: "panaderia", Position: 2}); err != nil {
		t.Fatalf("create: %v", err)
	}
	lacteos, err := repo.Create(ctx, domain.Category{Name: "Lácteos", Slug: "lacteos", Position: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Slug != "lacteos" {
		t.Fatalf("unexpected list %+v", list)
	}

	if _, err := repo.Create(ctx, domain.Category{Name: "Otra", Slug: "lacteos"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetBySlug(ctx, "lacteos")
	if err != nil || got.ID != lacteos.ID {
		t.Fatalf("get by slug: %+v %v", got, err)
	}
}

func TestPostgres_DeleteDetachesProducts(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	cat, err := repo.Upsert(ctx, domain.Category{Name: "Bebidas", Slug: "bebidas"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	var productID string
	if err := pool.QueryRow(ctx, `INSERT INTO products (category_id, name, slug, base_price) VALUES ($1, 'Gaseosa', 'gaseosa', 2500) RETURNING id::text`, cat.ID).Scan(&productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if err := repo.Delete(ctx, cat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var categoryID *string
	if err := pool.QueryRow(ctx, `SELECT category_id::text FROM products WHERE id = $1`, productID).Scan(&categoryID); err != nil {
		t.Fatalf("select product: %v", err)
	}
	if categoryID != nil {
		t.Fatalf("expected product detached, got category %s", *categoryID)
	}
	if err := repo.Delete(ctx, cat.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
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
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE product_variants, products, categories RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
