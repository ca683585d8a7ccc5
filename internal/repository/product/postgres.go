package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tienda-barrio/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "product").Logger()}
}

const productColumns = `p.id::text, p.category_id::text, p.name, p.slug, p.description, p.image_url,
       p.base_price::text, p.has_variants, p.is_available, p.unit_kind, p.created_at, p.updated_at`

const variantColumns = `id::text, product_id::text, name, price::text, is_available, position`

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		where = append(where, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if f.AvailableOnly {
		where = append(where, "p.is_available")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT ` + productColumns + `
FROM products p
LEFT JOIN categories c ON c.id = p.category_id`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY p.name ASC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("product repo: list")
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachVariants(ctx, result); err != nil {
		return nil, err
	}
	r.logger.Debug().Int("count", len(result)).Str("category", f.CategorySlug).Msg("product repo: list")
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + `
FROM products p
WHERE p.id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	list := []domain.Product{p}
	if err := r.attachVariants(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *postgresRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id::text <> $2)`
	var taken bool
	if err := r.pool.QueryRow(ctx, q, slug, exceptID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (category_id, name, slug, description, image_url, base_price, has_variants, is_available, unit_kind)
VALUES ($1::uuid, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
RETURNING id::text, created_at, updated_at
`
	out := p
	err := r.pool.QueryRow(ctx, q, p.CategoryID, p.Name, p.Slug, p.Description, p.ImageURL,
		priceArg(p.BasePrice), p.HasVariants, p.IsAvailable, string(p.UnitKind)).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	out.Variants = []domain.Variant{}
	r.logger.Info().Str("id", out.ID).Str("slug", out.Slug).Msg("product repo: created")
	return &out, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
UPDATE products
SET category_id = $2::uuid, name = $3, slug = $4, description = $5, image_url = $6,
    base_price = $7::numeric, has_variants = $8, is_available = $9, unit_kind = $10, updated_at = now()
WHERE id = $1
RETURNING created_at, updated_at
`
	out := p
	err := r.pool.QueryRow(ctx, q, p.ID, p.CategoryID, p.Name, p.Slug, p.Description, p.ImageURL,
		priceArg(p.BasePrice), p.HasVariants, p.IsAvailable, string(p.UnitKind)).
		Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapWriteErr(err)
	}
	return r.GetByID(ctx, out.ID)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info().Str("id", id).Msg("product repo: deleted")
	return nil
}

func (r *postgresRepo) UpsertBySlug(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (category_id, name, slug, description, image_url, base_price, has_variants, is_available, unit_kind)
VALUES ($1::uuid, $2, $3, $4, $5, $6::numeric, $7, $8, $9)
ON CONFLICT (slug) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    image_url = EXCLUDED.image_url,
    base_price = EXCLUDED.base_price,
    has_variants = EXCLUDED.has_variants,
    is_available = EXCLUDED.is_available,
    unit_kind = EXCLUDED.unit_kind,
    updated_at = now()
RETURNING id::text, created_at, updated_at
`
	out := p
	err := r.pool.QueryRow(ctx, q, p.CategoryID, p.Name, p.Slug, p.Description, p.ImageURL,
		priceArg(p.BasePrice), p.HasVariants, p.IsAvailable, string(p.UnitKind)).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("slug", p.Slug).Msg("product repo: upsert")
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func (r *postgresRepo) CreateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	q := `
INSERT INTO product_variants (product_id, name, price, is_available, position)
VALUES ($1, $2, $3::numeric, $4, $5)
RETURNING ` + variantColumns
	out, err := scanVariant(r.pool.QueryRow(ctx, q, v.ProductID, v.Name, v.Price.String(), v.IsAvailable, v.Position))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func (r *postgresRepo) UpdateVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	q := `
UPDATE product_variants
SET name = $3, price = $4::numeric, is_available = $5, position = $6, updated_at = now()
WHERE id = $1 AND product_id = $2
RETURNING ` + variantColumns
	out, err := scanVariant(r.pool.QueryRow(ctx, q, v.ID, v.ProductID, v.Name, v.Price.String(), v.IsAvailable, v.Position))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func (r *postgresRepo) DeleteVariant(ctx context.Context, productID, variantID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM product_variants WHERE id = $1 AND product_id = $2`, variantID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	q := `
INSERT INTO product_variants (product_id, name, price, is_available, position)
VALUES ($1, $2, $3::numeric, $4, $5)
ON CONFLICT (product_id, name) DO UPDATE SET
    price = EXCLUDED.price,
    is_available = EXCLUDED.is_available,
    position = EXCLUDED.position,
    updated_at = now()
RETURNING ` + variantColumns
	out, err := scanVariant(r.pool.QueryRow(ctx, q, v.ProductID, v.Name, v.Price.String(), v.IsAvailable, v.Position))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func (r *postgresRepo) attachVariants(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
		products[i].Variants = []domain.Variant{}
	}

	q := `SELECT ` + variantColumns + `
FROM product_variants
WHERE product_id = ANY($1::uuid[])
ORDER BY position ASC, name ASC`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return err
		}
		if i, ok := index[v.ProductID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	return rows.Err()
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p         domain.Product
		basePrice *string
		unitKind  string
	)
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.ImageURL,
		&basePrice, &p.HasVariants, &p.IsAvailable, &unitKind, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	p.UnitKind = domain.UnitKind(unitKind)
	if basePrice != nil {
		d, err := decimal.NewFromString(*basePrice)
		if err != nil {
			return domain.Product{}, fmt.Errorf("parse base_price %q: %w", *basePrice, err)
		}
		p.BasePrice = &d
	}
	return p, nil
}

func scanVariant(row pgx.Row) (domain.Variant, error) {
	var (
		v     domain.Variant
		price string
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &price, &v.IsAvailable, &v.Position); err != nil {
		return domain.Variant{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	v.Price = d
	return v, nil
}

func priceArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrAlreadyExists
		case "23503":
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		case "23514", "22P02":
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pgErr.Message)
		}
	}
	return err
}
