package category

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tienda-barrio/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const columns = `id::text, name, slug, description, position, created_at, updated_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM categories ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM categories WHERE id = $1`, id)
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM categories WHERE slug = $1`, slug)
}

func (r *postgresRepo) getOne(ctx context.Context, q string, arg string) (*domain.Category, error) {
	c, err := scan(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND id::text <> $2)`, slug, exceptID).Scan(&taken)
	return taken, err
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (name, slug, description, position)
VALUES ($1, $2, $3, $4)
RETURNING ` + columns
	out, err := scan(r.pool.QueryRow(ctx, q, c.Name, c.Slug, c.Description, c.Position))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
UPDATE categories
SET name = $2, slug = $3, description = $4, position = $5, updated_at = now()
WHERE id = $1
RETURNING ` + columns
	out, err := scan(r.pool.QueryRow(ctx, q, c.ID, c.Name, c.Slug, c.Description, c.Position))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

// Delete removes the category. Its products stay, detached by ON DELETE SET NULL.
func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (name, slug, description, position)
VALUES ($1, $2, $3, $4)
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name,
    description = COALESCE(NULLIF(EXCLUDED.description, ''), categories.description),
    position = EXCLUDED.position,
    updated_at = now()
RETURNING ` + columns
	out, err := scan(r.pool.QueryRow(ctx, q, c.Name, c.Slug, c.Description, c.Position))
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func scan(row pgx.Row) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}
