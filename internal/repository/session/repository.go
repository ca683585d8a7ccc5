package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Session is an admin login. The token is opaque and random.
type Session struct {
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Open returns the session store named by kind. The memory store ignores pool
// and keeps sessions only until the process exits.
func Open(kind string, pool *pgxpool.Pool) (Repository, error) {
	switch kind {
	case StorePostgres, "":
		return NewPostgres(pool), nil
	case StoreMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}
