package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoProvider is returned when the cart is accessed before a provider has
// been initialized for the application.
var ErrNoProvider = errors.New("cart: must be used within a cart provider")

// Provider owns the single Store of one application instance. Construct it
// once at startup and pass it down; there is no package-level instance.
type Provider struct {
	mu    sync.Mutex
	store *Store
}

// Init builds the Store on first call. Later calls return the same Store.
func (p *Provider) Init(ctx context.Context, storage Storage, logger zerolog.Logger) *Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil {
		p.store = New(ctx, storage, logger)
	}
	return p.store
}

// Store returns the initialized Store or ErrNoProvider.
func (p *Provider) Store() (*Store, error) {
	if p == nil {
		return nil, ErrNoProvider
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil {
		return nil, ErrNoProvider
	}
	return p.store, nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying store.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, store)
}

// FromContext returns the Store carried by ctx or ErrNoProvider.
func FromContext(ctx context.Context) (*Store, error) {
	if ctx == nil {
		return nil, ErrNoProvider
	}
	store, ok := ctx.Value(ctxKey{}).(*Store)
	if !ok || store == nil {
		return nil, ErrNoProvider
	}
	return store, nil
}

// MustFromContext is FromContext for code paths where a missing provider is
// an integration bug. It panics with ErrNoProvider.
func MustFromContext(ctx context.Context) *Store {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}
