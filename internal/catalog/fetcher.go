// Package catalog retrieves products from the storefront catalog API and
// exposes the listing as observable state.
package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"tienda-barrio/internal/domain"
)

const (
	MsgListFailed    = "No pudimos cargar los productos. Intenta de nuevo."
	MsgProductFailed = "No pudimos cargar el producto. Intenta de nuevo."
	MsgNotFound      = "Producto no encontrado."
)

// Source is where the Fetcher reads products from.
type Source interface {
	ListProducts(ctx context.Context, f Filter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// State is the listing as seen by a view.
type State struct {
	Products []domain.Product
	Loading  bool
	Err      string
	Filter   Filter
}

func (s State) clone() State {
	out := s
	out.Products = append([]domain.Product(nil), s.Products...)
	return out
}

// ProductState is the result of a single product load.
type ProductState struct {
	Product  *domain.Product
	Err      string
	NotFound bool
}

// Fetcher loads listings for a filter. Each load carries a token; when the
// filter changes mid-flight the older request is cancelled and its result is
// discarded even if it arrives later.
type Fetcher struct {
	src    Source
	logger zerolog.Logger
	group  singleflight.Group

	mu      sync.Mutex
	state   State
	lastKey string
	loaded  bool
	token   uint64
	cancel  context.CancelFunc
	subs    map[int]func(State)
	nextSub int
}

func NewFetcher(src Source, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		src:    src,
		logger: logger.With().Str("component", "catalog").Logger(),
		subs:   make(map[int]func(State)),
	}
}

// State returns the current listing state.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// Subscribe registers fn for every state change, including the loading state
// published when a fetch starts.
func (f *Fetcher) Subscribe(fn func(State)) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Load fetches the listing for filter unless the same filter has already
// been loaded successfully. It blocks until its own request settles and
// returns the state current at that moment, which belongs to a newer filter
// if this load was superseded.
func (f *Fetcher) Load(ctx context.Context, filter Filter) State {
	return f.load(ctx, filter, false)
}

// Refetch reloads the current filter, bypassing de-duplication.
func (f *Fetcher) Refetch(ctx context.Context) State {
	f.mu.Lock()
	filter := f.state.Filter
	f.mu.Unlock()
	return f.load(ctx, filter, true)
}

func (f *Fetcher) load(ctx context.Context, filter Filter, force bool) State {
	key := filter.Key()

	f.mu.Lock()
	if !force && f.loaded && !f.state.Loading && f.state.Err == "" && key == f.lastKey {
		st := f.state.clone()
		f.mu.Unlock()
		f.logger.Debug().Str("filter", key).Msg("catalog.load_deduplicated")
		return st
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.token++
	token := f.token
	reqCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.state = State{Products: f.state.Products, Loading: true, Filter: filter}
	f.publishLocked()

	products, err := f.src.ListProducts(reqCtx, filter)

	f.mu.Lock()
	defer cancel()
	if token != f.token {
		st := f.state.clone()
		f.mu.Unlock()
		f.logger.Debug().Str("filter", key).Msg("catalog.load_superseded")
		return st
	}
	f.cancel = nil
	if err != nil {
		f.logger.Warn().Err(err).Str("filter", key).Msg("catalog.load_failed")
		f.state = State{Filter: filter, Err: MsgListFailed}
		f.loaded = false
	} else {
		f.state = State{Products: products, Filter: filter}
		f.loaded = true
		f.lastKey = key
	}
	st := f.state.clone()
	f.publishLocked()
	return st
}

// publishLocked releases mu and notifies subscribers with the current state.
func (f *Fetcher) publishLocked() {
	st := f.state
	subs := make([]func(State), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(st.clone())
	}
}

// Product loads a single product. Concurrent loads of the same id share one
// request, which runs detached from any one caller's cancellation; a caller
// that gives up only abandons its own wait. The source's timeout bounds it.
func (f *Fetcher) Product(ctx context.Context, id string) ProductState {
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(id, func() (interface{}, error) {
		return f.src.GetProduct(shared, id)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		f.logger.Debug().Err(ctx.Err()).Str("product_id", id).Msg("catalog.product_abandoned")
		return ProductState{Err: MsgProductFailed}
	case res = <-ch:
	}
	if res.Shared {
		f.logger.Debug().Str("product_id", id).Msg("catalog.product_shared")
	}
	if res.Err != nil {
		if errors.Is(res.Err, domain.ErrNotFound) {
			return ProductState{Err: MsgNotFound, NotFound: true}
		}
		f.logger.Warn().Err(res.Err).Str("product_id", id).Msg("catalog.product_failed")
		return ProductState{Err: MsgProductFailed}
	}
	p := cloneProduct(*res.Val.(*domain.Product))
	return ProductState{Product: &p}
}

// cloneProduct detaches the reference fields of a product shared between
// callers.
func cloneProduct(p domain.Product) domain.Product {
	if p.Variants != nil {
		p.Variants = append([]domain.Variant(nil), p.Variants...)
	}
	if p.BasePrice != nil {
		price := *p.BasePrice
		p.BasePrice = &price
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		p.CategoryID = &id
	}
	return p
}
