package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tienda-barrio/internal/domain"
)

// StorageKey is the namespaced key the cart is persisted under.
const StorageKey = "tienda-barrio:cart"

// AddInput describes a selection to add. VariantID and VariantName are empty
// for products without variants.
type AddInput struct {
	ProductID   string
	VariantID   string
	ProductName string
	VariantName string
	UnitPrice   decimal.Decimal
	Quantity    int
	ImageURL    string
	UnitKind    domain.UnitKind
}

// Store is the sole mutator of cart state. Every mutation recomputes the
// derived totals and writes the whole cart to storage before returning.
type Store struct {
	storage Storage
	logger  zerolog.Logger

	mu      sync.Mutex
	cart    Cart
	subs    map[int]func(Cart)
	nextSub int
}

// New builds a Store rehydrated from storage. Missing or unreadable data
// yields an empty cart; the failure is logged and never returned.
func New(ctx context.Context, storage Storage, logger zerolog.Logger) *Store {
	s := &Store{
		storage: storage,
		logger:  logger.With().Str("component", "cart").Logger(),
		cart:    newCart(nil),
		subs:    make(map[int]func(Cart)),
	}
	s.cart = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) Cart {
	if s.storage == nil {
		return newCart(nil)
	}
	data, err := s.storage.Load(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			s.logger.Warn().Err(err).Msg("cart.load_failed")
		}
		return newCart(nil)
	}
	stored, err := Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cart.decode_failed")
		return newCart(nil)
	}
	s.logger.Debug().Int("lines", len(stored.Items)).Msg("cart.rehydrated")
	return stored
}

// Cart returns a snapshot of the current cart.
func (s *Store) Cart() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.clone()
}

// AddItem merges into an existing (product, variant) line or appends a new
// one. The first add wins for names, image and unit price. A non-positive
// quantity is ignored.
func (s *Store) AddItem(ctx context.Context, in AddInput) Cart {
	if in.Quantity <= 0 || in.ProductID == "" {
		s.logger.Debug().Str("product_id", in.ProductID).Int("quantity", in.Quantity).Msg("cart.add_ignored")
		return s.Cart()
	}
	return s.mutate(ctx, func(items []Line) []Line {
		key := newLineKey(in.ProductID, optional(in.VariantID))
		for i := range items {
			if items[i].key() == key {
				items[i].Quantity += in.Quantity
				return items
			}
		}
		unitKind := in.UnitKind
		if !unitKind.Valid() {
			unitKind = domain.UnitKindUnit
		}
		return append(items, Line{
			ProductID:   in.ProductID,
			VariantID:   optional(in.VariantID),
			ProductName: in.ProductName,
			VariantName: optional(in.VariantName),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			ImageURL:    in.ImageURL,
			UnitKind:    unitKind,
		})
	})
}

// UpdateQuantity replaces the quantity of a line. quantity <= 0 removes it.
// Unknown keys are a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, productID, variantID string, quantity int) Cart {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID, variantID)
	}
	key := newLineKey(productID, optional(variantID))
	return s.mutateIf(ctx, func(items []Line) ([]Line, bool) {
		for i := range items {
			if items[i].key() == key {
				items[i].Quantity = quantity
				return items, true
			}
		}
		return items, false
	})
}

// RemoveItem drops a line. Unknown keys are a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID, variantID string) Cart {
	key := newLineKey(productID, optional(variantID))
	return s.mutateIf(ctx, func(items []Line) ([]Line, bool) {
		for i := range items {
			if items[i].key() == key {
				return append(items[:i], items[i+1:]...), true
			}
		}
		return items, false
	})
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear(ctx context.Context) Cart {
	return s.mutate(ctx, func([]Line) []Line { return nil })
}

// Subscribe registers fn to receive the snapshot after each mutation.
func (s *Store) Subscribe(fn func(Cart)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(ctx context.Context, fn func([]Line) []Line) Cart {
	return s.mutateIf(ctx, func(items []Line) ([]Line, bool) {
		return fn(items), true
	})
}

// mutateIf applies fn to a private copy of the lines. When fn reports a
// change the cart is rebuilt, persisted under the lock, and published.
func (s *Store) mutateIf(ctx context.Context, fn func([]Line) ([]Line, bool)) Cart {
	s.mu.Lock()
	items, changed := fn(s.cart.clone().Items)
	if !changed {
		snapshot := s.cart.clone()
		s.mu.Unlock()
		return snapshot
	}
	s.cart = newCart(items)
	s.persist(ctx)
	snapshot := s.cart.clone()
	subs := make([]func(Cart), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot.clone())
	}
	return snapshot
}

// persist must be called with mu held so that concurrent mutations can only
// ever write the latest full snapshot.
func (s *Store) persist(ctx context.Context) {
	if s.storage == nil {
		return
	}
	data, err := Encode(s.cart)
	if err != nil {
		s.logger.Error().Err(err).Msg("cart.encode_failed")
		return
	}
	if err := s.storage.Save(ctx, StorageKey, data); err != nil {
		s.logger.Error().Err(err).Msg("cart.save_failed")
	}
}

// storedLine and storedCart shadow the decimal fields so amounts are written
// as JSON numbers rather than quoted strings.
type storedLine struct {
	Line
	UnitPrice json.Number `json:"unitPrice"`
}

type storedCart struct {
	Items     []storedLine `json:"items"`
	Total     json.Number  `json:"total"`
	ItemCount int          `json:"itemCount"`
}

// Encode serializes a cart in the storage format.
func Encode(c Cart) ([]byte, error) {
	out := storedCart{
		Items:     make([]storedLine, 0, len(c.Items)),
		Total:     json.Number(c.Total.String()),
		ItemCount: c.ItemCount,
	}
	for _, l := range c.Items {
		out.Items = append(out.Items, storedLine{Line: l, UnitPrice: json.Number(l.UnitPrice.String())})
	}
	return json.Marshal(out)
}

// Decode parses the storage format. Amounts may be numbers or quoted strings,
// as written by older versions. Lines are re-normalized: duplicate keys
// are merged, non-positive quantities dropped, and totals recomputed instead
// of trusted.
func Decode(data []byte) (Cart, error) {
	var raw Cart
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cart{}, err
	}
	var items []Line
	index := make(map[lineKey]int)
	for _, l := range raw.Items {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if l.VariantID != nil && *l.VariantID == "" {
			l.VariantID = nil
		}
		if !l.UnitKind.Valid() {
			l.UnitKind = domain.UnitKindUnit
		}
		if i, ok := index[l.key()]; ok {
			items[i].Quantity += l.Quantity
			continue
		}
		index[l.key()] = len(items)
		items = append(items, l)
	}
	return newCart(items), nil
}
