// Package cache keeps catalog listings in redis between admin writes.
package cache

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"tienda-barrio/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// CatalogCache stores product listings by filter key. Invalidate drops every
// listing at once by moving to a new generation.
//
// GetProducts reports the generation it looked in, also on a miss. A listing
// loaded after that miss is stored with SetProducts under the same
// generation, so a load that raced an Invalidate never lands in the new one.
type CatalogCache interface {
	GetProducts(ctx context.Context, filterKey string) (products []domain.Product, generation int64, err error)
	SetProducts(ctx context.Context, generation int64, filterKey string, products []domain.Product) error
	Invalidate(ctx context.Context) error
}

// Noop never stores anything. It is used when REDIS_URL is empty.
type Noop struct{}

func (Noop) GetProducts(context.Context, string) ([]domain.Product, int64, error) {
	return nil, 0, ErrCacheMiss
}

func (Noop) SetProducts(context.Context, int64, string, []domain.Product) error { return nil }

func (Noop) Invalidate(context.Context) error { return nil }

// Metrics counts cache lookups by result.
type Metrics struct {
	lookups *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tienda",
			Subsystem: "catalog_cache",
			Name:      "lookups_total",
			Help:      "Catalog cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups)
	}
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}
