package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda-barrio/internal/cart"
	"tienda-barrio/internal/catalog"
	"tienda-barrio/internal/checkout"
	"tienda-barrio/internal/hours"
)

const catalogJSON = `[
 {"id":"pan","name":"Pan aliñado","basePrice":"1500","hasVariants":false,"variants":[],"isAvailable":true,"unitKind":"unit"},
 {"id":"queso","name":"Queso campesino","basePrice":null,"hasVariants":true,"isAvailable":true,"unitKind":"weight",
  "variants":[{"id":"media","name":"Media libra","price":"7000","isAvailable":true},{"id":"libra","name":"Libra","price":"12000","isAvailable":false}]},
 {"id":"leche","name":"Leche","basePrice":"4200","hasVariants":false,"variants":[],"isAvailable":false,"unitKind":"unit"}
]`

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	var products []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(catalogJSON), &products))
	byID := map[string]json.RawMessage{}
	for _, raw := range products {
		var head struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &head))
		byID[head.ID] = raw
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/categories" {
			_, _ = w.Write([]byte(`{"categories":[{"id":"c1","name":"Lácteos","slug":"lacteos","position":0}]}`))
			return
		}
		if r.URL.Path == "/api/products" {
			_, _ = w.Write([]byte(`{"products":` + catalogJSON + `}`))
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/products/")
		raw, ok := byID[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"product":` + string(raw) + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testApp struct {
	*app
	out     *bytes.Buffer
	storage *cart.MemoryStorage
	opened  []string
}

func newTestApp(t *testing.T, clock time.Time) *testApp {
	t.Helper()
	srv := catalogServer(t)
	ta := &testApp{out: &bytes.Buffer{}, storage: cart.NewMemoryStorage()}

	var provider cart.Provider
	provider.Init(context.Background(), ta.storage, zerolog.Nop())
	client := catalog.NewClient(srv.URL, 2*time.Second)
	ta.app = &app{
		out:        ta.out,
		provider:   &provider,
		fetcher:    catalog.NewFetcher(client, zerolog.Nop()),
		categories: client,
		gate:       hours.Gate{ClosingHour: 22, WarnWithin: 30 * time.Minute},
		now:        func() time.Time { return clock },
		launcher: checkout.LauncherFunc(func(_ context.Context, url string) error {
			ta.opened = append(ta.opened, url)
			return nil
		}),
		number: "+57 300 000 0000",
		logger: zerolog.Nop(),
	}
	return ta
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 10, hour, minute, 0, 0, time.UTC)
}

func TestRun_Usage(t *testing.T) {
	ta := newTestApp(t, at(10, 0))
	assert.ErrorIs(t, ta.run(context.Background(), nil), errUsage)
	assert.ErrorIs(t, ta.run(context.Background(), []string{"bogus"}), errUsage)
	assert.Contains(t, ta.out.String(), "comandos:")
}

func TestRun_NoProvider(t *testing.T) {
	a := &app{out: &bytes.Buffer{}, provider: &cart.Provider{}}
	assert.ErrorIs(t, a.run(context.Background(), []string{"cart"}), cart.ErrNoProvider)
}

func TestCategories(t *testing.T) {
	ta := newTestApp(t, at(10, 0))
	require.NoError(t, ta.run(context.Background(), []string{"categories"}))
	assert.Equal(t, "lacteos  Lácteos\n", ta.out.String())
}

func TestProducts_Listing(t *testing.T) {
	ta := newTestApp(t, at(10, 0))
	require.NoError(t, ta.run(context.Background(), []string{"products", "-search", "pan"}))

	out := ta.out.String()
	assert.Contains(t, out, "pan  Pan aliñado  $1.500")
	assert.Contains(t, out, "queso  Queso campesino  desde $7.000")
	assert.Contains(t, out, "leche  Leche  (agotado)")
}

func TestAdd_EnforcesSelection(t *testing.T) {
	ta := newTestApp(t, at(10, 0))
	ctx := context.Background()

	err := ta.run(ctx, []string{"add", "-product", "queso"})
	require.Error(t, err)
	assert.Equal(t, "Selecciona una presentación con -variant.", err.Error())

	err = ta.run(ctx, []string{"add", "-product", "pan", "-variant", "media"})
	require.Error(t, err)
	assert.Equal(t, "Este producto no tiene presentaciones.", err.Error())

	err = ta.run(ctx, []string{"add", "-product", "queso", "-variant", "libra"})
	require.Error(t, err)
	assert.Equal(t, "Este producto no está disponible.", err.Error())

	err = ta.run(ctx, []string{"add", "-product", "leche"})
	require.Error(t, err)
	assert.Equal(t, "Este producto no está disponible.", err.Error())

	err = ta.run(ctx, []string{"add", "-product", "nada"})
	require.Error(t, err)
	assert.Equal(t, catalog.MsgNotFound, err.Error())

	store, err := ta.provider.Store()
	require.NoError(t, err)
	assert.True(t, store.Cart().Empty())
	assert.Equal(t, 0, ta.storage.Saves())
}

func TestAdd_UpdateRemove(t *testing.T) {
	ta := newTestApp(t, at(10, 0))
	ctx := context.Background()

	require.NoError(t, ta.run(ctx, []string{"add", "-product", "pan", "-qty", "2"}))
	require.NoError(t, ta.run(ctx, []string{"add", "-product", "queso", "-variant", "media"}))
	require.NoError(t, ta.run(ctx, []string{"add", "-product", "pan"}))

	store, _ := ta.provider.Store()
	c := store.Cart()
	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 4, c.ItemCount)
	assert.Equal(t, "11500", c.Total.String())
	assert.Contains(t, ta.out.String(), "• 1x Queso campesino - Media libra (kg) - $7.000")

	ta.out.Reset()
	require.NoError(t, ta.run(ctx, []string{"update", "-product", "queso", "-variant", "media", "-qty", "0"}))
	assert.Len(t, store.Cart().Items, 1)
	assert.Contains(t, ta.out.String(), "Total: $4.500")

	require.NoError(t, ta.run(ctx, []string{"remove", "-product", "pan"}))
	assert.True(t, store.Cart().Empty())

	raw, err := ta.storage.Load(ctx, cart.StorageKey)
	require.NoError(t, err)
	persisted, err := cart.Decode(raw)
	require.NoError(t, err)
	assert.True(t, persisted.Empty())
}

func TestHours(t *testing.T) {
	ta := newTestApp(t, at(21, 45))
	require.NoError(t, ta.run(context.Background(), []string{"hours"}))
	assert.Equal(t, "Abierto. Cerramos en 15 minutos.\n", ta.out.String())

	ta = newTestApp(t, at(22, 5))
	require.NoError(t, ta.run(context.Background(), []string{"hours"}))
	assert.Equal(t, "Cerrado. Recibimos pedidos hasta las 22:00.\n", ta.out.String())
}

func TestHours_Watch(t *testing.T) {
	ta := newTestApp(t, at(21, 0))
	ta.watchInterval = 5 * time.Millisecond
	minute := 28
	ta.now = func() time.Time {
		minute++
		return at(21, minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, ta.run(ctx, []string{"hours", "-watch"}))

	lines := strings.Split(strings.TrimSpace(ta.out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "Abierto hasta las 22:00.", lines[0])
	assert.Equal(t, "Abierto. Cerramos en 30 minutos.", lines[1])
	assert.Equal(t, "Cerrado. Recibimos pedidos hasta las 22:00.", lines[len(lines)-1])
}

func TestCheckout_HandsOffAndClears(t *testing.T) {
	ta := newTestApp(t, at(10, 0))
	ctx := context.Background()
	require.NoError(t, ta.run(ctx, []string{"add", "-product", "pan", "-qty", "2"}))

	require.NoError(t, ta.run(ctx, []string{"checkout", "-name", "Ana María", "-phone", "3001234567"}))
	require.Len(t, ta.opened, 1)
	assert.True(t, strings.HasPrefix(ta.opened[0], "https://wa.me/573000000000?text="))
	assert.Contains(t, ta.opened[0], "Recoger%20en%20tienda")
	assert.Contains(t, ta.out.String(), ta.opened[0])

	store, _ := ta.provider.Store()
	assert.True(t, store.Cart().Empty())
}

func TestCheckout_Rejections(t *testing.T) {
	ctx := context.Background()

	ta := newTestApp(t, at(10, 0))
	err := ta.run(ctx, []string{"checkout", "-name", "Ana", "-phone", "3001234567"})
	require.Error(t, err)
	assert.Equal(t, "Tu carrito está vacío.", err.Error())

	require.NoError(t, ta.run(ctx, []string{"add", "-product", "pan"}))
	ta.out.Reset()
	err = ta.run(ctx, []string{"checkout", "-name", "Ana", "-phone", "123", "-mode", "delivery"})
	require.Error(t, err)
	assert.Contains(t, ta.out.String(), "address: ")
	assert.Contains(t, ta.out.String(), "phone: ")
	assert.Empty(t, ta.opened)

	closed := newTestApp(t, at(23, 0))
	require.NoError(t, closed.run(ctx, []string{"add", "-product", "pan"}))
	err = closed.run(ctx, []string{"checkout", "-name", "Ana", "-phone", "3001234567"})
	require.Error(t, err)
	assert.Equal(t, "Estamos cerrados. Recibimos pedidos hasta las 22:00.", err.Error())
	store, _ := closed.provider.Store()
	assert.False(t, store.Cart().Empty())
}

func TestCheckout_LauncherFailureKeepsCart(t *testing.T) {
	ta := newTestApp(t, at(10, 0))
	ctx := context.Background()
	require.NoError(t, ta.run(ctx, []string{"add", "-product", "pan"}))
	ta.launcher = checkout.LauncherFunc(func(context.Context, string) error { return errors.New("no browser") })

	err := ta.run(ctx, []string{"checkout", "-name", "Ana", "-phone", "3001234567"})
	require.Error(t, err)
	assert.Equal(t, checkout.MsgSendFailed, err.Error())
	store, _ := ta.provider.Store()
	assert.False(t, store.Cart().Empty())
}
