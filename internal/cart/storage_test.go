package cart

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_LoadMissing(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	_, err := fs.Load(context.Background(), StorageKey)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFileStorage_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	fs := NewFileStorage(dir)
	ctx := context.Background()

	require.NoError(t, fs.Save(ctx, StorageKey, []byte(`{"a":1}`)))
	require.NoError(t, fs.Save(ctx, StorageKey, []byte(`{"a":2}`)))

	data, err := fs.Load(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "tienda-barrio_cart.json", entries[0].Name())
}

func TestFileStorage_BacksStoreAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := New(ctx, NewFileStorage(dir), zerolog.Nop())
	first.AddItem(ctx, AddInput{ProductID: "P1", ProductName: "Huevos", UnitPrice: pesos(600), Quantity: 30})

	second := New(ctx, NewFileStorage(dir), zerolog.Nop())
	assertCart(t, second.Cart(), 18000, 30, 1)
	assert.Equal(t, "Huevos", second.Cart().Items[0].ProductName)
}
