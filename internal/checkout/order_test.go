package checkout

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda-barrio/internal/cart"
	"tienda-barrio/internal/domain"
)

func filledCart(t *testing.T) *cart.Store {
	t.Helper()
	ctx := context.Background()
	store := cart.New(ctx, cart.NewMemoryStorage(), zerolog.Nop())
	store.AddItem(ctx, cart.AddInput{
		ProductID: "p1", ProductName: "Pan aliñado", UnitPrice: decimal.NewFromInt(1500), Quantity: 2, UnitKind: domain.UnitKindUnit,
	})
	store.AddItem(ctx, cart.AddInput{
		ProductID: "p2", VariantID: "v1", ProductName: "Queso", VariantName: "Media libra",
		UnitPrice: decimal.NewFromInt(12000), Quantity: 1, UnitKind: domain.UnitKindWeight,
	})
	return store
}

func TestAssemble_RejectsEmptyCartAndInvalidForm(t *testing.T) {
	_, err := Assemble(validForm(), cart.Cart{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f := validForm()
	f.Phone = "1"
	_, err = Assemble(f, filledCart(t).Cart())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "phone")
}

func TestOrder_MessagePickup(t *testing.T) {
	f := validForm()
	f.Address = "ignored for pickup"
	order, err := Assemble(f, filledCart(t).Cart())
	require.NoError(t, err)
	assert.Empty(t, order.Address)

	want := strings.Join([]string{
		"*Nuevo pedido*",
		"",
		"Cliente: María José Peña",
		"Teléfono: 300 123 4567",
		"",
		"Productos:",
		"• 2x Pan aliñado - $3.000",
		"• 1x Queso - Media libra - $12.000",
		"",
		"*Total: $15.000*",
		"",
		"Recoger en tienda",
	}, "\n")
	assert.Equal(t, want, order.Message())
}

func TestOrder_MessageDeliveryWithNotes(t *testing.T) {
	f := validForm()
	f.Mode = ModeDelivery
	f.Address = "Calle 10 # 5-23, apto 201"
	f.Notes = "Timbre dañado, llamar"
	order, err := Assemble(f, filledCart(t).Cart())
	require.NoError(t, err)

	msg := order.Message()
	assert.True(t, strings.HasSuffix(msg, "Entrega a domicilio: Calle 10 # 5-23, apto 201\nNotas: Timbre dañado, llamar"), msg)
}

func TestOrder_SnapshotIsDetachedFromCart(t *testing.T) {
	store := filledCart(t)
	order, err := Assemble(validForm(), store.Cart())
	require.NoError(t, err)

	store.Clear(context.Background())
	assert.Len(t, order.Items, 2)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(15000)))
}

func TestWhatsAppURL(t *testing.T) {
	link := WhatsAppURL("+57 300-123-4567", "*Nuevo pedido*\nTotal: $1.200 & más")
	require.True(t, strings.HasPrefix(link, "https://wa.me/573001234567?text="), link)
	assert.NotContains(t, link, "+")
	assert.NotContains(t, link, " ")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "*Nuevo pedido*\nTotal: $1.200 & más", u.Query().Get("text"))
}
