package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda-barrio/internal/cart"
	"tienda-barrio/internal/hours"
)

type recordingLauncher struct {
	urls []string
	err  error
}

func (l *recordingLauncher) Open(_ context.Context, url string) error {
	l.urls = append(l.urls, url)
	return l.err
}

func clockAt(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, time.May, 4, hour, 0, 0, 0, time.Local)
	}
}

func newFlow(t *testing.T, store *cart.Store, l Launcher, hour int) *Flow {
	t.Helper()
	return NewFlow(FlowConfig{
		Store:          store,
		Gate:           hours.Gate{ClosingHour: 22},
		Launcher:       l,
		WhatsAppNumber: "573001112233",
		Now:            clockAt(hour),
		Logger:         zerolog.Nop(),
	})
}

func TestFlow_EmptyCartRedirectsToCart(t *testing.T) {
	store := cart.New(context.Background(), cart.NewMemoryStorage(), zerolog.Nop())
	flow := newFlow(t, store, &recordingLauncher{}, 10)

	assert.Equal(t, StepCart, flow.Start().Step)
	_, err := flow.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestFlow_HappyPathClearsCart(t *testing.T) {
	store := filledCart(t)
	launcher := &recordingLauncher{}
	flow := newFlow(t, store, launcher, 10)

	assert.Equal(t, StepForm, flow.Start().Step)
	assert.Equal(t, StepValid, flow.Update(validForm()).Step)

	link, err := flow.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, launcher.urls, 1)
	assert.Equal(t, launcher.urls[0], link)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/573001112233?text="))

	v := flow.View()
	assert.Equal(t, StepSuccess, v.Step)
	assert.True(t, v.Cart.Empty())
	assert.True(t, store.Cart().Empty())
}

func TestFlow_LauncherFailureKeepsCart(t *testing.T) {
	store := filledCart(t)
	launcher := &recordingLauncher{err: errors.New("popup blocked")}
	flow := newFlow(t, store, launcher, 10)
	flow.Start()
	flow.Update(validForm())

	_, err := flow.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSendFailed)

	v := flow.View()
	assert.Equal(t, StepValid, v.Step)
	assert.Equal(t, MsgSendFailed, v.Notice)
	assert.Equal(t, 3, store.Cart().ItemCount)

	launcher.err = nil
	_, err = flow.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, store.Cart().Empty())
}

func TestFlow_InvalidFormBlocksSubmit(t *testing.T) {
	store := filledCart(t)
	launcher := &recordingLauncher{}
	flow := newFlow(t, store, launcher, 10)
	flow.Start()

	f := validForm()
	f.Mode = ModeDelivery
	assert.Equal(t, StepForm, flow.Update(f).Step)

	_, err := flow.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, flow.View().Errors, "address")
	assert.Empty(t, launcher.urls)
	assert.False(t, store.Cart().Empty())
}

func TestFlow_ClosedStoreBlocksSubmit(t *testing.T) {
	store := filledCart(t)
	launcher := &recordingLauncher{}
	flow := newFlow(t, store, launcher, 22)
	flow.Start()
	flow.Update(validForm())

	_, err := flow.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, launcher.urls)
	assert.Contains(t, flow.View().Notice, "22:00")
	assert.False(t, flow.View().Hours.Open)
}

func TestFlow_CartEmptiedBeforeSubmit(t *testing.T) {
	store := filledCart(t)
	launcher := &recordingLauncher{}
	flow := newFlow(t, store, launcher, 10)
	flow.Start()
	flow.Update(validForm())

	store.Clear(context.Background())
	_, err := flow.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StepCart, flow.View().Step)
	assert.Empty(t, launcher.urls)
}

func TestFlow_Blur(t *testing.T) {
	flow := newFlow(t, filledCart(t), &recordingLauncher{}, 10)
	flow.Start()
	f := validForm()
	f.Phone = "2"
	flow.Update(f)

	assert.NotEmpty(t, flow.Blur("phone"))
	assert.Contains(t, flow.View().Errors, "phone")

	f.Phone = "3001234567"
	flow.Update(f)
	assert.Empty(t, flow.Blur("phone"))
	assert.NotContains(t, flow.View().Errors, "phone")
}

func TestSystemLauncher_Command(t *testing.T) {
	name, args := SystemLauncher{GOOS: "linux"}.command("https://wa.me/1")
	assert.Equal(t, "xdg-open", name)
	assert.Equal(t, []string{"https://wa.me/1"}, args)

	name, _ = SystemLauncher{GOOS: "darwin"}.command("u")
	assert.Equal(t, "open", name)

	name, args = SystemLauncher{GOOS: "windows"}.command("u")
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, []string{"url.dll,FileProtocolHandler", "u"}, args)
}
