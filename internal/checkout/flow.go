package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tienda-barrio/internal/cart"
	"tienda-barrio/internal/hours"
)

type Step string

const (
	StepIdle    Step = "idle"
	StepCart    Step = "cart"
	StepForm    Step = "awaiting-form"
	StepValid   Step = "form-valid"
	StepSending Step = "sending"
	StepSuccess Step = "success"
)

const MsgSendFailed = "No se pudo enviar el pedido, intenta de nuevo."

var (
	ErrClosed     = errors.New("checkout: store is closed")
	ErrBadStep    = errors.New("checkout: submit not allowed in current step")
	ErrSendFailed = errors.New("checkout: hand-off failed")
)

// FlowConfig wires a Flow to its collaborators.
type FlowConfig struct {
	Store          *cart.Store
	Gate           hours.Gate
	Launcher       Launcher
	WhatsAppNumber string
	Now            func() time.Time
	Logger         zerolog.Logger
}

// Flow drives one checkout screen. Any state may fall back to StepCart when
// the cart is empty. The cart is cleared only after the Launcher succeeds.
type Flow struct {
	store    *cart.Store
	gate     hours.Gate
	launcher Launcher
	number   string
	now      func() time.Time
	logger   zerolog.Logger

	mu     sync.Mutex
	step   Step
	form   Form
	errs   FieldErrors
	notice string
	url    string
}

func NewFlow(cfg FlowConfig) *Flow {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Flow{
		store:    cfg.Store,
		gate:     cfg.Gate,
		launcher: cfg.Launcher,
		number:   cfg.WhatsAppNumber,
		now:      now,
		logger:   cfg.Logger.With().Str("component", "checkout").Logger(),
		step:     StepIdle,
	}
}

// View is what the checkout screen renders.
type View struct {
	Step   Step
	Form   Form
	Errors FieldErrors
	Notice string
	Hours  hours.Status
	Cart   cart.Cart
	URL    string
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Flow) viewLocked() View {
	errs := make(FieldErrors, len(f.errs))
	for k, v := range f.errs {
		errs[k] = v
	}
	return View{
		Step:   f.step,
		Form:   f.form,
		Errors: errs,
		Notice: f.notice,
		Hours:  f.gate.Evaluate(f.now()),
		Cart:   f.store.Cart(),
		URL:    f.url,
	}
}

// Start enters the checkout screen.
func (f *Flow) Start() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redirectIfEmptyLocked() {
		return f.viewLocked()
	}
	f.step = StepForm
	f.notice = ""
	f.url = ""
	f.moveByValidityLocked()
	return f.viewLocked()
}

// Update replaces the form and revalidates the fields the customer touched.
func (f *Flow) Update(form Form) View {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
	if f.redirectIfEmptyLocked() {
		return f.viewLocked()
	}
	f.moveByValidityLocked()
	return f.viewLocked()
}

// Blur validates a single field and records its message.
func (f *Flow) Blur(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := ValidateField(f.form, field)
	if f.errs == nil {
		f.errs = FieldErrors{}
	}
	if msg == "" {
		delete(f.errs, field)
	} else {
		f.errs[field] = msg
	}
	return msg
}

func (f *Flow) redirectIfEmptyLocked() bool {
	if f.store.Cart().Empty() {
		f.step = StepCart
		return true
	}
	return false
}

func (f *Flow) moveByValidityLocked() {
	if f.step != StepForm && f.step != StepValid {
		return
	}
	if len(Validate(f.form)) == 0 {
		f.step = StepValid
	} else {
		f.step = StepForm
	}
}

// Submit validates everything again, checks business hours and hands the
// order off. It returns the WhatsApp URL on success.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.redirectIfEmptyLocked() {
		f.mu.Unlock()
		return "", ErrEmptyCart
	}
	if f.step != StepForm && f.step != StepValid {
		f.mu.Unlock()
		return "", ErrBadStep
	}
	if errs := Validate(f.form); len(errs) > 0 {
		f.errs = errs
		f.step = StepForm
		f.mu.Unlock()
		return "", &ValidationError{Fields: errs}
	}
	f.errs = nil
	if st := f.gate.Evaluate(f.now()); !st.Open {
		f.notice = fmt.Sprintf("Estamos cerrados. Recibimos pedidos hasta las %d:00.", st.ClosingHour)
		f.mu.Unlock()
		return "", ErrClosed
	}

	order, err := Assemble(f.form, f.store.Cart())
	if err != nil {
		f.mu.Unlock()
		return "", err
	}
	link := WhatsAppURL(f.number, order.Message())
	f.step = StepSending
	f.notice = ""
	f.mu.Unlock()

	if err := f.launcher.Open(ctx, link); err != nil {
		f.logger.Warn().Err(err).Msg("checkout.handoff_failed")
		f.mu.Lock()
		f.step = StepValid
		f.notice = MsgSendFailed
		f.mu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	f.store.Clear(ctx)
	f.mu.Lock()
	f.step = StepSuccess
	f.url = link
	f.mu.Unlock()
	f.logger.Info().
		Int("lines", len(order.Items)).
		Str("total", order.Total.String()).
		Str("mode", string(order.Mode)).
		Msg("checkout.order_sent")
	return link, nil
}
