package checkout

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tienda-barrio/internal/cart"
	"tienda-barrio/internal/format"
)

const waBaseURL = "https://wa.me/"

var ErrEmptyCart = errors.New("checkout: cart is empty")

// ValidationError carries the per-field messages of a rejected form.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return fmt.Sprintf("checkout: invalid fields %s", strings.Join(keys, ","))
}

// Order is a validated form plus the cart as it was at submission time.
type Order struct {
	Customer  string
	Phone     string
	Mode      DeliveryMode
	Address   string
	Notes     string
	Items     []cart.Line
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Assemble validates the form in full and snapshots c into an Order.
func Assemble(f Form, c cart.Cart) (Order, error) {
	if c.Empty() {
		return Order{}, ErrEmptyCart
	}
	if errs := Validate(f); len(errs) > 0 {
		return Order{}, &ValidationError{Fields: errs}
	}
	f = f.normalized()
	o := Order{
		Customer:  f.Name,
		Phone:     f.Phone,
		Mode:      f.Mode,
		Notes:     f.Notes,
		Items:     append([]cart.Line(nil), c.Items...),
		Total:     c.Total,
		CreatedAt: time.Now(),
	}
	if f.Mode == ModeDelivery {
		o.Address = f.Address
	}
	return o, nil
}

// Message renders the order as the WhatsApp text.
func (o Order) Message() string {
	var b strings.Builder
	b.WriteString("*Nuevo pedido*\n\n")
	fmt.Fprintf(&b, "Cliente: %s\n", o.Customer)
	fmt.Fprintf(&b, "Teléfono: %s\n\n", format.Phone(o.Phone))
	b.WriteString("Productos:\n")
	for _, l := range o.Items {
		name := l.ProductName
		if l.VariantName != nil && *l.VariantName != "" {
			name += " - " + *l.VariantName
		}
		fmt.Fprintf(&b, "• %dx %s - %s\n", l.Quantity, name, format.Price(l.Subtotal()))
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n\n", format.Price(o.Total))
	if o.Mode == ModeDelivery {
		fmt.Fprintf(&b, "Entrega a domicilio: %s", o.Address)
	} else {
		b.WriteString("Recoger en tienda")
	}
	if o.Notes != "" {
		fmt.Fprintf(&b, "\nNotas: %s", o.Notes)
	}
	return b.String()
}

// WhatsAppURL builds the click-to-chat link for number with text prefilled.
// Non-digits are stripped from number and spaces are encoded as %20.
func WhatsAppURL(number, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	return waBaseURL + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
