// Package cart holds the client-side shopping cart: an in-memory aggregate
// that is the single writer of cart state and persists itself to a Storage
// after every mutation.
package cart

import (
	"github.com/shopspring/decimal"

	"tienda-barrio/internal/domain"
)

// Line is one product (+ variant) selection. Names and unit price are
// captured when the line is first added and never refreshed from the catalog.
type Line struct {
	ProductID   string          `json:"productId"`
	VariantID   *string         `json:"variantId"`
	ProductName string          `json:"productName"`
	VariantName *string         `json:"variantName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	UnitKind    domain.UnitKind `json:"unitKind"`
}

// Subtotal is UnitPrice x Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) key() lineKey {
	return newLineKey(l.ProductID, l.VariantID)
}

func (l Line) clone() Line {
	out := l
	if l.VariantID != nil {
		v := *l.VariantID
		out.VariantID = &v
	}
	if l.VariantName != nil {
		v := *l.VariantName
		out.VariantName = &v
	}
	return out
}

// Cart is an immutable snapshot. Total and ItemCount are always derived from
// Items and are recomputed by the Store on every mutation.
type Cart struct {
	Items     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

func newCart(items []Line) Cart {
	c := Cart{Items: items, Total: decimal.Zero}
	if c.Items == nil {
		c.Items = []Line{}
	}
	for _, l := range c.Items {
		c.Total = c.Total.Add(l.Subtotal())
		c.ItemCount += l.Quantity
	}
	return c
}

func (c Cart) clone() Cart {
	items := make([]Line, len(c.Items))
	for i, l := range c.Items {
		items[i] = l.clone()
	}
	return Cart{Items: items, Total: c.Total, ItemCount: c.ItemCount}
}

// lineKey is the composite (productId, variantId) identity. A nil variant and
// an empty variant id are the same key.
type lineKey struct {
	productID string
	variantID string
}

func newLineKey(productID string, variantID *string) lineKey {
	k := lineKey{productID: productID}
	if variantID != nil {
		k.variantID = *variantID
	}
	return k
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
