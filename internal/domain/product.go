package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitKind controls how a product quantity is labelled. It never changes pricing.
type UnitKind string

const (
	UnitKindUnit   UnitKind = "unit"
	UnitKindWeight UnitKind = "weight"
)

// Valid reports whether k is a known unit kind.
func (k UnitKind) Valid() bool {
	return k == UnitKindUnit || k == UnitKindWeight
}

// Label is the short suffix shown next to quantities.
func (k UnitKind) Label() string {
	if k == UnitKindWeight {
		return "kg"
	}
	return "und"
}

type Product struct {
	ID          string           `json:"id"`
	CategoryID  *string          `json:"categoryId"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	ImageURL    string           `json:"imageUrl"`
	BasePrice   *decimal.Decimal `json:"basePrice"`
	HasVariants bool             `json:"hasVariants"`
	Variants    []Variant        `json:"variants"`
	IsAvailable bool             `json:"isAvailable"`
	UnitKind    UnitKind         `json:"unitKind"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type Variant struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"isAvailable"`
	Position    int             `json:"position"`
}

// Variant returns the variant with the given id.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// PriceFor resolves the purchase price for a selection. Products with variants
// are priced only by the selected variant and ignore BasePrice; products
// without variants are priced only by BasePrice and reject a variant id.
func (p Product) PriceFor(variantID string) (decimal.Decimal, error) {
	if p.HasVariants {
		if variantID == "" {
			return decimal.Zero, ErrVariantRequired
		}
		v, ok := p.Variant(variantID)
		if !ok {
			return decimal.Zero, ErrNotFound
		}
		return v.Price, nil
	}
	if variantID != "" {
		return decimal.Zero, ErrVariantNotAllowed
	}
	if p.BasePrice == nil {
		return decimal.Zero, ErrNoPrice
	}
	return *p.BasePrice, nil
}

// DisplayPrice is the "from" price shown in listings: the cheapest available
// variant for variant products, BasePrice otherwise. ok is false when there is
// nothing purchasable to show.
func (p Product) DisplayPrice() (price decimal.Decimal, ok bool) {
	if !p.HasVariants {
		if p.BasePrice == nil {
			return decimal.Zero, false
		}
		return *p.BasePrice, true
	}
	for _, v := range p.Variants {
		if !v.IsAvailable {
			continue
		}
		if !ok || v.Price.LessThan(price) {
			price = v.Price
			ok = true
		}
	}
	return price, ok
}

// Purchasable reports whether the selection can be added to a cart right now.
func (p Product) Purchasable(variantID string) error {
	if !p.IsAvailable {
		return ErrUnavailable
	}
	if _, err := p.PriceFor(variantID); err != nil {
		return err
	}
	if p.HasVariants {
		v, _ := p.Variant(variantID)
		if !v.IsAvailable {
			return ErrUnavailable
		}
	}
	return nil
}
