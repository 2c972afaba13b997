package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	BundleSmall = 15
	BundleLarge = 25
)

var ErrLineItemNotFound = errors.New("line item not found")

// Pricer resolves the unit price of a bundle size.
type Pricer interface {
	UnitPrice(quantity int) (decimal.Decimal, error)
}

func ValidQuantity(quantity int) bool {
	return quantity == BundleSmall || quantity == BundleLarge
}

type LineItem struct {
	Variant  int `json:"variant" validate:"min=1"`
	Quantity int `json:"quantity" validate:"oneof=15 25"`
	Count    int `json:"count" validate:"min=1"`
}

// LineItems keeps insertion order. Methods return fresh slices so a state
// holding one is never mutated behind its back.
type LineItems []LineItem

// Add bumps the count of a matching (variant, quantity) item or appends one.
func (items LineItems) Add(variant, quantity int) LineItems {
	out := items.clone()
	if i := out.find(variant, quantity); i >= 0 {
		out[i].Count++
		return out
	}
	return append(out, LineItem{Variant: variant, Quantity: quantity, Count: 1})
}

// Adjust changes the count of the (variant, quantity) item by delta,
// dropping the item at zero.
func (items LineItems) Adjust(variant, quantity, delta int) (LineItems, error) {
	index := items.find(variant, quantity)
	if index < 0 {
		return items, ErrLineItemNotFound
	}
	out := items.clone()
	out[index].Count += delta
	if out[index].Count <= 0 {
		out = append(out[:index], out[index+1:]...)
	}
	return out, nil
}

func (items LineItems) Total(p Pricer) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		unit, err := p.UnitPrice(item.Quantity)
		if err != nil {
			return decimal.Zero, fmt.Errorf("pricing variant %d: %w", item.Variant, err)
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Count))))
	}
	return total, nil
}

// Bundles is the number of bouquets across all items.
func (items LineItems) Bundles() int {
	n := 0
	for _, item := range items {
		n += item.Count
	}
	return n
}

func (items LineItems) find(variant, quantity int) int {
	for i, item := range items {
		if item.Variant == variant && item.Quantity == quantity {
			return i
		}
	}
	return -1
}

func (items LineItems) clone() LineItems {
	out := make(LineItems, len(items))
	copy(out, items)
	return out
}
