package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type Variant struct {
	ID   int
	Name string
}

// Catalog is the fixed list of bouquet styles, in display order.
type Catalog struct {
	variants []Variant
}

func Default() *Catalog {
	return &Catalog{variants: []Variant{
		{ID: 1, Name: "Микс"},
		{ID: 2, Name: "Красный"},
		{ID: 3, Name: "Жёлтый"},
		{ID: 4, Name: "Белый"},
		{ID: 5, Name: "Жёлтый + фиолетовый"},
		{ID: 6, Name: "Красный + жёлтый"},
	}}
}

func (c *Catalog) Variants() []Variant {
	out := make([]Variant, len(c.variants))
	copy(out, c.variants)
	return out
}

func (c *Catalog) Get(id int) (Variant, bool) {
	for _, v := range c.variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Name falls back to a numbered label for ids outside the catalog.
func (c *Catalog) Name(id int) string {
	if v, ok := c.Get(id); ok {
		return v.Name
	}
	return fmt.Sprintf("Вариант %d", id)
}

// Pricing is the two-tier unit price lookup.
type Pricing struct {
	Small decimal.Decimal
	Large decimal.Decimal
}

var _ models.Pricer = Pricing{}

func (p Pricing) UnitPrice(quantity int) (decimal.Decimal, error) {
	switch quantity {
	case models.BundleSmall:
		return p.Small, nil
	case models.BundleLarge:
		return p.Large, nil
	default:
		return decimal.Zero, fmt.Errorf("no price for %d tulips", quantity)
	}
}
