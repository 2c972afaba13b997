package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the structural rules of an order record before it is stored.
func (o *Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}
	if o.Status != "" && !o.Status.IsValid() {
		return fmt.Errorf("invalid order: unknown status %q", o.Status)
	}
	return nil
}

// ValidateTotal checks the stored total against a fresh computation.
func (o *Order) ValidateTotal(p Pricer) error {
	total, err := o.Items.Total(p)
	if err != nil {
		return err
	}
	if !total.Equal(o.Total) {
		return fmt.Errorf("invalid order: total %s, expected %s", o.Total, total)
	}
	return nil
}
