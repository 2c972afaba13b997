package db

import (
	"fmt"

	"github.com/kuznetsov-tulips/tulip-bot/internal/apperr"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

var (
	ErrOrderNotFound  = apperr.New(apperr.KindNotFound, "order not found")
	ErrStatusConflict = apperr.New(apperr.KindConflict, "order status changed")
)

// ConflictError is returned when a guarded transition finds the order in a
// status it does not start from.
type ConflictError struct {
	Number  string
	Current models.Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s is %s", e.Number, e.Current)
}

func (e *ConflictError) Unwrap() error {
	return ErrStatusConflict
}
