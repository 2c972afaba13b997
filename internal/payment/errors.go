package payment

import (
	"fmt"

	"github.com/kuznetsov-tulips/tulip-bot/internal/apperr"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

var (
	ErrWrongState         = apperr.New(apperr.KindGuard, "no order is waiting for a receipt")
	ErrReceiptTooLarge    = apperr.New(apperr.KindValidation, "receipt file is too large")
	ErrUnsupportedReceipt = apperr.New(apperr.KindValidation, "receipt must be a photo or a document")
	ErrNotOwner           = apperr.New(apperr.KindForbidden, "order belongs to another customer")
	ErrOrderGone          = apperr.New(apperr.KindGone, "order no longer awaits payment")
	ErrAlreadyHandled     = apperr.New(apperr.KindConflict, "order already handled by another admin")
)

// GoneError carries the order that moved past payment so the customer can be
// told what happened to it.
type GoneError struct {
	Order *models.Order
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("order %s is %s", e.Order.Number, e.Order.Status)
}

func (e *GoneError) Unwrap() error {
	return ErrOrderGone
}

// HandledError reports the status a losing admin action ran into.
type HandledError struct {
	Number  string
	Current models.Status
}

func (e *HandledError) Error() string {
	return fmt.Sprintf("order %s already %s", e.Number, e.Current)
}

func (e *HandledError) Unwrap() error {
	return ErrAlreadyHandled
}
