package intake

import "github.com/kuznetsov-tulips/tulip-bot/internal/apperr"

var (
	ErrWrongState         = apperr.New(apperr.KindGuard, "action does not match the current step")
	ErrUnknownVariant     = apperr.New(apperr.KindValidation, "unknown bouquet variant")
	ErrVariantUnavailable = apperr.New(apperr.KindGuard, "bouquet variant is out of stock")
	ErrInvalidQuantity    = apperr.New(apperr.KindValidation, "tulips per bouquet must be 15 or 25")
	ErrInvalidAdjustment  = apperr.New(apperr.KindValidation, "invalid line item adjustment")
	ErrNoItems            = apperr.New(apperr.KindGuard, "order has no bouquets")
	ErrDateUnavailable    = apperr.New(apperr.KindValidation, "pickup date is not in the schedule")
	ErrTimeOutOfRange     = apperr.New(apperr.KindValidation, "pickup hour is outside the schedule")
	ErrPickupExpired      = apperr.New(apperr.KindGuard, "pickup slot is no longer offered")
	ErrInvalidName        = apperr.New(apperr.KindValidation, "name must be first and last name")
	ErrInvalidPhone       = apperr.New(apperr.KindValidation, "unrecognized phone number")
)
