package conversation

import (
	"time"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type Kind string

const (
	KindAwaitingConsent             Kind = "awaiting_consent"
	KindSelectingVariant            Kind = "selecting_variant"
	KindSelectingQuantity           Kind = "selecting_quantity"
	KindConfirmingMoreItems         Kind = "confirming_more_items"
	KindSelectingPickupDate         Kind = "selecting_pickup_date"
	KindSelectingPickupTime         Kind = "selecting_pickup_time"
	KindEnteringName                Kind = "entering_name"
	KindEnteringPhone               Kind = "entering_phone"
	KindConfirmingOrder             Kind = "confirming_order"
	KindAwaitingPayment             Kind = "awaiting_payment"
	KindAwaitingReceiptConfirmation Kind = "awaiting_receipt_confirmation"
	KindConfirmingCancellation      Kind = "confirming_cancellation"
	KindEnteringRefundAccount       Kind = "entering_refund_account"
)

// State is one step of a customer's conversation. Each variant carries only
// the data that is known at that step. The set is closed: only types in this
// package implement it.
type State interface {
	Kind() Kind
	isState()
}

// Draft is the order being assembled. ID doubles as the idempotency key
// when the order is finally persisted.
type Draft struct {
	ID    string           `json:"id"`
	Items models.LineItems `json:"items"`
	// Saved keeps pickup and contact details while the customer goes back to
	// edit items from the confirmation step.
	Saved *SavedDetails `json:"saved,omitempty"`
}

type SavedDetails struct {
	PickupAt time.Time         `json:"pickup_at"`
	Name     models.PersonName `json:"name"`
	Phone    string            `json:"phone"`
}

type AwaitingConsent struct{}

type SelectingVariant struct {
	Draft Draft `json:"draft"`
}

type SelectingQuantity struct {
	Draft   Draft `json:"draft"`
	Variant int   `json:"variant"`
}

type ConfirmingMoreItems struct {
	Draft Draft `json:"draft"`
}

type SelectingPickupDate struct {
	Draft Draft `json:"draft"`
}

type SelectingPickupTime struct {
	Draft Draft  `json:"draft"`
	Date  string `json:"date"`
}

type EnteringName struct {
	Draft    Draft     `json:"draft"`
	PickupAt time.Time `json:"pickup_at"`
}

type EnteringPhone struct {
	Draft    Draft             `json:"draft"`
	PickupAt time.Time         `json:"pickup_at"`
	Name     models.PersonName `json:"name"`
}

type ConfirmingOrder struct {
	Draft    Draft             `json:"draft"`
	PickupAt time.Time         `json:"pickup_at"`
	Name     models.PersonName `json:"name"`
	Phone    string            `json:"phone"`
}

type AwaitingPayment struct {
	OrderNumber      string `json:"order_number"`
	ReceiptSubmitted bool   `json:"receipt_submitted"`
}

type AwaitingReceiptConfirmation struct {
	OrderNumber      string            `json:"order_number"`
	Candidate        models.ReceiptRef `json:"candidate"`
	ReceiptSubmitted bool              `json:"receipt_submitted"`
}

type ConfirmingCancellation struct {
	OrderNumber string `json:"order_number"`
}

type EnteringRefundAccount struct {
	OrderNumber string `json:"order_number"`
}

func (AwaitingConsent) Kind() Kind             { return KindAwaitingConsent }
func (SelectingVariant) Kind() Kind            { return KindSelectingVariant }
func (SelectingQuantity) Kind() Kind           { return KindSelectingQuantity }
func (ConfirmingMoreItems) Kind() Kind         { return KindConfirmingMoreItems }
func (SelectingPickupDate) Kind() Kind         { return KindSelectingPickupDate }
func (SelectingPickupTime) Kind() Kind         { return KindSelectingPickupTime }
func (EnteringName) Kind() Kind                { return KindEnteringName }
func (EnteringPhone) Kind() Kind               { return KindEnteringPhone }
func (ConfirmingOrder) Kind() Kind             { return KindConfirmingOrder }
func (AwaitingPayment) Kind() Kind             { return KindAwaitingPayment }
func (AwaitingReceiptConfirmation) Kind() Kind { return KindAwaitingReceiptConfirmation }
func (ConfirmingCancellation) Kind() Kind      { return KindConfirmingCancellation }
func (EnteringRefundAccount) Kind() Kind       { return KindEnteringRefundAccount }

func (AwaitingConsent) isState()             {}
func (SelectingVariant) isState()            {}
func (SelectingQuantity) isState()           {}
func (ConfirmingMoreItems) isState()         {}
func (SelectingPickupDate) isState()         {}
func (SelectingPickupTime) isState()         {}
func (EnteringName) isState()                {}
func (EnteringPhone) isState()               {}
func (ConfirmingOrder) isState()             {}
func (AwaitingPayment) isState()             {}
func (AwaitingReceiptConfirmation) isState() {}
func (ConfirmingCancellation) isState()      {}
func (EnteringRefundAccount) isState()       {}

