package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingPayment  Status = "pending_payment"
	StatusPaid            Status = "paid"
	StatusPaymentRejected Status = "payment_rejected"
	StatusCancelled       Status = "cancelled"
	StatusCompleted       Status = "completed"
)

var validStatuses = []Status{
	StatusPendingPayment,
	StatusPaid,
	StatusPaymentRejected,
	StatusCancelled,
	StatusCompleted,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	for _, candidate := range validStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseStatus(value string) (Status, error) {
	for _, candidate := range validStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// CanTransitionTo is the order lifecycle. Every status is listed so a new
// status without outgoing edges is caught by the default branch.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPendingPayment:
		return next == StatusPaid || next == StatusPaymentRejected || next == StatusCancelled
	case StatusPaymentRejected:
		return next == StatusPendingPayment || next == StatusPaid
	case StatusPaid:
		return next == StatusCancelled || next == StatusCompleted
	case StatusCancelled, StatusCompleted:
		return false
	default:
		return false
	}
}


// CancelReason distinguishes the two ways an order ends up cancelled.
type CancelReason string

const (
	CancelReasonNone    CancelReason = ""
	CancelReasonTimeout CancelReason = "timeout"
	CancelReasonRefund  CancelReason = "refund"
)

type ReceiptKind string

const (
	ReceiptPhoto    ReceiptKind = "photo"
	ReceiptDocument ReceiptKind = "document"
)

// ReceiptRef points at a payment receipt kept by the chat platform.
type ReceiptRef struct {
	FileID string      `json:"file_id" validate:"required"`
	Kind   ReceiptKind `json:"kind" validate:"oneof=photo document"`
}

type PersonName struct {
	First string `json:"first" validate:"required"`
	Last  string `json:"last" validate:"required"`
}

func (n PersonName) IsZero() bool {
	return strings.TrimSpace(n.First) == "" && strings.TrimSpace(n.Last) == ""
}

// IsComplete is true when both parts are present.
func (n PersonName) IsComplete() bool {
	return strings.TrimSpace(n.First) != "" && strings.TrimSpace(n.Last) != ""
}

func (n PersonName) String() string {
	return strings.TrimSpace(n.First + " " + n.Last)
}

// StatusChange is one entry of the append-only status log.
type StatusChange struct {
	From    Status
	To      Status
	Reason  CancelReason
	ActorID int64
	At      time.Time
}

// Order is one customer purchase.
type Order struct {
	Number        string `validate:"omitempty,numeric"`
	DraftID       string `validate:"required"`
	UserID        int64  `validate:"required"`
	Username      string
	Items         LineItems `validate:"required,min=1,dive"`
	PickupAt      time.Time `validate:"required"`
	Recipient     PersonName
	Phone         string `validate:"required,e164"`
	Total         decimal.Decimal
	Status        Status
	CancelReason  CancelReason
	Receipt       *ReceiptRef
	RefundAccount string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	History       []StatusChange
}

// Transition describes a guarded status change: it applies only while the
// order is in one of From.
type Transition struct {
	From          []Status
	To            Status
	Reason        CancelReason
	ActorID       int64
	Receipt       *ReceiptRef
	RefundAccount string
	At            time.Time
}

// Allows reports whether the transition may start from current.
func (t Transition) Allows(current Status) bool {
	for _, s := range t.From {
		if s == current {
			return true
		}
	}
	return false
}

// Profile is what we remember about a customer between orders.
type Profile struct {
	UserID       int64
	Username     string
	Name         PersonName
	Phone        string
	ConsentGiven bool
	UpdatedAt    time.Time
}

// ProfilePatch carries fields to merge into a profile. Zero values mean
// "leave as is", so a patch can never clear data.
type ProfilePatch struct {
	Username string
	Name     PersonName
	Phone    string
	Consent  bool
}

// Merge applies patch onto p. Consent only ever goes from false to true and
// non-empty name or phone are replaced only by non-empty values.
func (p Profile) Merge(patch ProfilePatch) Profile {
	merged := p
	if patch.Username != "" {
		merged.Username = patch.Username
	}
	if patch.Name.IsComplete() {
		merged.Name = patch.Name
	}
	if strings.TrimSpace(patch.Phone) != "" {
		merged.Phone = patch.Phone
	}
	merged.ConsentGiven = p.ConsentGiven || patch.Consent
	return merged
}
