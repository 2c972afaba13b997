// Package payment resolves payment for placed orders: the customer's receipt
// submission and the admins' confirm, reject and complete actions.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/kuznetsov-tulips/tulip-bot/internal/apperr"
	"github.com/kuznetsov-tulips/tulip-bot/internal/conversation"
	"github.com/kuznetsov-tulips/tulip-bot/internal/db"
	"github.com/kuznetsov-tulips/tulip-bot/internal/ledger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/metrics"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
	"github.com/kuznetsov-tulips/tulip-bot/internal/render"
)

const DefaultMaxReceiptBytes = 20 << 20

type OrderStore interface {
	GetOrder(ctx context.Context, number string) (*models.Order, error)
	TransitionStatus(ctx context.Context, number string, t models.Transition) (*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
}

type FormRenderer interface {
	Render(ctx context.Context, order *models.Order) (string, error)
}

// Actor is the admin performing an action; Name is shown to the other admins.
type Actor struct {
	ID   int64
	Name string
}

// Upload describes a file the customer sent as a receipt.
type Upload struct {
	FileID string
	Kind   models.ReceiptKind
	Size   int64
}

type Deps struct {
	Orders          OrderStore
	Ledger          ledger.Ledger
	Forms           FormRenderer
	Notifier        *notify.Dispatcher
	Render          *render.Renderer
	Admins          []int64
	MaxReceiptBytes int64
	Metrics         *metrics.Metrics
	Logger          *logger.Logger
	Now             func() time.Time
}

// Service never holds locks of its own: every status change goes through the
// store's guarded transition, and only the caller that wins it performs the
// side effects.
type Service struct {
	orders     OrderStore
	ledger     ledger.Ledger
	forms      FormRenderer
	notifier   *notify.Dispatcher
	render     *render.Renderer
	admins     []int64
	maxReceipt int64
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		orders:     d.Orders,
		ledger:     d.Ledger,
		forms:      d.Forms,
		notifier:   d.Notifier,
		render:     d.Render,
		admins:     d.Admins,
		maxReceipt: d.MaxReceiptBytes,
		metrics:    d.Metrics,
		log:        d.Logger,
		now:        d.Now,
	}
	if s.ledger == nil {
		s.ledger = ledger.Nop{}
	}
	if s.maxReceipt <= 0 {
		s.maxReceipt = DefaultMaxReceiptBytes
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

var awaitingPayment = []models.Status{models.StatusPendingPayment, models.StatusPaymentRejected}

// Resume returns the payment state for the customer's newest unpaid order,
// for a receipt that arrives after the conversation moved elsewhere.
func (s *Service) Resume(ctx context.Context, userID int64) (conversation.State, bool, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindDependency, err, "listing customer orders")
	}
	for _, o := range orders {
		if o.Status == models.StatusPendingPayment || o.Status == models.StatusPaymentRejected {
			return conversation.AwaitingPayment{OrderNumber: o.Number, ReceiptSubmitted: o.Receipt != nil}, true, nil
		}
	}
	return nil, false, nil
}

// UploadReceipt takes a candidate receipt and asks the customer to confirm
// it. A new upload while a candidate is pending replaces it.
func (s *Service) UploadReceipt(ctx context.Context, userID int64, st conversation.State, up Upload) (conversation.State, error) {
	var (
		number    string
		submitted bool
	)
	switch cur := st.(type) {
	case conversation.AwaitingPayment:
		number, submitted = cur.OrderNumber, cur.ReceiptSubmitted
	case conversation.AwaitingReceiptConfirmation:
		number, submitted = cur.OrderNumber, cur.ReceiptSubmitted
	default:
		return st, ErrWrongState
	}
	if up.Size > s.maxReceipt {
		return st, ErrReceiptTooLarge
	}
	if up.FileID == "" || (up.Kind != models.ReceiptPhoto && up.Kind != models.ReceiptDocument) {
		return st, ErrUnsupportedReceipt
	}
	if _, err := s.openOrder(ctx, userID, number); err != nil {
		return nil, err
	}
	return conversation.AwaitingReceiptConfirmation{
		OrderNumber:      number,
		Candidate:        models.ReceiptRef{FileID: up.FileID, Kind: up.Kind},
		ReceiptSubmitted: submitted,
	}, nil
}

// DiscardReceipt drops the pending candidate without side effects.
func (s *Service) DiscardReceipt(st conversation.State) (conversation.State, error) {
	cur, ok := st.(conversation.AwaitingReceiptConfirmation)
	if !ok {
		return st, ErrWrongState
	}
	return conversation.AwaitingPayment{OrderNumber: cur.OrderNumber, ReceiptSubmitted: cur.ReceiptSubmitted}, nil
}

// ConfirmReceipt attaches the candidate to the order and asks every admin to
// check the payment. A rejected order goes back to waiting for payment.
func (s *Service) ConfirmReceipt(ctx context.Context, userID int64, st conversation.State) (conversation.State, error) {
	cur, ok := st.(conversation.AwaitingReceiptConfirmation)
	if !ok {
		return st, ErrWrongState
	}
	ctx = s.log.WithOrder(ctx, cur.OrderNumber)
	if _, err := s.openOrder(ctx, userID, cur.OrderNumber); err != nil {
		return nil, err
	}

	receipt := cur.Candidate
	order, err := s.orders.TransitionStatus(ctx, cur.OrderNumber, models.Transition{
		From:    awaitingPayment,
		To:      models.StatusPendingPayment,
		ActorID: userID,
		Receipt: &receipt,
		At:      s.now(),
	})
	if err != nil {
		var conflict *db.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.IncConflict("receipt")
			return nil, &GoneError{Order: &models.Order{Number: conflict.Number, Status: conflict.Current}}
		}
		return st, apperr.Wrap(apperr.KindDependency, err, "attaching receipt")
	}
	s.log.Info(ctx, "receipt submitted")

	if err := s.notifier.Broadcast(ctx, s.admins, s.render.AdminReceiptNotice(order)); err != nil {
		s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "receipt notice not delivered to every admin")
	}
	return conversation.AwaitingPayment{OrderNumber: order.Number, ReceiptSubmitted: true}, nil
}

// Confirm marks the order paid. Of any number of concurrent confirm and
// reject calls on one order exactly one succeeds; the rest get a
// *HandledError and cause no side effects.
func (s *Service) Confirm(ctx context.Context, admin Actor, number string) (*models.Order, error) {
	ctx = s.log.WithOrder(s.log.WithUserID(ctx, admin.ID), number)
	order, err := s.orders.TransitionStatus(ctx, number, models.Transition{
		From:    awaitingPayment,
		To:      models.StatusPaid,
		ActorID: admin.ID,
		At:      s.now(),
	})
	if err != nil {
		return nil, s.adminError(ctx, "confirm", err)
	}
	s.metrics.IncTransition(string(models.StatusPaid))
	s.log.Info(ctx, "payment confirmed")

	if err := s.ledger.Record(ctx, order); err != nil {
		s.metrics.IncLedgerFailure()
		s.log.Error(ctx, "ledger export failed", err)
	}
	var formPath string
	if s.forms != nil {
		path, err := s.forms.Render(ctx, order)
		if err != nil {
			s.log.Error(ctx, "order form generation failed", err)
		}
		formPath = path
	}

	s.notifier.Send(ctx, order.UserID, s.render.CustomerPaid(order))
	s.notifier.Send(ctx, admin.ID, s.render.AdminPaid(order, formPath))
	if err := s.notifier.Broadcast(ctx, notify.Others(s.admins, admin.ID), s.render.AdminPaidByOther(order, admin.Name)); err != nil {
		s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "confirmation not delivered to every admin")
	}
	return order, nil
}

// Reject marks the payment as not received and invites the customer to send
// another receipt. Only orders still waiting for payment can be rejected.
func (s *Service) Reject(ctx context.Context, admin Actor, number string) (*models.Order, error) {
	ctx = s.log.WithOrder(s.log.WithUserID(ctx, admin.ID), number)
	order, err := s.orders.TransitionStatus(ctx, number, models.Transition{
		From:    []models.Status{models.StatusPendingPayment},
		To:      models.StatusPaymentRejected,
		ActorID: admin.ID,
		At:      s.now(),
	})
	if err != nil {
		return nil, s.adminError(ctx, "reject", err)
	}
	s.metrics.IncTransition(string(models.StatusPaymentRejected))
	s.log.Info(ctx, "payment rejected")

	s.notifier.Send(ctx, order.UserID, s.render.CustomerRejected(order))
	s.notifier.Send(ctx, admin.ID, s.render.AdminRejected(order))
	if err := s.notifier.Broadcast(ctx, notify.Others(s.admins, admin.ID), s.render.AdminRejectedByOther(order, admin.Name)); err != nil {
		s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "rejection not delivered to every admin")
	}
	return order, nil
}

// Complete records that a paid order was picked up.
func (s *Service) Complete(ctx context.Context, admin Actor, number string) (*models.Order, error) {
	ctx = s.log.WithOrder(s.log.WithUserID(ctx, admin.ID), number)
	order, err := s.orders.TransitionStatus(ctx, number, models.Transition{
		From:    []models.Status{models.StatusPaid},
		To:      models.StatusCompleted,
		ActorID: admin.ID,
		At:      s.now(),
	})
	if err != nil {
		return nil, s.adminError(ctx, "complete", err)
	}
	s.metrics.IncTransition(string(models.StatusCompleted))
	s.log.Info(ctx, "order completed")

	if err := s.ledger.Update(ctx, order); err != nil {
		s.metrics.IncLedgerFailure()
		s.log.Error(ctx, "ledger update failed", err)
	}
	return order, nil
}

// openOrder loads the order behind a receipt action and checks that it
// still belongs to the customer and still waits for payment.
func (s *Service) openOrder(ctx context.Context, userID int64, number string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, number)
	if errors.Is(err, db.ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, err, "loading order")
	}
	if order.UserID != userID {
		return nil, ErrNotOwner
	}
	if order.Status != models.StatusPendingPayment && order.Status != models.StatusPaymentRejected {
		return nil, &GoneError{Order: order}
	}
	return order, nil
}

func (s *Service) adminError(ctx context.Context, action string, err error) error {
	var conflict *db.ConflictError
	switch {
	case errors.As(err, &conflict):
		s.metrics.IncConflict(action)
		s.log.Info(s.log.WithField(ctx, "current", string(conflict.Current)), action+" lost to an earlier action")
		return &HandledError{Number: conflict.Number, Current: conflict.Current}
	case errors.Is(err, db.ErrOrderNotFound):
		return err
	default:
		s.log.Error(ctx, action+" failed", err)
		return apperr.Wrap(apperr.KindDependency, err, action+" order")
	}
}
