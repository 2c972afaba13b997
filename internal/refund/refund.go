// Package refund lets a customer cancel a paid order and get the money back,
// as long as pickup is far enough away.
package refund

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

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

const (
	DefaultWindow = 48 * time.Hour

	maxAccountLength = 100
)

var (
	ErrWrongState     = apperr.New(apperr.KindGuard, "no refund in progress")
	ErrNotOwner       = apperr.New(apperr.KindForbidden, "order belongs to another customer")
	ErrNotPaid        = apperr.New(apperr.KindGuard, "only paid orders can be cancelled with a refund")
	ErrTooLate        = apperr.New(apperr.KindGuard, "pickup is too close for a refund")
	ErrInvalidAccount = apperr.New(apperr.KindValidation, "refund account is empty or too long")
)

type OrderStore interface {
	GetOrder(ctx context.Context, number string) (*models.Order, error)
	TransitionStatus(ctx context.Context, number string, t models.Transition) (*models.Order, error)
}

type Deps struct {
	Orders   OrderStore
	Ledger   ledger.Ledger
	Notifier *notify.Dispatcher
	Render   *render.Renderer
	Admins   []int64
	Window   time.Duration
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type Flow struct {
	orders   OrderStore
	ledger   ledger.Ledger
	notifier *notify.Dispatcher
	render   *render.Renderer
	admins   []int64
	window   time.Duration
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewFlow(d Deps) *Flow {
	f := &Flow{
		orders:   d.Orders,
		ledger:   d.Ledger,
		notifier: d.Notifier,
		render:   d.Render,
		admins:   d.Admins,
		window:   d.Window,
		metrics:  d.Metrics,
		log:      d.Logger,
		now:      d.Now,
	}
	if f.ledger == nil {
		f.ledger = ledger.Nop{}
	}
	if f.window <= 0 {
		f.window = DefaultWindow
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Begin opens the refund dialogue for a paid order the customer owns. The
// returned order is meant for the confirmation prompt.
func (f *Flow) Begin(ctx context.Context, userID int64, number string) (conversation.State, *models.Order, error) {
	order, err := f.eligible(ctx, userID, number)
	if err != nil {
		return nil, order, err
	}
	return conversation.ConfirmingCancellation{OrderNumber: number}, order, nil
}

// Decide handles the customer's answer. Declining ends the dialogue with a
// nil state and leaves the order untouched.
func (f *Flow) Decide(ctx context.Context, userID int64, st conversation.State, cancel bool) (conversation.State, error) {
	cur, ok := st.(conversation.ConfirmingCancellation)
	if !ok {
		return st, ErrWrongState
	}
	if !cancel {
		return nil, nil
	}
	if _, err := f.eligible(ctx, userID, cur.OrderNumber); err != nil {
		return nil, err
	}
	return conversation.EnteringRefundAccount{OrderNumber: cur.OrderNumber}, nil
}

// SubmitAccount cancels the order with the given refund account and tells
// the admins where to send the money.
func (f *Flow) SubmitAccount(ctx context.Context, userID int64, st conversation.State, account string) (*models.Order, error) {
	cur, ok := st.(conversation.EnteringRefundAccount)
	if !ok {
		return nil, ErrWrongState
	}
	account = strings.TrimSpace(account)
	if account == "" || utf8.RuneCountInString(account) > maxAccountLength {
		return nil, ErrInvalidAccount
	}
	ctx = f.log.WithOrder(f.log.WithUserID(ctx, userID), cur.OrderNumber)
	if _, err := f.eligible(ctx, userID, cur.OrderNumber); err != nil {
		return nil, err
	}

	order, err := f.orders.TransitionStatus(ctx, cur.OrderNumber, models.Transition{
		From:          []models.Status{models.StatusPaid},
		To:            models.StatusCancelled,
		Reason:        models.CancelReasonRefund,
		ActorID:       userID,
		RefundAccount: account,
		At:            f.now(),
	})
	if err != nil {
		if errors.Is(err, db.ErrStatusConflict) {
			f.metrics.IncConflict("refund")
			return nil, ErrNotPaid
		}
		return nil, apperr.Wrap(apperr.KindDependency, err, "cancelling order")
	}
	f.metrics.IncTransition(string(models.StatusCancelled))
	f.log.Info(ctx, "order cancelled with refund")

	if err := f.ledger.Update(ctx, order); err != nil {
		f.metrics.IncLedgerFailure()
		f.log.Error(ctx, "ledger update failed", err)
	}
	if err := f.notifier.Broadcast(ctx, f.admins, f.render.AdminRefundNotice(order)); err != nil {
		f.log.Warn(f.log.WithField(ctx, "error", err.Error()), "refund notice not delivered to every admin")
	}
	return order, nil
}

func (f *Flow) eligible(ctx context.Context, userID int64, number string) (*models.Order, error) {
	order, err := f.orders.GetOrder(ctx, number)
	if errors.Is(err, db.ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDependency, err, "loading order")
	}
	if order.UserID != userID {
		return nil, ErrNotOwner
	}
	if order.Status != models.StatusPaid {
		return order, ErrNotPaid
	}
	if order.PickupAt.Sub(f.now()) < f.window {
		return order, ErrTooLate
	}
	return order, nil
}
