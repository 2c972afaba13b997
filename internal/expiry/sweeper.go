// Package expiry cancels orders that were not paid in time.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/kuznetsov-tulips/tulip-bot/internal/db"
	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/metrics"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
	"github.com/kuznetsov-tulips/tulip-bot/internal/render"
)

const (
	JobName = "expire_unpaid_orders"

	DefaultInterval = 30 * time.Minute
	DefaultTimeout  = 24 * time.Hour
)

type OrderStore interface {
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.Order, error)
	TransitionStatus(ctx context.Context, number string, t models.Transition) (*models.Order, error)
}

type Deps struct {
	Orders   OrderStore
	Notifier *notify.Dispatcher
	Render   *render.Renderer
	Lock     Lock
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Interval time.Duration
	Timeout  time.Duration
	Now      func() time.Time
}

type Sweeper struct {
	orders   OrderStore
	notifier *notify.Dispatcher
	render   *render.Renderer
	lock     Lock
	metrics  *metrics.Metrics
	log      *logger.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

func NewSweeper(d Deps) *Sweeper {
	s := &Sweeper{
		orders:   d.Orders,
		notifier: d.Notifier,
		render:   d.Render,
		lock:     d.Lock,
		metrics:  d.Metrics,
		log:      d.Logger,
		interval: d.Interval,
		timeout:  d.Timeout,
		now:      d.Now,
	}
	if s.lock == nil {
		s.lock = NopLock{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Run sweeps once right away and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ctx = s.log.WithField(ctx, "job", JobName)
	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Sweeper) cycle(ctx context.Context) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.log.Error(ctx, "sweeper lock acquire failed", err)
		return
	}
	if !locked {
		s.log.Info(ctx, "another instance is sweeping; skipping this cycle")
		return
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.log.Error(ctx, "sweeper lock release failed", err)
		}
	}()

	start := time.Now()
	cancelled, err := s.RunOnce(ctx)
	duration := time.Since(start)
	s.metrics.ObserveJob(JobName, duration, err)

	ctx = s.log.WithFields(ctx, map[string]any{
		"cancelled":   cancelled,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		s.log.Error(ctx, "sweep finished with errors", err)
		return
	}
	s.log.Debug(ctx, "sweep complete")
}

// RunOnce cancels every pending_payment order older than the payment
// timeout and tells its customer. Orders are handled independently; the
// returned error combines the ones that failed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	pending, err := s.orders.ListByStatus(ctx, models.StatusPendingPayment)
	if err != nil {
		return 0, fmt.Errorf("listing unpaid orders: %w", err)
	}

	now := s.now()
	var (
		cancelled int
		errs      error
	)
	for _, o := range pending {
		if now.Sub(o.CreatedAt) <= s.timeout {
			continue
		}
		orderCtx := s.log.WithOrder(ctx, o.Number)
		order, err := s.orders.TransitionStatus(orderCtx, o.Number, models.Transition{
			From:   []models.Status{models.StatusPendingPayment},
			To:     models.StatusCancelled,
			Reason: models.CancelReasonTimeout,
			At:     now,
		})
		if errors.Is(err, db.ErrStatusConflict) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expiring order %s: %w", o.Number, err))
			continue
		}
		cancelled++
		s.metrics.IncTransition(string(models.StatusCancelled))
		s.log.Info(orderCtx, "unpaid order expired")
		s.notifier.Send(orderCtx, order.UserID, s.render.Expired(order))
	}
	return cancelled, errs
}
