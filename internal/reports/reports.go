package reports

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type OrderLister interface {
	ListAll(ctx context.Context) ([]models.Order, error)
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.Order, error)
}

type Stats struct {
	Total    int
	ByStatus map[models.Status]int
	// Revenue and Bouquets count paid and completed orders only.
	Revenue  decimal.Decimal
	Bouquets int
}

type PendingEntry struct {
	Order    models.Order
	TimeLeft time.Duration
}

// Service answers the admin console queries.
type Service struct {
	orders         OrderLister
	loc            *time.Location
	paymentTimeout time.Duration
	now            func() time.Time
}

func NewService(orders OrderLister, loc *time.Location, paymentTimeout time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{orders: orders, loc: loc, paymentTimeout: paymentTimeout, now: time.Now}
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(orders), nil
}

// Recent returns the newest limit orders.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Service) Paid(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListByStatus(ctx, models.StatusPaid)
}

// Pending lists unpaid orders with the time left before they expire.
func (s *Service) Pending(ctx context.Context) ([]PendingEntry, error) {
	orders, err := s.orders.ListByStatus(ctx, models.StatusPendingPayment, models.StatusPaymentRejected)
	if err != nil {
		return nil, err
	}
	return PendingWithDeadline(orders, s.now(), s.paymentTimeout), nil
}

// Today lists paid orders to be picked up today, earliest first.
func (s *Service) Today(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListByStatus(ctx, models.StatusPaid)
	if err != nil {
		return nil, err
	}
	return PickupsOn(orders, s.now(), s.loc), nil
}

func Summarize(orders []models.Order) Stats {
	stats := Stats{ByStatus: map[models.Status]int{}, Revenue: decimal.Zero}
	for _, o := range orders {
		stats.Total++
		stats.ByStatus[o.Status]++
		if o.Status == models.StatusPaid || o.Status == models.StatusCompleted {
			stats.Revenue = stats.Revenue.Add(o.Total)
			stats.Bouquets += o.Items.Bundles()
		}
	}
	return stats
}

func PendingWithDeadline(orders []models.Order, now time.Time, timeout time.Duration) []PendingEntry {
	entries := make([]PendingEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, PendingEntry{Order: o, TimeLeft: o.CreatedAt.Add(timeout).Sub(now)})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].TimeLeft < entries[j].TimeLeft })
	return entries
}

func PickupsOn(orders []models.Order, day time.Time, loc *time.Location) []models.Order {
	y, m, d := day.In(loc).Date()
	var out []models.Order
	for _, o := range orders {
		py, pm, pd := o.PickupAt.In(loc).Date()
		if py == y && pm == m && pd == d {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PickupAt.Before(out[j].PickupAt) })
	return out
}
