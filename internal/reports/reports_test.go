package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type fakeLister struct {
	orders []models.Order
}

func (f fakeLister) ListAll(context.Context) ([]models.Order, error) {
	return f.orders, nil
}

func (f fakeLister) ListByStatus(_ context.Context, statuses ...models.Status) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func order(number string, status models.Status, total int64, bundles int, pickup, created time.Time) models.Order {
	return models.Order{
		Number:    number,
		Status:    status,
		Total:     decimal.NewFromInt(total),
		Items:     models.LineItems{{Variant: 1, Quantity: 15, Count: bundles}},
		PickupAt:  pickup,
		CreatedAt: created,
	}
}

func TestServiceQueries(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Saratov")
	require.NoError(t, err)
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, loc)
	today := func(h int) time.Time { return time.Date(2026, 3, 7, h, 0, 0, 0, loc).UTC() }

	lister := fakeLister{orders: []models.Order{
		order("005", models.StatusPaid, 3000, 1, today(15), now.Add(-time.Hour)),
		order("004", models.StatusPendingPayment, 1800, 1, today(12), now.Add(-20*time.Hour)),
		order("003", models.StatusPaid, 3600, 2, today(10), now.Add(-30*time.Hour)),
		order("002", models.StatusCompleted, 1800, 1, today(9).AddDate(0, 0, -1), now.Add(-48*time.Hour)),
		order("001", models.StatusCancelled, 1800, 1, today(9), now.Add(-72*time.Hour)),
	}}
	svc := NewService(lister, loc, 24*time.Hour)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[models.StatusPaid])
	assert.True(t, decimal.NewFromInt(8400).Equal(stats.Revenue), stats.Revenue.String())
	assert.Equal(t, 4, stats.Bouquets)

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "005", recent[0].Number)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 4*time.Hour, pending[0].TimeLeft)

	pickups, err := svc.Today(ctx)
	require.NoError(t, err)
	require.Len(t, pickups, 2)
	assert.Equal(t, "003", pickups[0].Number)
	assert.Equal(t, "005", pickups[1].Number)
}
