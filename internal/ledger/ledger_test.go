package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type fakeValues struct {
	rows      [][]any
	appended  []string
	updated   []string
	appendErr error
}

func (f *fakeValues) Append(_ context.Context, rng string, rows [][]any) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, rng)
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeValues) Get(_ context.Context, _ string) ([][]any, error) {
	out := make([][]any, len(f.rows))
	for i, row := range f.rows {
		out[i] = []any{row[1]}
	}
	return out, nil
}

func (f *fakeValues) Update(_ context.Context, rng string, rows [][]any) error {
	f.updated = append(f.updated, rng)
	var n int
	if _, err := fmt.Sscanf(rng, "'Заказы'!A%d:", &n); err != nil {
		return err
	}
	f.rows[n-1] = rows[0]
	return nil
}

func paidOrder(t *testing.T) *models.Order {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Saratov")
	require.NoError(t, err)
	return &models.Order{
		Number:    "007",
		UserID:    42,
		Username:  "ivan",
		Items:     models.LineItems{{Variant: 2, Quantity: 15, Count: 1}, {Variant: 1, Quantity: 25, Count: 2}},
		PickupAt:  time.Date(2026, 3, 7, 10, 0, 0, 0, loc).UTC(),
		Recipient: models.PersonName{First: "Иван", Last: "Иванов"},
		Phone:     "+79991234567",
		Total:     decimal.NewFromInt(7800),
		Status:    models.StatusPaid,
		CreatedAt: time.Date(2026, 3, 5, 9, 30, 0, 0, loc).UTC(),
	}
}

func TestRowLayout(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Saratov")
	require.NoError(t, err)
	row := Row(paidOrder(t), catalog.Default(), loc)

	require.Len(t, row, columns)
	assert.Equal(t, []any{
		"Оплачен", "007", "07.03.2026", "10:00", "Иванов", "Иван", "@ivan",
		"№2 Красный; №1 Микс", "15; 25", "1; 2", "7800.00", "да", "05.03.2026 09:30", "",
	}, row)
}

func TestSheetsRecordAndUpdate(t *testing.T) {
	values := &fakeValues{}
	s := newSheets(values, "", nil, time.UTC)
	ctx := context.Background()

	order := paidOrder(t)
	require.NoError(t, s.Record(ctx, order))
	require.Equal(t, []string{"'Заказы'!A:N"}, values.appended)

	order.Status = models.StatusCancelled
	order.CancelReason = models.CancelReasonRefund
	order.RefundAccount = "2202 2000 0000 0000"
	require.NoError(t, s.Update(ctx, order))

	assert.Equal(t, []string{"'Заказы'!A1:N1"}, values.updated)
	require.Len(t, values.rows, 1)
	assert.Equal(t, "Отменён, возврат", values.rows[0][0])
	assert.Equal(t, "нет", values.rows[0][11])
	assert.Equal(t, "2202 2000 0000 0000", values.rows[0][13])
}

func TestSheetsUpdateAppendsUnknownOrder(t *testing.T) {
	values := &fakeValues{}
	s := newSheets(values, "", nil, time.UTC)

	require.NoError(t, s.Update(context.Background(), paidOrder(t)))
	assert.Len(t, values.appended, 1)
	assert.Empty(t, values.updated)
}

func TestSheetsRecordWrapsError(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := newSheets(&fakeValues{appendErr: boom}, "", nil, time.UTC)

	err := s.Record(context.Background(), paidOrder(t))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "007")
}

func TestNewSheetsRequiresConfig(t *testing.T) {
	_, err := NewSheets(context.Background(), SheetsConfig{}, nil, nil)
	assert.ErrorIs(t, err, errNotConfigured)
}
