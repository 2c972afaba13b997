package orderform

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/render"
)

func TestRenderWritesForm(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "forms")
	g := New(dir, render.New(render.Options{}), "ул. Цветочная, 1")

	order := &models.Order{
		Number:    "012",
		Items:     models.LineItems{{Variant: 2, Quantity: 15, Count: 1}, {Variant: 5, Quantity: 25, Count: 3}},
		PickupAt:  time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC),
		Recipient: models.PersonName{First: "Иван", Last: "Иванов"},
		Phone:     "+79991234567",
		Total:     decimal.NewFromInt(10800),
		Status:    models.StatusPaid,
	}

	path, err := g.Render(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "order_012.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	cell := func(name string) string {
		v, err := f.GetCellValue(sheetName, name)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "БЛАНК ЗАКАЗА №012", cell("A1"))
	assert.Equal(t, "Иванов Иван", cell("B3"))
	assert.Equal(t, "+79991234567", cell("B4"))
	assert.Equal(t, "ул. Цветочная, 1", cell("B6"))
	assert.Equal(t, "10 800 ₽", cell("B7"))
	assert.Equal(t, "Вариант", cell("A9"))
	assert.Equal(t, "№2 «Красный»", cell("A10"))
	assert.Equal(t, "3", cell("C11"))
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(t.TempDir(), render.New(render.Options{}), "").Render(ctx, &models.Order{Number: "001"})
	assert.ErrorIs(t, err, context.Canceled)
}
