package render

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuznetsov-tulips/tulip-bot/internal/callback"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
	"github.com/kuznetsov-tulips/tulip-bot/internal/reports"
)

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"0":       "0 ₽",
		"900":     "900 ₽",
		"1800":    "1 800 ₽",
		"12600":   "12 600 ₽",
		"1234567": "1 234 567 ₽",
		"1800.5":  "1 800,50 ₽",
		"-3000":   "-3 000 ₽",
	}
	for in, want := range cases {
		assert.Equal(t, want, Money(decimal.RequireFromString(in)), in)
	}
}

func TestPlural(t *testing.T) {
	for n, want := range map[int]string{
		1: "1 букет", 2: "2 букета", 4: "4 букета", 5: "5 букетов",
		11: "11 букетов", 14: "14 букетов", 21: "21 букет", 22: "22 букета", 111: "111 букетов",
	} {
		assert.Equal(t, want, Bouquets(n))
	}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Saratov")
	require.NoError(t, err)
	return New(Options{Location: loc, AdminContacts: []string{"@anna", "@boris"}})
}

func TestDateLabels(t *testing.T) {
	r := newRenderer(t)
	at := time.Date(2026, 3, 7, 6, 0, 0, 0, time.UTC)

	assert.Equal(t, "7 марта (сб)", r.DateLabel(at))
	assert.Equal(t, "7 марта (сб), с 10:00 до 11:00", r.SlotLabel(at))
	assert.Equal(t, "07.03.2026 10:00", r.Timestamp(at))
}

func TestMoreItemsButtonsNameTheLine(t *testing.T) {
	r := New(Options{})
	items := models.LineItems{{Variant: 1, Quantity: 15, Count: 1}, {Variant: 2, Quantity: 25, Count: 2}}
	msg := r.MoreItemsPrompt(items, decimal.NewFromInt(7800))

	require.Len(t, msg.Buttons, 4)
	assert.Equal(t, callback.Encode(callback.Item, "2", "25", "-1"), msg.Buttons[1][0].Data)
	assert.Equal(t, callback.Encode(callback.Item, "2", "25", "+1"), msg.Buttons[1][1].Data)
}

func TestItemLine(t *testing.T) {
	r := newRenderer(t)
	assert.Equal(t, "№2 «Красный» – 15 шт. – 1 букет", r.ItemLine(models.LineItem{Variant: 2, Quantity: 15, Count: 1}))
	assert.Equal(t, "№9 «Вариант 9» – 25 шт. – 3 букета", r.ItemLine(models.LineItem{Variant: 9, Quantity: 25, Count: 3}))
}

func sampleOrder(status models.Status) models.Order {
	return models.Order{
		Number:    "004",
		UserID:    1,
		Items:     models.LineItems{{Variant: 1, Quantity: 25, Count: 2}},
		PickupAt:  time.Date(2026, 3, 7, 6, 0, 0, 0, time.UTC),
		Recipient: models.PersonName{First: "Мария", Last: "Петрова"},
		Phone:     "+79990000000",
		Total:     decimal.NewFromInt(6000),
		Status:    status,
	}
}

func TestMyOrdersOffersCancelForPaidOnly(t *testing.T) {
	r := newRenderer(t)
	paid := sampleOrder(models.StatusPaid)
	pending := sampleOrder(models.StatusPendingPayment)
	pending.Number = "005"

	msg := r.MyOrders([]models.Order{pending, paid})
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, callback.Encode(callback.RefundBegin, "004"), msg.Buttons[0][0].Data)
	assert.Contains(t, msg.Text, "Заказ №005")

	empty := r.MyOrders(nil)
	assert.Equal(t, "У вас пока нет заказов.", empty.Text)
}

func TestAdminReceiptNotice(t *testing.T) {
	r := newRenderer(t)
	order := sampleOrder(models.StatusPendingPayment)
	order.Receipt = &models.ReceiptRef{FileID: "file-1", Kind: models.ReceiptPhoto}

	msg := r.AdminReceiptNotice(&order)
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, notify.Attachment{Kind: notify.AttachmentPhoto, FileID: "file-1"}, *msg.Attachment)
	assert.Equal(t, callback.Encode(callback.AdminConfirm, "004"), msg.Buttons[0][0].Data)
	assert.Equal(t, callback.Encode(callback.AdminReject, "004"), msg.Buttons[0][1].Data)
	assert.Contains(t, msg.Text, "Петрова Мария")
	assert.Contains(t, msg.Text, "6 000 ₽")
}

func TestOrderGone(t *testing.T) {
	r := newRenderer(t)
	cancelled := sampleOrder(models.StatusCancelled)

	assert.Contains(t, r.OrderGone(&cancelled).Text, "Заказ №004 отменён")
	assert.Contains(t, r.OrderGone(nil).Text, "больше не ожидает оплаты")
}

func TestTimeLeft(t *testing.T) {
	assert.Equal(t, "5 ч 20 мин", TimeLeft(5*time.Hour+20*time.Minute))
	assert.Equal(t, "45 мин", TimeLeft(45*time.Minute))
	assert.Equal(t, "истекло", TimeLeft(-time.Minute))
}

func TestAdminStats(t *testing.T) {
	r := newRenderer(t)
	text := r.AdminStats(reports.Summarize([]models.Order{
		sampleOrder(models.StatusPaid),
		sampleOrder(models.StatusCompleted),
		sampleOrder(models.StatusCancelled),
	}))

	assert.Contains(t, text, "Всего заказов: 3")
	assert.Contains(t, text, "Оплачено букетов: 4 букета")
	assert.Contains(t, text, "Выручка: 12 000 ₽")
}

func TestAdminOrderShowsHistory(t *testing.T) {
	r := newRenderer(t)
	order := sampleOrder(models.StatusCancelled)
	order.CancelReason = models.CancelReasonRefund
	order.RefundAccount = "2202"
	order.History = []models.StatusChange{
		{To: models.StatusPendingPayment, At: time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)},
		{From: models.StatusPendingPayment, To: models.StatusCancelled, Reason: models.CancelReasonRefund,
			At: time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)},
	}

	text := r.AdminOrder(&order)
	assert.Contains(t, text, "Реквизиты для возврата: 2202")
	assert.Contains(t, text, "03.03.2026 10:00 — ❌ Отменён (отменён клиентом с возвратом)")
}
