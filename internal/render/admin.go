package render

import (
	"fmt"
	"strings"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/reports"
)

func (r *Renderer) AdminHelp() string {
	return "Команды администратора:\n" +
		"/orders — последние заказы\n" +
		"/pending — ожидают оплаты, с временем до отмены\n" +
		"/paid — оплаченные заказы\n" +
		"/today — самовывоз сегодня\n" +
		"/stats — статистика\n" +
		"/order 001 — карточка заказа\n" +
		"/done 001 — отметить заказ выданным\n" +
		"/stock 3 off — снять вариант с продажи (on — вернуть)"
}

// AdminOrders renders a compact list, one order per line.
func (r *Renderer) AdminOrders(title string, orders []models.Order) string {
	if len(orders) == 0 {
		return title + "\n\nЗаказов нет."
	}
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "\n№%s %s · %s · %s · %s",
			o.Number, StatusLabel(o.Status), Recipient(o.Recipient), r.SlotLabel(o.PickupAt), Money(o.Total))
	}
	return b.String()
}

func (r *Renderer) AdminPending(entries []reports.PendingEntry) string {
	if len(entries) == 0 {
		return "⏳ Неоплаченных заказов нет."
	}
	var b strings.Builder
	b.WriteString("⏳ Ожидают оплаты:\n")
	for _, e := range entries {
		receipt := "чека нет"
		if e.Order.Receipt != nil {
			receipt = "чек получен"
		}
		fmt.Fprintf(&b, "\n№%s · %s · %s · %s · до отмены %s",
			e.Order.Number, Recipient(e.Order.Recipient), Money(e.Order.Total), receipt, TimeLeft(e.TimeLeft))
	}
	return b.String()
}

// AdminPickups lists today's pickups with their bouquets, for the florist.
func (r *Renderer) AdminPickups(orders []models.Order) string {
	if len(orders) == 0 {
		return "📦 Сегодня самовывозов нет."
	}
	var b strings.Builder
	b.WriteString("📦 Самовывоз сегодня:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "\n%02d:00 · №%s · %s · %s\n%s\n",
			r.local(o.PickupAt).Hour(), o.Number, Recipient(o.Recipient), o.Phone, r.ItemLines(o.Items))
	}
	return strings.TrimRight(b.String(), "\n")
}

var statsOrder = []models.Status{
	models.StatusPendingPayment,
	models.StatusPaymentRejected,
	models.StatusPaid,
	models.StatusCompleted,
	models.StatusCancelled,
}

func (r *Renderer) AdminStats(s reports.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Всего заказов: %d\n", s.Total)
	for _, status := range statsOrder {
		fmt.Fprintf(&b, "%s: %d\n", StatusLabel(status), s.ByStatus[status])
	}
	fmt.Fprintf(&b, "\nОплачено букетов: %s\nВыручка: %s", Bouquets(s.Bouquets), Money(s.Revenue))
	return b.String()
}

// AdminOrder is the full card with the status history.
func (r *Renderer) AdminOrder(order *models.Order) string {
	var b strings.Builder
	b.WriteString(r.OrderCard(order))
	fmt.Fprintf(&b, "\n🔹 Оформлен: %s", r.Timestamp(order.CreatedAt))
	if order.Receipt != nil {
		b.WriteString("\n🔹 Чек: получен")
	}
	if len(order.History) > 0 {
		b.WriteString("\n\nИстория:")
		for _, h := range order.History {
			fmt.Fprintf(&b, "\n%s — %s", r.Timestamp(h.At), StatusLabel(h.To))
			if reason := CancelReasonLabel(h.Reason); reason != "" {
				fmt.Fprintf(&b, " (%s)", reason)
			}
		}
	}
	return b.String()
}

func (r *Renderer) StockChanged(variantID int, available bool) string {
	if available {
		return fmt.Sprintf("✅ %s снова в продаже.", r.VariantLabel(variantID))
	}
	return fmt.Sprintf("🚫 %s снят с продажи.", r.VariantLabel(variantID))
}

func (r *Renderer) OrderCompleted(order *models.Order) string {
	return fmt.Sprintf("🎉 Заказ №%s отмечен выданным.", order.Number)
}
