// Package ledger exports paid and refunded orders to the shop's spreadsheet.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

// Ledger is invoked only after a status transition has been committed; its
// errors are logged by the caller and never roll the transition back.
type Ledger interface {
	Record(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
}

type Nop struct{}

func (Nop) Record(context.Context, *models.Order) error { return nil }
func (Nop) Update(context.Context, *models.Order) error { return nil }

const columns = 14

// Row lays an order out the way the sheet is kept by hand: status, number,
// pickup date, pickup time, last name, first name, username, variants,
// tulips per bouquet, bouquet count, total, paid flag, created at and refund
// account.
func Row(order *models.Order, cat *catalog.Catalog, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	var variants, sizes, counts []string
	for _, item := range order.Items {
		variants = append(variants, fmt.Sprintf("№%d %s", item.Variant, cat.Name(item.Variant)))
		sizes = append(sizes, strconv.Itoa(item.Quantity))
		counts = append(counts, strconv.Itoa(item.Count))
	}
	pickup := order.PickupAt.In(loc)
	username := ""
	if order.Username != "" {
		username = "@" + order.Username
	}
	paid := "нет"
	if order.Status == models.StatusPaid || order.Status == models.StatusCompleted {
		paid = "да"
	}
	return []any{
		statusText(order),
		order.Number,
		pickup.Format("02.01.2006"),
		pickup.Format("15:04"),
		order.Recipient.Last,
		order.Recipient.First,
		username,
		strings.Join(variants, "; "),
		strings.Join(sizes, "; "),
		strings.Join(counts, "; "),
		order.Total.StringFixed(2),
		paid,
		order.CreatedAt.In(loc).Format("02.01.2006 15:04"),
		order.RefundAccount,
	}
}

func statusText(order *models.Order) string {
	switch order.Status {
	case models.StatusPendingPayment:
		return "Ожидает оплаты"
	case models.StatusPaymentRejected:
		return "Оплата отклонена"
	case models.StatusPaid:
		return "Оплачен"
	case models.StatusCompleted:
		return "Выдан"
	case models.StatusCancelled:
		if order.CancelReason == models.CancelReasonRefund {
			return "Отменён, возврат"
		}
		return "Отменён"
	default:
		return string(order.Status)
	}
}
