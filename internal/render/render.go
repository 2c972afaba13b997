// Package render builds every customer and admin facing text. Values are
// kept typed until here; localized labels never flow back into the domain.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
)

type Options struct {
	Catalog         *catalog.Catalog
	Pricing         catalog.Pricing
	Location        *time.Location
	AdminContacts   []string
	PaymentPhone    string
	PaymentReceiver string
	PickupAddress   string
	PaymentTimeout  time.Duration
	RefundWindow    time.Duration
}

type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 24 * time.Hour
	}
	if opts.RefundWindow <= 0 {
		opts.RefundWindow = 48 * time.Hour
	}
	return &Renderer{opts: opts}
}

var monthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

var weekdaysShort = [...]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

// Money formats rubles with grouped thousands: 12 600 ₽.
func Money(d decimal.Decimal) string {
	var s string
	if d.IsInteger() {
		s = d.StringFixed(0)
	} else {
		s = d.StringFixed(2)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out + " ₽"
}

// Plural picks the Russian plural form for n: one (1, 21), few (2-4, 22-24)
// or many.
func Plural(n int, one, few, many string) string {
	n %= 100
	if n < 0 {
		n = -n
	}
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

func Bouquets(n int) string {
	return fmt.Sprintf("%d %s", n, Plural(n, "букет", "букета", "букетов"))
}

func (r *Renderer) local(t time.Time) time.Time {
	return t.In(r.opts.Location)
}

// DateLabel renders a date as "7 марта (сб)".
func (r *Renderer) DateLabel(t time.Time) string {
	t = r.local(t)
	return fmt.Sprintf("%d %s (%s)", t.Day(), monthsGenitive[t.Month()-1], weekdaysShort[t.Weekday()])
}

// SlotLabel renders a pickup hour as "7 марта (сб), с 10:00 до 11:00".
func (r *Renderer) SlotLabel(t time.Time) string {
	t = r.local(t)
	return fmt.Sprintf("%s, с %02d:00 до %02d:00", r.DateLabel(t), t.Hour(), t.Hour()+1)
}

func (r *Renderer) Timestamp(t time.Time) string {
	return r.local(t).Format("02.01.2006 15:04")
}

// VariantLabel renders "№2 «Красный»".
func (r *Renderer) VariantLabel(id int) string {
	return fmt.Sprintf("№%d «%s»", id, r.opts.Catalog.Name(id))
}

// ItemLine renders "№2 «Красный» – 15 шт. – 1 букет".
func (r *Renderer) ItemLine(item models.LineItem) string {
	return fmt.Sprintf("%s – %d шт. – %s", r.VariantLabel(item.Variant), item.Quantity, Bouquets(item.Count))
}

func (r *Renderer) ItemLines(items models.LineItems) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = r.ItemLine(item)
	}
	return strings.Join(lines, "\n")
}

// Recipient is rendered surname first, as on the pickup list.
func Recipient(n models.PersonName) string {
	return strings.TrimSpace(n.Last + " " + n.First)
}

func StatusLabel(s models.Status) string {
	switch s {
	case models.StatusPendingPayment:
		return "⏳ Ожидает оплаты"
	case models.StatusPaymentRejected:
		return "⚠️ Оплата не подтверждена"
	case models.StatusPaid:
		return "✅ Оплачен"
	case models.StatusCancelled:
		return "❌ Отменён"
	case models.StatusCompleted:
		return "🎉 Выдан"
	default:
		return "❓ " + string(s)
	}
}

func CancelReasonLabel(reason models.CancelReason) string {
	switch reason {
	case models.CancelReasonTimeout:
		return "не оплачен вовремя"
	case models.CancelReasonRefund:
		return "отменён клиентом с возвратом"
	case models.CancelReasonNone:
		return ""
	default:
		return string(reason)
	}
}

func (r *Renderer) contacts() string {
	return strings.Join(r.opts.AdminContacts, ", ")
}

func hours(d time.Duration) int {
	return int(d / time.Hour)
}
