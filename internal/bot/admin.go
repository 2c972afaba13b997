package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kuznetsov-tulips/tulip-bot/internal/callback"
	"github.com/kuznetsov-tulips/tulip-bot/internal/intake"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
	"github.com/kuznetsov-tulips/tulip-bot/internal/payment"
)

// handleAdminCommand serves the admin console and reports whether the
// command was one of its own.
func (b *Bot) handleAdminCommand(ctx context.Context, chatID int64, c intake.Customer, msg *tgbotapi.Message) bool {
	args := strings.Fields(msg.CommandArguments())
	admin := payment.Actor{ID: c.UserID, Name: displayName(msg.From)}

	switch msg.Command() {
	case "help":
		b.sendText(ctx, chatID, b.render.Help()+"\n\n"+b.render.AdminHelp())
	case "orders":
		orders, err := b.reports.Recent(ctx, recentOrders)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return true
		}
		b.sendText(ctx, chatID, b.render.AdminOrders("📋 Последние заказы:", orders))
	case "pending":
		entries, err := b.reports.Pending(ctx)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return true
		}
		b.sendText(ctx, chatID, b.render.AdminPending(entries))
	case "paid":
		orders, err := b.reports.Paid(ctx)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return true
		}
		b.sendText(ctx, chatID, b.render.AdminOrders("✅ Оплаченные заказы:", orders))
	case "today":
		orders, err := b.reports.Today(ctx)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return true
		}
		b.sendText(ctx, chatID, b.render.AdminPickups(orders))
	case "stats":
		stats, err := b.reports.Stats(ctx)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return true
		}
		b.sendText(ctx, chatID, b.render.AdminStats(stats))
	case "order":
		number, ok := orderNumberArg(args)
		if !ok {
			b.sendText(ctx, chatID, "Использование: /order 001")
			return true
		}
		b.showOrder(ctx, chatID, number)
	case "done":
		number, ok := orderNumberArg(args)
		if !ok {
			b.sendText(ctx, chatID, "Использование: /done 001")
			return true
		}
		order, err := b.payment.Complete(ctx, admin, number)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return true
		}
		b.sendText(ctx, chatID, b.render.OrderCompleted(order))
	case "stock":
		b.toggleStock(ctx, chatID, args)
	default:
		return false
	}
	return true
}

func (b *Bot) handleAdminCallback(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, data callback.Data) {
	if !b.isAdmin(q.From.ID) {
		b.answer(ctx, q, errorText(errForbidden))
		return
	}
	admin := payment.Actor{ID: q.From.ID, Name: displayName(q.From)}
	number := data.Arg(0)

	var err error
	if data.Action == callback.AdminConfirm {
		_, err = b.payment.Confirm(ctx, admin, number)
	} else {
		_, err = b.payment.Reject(ctx, admin, number)
	}
	b.clearButtons(ctx, q.Message)
	if err != nil {
		text := errorText(err)
		b.answer(ctx, q, text)
		b.sendError(ctx, chatID, err)
		return
	}
	b.answer(ctx, q, "Готово")
}

func (b *Bot) showOrder(ctx context.Context, chatID int64, number string) {
	order, err := b.orders.GetOrder(ctx, number)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	msg := notify.Message{Text: b.render.AdminOrder(order)}
	if order.Receipt != nil {
		receipt := b.render.AdminReceiptNotice(order)
		msg.Attachment = receipt.Attachment
	}
	b.send(ctx, chatID, msg)
}

func (b *Bot) toggleStock(ctx context.Context, chatID int64, args []string) {
	const usage = "Использование: /stock 3 off (снять с продажи) или /stock 3 on (вернуть)"
	if len(args) != 2 {
		b.sendText(ctx, chatID, usage)
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		b.sendText(ctx, chatID, usage)
		return
	}
	var available bool
	switch strings.ToLower(args[1]) {
	case "on":
		available = true
	case "off":
		available = false
	default:
		b.sendText(ctx, chatID, usage)
		return
	}
	if err := b.stock.SetAvailability(ctx, id, available); err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.sendText(ctx, chatID, b.render.StockChanged(id, available))
}

// orderNumberArg accepts "7", "07" or "007" and returns the stored form.
func orderNumberArg(args []string) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "№"))
	if err != nil || n <= 0 {
		return "", false
	}
	return fmt.Sprintf("%03d", n), true
}
