// Package bot is the Telegram front end: it turns updates into calls on the
// intake, payment and refund flows and renders their results.
package bot

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kuznetsov-tulips/tulip-bot/internal/conversation"
	"github.com/kuznetsov-tulips/tulip-bot/internal/intake"
	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
	"github.com/kuznetsov-tulips/tulip-bot/internal/payment"
	"github.com/kuznetsov-tulips/tulip-bot/internal/refund"
	"github.com/kuznetsov-tulips/tulip-bot/internal/render"
	"github.com/kuznetsov-tulips/tulip-bot/internal/reports"
)

const (
	defaultWorkers = 8
	shardBuffer    = 32
	recentOrders   = 20
	replyTimeout   = 15 * time.Second
)

type OrderReader interface {
	GetOrder(ctx context.Context, number string) (*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
}

type StockStore interface {
	SetAvailability(ctx context.Context, variantID int, available bool) error
	Unavailable(ctx context.Context) ([]int, error)
}

type Deps struct {
	API           Sender
	Conversations conversation.Store
	Intake        *intake.Machine
	Payment       *payment.Service
	Refund        *refund.Flow
	Reports       *reports.Service
	Orders        OrderReader
	Stock         StockStore
	Pricing       models.Pricer
	Render        *render.Renderer
	IsAdmin       func(userID int64) bool
	Logger        *logger.Logger
	Workers       int
}

type Bot struct {
	api           Sender
	notifier      *Notifier
	conversations conversation.Store
	intake        *intake.Machine
	payment       *payment.Service
	refund        *refund.Flow
	reports       *reports.Service
	orders        OrderReader
	stock         StockStore
	pricing       models.Pricer
	render        *render.Renderer
	isAdmin       func(int64) bool
	log           *logger.Logger
	workers       int
}

func New(d Deps) *Bot {
	b := &Bot{
		api:           d.API,
		notifier:      NewNotifier(d.API),
		conversations: d.Conversations,
		intake:        d.Intake,
		payment:       d.Payment,
		refund:        d.Refund,
		reports:       d.Reports,
		orders:        d.Orders,
		stock:         d.Stock,
		pricing:       d.Pricing,
		render:        d.Render,
		isAdmin:       d.IsAdmin,
		log:           d.Logger,
		workers:       d.Workers,
	}
	if b.isAdmin == nil {
		b.isAdmin = func(int64) bool { return false }
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	if b.workers <= 0 {
		b.workers = defaultWorkers
	}
	return b
}

// Run handles updates until ctx is done or updates is closed. Updates of one
// user always land on the same worker, so they are processed one at a time
// and in order, while different users are served in parallel.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	g, ctx := errgroup.WithContext(ctx)
	shards := make([]chan tgbotapi.Update, b.workers)
	for i := range shards {
		ch := make(chan tgbotapi.Update, shardBuffer)
		shards[i] = ch
		g.Go(func() error {
			for upd := range ch {
				b.HandleUpdate(ctx, upd)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range shards {
				close(ch)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case upd, ok := <-updates:
				if !ok {
					return nil
				}
				select {
				case shards[shardFor(updateUserID(upd), len(shards))] <- upd:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})

	b.log.Info(ctx, "bot is running")
	return g.Wait()
}

// HandleUpdate processes one update. It never panics out: a failing handler
// is logged and the user gets a generic apology.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	ctx = b.log.WithField(ctx, "update_id", upd.UpdateID)
	if userID := updateUserID(upd); userID != 0 {
		ctx = b.log.WithUserID(ctx, userID)
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error(ctx, "update handler panicked", fmt.Errorf("%v", r))
			if chatID := updateChatID(upd); chatID != 0 {
				b.sendText(ctx, chatID, genericErrorText)
			}
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	c := customerOf(msg.From)
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		if b.isAdmin(c.UserID) && b.handleAdminCommand(ctx, chatID, c, msg) {
			return
		}
		b.handleCommand(ctx, chatID, c, msg)
		return
	}
	if len(msg.Photo) > 0 || msg.Document != nil {
		b.handleReceipt(ctx, chatID, c, msg)
		return
	}
	b.handleText(ctx, chatID, c, msg.Text)
}

func (b *Bot) send(ctx context.Context, chatID int64, msg notify.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	if err := b.notifier.Notify(sendCtx, chatID, msg); err != nil {
		b.log.Error(b.log.WithField(ctx, "chat_id", chatID), "reply failed", err)
	}
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	b.send(ctx, chatID, notify.Message{Text: text})
}

func (b *Bot) sendError(ctx context.Context, chatID int64, err error) {
	text := errorText(err)
	if text == genericErrorText {
		b.log.Error(ctx, "request failed", err)
	}
	b.sendText(ctx, chatID, text)
}

// answer acknowledges a callback so the client stops its spinner.
func (b *Bot) answer(ctx context.Context, q *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, text)); err != nil {
		b.log.Warn(b.log.WithField(ctx, "error", err.Error()), "callback answer failed")
	}
}

// clearButtons removes the inline keyboard of an acted-upon message so it
// cannot be pressed twice.
func (b *Bot) clearButtons(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, msg.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug(b.log.WithField(ctx, "error", err.Error()), "keyboard not cleared")
	}
}

func customerOf(u *tgbotapi.User) intake.Customer {
	return intake.Customer{
		UserID:    u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return strconv.FormatInt(u.ID, 10)
}

func updateUserID(upd tgbotapi.Update) int64 {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		return upd.CallbackQuery.From.ID
	case upd.Message != nil && upd.Message.From != nil:
		return upd.Message.From.ID
	default:
		return 0
	}
}

func updateChatID(upd tgbotapi.Update) int64 {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID
	default:
		return 0
	}
}

func shardFor(userID int64, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % uint32(n))
}
