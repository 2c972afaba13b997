package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kuznetsov-tulips/tulip-bot/internal/apperr"
	"github.com/kuznetsov-tulips/tulip-bot/internal/callback"
	"github.com/kuznetsov-tulips/tulip-bot/internal/conversation"
	"github.com/kuznetsov-tulips/tulip-bot/internal/intake"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
	"github.com/kuznetsov-tulips/tulip-bot/internal/payment"
	"github.com/kuznetsov-tulips/tulip-bot/internal/refund"
	"github.com/kuznetsov-tulips/tulip-bot/internal/render"
)

func (b *Bot) handleCommand(ctx context.Context, chatID int64, c intake.Customer, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.send(ctx, chatID, b.render.Greeting())
	case "help":
		b.sendText(ctx, chatID, b.render.Help())
	case "myorders":
		b.myOrders(ctx, chatID, c)
	case "cancel":
		if err := b.conversations.Delete(ctx, c.UserID); err != nil {
			b.sendError(ctx, chatID, err)
			return
		}
		b.send(ctx, chatID, b.render.ConversationReset())
	default:
		b.sendText(ctx, chatID, b.render.Help())
	}
}

func (b *Bot) handleText(ctx context.Context, chatID int64, c intake.Customer, text string) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, render.WantBouquet) {
		b.startIntake(ctx, chatID, c)
		return
	}

	st, ok := b.loadState(ctx, chatID, c.UserID)
	if !ok {
		return
	}
	switch cur := st.(type) {
	case nil:
		b.send(ctx, chatID, b.render.Greeting())
	case conversation.EnteringName:
		next, err := b.intake.EnterName(ctx, c, cur, text)
		b.advance(ctx, chatID, c, next, err)
	case conversation.EnteringPhone:
		next, err := b.intake.EnterPhone(ctx, c, cur, text)
		b.advance(ctx, chatID, c, next, err)
	case conversation.EnteringRefundAccount:
		b.submitRefundAccount(ctx, chatID, c, cur, text)
	case conversation.AwaitingPayment, conversation.AwaitingReceiptConfirmation:
		b.sendText(ctx, chatID, b.render.ReceiptExpected())
	default:
		b.send(ctx, chatID, b.prompt(ctx, c, st))
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil {
		return
	}
	c := customerOf(q.From)
	chatID := c.UserID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}

	data, err := callback.Parse(q.Data)
	if err != nil {
		b.answer(ctx, q, "")
		b.log.Warn(b.log.WithField(ctx, "data", q.Data), "malformed callback")
		return
	}
	ctx = b.log.WithField(ctx, "action", string(data.Action))

	switch data.Action {
	case callback.AdminConfirm, callback.AdminReject:
		b.handleAdminCallback(ctx, q, chatID, data)
		return
	case callback.Start:
		b.answer(ctx, q, "")
		b.startIntake(ctx, chatID, c)
		return
	case callback.MyOrders:
		b.answer(ctx, q, "")
		b.myOrders(ctx, chatID, c)
		return
	case callback.RefundBegin:
		b.answer(ctx, q, "")
		b.beginRefund(ctx, chatID, c, data.Arg(0))
		return
	}

	b.answer(ctx, q, "")
	st, ok := b.loadState(ctx, chatID, c.UserID)
	if !ok {
		return
	}
	if st == nil {
		b.send(ctx, chatID, b.render.ConversationReset())
		return
	}

	switch data.Action {
	case callback.Receipt:
		b.clearButtons(ctx, q.Message)
		b.answerReceipt(ctx, chatID, c, st, data.Arg(0) == callback.Yes)
	case callback.RefundAnswer:
		b.clearButtons(ctx, q.Message)
		b.answerRefund(ctx, chatID, c, st, data.Arg(0) == callback.Yes)
	case callback.Order:
		if data.Arg(0) == callback.Confirm {
			b.clearButtons(ctx, q.Message)
			b.confirmOrder(ctx, chatID, c, st)
			return
		}
		next, err := b.intakeStep(ctx, c, st, data)
		b.advance(ctx, chatID, c, next, err)
	default:
		next, err := b.intakeStep(ctx, c, st, data)
		b.advance(ctx, chatID, c, next, err)
	}
}

// intakeStep maps a button press onto the intake machine.
func (b *Bot) intakeStep(ctx context.Context, c intake.Customer, st conversation.State, data callback.Data) (conversation.State, error) {
	m := b.intake
	switch data.Action {
	case callback.Consent:
		return m.Consent(ctx, c, st, data.Arg(0) == callback.Yes)
	case callback.Variant:
		id, err := data.Int(0)
		if err != nil {
			return st, intake.ErrUnknownVariant
		}
		return m.SelectVariant(ctx, st, id)
	case callback.Quantity:
		q, err := data.Int(0)
		if err != nil {
			return st, intake.ErrInvalidQuantity
		}
		return m.SelectQuantity(st, q)
	case callback.More:
		if data.Arg(0) == callback.Add {
			return m.AddMore(st)
		}
		return m.Proceed(st)
	case callback.Item:
		variant, err := data.Int(0)
		if err != nil {
			return st, intake.ErrInvalidAdjustment
		}
		quantity, err := data.Int(1)
		if err != nil {
			return st, intake.ErrInvalidAdjustment
		}
		delta, err := data.Int(2)
		if err != nil {
			return st, intake.ErrInvalidAdjustment
		}
		return m.AdjustItem(st, variant, quantity, delta)
	case callback.Date:
		return m.SelectDate(st, data.Arg(0))
	case callback.Time:
		hour, err := data.Int(0)
		if err != nil {
			return st, intake.ErrTimeOutOfRange
		}
		return m.SelectTime(st, hour)
	case callback.Name:
		return m.UseSuggestedName(ctx, c, st)
	case callback.Phone:
		return m.UseSuggestedPhone(ctx, c, st)
	case callback.Order:
		if data.Arg(0) == callback.Pickup {
			return m.ChangePickup(st)
		}
		return m.Revise(st)
	default:
		return st, intake.ErrWrongState
	}
}

func (b *Bot) startIntake(ctx context.Context, chatID int64, c intake.Customer) {
	st, err := b.intake.Start(ctx, c)
	b.advance(ctx, chatID, c, st, err)
}

// advance stores the next state and shows its prompt. Input and guard errors
// are explained first and the customer stays where the machine left them;
// other failures keep the stored state untouched.
func (b *Bot) advance(ctx context.Context, chatID int64, c intake.Customer, next conversation.State, err error) {
	if err != nil {
		kind := apperr.KindOf(err)
		if kind != apperr.KindValidation && kind != apperr.KindGuard {
			b.sendError(ctx, chatID, err)
			return
		}
		b.sendText(ctx, chatID, errorText(err))
	}
	if next == nil {
		b.clearState(ctx, c.UserID)
		if err == nil {
			b.sendText(ctx, chatID, b.render.ConsentDeclined())
		}
		return
	}
	if !b.saveState(ctx, chatID, c.UserID, next) {
		return
	}
	b.send(ctx, chatID, b.prompt(ctx, c, next))
}

func (b *Bot) confirmOrder(ctx context.Context, chatID int64, c intake.Customer, st conversation.State) {
	next, order, err := b.intake.Confirm(ctx, c, st)
	if errors.Is(err, intake.ErrPickupExpired) {
		b.sendText(ctx, chatID, errorText(err))
		next, err = b.intake.ChangePickup(st)
		b.advance(ctx, chatID, c, next, err)
		return
	}
	if err != nil {
		b.advance(ctx, chatID, c, next, err)
		return
	}
	if !b.saveState(ctx, chatID, c.UserID, next) {
		return
	}
	b.sendText(ctx, chatID, b.render.PaymentInstructions(order))
}

// prompt renders what the customer should do in st.
func (b *Bot) prompt(ctx context.Context, c intake.Customer, st conversation.State) notify.Message {
	switch st := st.(type) {
	case conversation.AwaitingConsent:
		return b.render.ConsentPrompt()
	case conversation.SelectingVariant:
		unavailable, err := b.stock.Unavailable(ctx)
		if err != nil {
			b.log.Warn(b.log.WithField(ctx, "error", err.Error()), "stock lookup failed")
		}
		return b.render.VariantPrompt(unavailable)
	case conversation.SelectingQuantity:
		return b.render.QuantityPrompt(st.Variant)
	case conversation.ConfirmingMoreItems:
		total, _ := st.Draft.Items.Total(b.pricing)
		return b.render.MoreItemsPrompt(st.Draft.Items, total)
	case conversation.SelectingPickupDate:
		return b.render.DatePrompt(b.intake.Schedule())
	case conversation.SelectingPickupTime:
		day, ok := b.intake.Schedule().Day(st.Date)
		if !ok {
			return b.render.DatePrompt(b.intake.Schedule())
		}
		return b.render.TimePrompt(day)
	case conversation.EnteringName:
		return b.render.NamePrompt(b.intake.SuggestedName(ctx, c))
	case conversation.EnteringPhone:
		return b.render.PhonePrompt(b.intake.SuggestedPhone(ctx, c))
	case conversation.ConfirmingOrder:
		total, _ := st.Draft.Items.Total(b.pricing)
		return b.render.Confirmation(st, total)
	case conversation.AwaitingPayment:
		return notify.Message{Text: b.render.ReceiptExpected()}
	case conversation.AwaitingReceiptConfirmation:
		return b.render.ReceiptConfirmPrompt()
	case conversation.ConfirmingCancellation:
		order, err := b.orders.GetOrder(ctx, st.OrderNumber)
		if err != nil {
			return notify.Message{Text: errorText(err)}
		}
		return b.render.RefundPrompt(order)
	case conversation.EnteringRefundAccount:
		return notify.Message{Text: b.render.RefundAccountPrompt()}
	default:
		return b.render.ConversationReset()
	}
}

func (b *Bot) handleReceipt(ctx context.Context, chatID int64, c intake.Customer, msg *tgbotapi.Message) {
	st, ok := b.loadState(ctx, chatID, c.UserID)
	if !ok {
		return
	}
	switch st.(type) {
	case conversation.AwaitingPayment, conversation.AwaitingReceiptConfirmation:
	default:
		resumed, found, err := b.payment.Resume(ctx, c.UserID)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return
		}
		if !found {
			b.sendText(ctx, chatID, errorText(payment.ErrWrongState))
			return
		}
		st = resumed
	}

	next, err := b.payment.UploadReceipt(ctx, c.UserID, st, uploadOf(msg))
	if err != nil {
		b.paymentFailed(ctx, chatID, c, err)
		return
	}
	if !b.saveState(ctx, chatID, c.UserID, next) {
		return
	}
	b.send(ctx, chatID, b.render.ReceiptConfirmPrompt())
}

func (b *Bot) answerReceipt(ctx context.Context, chatID int64, c intake.Customer, st conversation.State, yes bool) {
	if !yes {
		next, err := b.payment.DiscardReceipt(st)
		if err != nil {
			b.sendError(ctx, chatID, err)
			return
		}
		if b.saveState(ctx, chatID, c.UserID, next) {
			b.sendText(ctx, chatID, b.render.ReceiptDiscarded())
		}
		return
	}
	next, err := b.payment.ConfirmReceipt(ctx, c.UserID, st)
	if err != nil {
		b.paymentFailed(ctx, chatID, c, err)
		return
	}
	if b.saveState(ctx, chatID, c.UserID, next) {
		b.sendText(ctx, chatID, b.render.ReceiptSubmitted())
	}
}

// paymentFailed ejects the customer to the start when the order moved past
// payment and explains any other failure.
func (b *Bot) paymentFailed(ctx context.Context, chatID int64, c intake.Customer, err error) {
	var gone *payment.GoneError
	if errors.As(err, &gone) {
		b.clearState(ctx, c.UserID)
		b.send(ctx, chatID, b.render.OrderGone(gone.Order))
		return
	}
	b.sendError(ctx, chatID, err)
}

func (b *Bot) myOrders(ctx context.Context, chatID int64, c intake.Customer) {
	orders, err := b.orders.ListByUser(ctx, c.UserID)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, b.render.MyOrders(orders))
}

func (b *Bot) beginRefund(ctx context.Context, chatID int64, c intake.Customer, number string) {
	st, order, err := b.refund.Begin(ctx, c.UserID, number)
	if errors.Is(err, refund.ErrTooLate) {
		b.sendText(ctx, chatID, b.render.RefundRefused())
		return
	}
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	if b.saveState(ctx, chatID, c.UserID, st) {
		b.send(ctx, chatID, b.render.RefundPrompt(order))
	}
}

func (b *Bot) answerRefund(ctx context.Context, chatID int64, c intake.Customer, st conversation.State, yes bool) {
	next, err := b.refund.Decide(ctx, c.UserID, st, yes)
	switch {
	case errors.Is(err, refund.ErrTooLate):
		b.clearState(ctx, c.UserID)
		b.sendText(ctx, chatID, b.render.RefundRefused())
	case err != nil:
		b.sendError(ctx, chatID, err)
	case next == nil:
		b.clearState(ctx, c.UserID)
		b.sendText(ctx, chatID, b.render.RefundKept())
	default:
		if b.saveState(ctx, chatID, c.UserID, next) {
			b.sendText(ctx, chatID, b.render.RefundAccountPrompt())
		}
	}
}

func (b *Bot) submitRefundAccount(ctx context.Context, chatID int64, c intake.Customer, st conversation.EnteringRefundAccount, account string) {
	order, err := b.refund.SubmitAccount(ctx, c.UserID, st, account)
	switch {
	case errors.Is(err, refund.ErrTooLate):
		b.clearState(ctx, c.UserID)
		b.sendText(ctx, chatID, b.render.RefundRefused())
	case errors.Is(err, refund.ErrInvalidAccount):
		b.sendText(ctx, chatID, errorText(err))
	case err != nil:
		b.clearState(ctx, c.UserID)
		b.sendError(ctx, chatID, err)
	default:
		b.clearState(ctx, c.UserID)
		b.sendText(ctx, chatID, b.render.RefundDone(order))
	}
}

// loadState reads the stored conversation. A state that can no longer be
// decoded is dropped so the customer can start over.
func (b *Bot) loadState(ctx context.Context, chatID, userID int64) (conversation.State, bool) {
	st, err := b.conversations.Get(ctx, userID)
	if err != nil {
		b.log.Error(ctx, "loading conversation failed", err)
		b.clearState(ctx, userID)
		b.send(ctx, chatID, b.render.ConversationReset())
		return nil, false
	}
	return st, true
}

func (b *Bot) saveState(ctx context.Context, chatID, userID int64, st conversation.State) bool {
	if err := b.conversations.Put(ctx, userID, st); err != nil {
		b.sendError(ctx, chatID, err)
		return false
	}
	return true
}

func (b *Bot) clearState(ctx context.Context, userID int64) {
	if err := b.conversations.Delete(ctx, userID); err != nil {
		b.log.Error(ctx, "conversation reset failed", err)
	}
}

func uploadOf(msg *tgbotapi.Message) payment.Upload {
	if len(msg.Photo) > 0 {
		largest := msg.Photo[len(msg.Photo)-1]
		return payment.Upload{FileID: largest.FileID, Kind: models.ReceiptPhoto, Size: int64(largest.FileSize)}
	}
	return payment.Upload{FileID: msg.Document.FileID, Kind: models.ReceiptDocument, Size: int64(msg.Document.FileSize)}
}
