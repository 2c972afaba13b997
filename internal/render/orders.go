package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/kuznetsov-tulips/tulip-bot/internal/callback"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
)

// OrderCard is the full order description shared by admin messages.
func (r *Renderer) OrderCard(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔹 Номер заказа: %s\n", order.Number)
	fmt.Fprintf(&b, "🔹 Статус: %s\n", StatusLabel(order.Status))
	fmt.Fprintf(&b, "🔹 Получатель: %s\n", Recipient(order.Recipient))
	if order.Username != "" {
		fmt.Fprintf(&b, "🔹 Ник: @%s\n", order.Username)
	}
	fmt.Fprintf(&b, "🔹 Телефон: %s\n", order.Phone)
	fmt.Fprintf(&b, "🔹 Сумма: %s\n", Money(order.Total))
	fmt.Fprintf(&b, "🔹 Букеты:\n%s\n", r.ItemLines(order.Items))
	fmt.Fprintf(&b, "🔹 Самовывоз: %s", r.SlotLabel(order.PickupAt))
	if order.Status == models.StatusCancelled && order.CancelReason != models.CancelReasonNone {
		fmt.Fprintf(&b, "\n🔹 Причина отмены: %s", CancelReasonLabel(order.CancelReason))
	}
	if order.RefundAccount != "" {
		fmt.Fprintf(&b, "\n🔹 Реквизиты для возврата: %s", order.RefundAccount)
	}
	return b.String()
}

// AdminReceiptNotice goes to every admin when a customer submits a receipt.
func (r *Renderer) AdminReceiptNotice(order *models.Order) notify.Message {
	msg := notify.Message{
		Text: "📋 Заказ требует подтверждения оплаты:\n\n" + r.OrderCard(order) + "\n\nПроверьте оплату и подтвердите её.",
		Buttons: [][]notify.Button{{
			{Text: "✅ Подтвердить оплату", Data: callback.Encode(callback.AdminConfirm, order.Number)},
			{Text: "❌ Отклонить", Data: callback.Encode(callback.AdminReject, order.Number)},
		}},
	}
	if order.Receipt != nil {
		kind := notify.AttachmentPhoto
		if order.Receipt.Kind == models.ReceiptDocument {
			kind = notify.AttachmentDocument
		}
		msg.Attachment = &notify.Attachment{Kind: kind, FileID: order.Receipt.FileID}
	}
	return msg
}

func (r *Renderer) CustomerPaid(order *models.Order) notify.Message {
	return notify.Message{Text: "✅ Оплата получена!\n\nДетали заказа:\n\n" +
		fmt.Sprintf("🔹 Номер заказа: %s\n", order.Number) +
		"🔹 Букеты:\n" + r.ItemLines(order.Items) + "\n" +
		"🔹 Самовывоз: " + r.SlotLabel(order.PickupAt) + "\n" +
		"🔹 Адрес: " + r.opts.PickupAddress + "\n" +
		"🔹 Получатель: " + Recipient(order.Recipient) + "\n\n" +
		"💐 Букет уже готовят! Для получения назовите номер заказа."}
}

// AdminPaid is sent to the admin who confirmed, with the printable form.
func (r *Renderer) AdminPaid(order *models.Order, formPath string) notify.Message {
	msg := notify.Message{Text: fmt.Sprintf("✅ Оплата по заказу №%s подтверждена. Клиент получил уведомление.", order.Number)}
	if formPath != "" {
		msg.Attachment = &notify.Attachment{Kind: notify.AttachmentDocument, Path: formPath}
	}
	return msg
}

func (r *Renderer) AdminPaidByOther(order *models.Order, actor string) notify.Message {
	return notify.Message{Text: fmt.Sprintf("ℹ️ Оплату по заказу №%s подтвердил %s.", order.Number, actor)}
}

func (r *Renderer) CustomerRejected(order *models.Order) notify.Message {
	return notify.Message{Text: fmt.Sprintf("❌ К сожалению, оплата по заказу №%s не подтверждена.\n", order.Number) +
		"Проверьте реквизиты и пришлите квитанцию ещё раз.\n" +
		"Если есть вопросы, напишите нам: " + r.contacts()}
}

func (r *Renderer) AdminRejected(order *models.Order) notify.Message {
	return notify.Message{Text: fmt.Sprintf("❌ Оплата по заказу №%s отклонена. Клиент получил уведомление.", order.Number)}
}

func (r *Renderer) AdminRejectedByOther(order *models.Order, actor string) notify.Message {
	return notify.Message{Text: fmt.Sprintf("ℹ️ Оплату по заказу №%s отклонил %s.", order.Number, actor)}
}

// Expired tells the customer the sweeper cancelled an unpaid order.
func (r *Renderer) Expired(order *models.Order) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("К сожалению, оплата не поступила в течение %d часов.\n", hours(r.opts.PaymentTimeout)) +
			fmt.Sprintf("Заказ №%s автоматически отменён.\n\n", order.Number) +
			"Хотите оформить новый? Нажмите «" + WantBouquet + "» 🌷",
		Buttons: [][]notify.Button{restartButton()},
	}
}

// OrderGone is shown when a payment action hits an order that moved on.
func (r *Renderer) OrderGone(order *models.Order) notify.Message {
	text := "Этот заказ больше не ожидает оплаты."
	if order != nil {
		switch order.Status {
		case models.StatusCancelled:
			text = fmt.Sprintf("Заказ №%s отменён, принять квитанцию уже нельзя.", order.Number)
		case models.StatusPaid, models.StatusCompleted:
			text = fmt.Sprintf("Заказ №%s уже оплачен, квитанция больше не нужна.", order.Number)
		case models.StatusPendingPayment, models.StatusPaymentRejected:
		}
	}
	return notify.Message{
		Text:    text + "\n\nЧтобы оформить новый заказ, нажмите кнопку ниже.",
		Buttons: [][]notify.Button{restartButton()},
	}
}

func (r *Renderer) RefundPrompt(order *models.Order) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("Нашли ваш заказ:\n\n🔸 Номер: %s\n🔸 Самовывоз: %s\n🔸 Сумма: %s\n\n",
			order.Number, r.SlotLabel(order.PickupAt), Money(order.Total)) +
			"Отменить заказ и вернуть деньги?\n\n⚠️ Обратите внимание:\n" +
			fmt.Sprintf("— возврат возможен, если до самовывоза больше %d часов;\n", hours(r.opts.RefundWindow)) +
			"— деньги вернём на реквизиты, которые вы укажете дальше.",
		Buttons: [][]notify.Button{
			{{Text: "✅ Да, отменяю и прошу возврат", Data: callback.Encode(callback.RefundAnswer, callback.Yes)}},
			{{Text: "❌ Нет, заберу букет", Data: callback.Encode(callback.RefundAnswer, callback.No)}},
		},
	}
}

func (r *Renderer) RefundRefused() string {
	return fmt.Sprintf("⚠️ До самовывоза осталось меньше %d часов, букет уже готовят к сборке, ", hours(r.opts.RefundWindow)) +
		"поэтому вернуть деньги не получится.\n\nНо вы можете:\n" +
		"— забрать букет, он будет вас ждать;\n" +
		"— подарить его: просто сообщите получателю номер заказа;\n" +
		"— связаться с администратором по номеру " + r.opts.PaymentPhone
}

func (r *Renderer) RefundKept() string {
	return "Хорошо, заказ остаётся в силе. Ждём вас на самовывозе! 💐"
}

func (r *Renderer) RefundAccountPrompt() string {
	return "Напишите, пожалуйста, номер карты, на которую вернуть деньги."
}

func (r *Renderer) RefundDone(order *models.Order) string {
	return fmt.Sprintf("Принято. Заказ №%s отменён, %s вернём на указанные реквизиты.", order.Number, Money(order.Total))
}

func (r *Renderer) AdminRefundNotice(order *models.Order) notify.Message {
	return notify.Message{Text: fmt.Sprintf("📋 Заказ №%s отменён, нужен возврат средств\n\n", order.Number) +
		fmt.Sprintf("Реквизиты: %s\nСумма возврата: %s\nПолучатель: %s\nТелефон: %s",
			order.RefundAccount, Money(order.Total), Recipient(order.Recipient), order.Phone)}
}

// MyOrders lists a customer's orders; paid ones get a cancel button.
func (r *Renderer) MyOrders(orders []models.Order) notify.Message {
	if len(orders) == 0 {
		return notify.Message{
			Text:    "У вас пока нет заказов.",
			Buttons: [][]notify.Button{restartButton()},
		}
	}
	var (
		b    strings.Builder
		rows [][]notify.Button
	)
	b.WriteString("📋 Ваши заказы:\n")
	for _, order := range orders {
		fmt.Fprintf(&b, "\nЗаказ №%s — %s\n%s\nСамовывоз: %s\nСумма: %s\n",
			order.Number, StatusLabel(order.Status), r.ItemLines(order.Items),
			r.SlotLabel(order.PickupAt), Money(order.Total))
		if order.Status == models.StatusPaid {
			rows = append(rows, []notify.Button{{
				Text: fmt.Sprintf("❌ Отменить заказ №%s", order.Number),
				Data: callback.Encode(callback.RefundBegin, order.Number),
			}})
		}
	}
	return notify.Message{Text: strings.TrimRight(b.String(), "\n"), Buttons: rows}
}

// TimeLeft renders a remaining duration as "5 ч 20 мин".
func TimeLeft(d time.Duration) string {
	if d <= 0 {
		return "истекло"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%d мин", m)
	}
	return fmt.Sprintf("%d ч %d мин", h, m)
}
