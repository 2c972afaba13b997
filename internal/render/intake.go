package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kuznetsov-tulips/tulip-bot/internal/callback"
	"github.com/kuznetsov-tulips/tulip-bot/internal/catalog"
	"github.com/kuznetsov-tulips/tulip-bot/internal/conversation"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
)

const WantBouquet = "Хочу букет"

func restartButton() []notify.Button {
	return []notify.Button{{Text: WantBouquet, Data: callback.Encode(callback.Start)}}
}

func (r *Renderer) Greeting() notify.Message {
	text := "🌷 Привет! Это «Тюльпаны от Кузнецовых»: букеты по 15 и 25 тюльпанов, " +
		"свежие, ровные и невероятно красивые!\n\n" +
		"💐 У нас 6 вариантов букетов, от нежного белого до яркого микса.\n" +
		"🎁 Каждый букет упакован в плёнку, а лента подобрана в тон.\n\n" +
		fmt.Sprintf("Букет из 15 шт. — %s\n", Money(r.opts.Pricing.Small)) +
		fmt.Sprintf("Букет из 25 шт. — %s\n\n", Money(r.opts.Pricing.Large)) +
		"👉 Нажмите «Выбрать букет»"
	return notify.Message{
		Text: text,
		Buttons: [][]notify.Button{
			{{Text: "Выбрать букет", Data: callback.Encode(callback.Start)}},
			{{Text: "Мои заказы", Data: callback.Encode(callback.MyOrders)}},
		},
	}
}

func (r *Renderer) Help() string {
	return "Как оформить заказ:\n" +
		"/start — начать заново\n" +
		"/myorders — мои заказы и отмена оплаченного заказа\n" +
		"/cancel — прервать текущее оформление\n\n" +
		"Вопросы: " + r.contacts()
}

func (r *Renderer) ConsentPrompt() notify.Message {
	return notify.Message{
		Text: "📋 Перед оформлением заказа нужно согласие на обработку персональных данных.\n\n" +
			"Я даю согласие на обработку моих персональных данных (ФИО, контактные данные) " +
			"для оформления и выполнения заказа, а также для связи со мной по вопросам заказа.\n\n" +
			"Согласны?",
		Buttons: [][]notify.Button{
			{{Text: "✅ Да, согласен", Data: callback.Encode(callback.Consent, callback.Yes)}},
			{{Text: "❌ Нет", Data: callback.Encode(callback.Consent, callback.No)}},
		},
	}
}

func (r *Renderer) ConsentDeclined() string {
	return "Без согласия на обработку персональных данных оформить заказ не получится. " +
		"Если передумаете, нажмите /start"
}

// VariantPrompt lists the catalog two buttons per row, marking variants
// that are out of stock.
func (r *Renderer) VariantPrompt(unavailable []int) notify.Message {
	off := make(map[int]bool, len(unavailable))
	for _, id := range unavailable {
		off[id] = true
	}

	var (
		lines []string
		rows  [][]notify.Button
		row   []notify.Button
	)
	for _, v := range r.opts.Catalog.Variants() {
		label := fmt.Sprintf("%d. %s", v.ID, v.Name)
		if off[v.ID] {
			label += " (нет в наличии)"
		}
		lines = append(lines, label)
		row = append(row, notify.Button{Text: label, Data: callback.Encode(callback.Variant, strconv.Itoa(v.ID))})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return notify.Message{
		Text:    "Вот все варианты:\n\n" + strings.Join(lines, "\n") + "\n\nВыберите вариант букета:",
		Buttons: rows,
	}
}

func (r *Renderer) QuantityPrompt(variantID int) notify.Message {
	return notify.Message{
		Text: fmt.Sprintf("Вы выбрали букет №%d «%s».\n\nСколько тюльпанов в букете?\n"+
			"Если нужно другое количество, напишите %s",
			variantID, r.opts.Catalog.Name(variantID), r.contacts()),
		Buttons: [][]notify.Button{
			{{Text: fmt.Sprintf("15 шт. — %s", Money(r.opts.Pricing.Small)), Data: callback.Encode(callback.Quantity, "15")}},
			{{Text: fmt.Sprintf("25 шт. — %s", Money(r.opts.Pricing.Large)), Data: callback.Encode(callback.Quantity, "25")}},
		},
	}
}

// MoreItemsPrompt shows the cart with +1/-1 controls per line.
func (r *Renderer) MoreItemsPrompt(items models.LineItems, total decimal.Decimal) notify.Message {
	var rows [][]notify.Button
	for _, item := range items {
		variant, quantity := strconv.Itoa(item.Variant), strconv.Itoa(item.Quantity)
		rows = append(rows, []notify.Button{
			{Text: fmt.Sprintf("➖ №%d %d шт.", item.Variant, item.Quantity), Data: callback.Encode(callback.Item, variant, quantity, "-1")},
			{Text: fmt.Sprintf("➕ №%d %d шт.", item.Variant, item.Quantity), Data: callback.Encode(callback.Item, variant, quantity, "+1")},
		})
	}
	rows = append(rows,
		[]notify.Button{{Text: "➕ Добавить ещё букет", Data: callback.Encode(callback.More, callback.Add)}},
		[]notify.Button{{Text: "✅ Дальше, к дате самовывоза", Data: callback.Encode(callback.More, callback.Done)}},
	)
	return notify.Message{
		Text: "Ваш заказ:\n" + r.ItemLines(items) +
			fmt.Sprintf("\n\nИтого: %s\n\nХотите выбрать ещё букеты?", Money(total)),
		Buttons: rows,
	}
}

func (r *Renderer) DatePrompt(schedule catalog.Schedule) notify.Message {
	if len(schedule.Days) == 0 {
		return notify.Message{Text: "Сейчас нет доступных дат самовывоза. Напишите " + r.contacts()}
	}
	var (
		lines []string
		rows  [][]notify.Button
	)
	for _, day := range schedule.Days {
		label := r.DateLabel(day.Date)
		lines = append(lines, fmt.Sprintf("%s – с %d:00 до %d:00", label, day.StartHour, day.EndHour+1))
		rows = append(rows, []notify.Button{{Text: label, Data: callback.Encode(callback.Date, day.Key())}})
	}
	return notify.Message{
		Text:    "Когда заберёте букет?\n\n" + strings.Join(lines, "\n") + "\n\nВыберите дату:",
		Buttons: rows,
	}
}

func (r *Renderer) TimePrompt(day catalog.PickupDay) notify.Message {
	var (
		rows [][]notify.Button
		row  []notify.Button
	)
	for _, h := range day.Hours() {
		row = append(row, notify.Button{Text: fmt.Sprintf("%02d:00", h), Data: callback.Encode(callback.Time, strconv.Itoa(h))})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return notify.Message{
		Text:    fmt.Sprintf("%s. Выберите время:", r.DateLabel(day.Date)),
		Buttons: rows,
	}
}

func (r *Renderer) NamePrompt(suggestion models.PersonName, ok bool) notify.Message {
	msg := notify.Message{
		Text: "Отлично! Осталось совсем немного.\n" +
			"Отправьте Имя и Фамилию получателя через пробел.\nНапример: Иван Иванов",
	}
	if ok {
		msg.Buttons = [][]notify.Button{{{
			Text: "Использовать: " + suggestion.String(),
			Data: callback.Encode(callback.Name, callback.Suggested),
		}}}
	}
	return msg
}

func (r *Renderer) PhonePrompt(suggestion string, ok bool) notify.Message {
	msg := notify.Message{
		Text: "Оставьте номер телефона для связи.\nНапример: 89991234567 или +79991234567",
	}
	if ok {
		msg.Buttons = [][]notify.Button{{{
			Text: "Использовать: " + suggestion,
			Data: callback.Encode(callback.Phone, callback.Suggested),
		}}}
	}
	return msg
}

func (r *Renderer) Confirmation(st conversation.ConfirmingOrder, total decimal.Decimal) notify.Message {
	return notify.Message{
		Text: "Проверьте, всё ли верно:\n\n" +
			"🔹 Букеты:\n" + r.ItemLines(st.Draft.Items) + "\n" +
			"🔹 Самовывоз: " + r.SlotLabel(st.PickupAt) + "\n" +
			"🔹 Стоимость: " + Money(total) + "\n" +
			"🔹 Получатель: " + Recipient(st.Name) + "\n" +
			"🔹 Телефон: " + st.Phone + "\n\n" +
			"Всё правильно?",
		Buttons: [][]notify.Button{
			{{Text: "✅ Да, подтверждаю", Data: callback.Encode(callback.Order, callback.Confirm)}},
			{{Text: "🔄 Изменить букеты", Data: callback.Encode(callback.Order, callback.Revise)}},
			{{Text: "🕒 Изменить дату и время", Data: callback.Encode(callback.Order, callback.Pickup)}},
		},
	}
}

func (r *Renderer) PaymentInstructions(order *models.Order) string {
	return fmt.Sprintf("Спасибо! Ваш заказ №%s принят.\n\n", order.Number) +
		fmt.Sprintf("💳 Оплатите %s переводом по номеру %s, получатель %s.\n\n",
			Money(order.Total), r.opts.PaymentPhone, r.opts.PaymentReceiver) +
		"❗ Важно:\n" +
		fmt.Sprintf("Оплатить нужно в течение %d часов с момента оформления. ", hours(r.opts.PaymentTimeout)) +
		"Если оплата не поступит, заказ отменится автоматически.\n\n" +
		"После оплаты отправьте сюда фотографию или файл с квитанцией. " +
		"Мы проверим поступление средств и подтвердим оплату в этом чате."
}

func (r *Renderer) ReceiptExpected() string {
	return "📎 Отправьте фотографию или файл с квитанцией об оплате.\nМаксимальный размер файла: 20 МБ"
}

func (r *Renderer) ReceiptConfirmPrompt() notify.Message {
	return notify.Message{
		Text: "Это квитанция об оплате?",
		Buttons: [][]notify.Button{
			{{Text: "✅ Да, отправить", Data: callback.Encode(callback.Receipt, callback.Yes)}},
			{{Text: "❌ Нет", Data: callback.Encode(callback.Receipt, callback.No)}},
		},
	}
}

func (r *Renderer) ReceiptDiscarded() string {
	return "Хорошо, этот файл не отправляем. Пришлите квитанцию, когда будете готовы."
}

func (r *Renderer) ReceiptSubmitted() string {
	return "✅ Чек получен! Мы проверим поступление средств и подтвердим оплату.\n" +
		"Если отправили не тот файл, просто пришлите новый."
}

func (r *Renderer) ConversationReset() notify.Message {
	return notify.Message{
		Text:    "Оформление прервано. Чтобы начать заново, нажмите кнопку ниже.",
		Buttons: [][]notify.Button{restartButton()},
	}
}
