package bot

import (
	"errors"
	"fmt"

	"github.com/kuznetsov-tulips/tulip-bot/internal/apperr"
	"github.com/kuznetsov-tulips/tulip-bot/internal/db"
	"github.com/kuznetsov-tulips/tulip-bot/internal/intake"
	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/payment"
	"github.com/kuznetsov-tulips/tulip-bot/internal/refund"
)

const genericErrorText = "Что-то пошло не так. Попробуйте ещё раз чуть позже."

var errorTexts = []struct {
	err  error
	text string
}{
	{intake.ErrWrongState, "Эта кнопка уже неактуальна."},
	{intake.ErrUnknownVariant, "Такого варианта нет, выберите букет из списка."},
	{intake.ErrVariantUnavailable, "Этого варианта сейчас нет в наличии, выберите другой."},
	{intake.ErrInvalidQuantity, "В букете может быть 15 или 25 тюльпанов."},
	{intake.ErrInvalidAdjustment, "Не получилось изменить количество, попробуйте ещё раз."},
	{intake.ErrNoItems, "Сначала выберите хотя бы один букет."},
	{intake.ErrDateUnavailable, "Эта дата недоступна, выберите дату из списка."},
	{intake.ErrTimeOutOfRange, "Это время недоступно, выберите время из списка."},
	{intake.ErrPickupExpired, "Выбранное время самовывоза уже недоступно, выберите другое."},
	{intake.ErrInvalidName, "Отправьте, пожалуйста, Имя и Фамилию через пробел. Например: Иван Иванов"},
	{intake.ErrInvalidPhone, "Не получилось распознать номер. Пример: 89991234567 или +79991234567"},

	{payment.ErrWrongState, "Сейчас нет заказа, который ждёт квитанцию."},
	{payment.ErrReceiptTooLarge, "Файл слишком большой, максимальный размер 20 МБ."},
	{payment.ErrUnsupportedReceipt, "Пришлите квитанцию фотографией или файлом."},
	{payment.ErrNotOwner, "Этот заказ оформлен не вами."},
	{payment.ErrOrderGone, "Этот заказ больше не ожидает оплаты."},

	{refund.ErrWrongState, "Эта кнопка уже неактуальна."},
	{refund.ErrNotOwner, "Этот заказ оформлен не вами."},
	{refund.ErrNotPaid, "Отменить с возвратом можно только оплаченный заказ."},
	{refund.ErrInvalidAccount, "Напишите номер карты для возврата одним сообщением."},

	{db.ErrOrderNotFound, "Заказ не найден."},
}

// errorText turns an error into a message safe to show in the chat. Errors
// without a known sentinel get a generic apology.
func errorText(err error) string {
	var handled *payment.HandledError
	if errors.As(err, &handled) {
		return handledText(handled)
	}
	for _, e := range errorTexts {
		if errors.Is(err, e.err) {
			return e.text
		}
	}
	if apperr.KindOf(err) == apperr.KindForbidden {
		return "Эта команда доступна только администраторам."
	}
	return genericErrorText
}

func handledText(e *payment.HandledError) string {
	switch e.Current {
	case models.StatusPaid:
		return fmt.Sprintf("Заказ №%s уже подтверждён другим администратором.", e.Number)
	case models.StatusPaymentRejected:
		return fmt.Sprintf("Оплата по заказу №%s уже отклонена.", e.Number)
	case models.StatusCancelled:
		return fmt.Sprintf("Заказ №%s уже отменён.", e.Number)
	case models.StatusCompleted:
		return fmt.Sprintf("Заказ №%s уже выдан.", e.Number)
	case models.StatusPendingPayment:
		return fmt.Sprintf("Заказ №%s ещё не оплачен.", e.Number)
	default:
		return fmt.Sprintf("Заказ №%s уже обработан.", e.Number)
	}
}

var errForbidden = apperr.New(apperr.KindForbidden, "admin only")
