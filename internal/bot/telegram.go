package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
)

// Sender is the part of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var errEmptyMessage = errors.New("empty message")

// Notifier delivers notify.Message values to Telegram chats. An attachment
// goes out first, then the text with its keyboard.
type Notifier struct {
	api Sender
}

func NewNotifier(api Sender) *Notifier {
	return &Notifier{api: api}
}

// Notify returns when ctx is done even if Telegram has not answered yet. The
// abandoned request finishes in the background, bounded by the HTTP client
// timeout.
func (n *Notifier) Notify(ctx context.Context, recipient int64, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Text == "" && msg.Attachment == nil {
		return errEmptyMessage
	}
	done := make(chan error, 1)
	go func() { done <- n.deliver(recipient, msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("sending to %d: %w", recipient, ctx.Err())
	}
}

func (n *Notifier) deliver(recipient int64, msg notify.Message) error {
	if a := msg.Attachment; a != nil {
		if _, err := n.api.Send(attachmentConfig(recipient, a)); err != nil {
			return err
		}
	}
	if msg.Text == "" {
		return nil
	}
	out := tgbotapi.NewMessage(recipient, msg.Text)
	if kb, ok := keyboard(msg.Buttons); ok {
		out.ReplyMarkup = kb
	}
	_, err := n.api.Send(out)
	return err
}

func attachmentConfig(chatID int64, a *notify.Attachment) tgbotapi.Chattable {
	var file tgbotapi.RequestFileData = tgbotapi.FileID(a.FileID)
	if a.Path != "" {
		file = tgbotapi.FilePath(a.Path)
	}
	if a.Kind == notify.AttachmentPhoto {
		return tgbotapi.NewPhoto(chatID, file)
	}
	return tgbotapi.NewDocument(chatID, file)
}

func keyboard(rows [][]notify.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}
