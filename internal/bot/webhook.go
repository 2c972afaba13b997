package bot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler feeds updates posted by Telegram into a channel that Run
// consumes. Requests without the configured secret are refused.
type WebhookHandler struct {
	secret  string
	updates chan<- tgbotapi.Update
	log     *logger.Logger
}

func NewWebhookHandler(secret string, updates chan<- tgbotapi.Update, log *logger.Logger) *WebhookHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WebhookHandler{secret: secret, updates: updates, log: log}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	var upd tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&upd); err != nil {
		h.log.Warn(h.log.WithField(r.Context(), "error", err.Error()), "bad webhook payload")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	select {
	case h.updates <- upd:
		w.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}
