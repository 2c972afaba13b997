// Package notifytest provides an in-memory notifier for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/kuznetsov-tulips/tulip-bot/internal/notify"
)

type Sent struct {
	Recipient int64
	Message   notify.Message
}

// Recorder remembers every delivered message. Recipients listed in Fail get
// that error instead.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Fail map[int64]error
}

func New() *Recorder {
	return &Recorder{Fail: map[int64]error{}}
}

func (r *Recorder) Notify(_ context.Context, recipient int64, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.Fail[recipient]; ok {
		return err
	}
	r.sent = append(r.sent, Sent{Recipient: recipient, Message: msg})
	return nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// To returns the messages delivered to recipient.
func (r *Recorder) To(recipient int64) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, s := range r.sent {
		if s.Recipient == recipient {
			out = append(out, s.Message)
		}
	}
	return out
}
