package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
	"github.com/kuznetsov-tulips/tulip-bot/internal/metrics"
)

// Button is an inline control; Data is routed back to the bot when tapped.
type Button struct {
	Text string
	Data string
}

type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment references a file already known to the chat platform (FileID)
// or a local file to upload (Path).
type Attachment struct {
	Kind   AttachmentKind
	FileID string
	Path   string
}

type Message struct {
	Text string
	// Buttons are laid out row by row.
	Buttons    [][]Button
	Attachment *Attachment
}

// Notifier delivers one message to one chat.
type Notifier interface {
	Notify(ctx context.Context, recipient int64, msg Message) error
}

const (
	defaultSendTimeout = 15 * time.Second
	broadcastWorkers   = 4
)

// Dispatcher sends messages without letting a failed recipient affect the
// caller or the other recipients.
type Dispatcher struct {
	notifier Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

func NewDispatcher(n Notifier, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{notifier: n, log: log, metrics: m, timeout: defaultSendTimeout}
}

// Send delivers msg and reports whether it went through. Failures are logged.
func (d *Dispatcher) Send(ctx context.Context, recipient int64, msg Message) bool {
	return d.send(ctx, recipient, msg) == nil
}

// Broadcast sends msg to every recipient. The returned error lists the
// failed deliveries and is meant for logging only.
func (d *Dispatcher) Broadcast(ctx context.Context, recipients []int64, msg Message) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(broadcastWorkers)
	for _, recipient := range recipients {
		g.Go(func() error {
			if err := d.send(ctx, recipient, msg); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (d *Dispatcher) send(ctx context.Context, recipient int64, msg Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.notifier.Notify(sendCtx, recipient, msg); err != nil {
		err = fmt.Errorf("notify %d: %w", recipient, err)
		d.log.Error(d.log.WithField(ctx, "recipient", recipient), "notification failed", err)
		d.metrics.IncNotifyFailure()
		return err
	}
	return nil
}

// Others returns ids without exclude.
func Others(ids []int64, exclude int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
