package notification

import (
	"context"
	"sync"
	"time"

	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/metrics"

	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// Dispatcher decouples publishing from the request path. Enqueue never
// blocks; a full buffer drops the notification. Failed publishes are logged
// and counted, never retried.
type Dispatcher struct {
	publisher Publisher
	queue     chan FestivalNotification
	log       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(publisher Publisher, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan FestivalNotification, buffer),
		log:       logging.With("notification"),
	}
}

// Start runs the worker until Stop closes the queue. Cancelling ctx does not
// stop it; notifications accepted during shutdown are still published.
func (d *Dispatcher) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range d.queue {
			d.deliver(base, n)
		}
	}()
}

// Enqueue reports whether the notification was accepted.
func (d *Dispatcher) Enqueue(n FestivalNotification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		d.drop(n, "buffer full")
		return false
	}
}

// Stop rejects new notifications and waits for the queued ones.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n FestivalNotification) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(pctx, n); err != nil {
		metrics.Notifications.WithLabelValues(string(n.NotificationType), metrics.OutcomeError).Inc()
		d.log.Warn().Err(err).
			Uint("festival_id", n.FestivalID).
			Str("type", string(n.NotificationType)).
			Msg("failed to publish festival notification")
		return
	}
	metrics.Notifications.WithLabelValues(string(n.NotificationType), metrics.OutcomeOK).Inc()
	d.log.Debug().Uint("festival_id", n.FestivalID).Int("recipients", len(n.UserEmails)).Msg("festival notification published")
}

func (d *Dispatcher) drop(n FestivalNotification, reason string) {
	metrics.Notifications.WithLabelValues(string(n.NotificationType), metrics.OutcomeDropped).Inc()
	d.log.Warn().Uint("festival_id", n.FestivalID).Str("reason", reason).Msg("festival notification dropped")
}
