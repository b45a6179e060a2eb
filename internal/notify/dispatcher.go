// internal/notify/dispatcher.go

// Package notify delivers status-change notifications to submitters over
// email and SMS. Delivery is fire-and-forget: the lifecycle engine hands
// events to a bounded queue and never waits on, or fails because of, a
// delivery outcome.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"citizen-services/internal/common/logger"
	"citizen-services/internal/common/metrics"
	"citizen-services/internal/models"
	"citizen-services/internal/store"

	"github.com/redis/go-redis/v9"
)

// Options tunes the dispatcher. Zero values fall back to defaults.
type Options struct {
	QueueSize int
	Workers   int
	// LedgerTTL is how long delivery markers are kept. Events whose ID is
	// already marked are skipped, so a crash-replayed event sends once.
	LedgerTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.LedgerTTL <= 0 {
		o.LedgerTTL = 72 * time.Hour
	}
	return o
}

// Dispatcher consumes notification events from a bounded queue with a pool
// of workers. When the queue is full, Emit drops the event: notification
// pressure must never stall a transition.
type Dispatcher struct {
	opts      Options
	queue     chan models.NotificationEvent
	resolver  store.SubmitterResolver
	email     EmailSender
	sms       SMSSender
	ledger *redis.Client
	logger logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once

	// mu orders Emit against Stop so nothing sends on the closed queue.
	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher builds a dispatcher. email, sms and ledger may each be nil;
// a nil channel is skipped and a nil ledger disables the duplicate guard.
func NewDispatcher(
	opts Options,
	resolver store.SubmitterResolver,
	email EmailSender,
	sms SMSSender,
	ledger *redis.Client,
	log logger.Logger,
) *Dispatcher {
	opts = opts.withDefaults()
	return &Dispatcher{
		opts:     opts,
		queue:    make(chan models.NotificationEvent, opts.QueueSize),
		resolver: resolver,
		email:    email,
		sms:      sms,
		ledger:   ledger,
		logger:   log.WithFields(map[string]interface{}{"component": "notify-dispatcher"}),
	}
}

// Start launches the worker pool. Workers exit when Stop is called and the
// queue has drained.
func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("dispatcher started", map[string]interface{}{
		"workers":   d.opts.Workers,
		"queueSize": d.opts.QueueSize,
	})
}

// Stop closes intake and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.queue)
		d.mu.Unlock()

		d.wg.Wait()
		d.logger.Info("dispatcher stopped", nil)
	})
}

// Emit enqueues an event without blocking. After Stop, or when the queue is
// full, the event is dropped and counted.
func (d *Dispatcher) Emit(event models.NotificationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.NotificationsDropped.Inc()
		d.logger.Warn("event dropped, dispatcher stopped", map[string]interface{}{
			"eventId":       event.ID,
			"applicationId": event.ApplicationID,
		})
		return
	}

	select {
	case d.queue <- event:
	default:
		metrics.NotificationsDropped.Inc()
		d.logger.Warn("event dropped, queue full", map[string]interface{}{
			"eventId":       event.ID,
			"applicationId": event.ApplicationID,
		})
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event models.NotificationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if d.alreadyDelivered(ctx, event.ID) {
		d.logger.Debug("event already delivered", map[string]interface{}{
			"eventId": event.ID,
		})
		return
	}

	recipient, err := d.resolver.GetSubmitter(ctx, event.RecipientID)
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues("none", "failed").Inc()
		d.logger.Warn("recipient not found", map[string]interface{}{
			"eventId":     event.ID,
			"recipientId": event.RecipientID,
			"error":       err.Error(),
		})
		return
	}

	subject, body, ok := renderMessage(event, recipient)
	if !ok {
		d.logger.Warn("no template for status", map[string]interface{}{
			"eventId": event.ID,
			"status":  event.NewStatus,
		})
		return
	}

	delivered := false

	if d.email != nil && recipient.Email != "" {
		if err := d.email.SendEmail(ctx, recipient.Email, subject, body); err != nil {
			metrics.NotificationsDispatched.WithLabelValues("email", "failed").Inc()
			d.logger.Error("email delivery failed", map[string]interface{}{
				"eventId":       event.ID,
				"applicationId": event.ApplicationID,
				"error":         err.Error(),
			})
		} else {
			metrics.NotificationsDispatched.WithLabelValues("email", "sent").Inc()
			delivered = true
		}
	}

	if d.sms != nil && recipient.Phone != "" {
		if err := d.sms.SendSMS(ctx, recipient.Phone, body); err != nil {
			metrics.NotificationsDispatched.WithLabelValues("sms", "failed").Inc()
			d.logger.Error("sms delivery failed", map[string]interface{}{
				"eventId":       event.ID,
				"applicationId": event.ApplicationID,
				"error":         err.Error(),
			})
		} else {
			metrics.NotificationsDispatched.WithLabelValues("sms", "sent").Inc()
			delivered = true
		}
	}

	if delivered {
		d.markDelivered(ctx, event.ID)
		d.logger.Info("notification delivered", map[string]interface{}{
			"eventId":       event.ID,
			"applicationId": event.ApplicationID,
			"newStatus":     event.NewStatus,
		})
	}
}

func ledgerKey(eventID string) string {
	return fmt.Sprintf("notify:delivered:%s", eventID)
}

func (d *Dispatcher) alreadyDelivered(ctx context.Context, eventID string) bool {
	if d.ledger == nil || eventID == "" {
		return false
	}
	n, err := d.ledger.Exists(ctx, ledgerKey(eventID)).Result()
	if err != nil {
		// Ledger unavailability degrades to at-least-once.
		return false
	}
	return n > 0
}

func (d *Dispatcher) markDelivered(ctx context.Context, eventID string) {
	if d.ledger == nil || eventID == "" {
		return
	}
	if err := d.ledger.Set(ctx, ledgerKey(eventID), time.Now().UTC().Format(time.RFC3339), d.opts.LedgerTTL).Err(); err != nil {
		d.logger.Warn("delivery ledger write failed", map[string]interface{}{
			"eventId": eventID,
			"error":   err.Error(),
		})
	}
}
