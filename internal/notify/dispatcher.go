// Package notify fans notifications out to the in-app inbox and to external
// delivery channels.
//
// Notify never fails from the caller's point of view. Every error is logged
// and counted, then dropped. External delivery runs on a bounded worker pool
// so a slow channel cannot hold a request or a database lock.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"InternHub-backend/internal/apperror"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
)

// Deliverer sends a message to a user through one external channel.
type Deliverer interface {
	Channel() string
	Deliver(ctx context.Context, recipient model.User, message string) error
}

// ErrNoAddress is returned by a Deliverer when the user has no address for its channel.
var ErrNoAddress = errors.New("recipient has no address for channel")

// Options tunes the delivery worker pool.
type Options struct {
	Workers         int
	QueueSize       int
	RatePerSecond   float64
	MaxTries        uint
	InitialInterval time.Duration
	PersistTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.MaxTries == 0 {
		o.MaxTries = 3
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 5 * time.Second
	}
	return o
}

type job struct {
	deliverer Deliverer
	recipient model.User
	message   string
}

// Dispatcher records in-app notifications and queues external deliveries.
type Dispatcher struct {
	store      Store
	deliverers []Deliverer
	opts       Options
	limiter    *rate.Limiter
	log        logrus.FieldLogger
	now        func() time.Time

	queue   chan job
	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Call Start before Notify for external
// deliveries to be processed.
func NewDispatcher(store Store, deliverers []Deliverer, opts Options, log logrus.FieldLogger) *Dispatcher {
	opts = opts.withDefaults()
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Dispatcher{
		store:      store,
		deliverers: deliverers,
		opts:       opts,
		limiter:    rate.NewLimiter(limit, opts.Workers),
		log:        log,
		now:        time.Now,
		queue:      make(chan job, opts.QueueSize),
	}
}

// Start launches the delivery workers. They stop once ctx is done or Stop drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop refuses new deliveries and waits for queued ones to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

// Notify records message for recipientID and queues it to every external channel.
// It never returns an error and never blocks on delivery.
func (d *Dispatcher) Notify(ctx context.Context, recipientID uuid.UUID, message string) {
	entry := d.log.WithField("recipient_id", recipientID)
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordNotification("panic")
			entry.WithField("panic", r).Error("notification dispatch panicked")
		}
	}()

	// the triggering request may already be finished
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.PersistTimeout)
	defer cancel()

	n := &model.Notification{RecipientID: recipientID, Message: message}
	if err := d.store.CreateNotification(pctx, n); err != nil {
		metrics.RecordNotification("store_failed")
		entry.WithError(err).Warn("failed to record notification")
	} else {
		metrics.RecordNotification("")
	}

	if len(d.deliverers) == 0 {
		return
	}

	recipient, err := d.store.Recipient(pctx, recipientID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = errUnknownRecipient
	}
	if err != nil {
		entry.WithError(err).Warn("failed to load notification recipient, skipping delivery")
		return
	}

	for _, deliverer := range d.deliverers {
		d.enqueue(job{deliverer: deliverer, recipient: *recipient, message: message}, entry)
	}
}

func (d *Dispatcher) enqueue(j job, entry logrus.FieldLogger) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.RecordDelivery(j.deliverer.Channel(), "dropped")
		entry.WithField("channel", j.deliverer.Channel()).Warn("dispatcher stopped, delivery dropped")
		return
	}
	select {
	case d.queue <- j:
	default:
		metrics.RecordDelivery(j.deliverer.Channel(), "dropped")
		entry.WithField("channel", j.deliverer.Channel()).Warn("delivery queue full, delivery dropped")
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, j)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	channel := j.deliverer.Channel()
	entry := d.log.WithFields(logrus.Fields{"recipient_id": j.recipient.ID, "channel": channel})

	if err := d.limiter.Wait(ctx); err != nil {
		metrics.RecordDelivery(channel, "cancelled")
		return
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.InitialInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := j.deliverer.Deliver(ctx, j.recipient, j.message)
		if errors.Is(err, ErrNoAddress) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(d.opts.MaxTries))

	switch {
	case err == nil:
		metrics.RecordDelivery(channel, "")
	case errors.Is(err, ErrNoAddress):
		metrics.RecordDelivery(channel, "skipped")
		entry.Debug("recipient has no address for channel")
	default:
		metrics.RecordDelivery(channel, "failed")
		entry.WithError(err).Warn("notification delivery failed")
	}
}

// List returns the notifications of recipientID.
func (d *Dispatcher) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]model.Notification, error) {
	out, err := d.store.ListNotifications(ctx, recipientID, unreadOnly)
	if err != nil {
		return nil, apperror.Internal("failed to list notifications", err)
	}
	return out, nil
}

// MarkRead marks one notification of recipientID as read.
func (d *Dispatcher) MarkRead(ctx context.Context, recipientID uuid.UUID, id uint) error {
	err := d.store.MarkRead(ctx, recipientID, id, d.now())
	if err == nil || apperror.Is(err, apperror.KindNotFound) {
		return err
	}
	return apperror.Internal("failed to mark notification read", err)
}
