package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/logging"
	"github.com/hackgods/clinic-booking-engine/internal/metrics"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
	KindAbsence      Kind = "absence"
	KindReminder     Kind = "reminder"
)

type Recipient struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Notification is a request to the external notifier. Rendering and delivery
// are the notifier's job; TemplateData carries the appointment facts.
type Notification struct {
	Kind          Kind              `json:"kind"`
	AppointmentID string            `json:"appointment_id"`
	Recipient     Recipient         `json:"recipient"`
	TemplateData  map[string]string `json:"template_data"`
}

// AuditEntry is append-only; the engine never reads it back.
type AuditEntry struct {
	Action   string
	ActorID  string
	At       time.Time
	Metadata map[string]any
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

type AuditSink interface {
	Append(ctx context.Context, e AuditEntry) error
}

type Options struct {
	QueueSize   int
	Workers     int
	TaskTimeout time.Duration
}

type task struct {
	audit        *AuditEntry
	notification *Notification
}

func (t task) kind() string {
	if t.audit != nil {
		return "audit"
	}
	return string(t.notification.Kind)
}

// Dispatcher runs post-commit side effects off the request path. Enqueueing
// never blocks: a full queue drops the task. Every task is attempted once and
// its failure is only logged and counted.
type Dispatcher struct {
	queue    chan task
	audit    AuditSink
	notifier Notifier
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.BookingMetrics

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func New(audit AuditSink, notifier Notifier, opts Options, logger *zap.Logger, m *metrics.BookingMetrics) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Second
	}
	return &Dispatcher{
		queue:    make(chan task, opts.QueueSize),
		audit:    audit,
		notifier: notifier,
		opts:     opts,
		logger:   logging.OrNop(logger),
		metrics:  m,
	}
}

// Start launches the workers. Task contexts outlive ctx's cancellation so
// that Close can drain what was already accepted.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for t := range d.queue {
				d.run(base, t)
			}
		}()
	}
}

func (d *Dispatcher) Audit(e AuditEntry) {
	if d == nil || d.audit == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	d.enqueue(task{audit: &e})
}

func (d *Dispatcher) Notify(n Notification) {
	if d == nil || d.notifier == nil {
		return
	}
	d.enqueue(task{notification: &n})
}

func (d *Dispatcher) enqueue(t task) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping side effect", zap.String("kind", t.kind()))
		d.metrics.ObserveDispatch(t.kind(), "dropped")
		return
	}
	select {
	case d.queue <- t:
	default:
		d.logger.Warn("dispatch queue full, dropping side effect", zap.String("kind", t.kind()))
		d.metrics.ObserveDispatch(t.kind(), "dropped")
	}
}

func (d *Dispatcher) run(base context.Context, t task) {
	ctx, cancel := context.WithTimeout(base, d.opts.TaskTimeout)
	defer cancel()

	err := d.attempt(ctx, t)
	if err != nil {
		fields := []zap.Field{zap.String("kind", t.kind()), zap.Error(err)}
		if t.notification != nil {
			fields = append(fields, zap.String("appointment_id", t.notification.AppointmentID))
		} else {
			fields = append(fields, zap.String("action", t.audit.Action))
		}
		d.logger.Warn("side effect failed", fields...)
		d.metrics.ObserveDispatch(t.kind(), "failed")
		return
	}
	d.metrics.ObserveDispatch(t.kind(), "sent")
}

func (d *Dispatcher) attempt(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if t.audit != nil {
		return d.audit.Append(ctx, *t.audit)
	}
	return d.notifier.Send(ctx, *t.notification)
}

// Close stops accepting tasks and waits for the accepted ones to finish or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if !started {
		for t := range d.queue {
			d.run(context.Background(), t)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain dispatcher: %w", ctx.Err())
	}
}
