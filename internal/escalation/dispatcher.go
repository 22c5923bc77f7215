package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueSize   = 32
	defaultSendTimeout = 45 * time.Second
)

// Stats is a point-in-time snapshot of dispatcher outcomes.
type Stats struct {
	Delivered int
	Failed    int
	LastError string
}

// Dispatcher queues tickets and delivers them on a background worker.
// Chat requests never wait on SMTP or Zendesk; failures are logged and
// counted rather than silently dropped.
type Dispatcher struct {
	sender  Sender
	tasks   chan Ticket
	logger  *slog.Logger
	timeout time.Duration

	wg sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	delivered int
	failed    int
	lastErr   error
}

// NewDispatcher starts the worker. queueSize <= 0 uses the default.
func NewDispatcher(sender Sender, queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sender:  sender,
		tasks:   make(chan Ticket, queueSize),
		logger:  logger,
		timeout: defaultSendTimeout,
	}

	d.wg.Add(1)
	go d.worker()
	return d
}

// Enqueue hands a ticket to the worker. Returns false when the queue is
// full or the dispatcher is closed; the caller then tells the user the
// escalation did not go through.
func (d *Dispatcher) Enqueue(t Ticket) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}

	select {
	case d.tasks <- t:
		return true
	default:
		d.logger.Warn("escalation queue full, ticket rejected", "session", t.SessionID)
		return false
	}
}

// Close stops accepting tickets, drains the queue and waits for the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.tasks)
	d.wg.Wait()
}

// Stats returns delivery counters and the most recent failure.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{Delivered: d.delivered, Failed: d.failed}
	if d.lastErr != nil {
		s.LastError = d.lastErr.Error()
	}
	return s
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for t := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		delivery, err := d.sender.Send(ctx, t)
		cancel()

		d.mu.Lock()
		if err != nil {
			d.failed++
			d.lastErr = err
			d.mu.Unlock()
			d.logger.Error("ticket delivery failed",
				"method", d.sender.Method(),
				"session", t.SessionID,
				"error", err,
			)
			continue
		}
		d.delivered++
		d.mu.Unlock()

		d.logger.Info("ticket delivered",
			"method", delivery.Method,
			"mocked", delivery.Mocked,
			"ref", delivery.Ref,
			"session", t.SessionID,
		)
	}
}
