package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"conecta/internal/errutil"
)

var (
	ErrDispatcherClosed = errors.New("email dispatcher is closed")
	ErrQueueFull        = errors.New("email queue is full")
)

// Message is one queued email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Dispatcher sends emails on background workers so request handlers never
// wait on SMTP. Enqueue never blocks; a full queue drops the message.
type Dispatcher struct {
	sender EmailSender
	logger *slog.Logger
	queue  chan Message
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender EmailSender, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sender: sender,
		logger: logger,
		queue:  make(chan Message, queueSize),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be sent,
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.sender.Send(msg.To, msg.Subject, msg.HTMLBody); err != nil {
			errutil.LogError(d.logger, "email delivery failed",
				oops.Code("EMAIL_DELIVERY_FAILED").With("subject", msg.Subject).Wrap(err))
			continue
		}
		d.logger.Info("email sent", "subject", msg.Subject)
	}
}
