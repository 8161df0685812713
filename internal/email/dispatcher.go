package email

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/BradenHooton/tipoca/pkg/logger"
)

const sendTimeout = 30 * time.Second

type DispatcherConfig struct {
	QueueSize     int
	Workers       int
	RatePerSecond float64
}

// Dispatcher queues messages and delivers them from background workers at a
// bounded rate. Send never blocks: a full queue drops the message.
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	limiter *rate.Limiter
	workers int
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(sender Sender, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = max(1, int(cfg.RatePerSecond))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, cfg.QueueSize),
		limiter: rate.NewLimiter(limit, burst),
		workers: cfg.Workers,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.logger.Info("email dispatcher started", slog.Int("workers", d.workers), slog.Int("queue_size", cap(d.queue)))
}

// Send enqueues msg. It returns models.ErrNotificationDropped when the queue
// is full or the dispatcher has stopped.
func (d *Dispatcher) Send(_ context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return models.ErrNotificationDropped
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		return models.ErrNotificationDropped
	}
}

// Stop closes the queue and waits for queued messages to drain. If ctx ends
// first, in-flight sends are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
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
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for msg := range d.queue {
		if err := d.limiter.Wait(d.ctx); err != nil {
			d.logger.Warn("email dropped during shutdown",
				slog.String("kind", msg.Kind),
				slog.String("email", logger.SanitizedEmail(msg.To)))
			continue
		}

		ctx, cancel := context.WithTimeout(d.ctx, sendTimeout)
		err := d.sender.Send(ctx, msg)
		cancel()
		if err != nil {
			d.logger.Error("failed to deliver email",
				slog.String("kind", msg.Kind),
				slog.String("email", logger.SanitizedEmail(msg.To)),
				slog.Any("error", err))
		}
	}
}
