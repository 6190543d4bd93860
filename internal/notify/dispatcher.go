package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "decobot/internal/errors"
)

const sendTimeout = 10 * time.Second

// Dispatcher delivers intents on a bounded worker pool. Delivery is best
// effort: a full queue or a transport error is logged and dropped, never
// reported back to the caller.
type Dispatcher struct {
	transport Transport
	renderer  *Renderer
	logger    *zap.Logger
	workers   int

	queue     chan Intent
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
}

func NewDispatcher(transport Transport, renderer *Renderer, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		transport: transport,
		renderer:  renderer,
		logger:    logger,
		workers:   workers,
		queue:     make(chan Intent, queueSize),
	}
}

func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run()
		}
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for in := range d.queue {
		d.Deliver(context.Background(), in)
	}
}

// Notify enqueues intents without blocking.
func (d *Dispatcher) Notify(ctx context.Context, intents ...Intent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, in := range intents {
		if d.closed {
			d.logFailure(in, nil, "dispatcher closed")
			continue
		}
		select {
		case d.queue <- in:
		default:
			d.logFailure(in, nil, "dispatch queue full")
		}
	}
}

// Deliver renders and sends one intent synchronously.
func (d *Dispatcher) Deliver(ctx context.Context, in Intent) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	text := d.renderer.Render(in)

	var err error
	if in.PhotoRef != "" {
		err = d.transport.SendPhoto(ctx, in.ChatID, in.PhotoRef, text, in.Keyboard)
	} else {
		err = d.transport.SendMessage(ctx, in.ChatID, text, in.Keyboard)
	}
	if err != nil {
		d.logFailure(in, err, "transport error")
		return
	}

	fields := []zap.Field{
		zap.String("template", string(in.Template)),
		zap.Int64("chatId", in.ChatID),
	}
	if in.Order != nil {
		fields = append(fields, zap.String("orderId", in.Order.ID))
	}
	d.logger.Debug("notification delivered", fields...)
}

// Close stops accepting intents and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.Start()
	d.wg.Wait()
}

func (d *Dispatcher) logFailure(in Intent, cause error, reason string) {
	err := apperrors.NewDispatchFailureError(string(in.Template), in.ChatID, cause)
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("template", string(in.Template)),
		zap.Int64("chatId", in.ChatID),
		zap.Error(err),
	}
	if in.Order != nil {
		fields = append(fields, zap.String("orderId", in.Order.ID))
	}
	d.logger.Warn("notification dropped", fields...)
}
