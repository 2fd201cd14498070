package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/events"
)

// EventWorker consumes dispatched events off the request path. Events are
// queued without blocking; when the queue is full the event is dropped and
// logged.
type EventWorker struct {
	name    string
	queue   chan events.Event
	handle  func(context.Context, events.Event) error
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newEventWorker(name string, buffer int, handle func(context.Context, events.Event) error, logger *zap.Logger) *EventWorker {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventWorker{
		name:    name,
		queue:   make(chan events.Event, buffer),
		handle:  handle,
		logger:  logger.With(zap.String("worker", name)),
		timeout: 15 * time.Second,
	}
}

// subscribe registers the worker for every event type and starts it.
func (w *EventWorker) subscribe(dispatcher events.Dispatcher) {
	dispatcher.SubscribeAll(w.enqueue)
	w.wg.Add(1)
	go w.run()
}

func (w *EventWorker) enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("event queue full; dropping event",
			zap.String("event_id", event.ID), zap.String("event", string(event.Type)))
	}
	return nil
}

func (w *EventWorker) run() {
	defer w.wg.Done()
	for event := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.handle(ctx, event); err != nil {
			w.logger.Warn("event handling failed",
				zap.String("event_id", event.ID), zap.String("event", string(event.Type)), zap.Error(err))
		}
		cancel()
	}
}

// Stop drains the queue and waits for the worker to finish. Events
// published after Stop are not accepted.
func (w *EventWorker) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
