package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher decouples event producers from consumers. Publish never blocks
// the caller's transaction: events are queued and handled on background
// workers, so a slow consumer cannot fail or delay a lifecycle operation.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	Close()
}

// asyncDispatcher queues events on a bounded channel drained by worker
// goroutines. When the queue is full the event is dropped and logged; the
// outbound notifications it feeds are best-effort by contract.
type asyncDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	queue     chan Event
	logger    *zap.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAsyncDispatcher creates a dispatcher with the given queue size and
// worker count.
func NewAsyncDispatcher(queueSize, workers int, logger *zap.Logger) Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	d := &asyncDispatcher{
		listeners: make(map[EventType][]EventHandler),
		queue:     make(chan Event, queueSize),
		logger:    logger,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Publish enqueues the event without blocking.
func (d *asyncDispatcher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *asyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Close stops accepting events and waits for queued ones to drain.
func (d *asyncDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *asyncDispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.mu.RLock()
		handlers := append([]EventHandler{}, d.listeners[event.Type]...)
		d.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(context.Background(), event); err != nil {
				d.logger.Warn("event handler failed",
					zap.String("type", string(event.Type)),
					zap.String("ticket_id", event.TicketID),
					zap.Error(err))
			}
		}
	}
}
