package audit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/eventbus"
)

// TopicInvocation carries Invocation payloads on the event bus.
const TopicInvocation = "tool.invoked"

// ErrDropped is returned by Async.Record when the bus could not take the entry.
var ErrDropped = errors.New("audit: invocation dropped")

// Async decouples recording from the request: Record publishes to the bus
// and a single writer goroutine drains it into the sink in publish order.
type Async struct {
	bus    *eventbus.Bus
	sink   Recorder
	logger *zap.Logger
	now    func() time.Time
	done   chan struct{}
}

// NewAsync subscribes to bus and starts the writer. Close stops it after the
// buffered entries have been written.
func NewAsync(sink Recorder, bus *eventbus.Bus, logger *zap.Logger) *Async {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Async{
		bus:    bus,
		sink:   sink,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go a.run(bus.Subscribe(TopicInvocation))
	return a
}

// Record stamps inv with the current time and publishes it.
func (a *Async) Record(_ context.Context, inv Invocation) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = a.now()
	}
	if !a.bus.Publish(TopicInvocation, inv) {
		return ErrDropped
	}
	return nil
}

func (a *Async) run(events <-chan eventbus.Event) {
	defer close(a.done)
	for evt := range events {
		inv, ok := evt.Payload.(Invocation)
		if !ok {
			continue
		}
		if err := a.sink.Record(context.Background(), inv); err != nil {
			a.logger.Error("write tool invocation", zap.String("tool", inv.Tool), zap.Error(err))
		}
	}
}

// Close closes the bus and waits for the writer to drain it.
func (a *Async) Close() error {
	if err := a.bus.Close(); err != nil {
		return err
	}
	<-a.done
	return nil
}
