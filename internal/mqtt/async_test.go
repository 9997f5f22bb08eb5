package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// gatedPublisher holds every publish until release is closed.
type gatedPublisher struct {
	FakePublisher
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedPublisher) Publish(event TransitionEvent) error {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.FakePublisher.Publish(event)
}

func (g *gatedPublisher) PublishSystem(event SystemEvent) error {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.FakePublisher.PublishSystem(event)
}

func TestAsyncPublisherPreservesOrder(t *testing.T) {
	fake := NewFakePublisher()
	p := NewAsyncPublisher(fake, 10, nil)

	p.Publish(TransitionEvent{Transition: logic.Transition{Tick: 1000, To: logic.StateIdle}})
	p.PublishSystem(SystemEvent{Event: "STATUS"})
	p.Publish(TransitionEvent{Transition: logic.Transition{Tick: 3000, To: logic.StateLEDPattern1}})

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.Events) != 2 || fake.Events[0].Tick != 1000 || fake.Events[1].Tick != 3000 {
		t.Errorf("unexpected transitions: %+v", fake.Events)
	}
	if len(fake.SystemEvents) != 1 || fake.SystemEvents[0].Event != "STATUS" {
		t.Errorf("unexpected system events: %+v", fake.SystemEvents)
	}
	if !fake.Closed {
		t.Error("expected the wrapped publisher to be closed")
	}
}

func TestAsyncPublisherDoesNotWaitForBroker(t *testing.T) {
	g := newGatedPublisher()
	p := NewAsyncPublisher(g, 1, nil)

	if err := p.PublishSystem(SystemEvent{Event: "STATUS"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		t.Fatal("publishing goroutine never picked up the event")
	}

	// The broker is stalled on the first event: one more fits in the queue,
	// the next is refused rather than waited on.
	if err := p.Publish(TransitionEvent{Transition: logic.Transition{Tick: 1000}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Publish(TransitionEvent{Transition: logic.Transition{Tick: 3000}}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(g.release)
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.SystemEvents) != 1 || len(g.Events) != 1 || g.Events[0].Tick != 1000 {
		t.Errorf("unexpected delivery: system=%d transitions=%+v", len(g.SystemEvents), g.Events)
	}
}

func TestAsyncPublisherReportsErrors(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishError = errors.New("broker unavailable")

	var errs []error
	p := NewAsyncPublisher(fake, 10, func(err error) { errs = append(errs, err) })

	if err := p.Publish(TransitionEvent{}); err != nil {
		t.Fatalf("queueing should succeed, got %v", err)
	}
	p.PublishSystem(SystemEvent{Event: "STARTUP"})
	p.Close()

	if len(errs) != 1 || errs[0] != fake.PublishError {
		t.Errorf("expected one reported error, got %v", errs)
	}
	if len(fake.SystemEvents) != 1 {
		t.Errorf("a failed event must not block the ones after it, got %d", len(fake.SystemEvents))
	}
}

func TestAsyncPublisherClose(t *testing.T) {
	fake := NewFakePublisher()
	p := NewAsyncPublisher(fake, 10, nil)

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "SHUTDOWN"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if len(fake.SystemEvents) != 0 {
		t.Errorf("nothing should reach a closed publisher, got %d", len(fake.SystemEvents))
	}
}
