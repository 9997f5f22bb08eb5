package mqtt

import (
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when the publish queue has no room. The event
	// is dropped.
	ErrQueueFull = errors.New("publish queue full")

	// ErrClosed is returned for events handed to a closed AsyncPublisher.
	ErrClosed = errors.New("publisher closed")
)

// job carries exactly one of its events.
type job struct {
	transition *TransitionEvent
	system     *SystemEvent
}

// AsyncPublisher queues events for a background goroutine that publishes
// them on the wrapped Publisher, in order. Publish and PublishSystem return
// as soon as the event is queued and never wait on the broker.
type AsyncPublisher struct {
	next    Publisher
	onError func(error)
	queue   chan job
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher starts the publishing goroutine. size bounds the number
// of queued events. onError, if non-nil, receives every error returned by
// next; it is called from the publishing goroutine.
func NewAsyncPublisher(next Publisher, size int, onError func(error)) *AsyncPublisher {
	if size < 1 {
		size = 1
	}
	if onError == nil {
		onError = func(error) {}
	}
	p := &AsyncPublisher{
		next:    next,
		onError: onError,
		queue:   make(chan job, size),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *AsyncPublisher) loop() {
	defer close(p.done)
	for j := range p.queue {
		var err error
		if j.transition != nil {
			err = p.next.Publish(*j.transition)
		} else {
			err = p.next.PublishSystem(*j.system)
		}
		if err != nil {
			p.onError(err)
		}
	}
}

// Publish queues a state transition.
func (p *AsyncPublisher) Publish(event TransitionEvent) error {
	return p.enqueue(job{transition: &event})
}

// PublishSystem queues a system lifecycle event.
func (p *AsyncPublisher) PublishSystem(event SystemEvent) error {
	return p.enqueue(job{system: &event})
}

func (p *AsyncPublisher) enqueue(j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, publishes everything already queued, then
// closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.next.Close()
}
