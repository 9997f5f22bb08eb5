// Package systick delivers periodic ticks to an interrupt-style handler and
// wakes the main loop after each one.
package systick

import (
	"context"
	"time"
)

// Period is the tick interval the state machine is timed against.
const Period = time.Millisecond

// Handler is called once per tick. It must not block.
type Handler interface {
	HandleTick()
}

// Run calls h.HandleTick for every value received on tick, then posts a
// wake-up on wake without blocking. A pending wake-up is never lost: the
// main loop always gets at least one wake after the latest tick.
// Run returns when ctx is done or tick is closed.
func Run(ctx context.Context, tick <-chan time.Time, h Handler, wake chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-tick:
			if !ok {
				return
			}
			h.HandleTick()
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}

// Start runs a ticker at period in its own goroutine. The returned function
// stops it and waits for the goroutine to exit.
func Start(ctx context.Context, period time.Duration, h Handler, wake chan<- struct{}) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(period)
	done := make(chan struct{})

	go func() {
		defer close(done)
		Run(ctx, ticker.C, h, wake)
	}()

	return func() {
		cancel()
		ticker.Stop()
		<-done
	}
}
