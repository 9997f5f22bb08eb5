package logic

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sweeney/led-sequencer/internal/led"
)

// Machine sequences the operating phases.
//
// HandleTick is the interrupt side and may run on any goroutine. Every other
// method belongs to the main loop and must not be called concurrently.
// The tick counter, state timer and status requests are the fields shared
// between the two sides; they are atomics, and the expiry of the state
// timer is consumed with a single compare-and-swap.
type Machine struct {
	leds    LEDs
	console Console

	ticks          atomic.Uint32
	timer          atomic.Uint32
	statusRequests atomic.Uint32

	state          State
	lastTick       uint32
	patternCounter uint32
	pattern        uint32
	transitions    uint32
	faults         uint32
	statusReports  uint32
}

// NewMachine creates a Machine in INIT with the state timer armed.
func NewMachine(leds LEDs, console Console) *Machine {
	m := &Machine{
		leds:    leds,
		console: console,
		state:   StateInit,
	}
	m.timer.Store(InitDuration)
	return m
}

var banner = []string{
	"\r\n=== Practical Embedded System Started ===\r\n",
	"Features: SysTick, GPIO, UART, State Machine\r\n",
	"SysTick: 1ms\r\n",
	"==========================================\r\n\r\n",
}

// Start turns the LEDs off and transmits the startup banner.
func (m *Machine) Start() error {
	if err := m.show(0); err != nil {
		return err
	}
	for _, line := range banner {
		if err := m.console.WriteString(line); err != nil {
			return fmt.Errorf("startup banner: %w", err)
		}
	}
	return nil
}

// HandleTick advances time by one tick. It never blocks and never touches
// the LEDs or the console; the status report it requests every
// StatusInterval ticks is produced later by CheckStatus.
//
// The tick counter is a uint32 and wraps to zero after 2^32 ticks, about
// 49.7 days at 1ms. 2^32 is not a multiple of StatusInterval, so the status
// cadence shifts at the wrap: tick 0 requests a report 2296 ticks after the
// previous one, and later reports line up with tick 0.
func (m *Machine) HandleTick() {
	t := m.ticks.Add(1)

	for {
		v := m.timer.Load()
		if v == 0 || m.timer.CompareAndSwap(v, v-1) {
			break
		}
	}

	if t%StatusInterval == 0 {
		m.statusRequests.Add(1)
	}
}

// Step runs one main-loop iteration: it drives the LEDs for the current
// state and, if the state timer has expired, moves to the next state.
// It may be called any number of times per tick.
//
// A non-nil Transition is returned when the state changed. Port failures
// are returned as an error; the state change still applies.
func (m *Machine) Step() (*Transition, error) {
	now := m.ticks.Load()
	newTick := now != m.lastTick
	if newTick {
		m.patternCounter++
		m.lastTick = now
	}

	var errs []error
	switch m.state {
	case StateInit:
	case StateIdle:
		errs = appendErr(errs, m.show(led.Green))
	case StateLEDPattern1:
		errs = appendErr(errs, m.show(led.Sequential(m.patternCounter)))
	case StateLEDPattern2:
		errs = appendErr(errs, m.show(led.BinaryCounter(m.patternCounter)))
	case StateUARTComm:
		errs = appendErr(errs, m.show(led.Blink(now, led.Blue)))
		if newTick && now%UARTCommInterval == 0 {
			errs = appendErr(errs, m.send("UART Communication active"))
		}
	case StateError:
		errs = appendErr(errs, m.show(led.Blink(now, led.Red)))
		return nil, errors.Join(errs...)
	default:
		tr := m.fault(now)
		errs = appendErr(errs, m.send(FaultMessage))
		return tr, errors.Join(errs...)
	}

	tr := m.advance(now)
	if tr != nil {
		errs = appendErr(errs, m.send(tr.Message))
	}
	return tr, errors.Join(errs...)
}

// advance consumes an expired state timer. The swap from zero to the next
// duration is what makes the transition fire once per expiry.
func (m *Machine) advance(now uint32) *Transition {
	p, ok := phases[m.state]
	if !ok {
		return nil
	}
	if !m.timer.CompareAndSwap(0, p.duration) {
		return nil
	}

	from := m.state
	m.state = p.next
	m.transitions++
	return &Transition{
		Tick:    now,
		From:    from,
		To:      p.next,
		Message: p.message,
		Count:   m.transitions,
	}
}

func (m *Machine) fault(now uint32) *Transition {
	from := m.state
	m.state = StateError
	m.transitions++
	m.faults++
	return &Transition{
		Tick:    now,
		From:    from,
		To:      StateError,
		Message: FaultMessage,
		Fault:   true,
		Count:   m.transitions,
	}
}

// CheckStatus transmits a status report if the tick handler has requested
// one since the last call. Requests that piled up while the main loop was
// busy produce a single report. Returns nil when no report was due.
func (m *Machine) CheckStatus() (*StatusReport, error) {
	if m.statusRequests.Swap(0) == 0 {
		return nil, nil
	}

	m.statusReports++
	now := m.ticks.Load()
	r := &StatusReport{
		Tick:          now,
		UptimeSeconds: now / 1000,
		State:         m.state,
		Counters:      m.Counters(),
	}
	r.Text = FormatStatus(*r)

	if err := m.console.WriteString(r.Text); err != nil {
		return r, fmt.Errorf("status report: %w", err)
	}
	return r, nil
}

// SetState overwrites the current state without a transition. It exists to
// inject a corrupted state value; the next Step treats an unrecognized
// value as a fault.
func (m *Machine) SetState(s State) {
	m.state = s
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Ticks returns the tick counter.
func (m *Machine) Ticks() uint32 {
	return m.ticks.Load()
}

// StateTimer returns the ticks left before the current state times out.
func (m *Machine) StateTimer() uint32 {
	return m.timer.Load()
}

// PatternCounter returns the LED pattern counter.
func (m *Machine) PatternCounter() uint32 {
	return m.patternCounter
}

// Pattern returns the last LED pattern successfully shown.
func (m *Machine) Pattern() uint32 {
	return m.pattern
}

// Counters returns a copy of the activity counters.
func (m *Machine) Counters() Counters {
	return Counters{
		Interrupts:    m.ticks.Load(),
		Transitions:   m.transitions,
		Faults:        m.faults,
		StatusReports: m.statusReports,
		Messages:      m.console.Messages(),
		Bytes:         m.console.Bytes(),
	}
}

func (m *Machine) show(pattern uint32) error {
	if err := m.leds.Set(pattern); err != nil {
		return fmt.Errorf("set leds: %w", err)
	}
	m.pattern = pattern
	return nil
}

func (m *Machine) send(line string) error {
	if err := m.console.WriteString(line + "\r\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}
