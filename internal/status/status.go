// Package status provides a thread-safe status tracker for the led-sequencer daemon.
// It is written by the main loop and read by HTTP handlers and MQTT events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// historySize is how many recent transitions a snapshot carries.
const historySize = 10

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickPeriodMs int64
	Simulate     bool
	SerialDevice string
	Broker       string
	HTTPPort     string
	WSBroker     string // Websocket broker URL for browser MQTT (empty = disabled)
}

// TransitionRecord is a transition with the wall-clock time it was observed.
type TransitionRecord struct {
	logic.Transition
	Time time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State          logic.State
	Started        bool
	Tick           uint32
	StateTimer     uint32
	Pattern        uint32
	PatternCounter uint32
	Counters       logic.Counters
	History        []TransitionRecord
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Network        *NetworkInfo
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// LastTransition returns the most recent transition, or nil if none.
func (s Snapshot) LastTransition() *TransitionRecord {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update copies the machine's state and counters.
// Called from runLoop after every step, on the machine's goroutine.
func (t *Tracker) Update(m *logic.Machine) {
	state := m.State()
	tick := m.Ticks()
	timer := m.StateTimer()
	pattern := m.Pattern()
	counter := m.PatternCounter()
	counters := m.Counters()

	t.mu.Lock()
	t.snap.Started = true
	t.snap.State = state
	t.snap.Tick = tick
	t.snap.StateTimer = timer
	t.snap.Pattern = pattern
	t.snap.PatternCounter = counter
	t.snap.Counters = counters
	t.mu.Unlock()
}

// RecordTransition appends tr to the recent history.
func (t *Tracker) RecordTransition(tr logic.Transition, at time.Time) {
	t.mu.Lock()
	h := append(t.snap.History, TransitionRecord{Transition: tr, Time: at})
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	// Copy so snapshots handed out earlier never see later appends.
	t.snap.History = append([]TransitionRecord(nil), h...)
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
