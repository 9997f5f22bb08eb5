// Package logic contains the cooperative system state machine.
// This package has NO hardware, MQTT, OS or time dependencies: the tick
// handler is called by whatever tick source the platform provides, and the
// LED and UART outputs are injected.
package logic

// State is an operating phase of the system.
type State uint32

const (
	StateInit State = iota
	StateIdle
	StateLEDPattern1
	StateLEDPattern2
	StateUARTComm
	StateError
)

var stateNames = [...]string{
	StateInit:        "INIT",
	StateIdle:        "IDLE",
	StateLEDPattern1: "LED_PATTERN_1",
	StateLEDPattern2: "LED_PATTERN_2",
	StateUARTComm:    "UART_COMM",
	StateError:       "ERROR",
}

// String returns the state name, or UNKNOWN for an unrecognized value.
func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Valid reports whether s is a recognized state.
func (s State) Valid() bool {
	return s <= StateError
}

// Durations in ticks. ERROR has none: it is terminal.
const (
	InitDuration        = 1000
	IdleDuration        = 2000
	LEDPattern1Duration = 3000
	LEDPattern2Duration = 4000
	UARTCommDuration    = 2000
)

// Timing of the deferred UART work, in ticks.
const (
	StatusInterval   = 5000
	UARTCommInterval = 500
)

// phase describes what follows a state when its timer expires.
type phase struct {
	next     State
	duration uint32
	message  string
}

var phases = map[State]phase{
	StateInit:        {StateIdle, IdleDuration, "System initialized - entering IDLE state"},
	StateIdle:        {StateLEDPattern1, LEDPattern1Duration, "Entering LED Pattern 1 state"},
	StateLEDPattern1: {StateLEDPattern2, LEDPattern2Duration, "Entering LED Pattern 2 state"},
	StateLEDPattern2: {StateUARTComm, UARTCommDuration, "Entering UART Communication state"},
	StateUARTComm:    {StateIdle, IdleDuration, "Returning to IDLE state"},
}

// FaultMessage is transmitted when the machine finds an unrecognized state.
const FaultMessage = "ERROR: Unknown state detected"

// Transition records one state change.
type Transition struct {
	Tick    uint32
	From    State
	To      State
	Message string
	// Fault is set when the transition was forced by an unrecognized state.
	Fault bool
	// Count is the total number of transitions including this one.
	Count uint32
}

// Counters tracks activity since startup.
type Counters struct {
	Interrupts    uint32
	Transitions   uint32
	Faults        uint32
	StatusReports uint32
	Messages      uint32
	Bytes         uint64
}

// StatusReport contains the data of one periodic status report.
type StatusReport struct {
	Tick          uint32
	UptimeSeconds uint32
	State         State
	Counters      Counters
	Text          string
}

// LEDs shows a 4-bit display pattern.
type LEDs interface {
	Set(pattern uint32) error
}

// Console transmits text on the serial line.
type Console interface {
	WriteString(s string) error
	Messages() uint32
	Bytes() uint64
}
