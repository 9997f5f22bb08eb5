package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/led-sequencer/internal/led"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string          `json:"event,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	State           string          `json:"state"`
	Ready           bool            `json:"ready"`
	Tick            uint32          `json:"tick"`
	StateTimerTicks uint32          `json:"state_timer_ticks"`
	LEDPattern      uint32          `json:"led_pattern"`
	LEDs            []string        `json:"leds"`
	UptimeSeconds   int64           `json:"uptime_seconds"`
	MachineSeconds  uint32          `json:"machine_uptime_seconds"`
	StartTime       string          `json:"start_time"`
	Timestamp       string          `json:"timestamp"`
	MQTT            MQTTStatus      `json:"mqtt"`
	Counters        CountersJSON    `json:"counters"`
	LastTransition  *TransitionJSON `json:"last_transition,omitempty"`
	Network         *NetworkJSON    `json:"network,omitempty"`
	Config          ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountersJSON is the JSON representation of the machine counters.
type CountersJSON struct {
	Interrupts    uint32 `json:"interrupts"`
	Transitions   uint32 `json:"transitions"`
	Faults        uint32 `json:"faults"`
	StatusReports uint32 `json:"status_reports"`
	UARTMessages  uint32 `json:"uart_messages"`
	UARTBytes     uint64 `json:"uart_bytes"`
}

// TransitionJSON is the JSON representation of a transition.
type TransitionJSON struct {
	Timestamp string `json:"timestamp"`
	Tick      uint32 `json:"tick"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message"`
	Fault     bool   `json:"fault,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickPeriodMs int64  `json:"tick_period_ms"`
	Simulate     bool   `json:"simulate"`
	SerialDevice string `json:"serial_device"`
	Broker       string `json:"broker"`
	HTTPPort     string `json:"http_port"`
	WSBroker     string `json:"ws_broker,omitempty"`
}

// NewTransitionJSON converts a transition record for output.
func NewTransitionJSON(r TransitionRecord) TransitionJSON {
	return TransitionJSON{
		Timestamp: r.Time.UTC().Format(time.RFC3339),
		Tick:      r.Tick,
		From:      r.From.String(),
		To:        r.To.String(),
		Message:   r.Message,
		Fault:     r.Fault,
	}
}

func buildInner(snap Snapshot) StatusInner {
	state := snap.State.String()
	if !snap.Started {
		state = "UNKNOWN"
	}
	leds := led.Names(snap.Pattern)
	if leds == nil {
		leds = []string{}
	}

	inner := StatusInner{
		State:           state,
		Ready:           snap.Started,
		Tick:            snap.Tick,
		StateTimerTicks: snap.StateTimer,
		LEDPattern:      snap.Pattern,
		LEDs:            leds,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		MachineSeconds:  snap.Tick / 1000,
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counters: CountersJSON{
			Interrupts:    snap.Counters.Interrupts,
			Transitions:   snap.Counters.Transitions,
			Faults:        snap.Counters.Faults,
			StatusReports: snap.Counters.StatusReports,
			UARTMessages:  snap.Counters.Messages,
			UARTBytes:     snap.Counters.Bytes,
		},
		Config: ConfigJSON{
			TickPeriodMs: snap.Config.TickPeriodMs,
			Simulate:     snap.Config.Simulate,
			SerialDevice: snap.Config.SerialDevice,
			Broker:       snap.Config.Broker,
			HTTPPort:     snap.Config.HTTPPort,
			WSBroker:     snap.Config.WSBroker,
		},
	}
	if last := snap.LastTransition(); last != nil {
		tj := NewTransitionJSON(*last)
		inner.LastTransition = &tj
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
