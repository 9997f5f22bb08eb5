// Package metrics exposes state machine activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/led-sequencer/internal/logic"
)

// Metrics holds the sequencer collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	Ticks         prometheus.Gauge
	State         prometheus.Gauge
	StateTimer    prometheus.Gauge
	LEDPattern    prometheus.Gauge
	Transitions   *prometheus.CounterVec
	Faults        prometheus.Counter
	StatusReports prometheus.Counter
	UARTBytes     prometheus.Gauge
	StepErrors    prometheus.Counter
	PublishErrors prometheus.Counter
}

// New creates the collectors and registers them, plus the Go runtime
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sequencer_ticks",
			Help: "Ticks handled since startup",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sequencer_state",
			Help: "Current state (0=INIT 1=IDLE 2=LED_PATTERN_1 3=LED_PATTERN_2 4=UART_COMM 5=ERROR)",
		}),
		StateTimer: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sequencer_state_timer_ticks",
			Help: "Ticks left before the current state times out",
		}),
		LEDPattern: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sequencer_led_pattern",
			Help: "Current 4-bit LED pattern",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sequencer_transitions_total",
			Help: "State transitions by target state",
		}, []string{"to"}),
		Faults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencer_faults_total",
			Help: "Unrecognized states forced to ERROR",
		}),
		StatusReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencer_status_reports_total",
			Help: "Status reports transmitted",
		}),
		UARTBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sequencer_uart_bytes",
			Help: "Bytes transmitted on the UART since startup",
		}),
		StepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencer_step_errors_total",
			Help: "Main loop iterations that hit a port error",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sequencer_publish_errors_total",
			Help: "MQTT publish failures",
		}),
	}

	m.registry.MustRegister(
		m.Ticks, m.State, m.StateTimer, m.LEDPattern,
		m.Transitions, m.Faults, m.StatusReports,
		m.UARTBytes, m.StepErrors, m.PublishErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records the machine's current gauges.
func (m *Metrics) Observe(mc *logic.Machine) {
	c := mc.Counters()
	m.Ticks.Set(float64(mc.Ticks()))
	m.State.Set(float64(mc.State()))
	m.StateTimer.Set(float64(mc.StateTimer()))
	m.LEDPattern.Set(float64(mc.Pattern()))
	m.UARTBytes.Set(float64(c.Bytes))
}

// RecordTransition counts tr.
func (m *Metrics) RecordTransition(tr logic.Transition) {
	m.Transitions.WithLabelValues(tr.To.String()).Inc()
	if tr.Fault {
		m.Faults.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
