package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/led-sequencer/internal/gpio"
	"github.com/sweeney/led-sequencer/internal/led"
	"github.com/sweeney/led-sequencer/internal/logic"
	"github.com/sweeney/led-sequencer/internal/metrics"
	"github.com/sweeney/led-sequencer/internal/serial"
	"github.com/sweeney/led-sequencer/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TickPeriodMs: 1,
		SerialDevice: "/dev/ttyS0",
		Broker:       "tcp://192.168.1.200:1883",
		HTTPPort:     ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, metrics.New().Handler())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

// runMachine steps a fresh machine through n ticks, recording transitions.
func runMachine(t *testing.T, tr *status.Tracker, n int) *logic.Machine {
	t.Helper()
	m := logic.NewMachine(led.NewDriver(gpio.NewFakePort(0)), serial.NewTransmitter(serial.NewFakePort()))
	for i := 0; i < n; i++ {
		m.HandleTick()
		next, err := m.Step()
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if next != nil {
			tr.RecordTransition(*next, time.Date(2026, 1, 1, 0, 0, i/1000, 0, time.UTC))
		}
	}
	tr.Update(m)
	return m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	runMachine(t, tr, 3500)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "LED_PATTERN_1" {
		t.Errorf("State: got %q, want LED_PATTERN_1", sj.Status.State)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if sj.Status.Tick != 3500 {
		t.Errorf("Tick: got %d, want 3500", sj.Status.Tick)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counters.Transitions != 2 {
		t.Errorf("Counters.Transitions: got %d, want 2", sj.Status.Counters.Transitions)
	}
	if sj.Status.LastTransition == nil || sj.Status.LastTransition.To != "LED_PATTERN_1" {
		t.Errorf("LastTransition: got %+v", sj.Status.LastTransition)
	}
	if sj.Status.Config.TickPeriodMs != 1 {
		t.Errorf("Config.TickPeriodMs: got %d, want 1", sj.Status.Config.TickPeriodMs)
	}
}

func TestJSONUnknownStateBeforeStart(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before start: got %q, want UNKNOWN", sj.Status.State)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false before start")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	runMachine(t, tr, 1200)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{"IDLE", "INIT &rarr; IDLE", `class="led-green on"`, `class="led-blue off"`} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "mqtt.min.js") {
		t.Error("live script should be omitted without a websocket broker")
	}
}

func TestHTMLLiveScript(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{WSBroker: "ws://192.168.1.200:9001"})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	if !strings.Contains(page, "mqtt.min.js") {
		t.Error("expected live script")
	}
	if !strings.Contains(page, `embedded\/sequencer\/transitions`) {
		t.Error("expected transitions topic in live script")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sequencer_ticks") {
		t.Error("expected sequencer_ticks in exposition")
	}
}

func TestMetricsDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	runMachine(t, tr, 6500)
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj2.Status.State != "LED_PATTERN_2" {
		t.Errorf("State: got %q, want LED_PATTERN_2", sj2.Status.State)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
