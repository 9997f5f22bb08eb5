// Command led-sequencer runs the LED/UART state machine on a tick source
// and publishes its transitions and status to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/led-sequencer/internal/config"
	"github.com/sweeney/led-sequencer/internal/gpio"
	"github.com/sweeney/led-sequencer/internal/led"
	"github.com/sweeney/led-sequencer/internal/logging"
	"github.com/sweeney/led-sequencer/internal/logic"
	"github.com/sweeney/led-sequencer/internal/metrics"
	"github.com/sweeney/led-sequencer/internal/mqtt"
	"github.com/sweeney/led-sequencer/internal/serial"
	"github.com/sweeney/led-sequencer/internal/status"
	"github.com/sweeney/led-sequencer/internal/systick"
	"github.com/sweeney/led-sequencer/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	sim := flag.Bool("sim", false, "Simulate the LEDs and write UART output to stdout")
	printState := flag.Bool("print-state", false, "Print current LED state and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	flag.Parse()

	// Flags given on the command line win over file and environment.
	cfg, err := config.Load(*configPath, func(cfg *config.Config) {
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "sim":
				cfg.Simulate = *sim
			case "http":
				cfg.HTTP.Addr = *httpAddr
			case "broker":
				cfg.MQTT.Broker = *broker
			case "ws-broker":
				cfg.MQTT.WSBroker = *wsBroker
			}
		})
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg.MQTT.WSBroker = resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker, log)
	if err := run(cfg, *printState, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg *config.Config, printState bool, log *zap.Logger) error {
	// Print state mode
	if printState {
		reg, err := readLEDs(cfg)
		if err != nil {
			return fmt.Errorf("read leds: %w", err)
		}
		fmt.Println(formatLEDs(led.FromRegister(reg)))
		return nil
	}

	ledPort, uartPort, err := openPorts(cfg)
	if err != nil {
		return err
	}
	defer ledPort.Close()
	defer uartPort.Close()

	machine := logic.NewMachine(led.NewDriver(ledPort), serial.NewTransmitter(uartPort))

	mx := metrics.New()

	// Initialize MQTT. Broker round trips happen on the async publisher's
	// goroutine; the main loop only queues.
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Buffer:   cfg.MQTT.Buffer,
		}, log)
		async := mqtt.NewAsyncPublisher(p, cfg.MQTT.Buffer, func(err error) {
			log.Warn("publish error", zap.Error(err))
			mx.PublishErrors.Inc()
		})
		defer async.Close()
		publisher, mqttStatus = async, p
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickPeriodMs: cfg.TickPeriod.Milliseconds(),
		Simulate:     cfg.Simulate,
		SerialDevice: cfg.Serial.Device,
		Broker:       cfg.MQTT.Broker,
		HTTPPort:     cfg.HTTP.Addr,
		WSBroker:     cfg.MQTT.WSBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if err := machine.Start(); err != nil {
		return fmt.Errorf("start machine: %w", err)
	}
	tracker.Update(machine)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("failed to publish startup event", zap.Error(err))
		mx.PublishErrors.Inc()
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, mx.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", zap.String("addr", cfg.HTTP.Addr))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	wake := make(chan struct{}, 1)
	stop := systick.Start(context.Background(), cfg.TickPeriod, machine, wake)
	defer stop()

	log.Info("started",
		zap.Duration("tick", cfg.TickPeriod),
		zap.Bool("simulate", cfg.Simulate),
		zap.String("broker", cfg.MQTT.Broker),
		zap.String("client_id", cfg.MQTT.ClientID),
	)

	return runLoop(machine, publisher, mqttStatus, tracker, mx, log, time.Now, wake, sigCh)
}

// openPorts returns the LED register and UART for the configured mode.
func openPorts(cfg *config.Config) (gpio.Port, serial.Port, error) {
	if cfg.Simulate {
		return gpio.NewFakePort(0), serial.NewWriterPort(os.Stdout), nil
	}

	ledPort, err := gpio.NewRealPort(cfg.LED.Chip, cfg.LED.Offsets, led.Shift)
	if err != nil {
		return nil, nil, fmt.Errorf("init gpio: %w", err)
	}
	uartPort, err := serial.NewRealPort(cfg.Serial.Device, cfg.Serial.Baud)
	if err != nil {
		ledPort.Close()
		return nil, nil, fmt.Errorf("init uart: %w", err)
	}
	return ledPort, uartPort, nil
}

func readLEDs(cfg *config.Config) (uint32, error) {
	if cfg.Simulate {
		return 0, nil
	}
	return gpio.ReadRegister(cfg.LED.Chip, cfg.LED.Offsets, led.Shift)
}

func runLoop(machine *logic.Machine, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, mx *metrics.Metrics, log *zap.Logger, now func() time.Time, wake <-chan struct{}, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Info("shutting down", zap.Stringer("signal", s))
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			tracker.Update(machine)
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn("failed to publish shutdown event", zap.Error(err))
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-wake:
			step(machine, publisher, mqttStatus, tracker, mx, log, now)
		}
	}
}

// step runs one main-loop iteration and reports what it produced. Port and
// publish failures are logged and counted; they never stop the loop.
func step(machine *logic.Machine, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, mx *metrics.Metrics, log *zap.Logger, now func() time.Time) {
	tr, err := machine.Step()
	if err != nil {
		log.Warn("step error", zap.Error(err))
		mx.StepErrors.Inc()
	}

	if tr != nil {
		t := now()
		fields := []zap.Field{
			zap.Uint32("tick", tr.Tick),
			zap.Stringer("from", tr.From),
			zap.Stringer("to", tr.To),
			zap.Uint32("count", tr.Count),
		}
		if tr.Fault {
			log.Error("state fault", fields...)
		} else {
			log.Info("transition", fields...)
		}

		tracker.RecordTransition(*tr, t)
		mx.RecordTransition(*tr)
		if err := publisher.Publish(mqtt.TransitionEvent{Timestamp: t, Transition: *tr}); err != nil {
			log.Warn("publish error", zap.Error(err))
			mx.PublishErrors.Inc()
		}
	}

	report, err := machine.CheckStatus()
	if err != nil {
		log.Warn("status report error", zap.Error(err))
		mx.StepErrors.Inc()
	}

	tracker.Update(machine)
	tracker.SetMQTTConnected(mqttStatus.IsConnected())
	mx.Observe(machine)

	if report == nil {
		return
	}

	log.Info("status report",
		zap.Uint32("uptime_s", report.UptimeSeconds),
		zap.Stringer("state", report.State),
		zap.Uint32("ticks", report.Tick),
		zap.Uint32("transitions", report.Counters.Transitions),
	)
	mx.StatusReports.Inc()

	// Refresh network info for the status event
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	snap := tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  now(),
		Event:      "STATUS",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STATUS", ""),
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Warn("status publish error", zap.Error(err))
		mx.PublishErrors.Inc()
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// formatLEDs renders pattern as "green=ON orange=OFF red=OFF blue=OFF".
func formatLEDs(pattern uint32) string {
	var out string
	for i, bit := range []uint32{led.Green, led.Orange, led.Red, led.Blue} {
		if i > 0 {
			out += " "
		}
		state := "OFF"
		if pattern&bit != 0 {
			state = "ON"
		}
		out += led.Names(bit)[0] + "=" + state
	}
	return out
}

// resolveWSBroker converts the ws-broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty or
// "off" disables.
func resolveWSBroker(ws, broker string, log *zap.Logger) string {
	if ws == "off" || ws == "" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	if broker == "" {
		return ""
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Warn("ws-broker: cannot parse broker", zap.String("broker", broker), zap.Error(err))
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
