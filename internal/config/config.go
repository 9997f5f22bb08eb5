// Package config loads daemon configuration from defaults, an optional YAML
// file and SEQ_-prefixed environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/led-sequencer/internal/gpio"
	"github.com/sweeney/led-sequencer/internal/systick"
)

// EnvPrefix prefixes every environment variable, e.g. SEQ_MQTT_BROKER.
const EnvPrefix = "SEQ"

// Config holds all daemon configuration.
type Config struct {
	TickPeriod time.Duration `yaml:"tick_period" envconfig:"TICK_PERIOD"`
	Simulate   bool          `yaml:"simulate" envconfig:"SIMULATE"`

	LED    LEDConfig    `yaml:"led"`
	Serial SerialConfig `yaml:"serial"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
}

// LEDConfig selects the GPIO lines the LEDs are wired to.
type LEDConfig struct {
	Chip    string `yaml:"chip" envconfig:"CHIP"`
	Offsets []int  `yaml:"offsets" envconfig:"OFFSETS"`
}

// SerialConfig selects the UART used for status output.
type SerialConfig struct {
	Device string `yaml:"device" envconfig:"DEVICE"`
	Baud   int    `yaml:"baud" envconfig:"BAUD"`
}

// MQTTConfig holds broker settings. An empty Broker disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker" envconfig:"BROKER"`
	ClientID string `yaml:"client_id" envconfig:"CLIENT_ID"`
	WSBroker string `yaml:"ws_broker" envconfig:"WS_BROKER"`
	Buffer   int    `yaml:"buffer" envconfig:"BUFFER"`
}

// HTTPConfig holds the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Development bool   `yaml:"development" envconfig:"DEV"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickPeriod: systick.Period,
		LED: LEDConfig{
			Chip:    gpio.DefaultChip,
			Offsets: append([]int(nil), gpio.DefaultLEDOffsets...),
		},
		Serial: SerialConfig{
			Device: "/dev/ttyS0",
			Baud:   115200,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://192.168.1.200:1883",
			WSBroker: "=broker",
			Buffer:   100,
		},
		HTTP: HTTPConfig{Addr: ":80"},
		Log:  LogConfig{Level: "info"},
	}
}

// An Override adjusts the loaded configuration before it is validated.
// Command-line flags are applied this way.
type Override func(*Config)

// Load builds the configuration. path may be empty to skip the file.
// overrides run after the file and the environment, in order.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	for _, o := range overrides {
		o(&cfg)
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "led-sequencer-" + uuid.NewString()[:8]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.TickPeriod <= 0 {
		errs = append(errs, fmt.Errorf("tick_period must be positive, got %v", c.TickPeriod))
	}
	if !c.Simulate {
		if len(c.LED.Offsets) != 4 {
			errs = append(errs, fmt.Errorf("led.offsets needs 4 lines, got %d", len(c.LED.Offsets)))
		}
		if c.Serial.Device == "" {
			errs = append(errs, errors.New("serial.device is required"))
		}
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.MQTT.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("mqtt.buffer must be positive, got %d", c.MQTT.Buffer))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
