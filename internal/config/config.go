// Package config loads escapement daemon configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration. Zero-valued fields are filled
// with defaults by Load; command-line flags may override afterwards.
type Config struct {
	Coil     CoilConfig     `yaml:"coil"`
	Thermo   ThermoConfig   `yaml:"thermometer"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Display  DisplayConfig  `yaml:"display"`
	HTTP     HTTPConfig     `yaml:"http"`
	Settings SettingsConfig `yaml:"settings"`
}

// CoilConfig names the GPIO lines driving the bendulum coil.
type CoilConfig struct {
	SensePin int `yaml:"sense_pin"` // BCM line for pass detection
	KickPin  int `yaml:"kick_pin"`  // BCM line for the impulse pulse
}

// ThermoConfig names the I2C temperature sensor.
type ThermoConfig struct {
	Bus     string `yaml:"bus"`
	Addr    uint16 `yaml:"addr"`
	Disable bool   `yaml:"disable"` // run uncompensated even if a sensor is present
}

// MQTTConfig holds broker settings for telemetry.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	HeartbeatMs int64  `yaml:"heartbeat_ms"` // 0 disables heartbeats
}

// DisplayConfig names the serial clock display. An empty port disables it.
type DisplayConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// HTTPConfig holds the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SettingsConfig names the persistent calibration file.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Coil: CoilConfig{
			SensePin: 17,
			KickPin:  27,
		},
		Thermo: ThermoConfig{
			Bus:  "1",
			Addr: 0x48,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			HeartbeatMs: 60000,
		},
		Display: DisplayConfig{
			Baud: 9600,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Settings: SettingsConfig{
			Path: "/var/lib/escapement/settings.bin",
		},
	}
}

// Load reads a YAML config file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Coil.SensePin == 0 {
		c.Coil.SensePin = d.Coil.SensePin
	}
	if c.Coil.KickPin == 0 {
		c.Coil.KickPin = d.Coil.KickPin
	}
	if c.Thermo.Bus == "" {
		c.Thermo.Bus = d.Thermo.Bus
	}
	if c.Thermo.Addr == 0 {
		c.Thermo.Addr = d.Thermo.Addr
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = d.MQTT.Broker
	}
	if c.Display.Baud == 0 {
		c.Display.Baud = d.Display.Baud
	}
	if c.Settings.Path == "" {
		c.Settings.Path = d.Settings.Path
	}
}
