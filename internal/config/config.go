package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds the ground station configuration.
type Config struct {
	Baud            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MonitorInterval time.Duration
	SettleDelay     time.Duration

	// Driver selects the serial implementation: "tarm" or "bugst".
	Driver string
	// Device is the default target for a manual connect.
	Device       string
	AutoConnect  bool
	PortPatterns []string
	USBOnly      bool
	WatchDir     string

	Listen        string
	RotctldListen string
	StaticDir     string

	Workers   int
	QueueSize int

	// Simulate replaces the serial hardware with N in-memory actuators.
	Simulate int

	MQTTBroker string
	MQTTTopic  string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Baud:            9600,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		MonitorInterval: time.Second,
		SettleDelay:     200 * time.Millisecond,
		Driver:          "tarm",
		WatchDir:        "/dev",
		Listen:          "127.0.0.1:8502",
		StaticDir:       "static",
		Workers:         2,
		QueueSize:       16,
		MQTTTopic:       "lisat",
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("read and write timeouts must be positive")
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay must not be negative")
	}
	switch c.Driver {
	case "tarm", "bugst":
	default:
		return fmt.Errorf("unknown serial driver %q", c.Driver)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.Simulate < 0 {
		return fmt.Errorf("simulate must not be negative")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

// configSetter applies values unless the corresponding flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// Accepts "true" and "1" as true.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
