package config

import (
	"os"
	"strings"
)

// ApplyEnvConfig applies LISAT_* environment variables, skipping flags listed in changed.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setIntFromString("baud", os.Getenv("LISAT_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", os.Getenv("LISAT_READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", os.Getenv("LISAT_WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("monitor-interval", os.Getenv("LISAT_MONITOR_INTERVAL"), &cfg.MonitorInterval); err != nil {
		return err
	}
	if err := s.setDuration("settle-delay", os.Getenv("LISAT_SETTLE_DELAY"), &cfg.SettleDelay); err != nil {
		return err
	}

	s.setString("driver", os.Getenv("LISAT_DRIVER"), &cfg.Driver)
	s.setString("device", os.Getenv("LISAT_DEVICE"), &cfg.Device)
	s.setBoolFromString("auto-connect", os.Getenv("LISAT_AUTO_CONNECT"), &cfg.AutoConnect)
	if v := os.Getenv("LISAT_PORT_PATTERNS"); v != "" {
		s.setStrings("port-pattern", strings.Split(v, ","), &cfg.PortPatterns)
	}
	s.setBoolFromString("usb-only", os.Getenv("LISAT_USB_ONLY"), &cfg.USBOnly)
	s.setString("watch-dir", os.Getenv("LISAT_WATCH_DIR"), &cfg.WatchDir)

	s.setString("listen", os.Getenv("LISAT_LISTEN"), &cfg.Listen)
	s.setString("rotctld-listen", os.Getenv("LISAT_ROTCTLD_LISTEN"), &cfg.RotctldListen)
	s.setString("static-dir", os.Getenv("LISAT_STATIC_DIR"), &cfg.StaticDir)

	if err := s.setIntFromString("workers", os.Getenv("LISAT_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-size", os.Getenv("LISAT_QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("simulate", os.Getenv("LISAT_SIMULATE"), &cfg.Simulate); err != nil {
		return err
	}

	s.setString("mqtt-broker", os.Getenv("LISAT_MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-topic", os.Getenv("LISAT_MQTT_TOPIC"), &cfg.MQTTTopic)

	s.setString("log-level", os.Getenv("LISAT_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("LISAT_LOG_FORMAT"), &cfg.LogFormat)
	return nil
}
