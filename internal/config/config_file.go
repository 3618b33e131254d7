package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but keeps durations as strings for TOML.
type FileConfig struct {
	Baud            int      `toml:"baud"`
	ReadTimeout     string   `toml:"read_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
	MonitorInterval string   `toml:"monitor_interval"`
	SettleDelay     string   `toml:"settle_delay"`
	Driver          string   `toml:"driver"`
	Device          string   `toml:"device"`
	AutoConnect     *bool    `toml:"auto_connect"`
	PortPatterns    []string `toml:"port_patterns"`
	USBOnly         *bool    `toml:"usb_only"`
	WatchDir        string   `toml:"watch_dir"`
	Listen          string   `toml:"listen"`
	RotctldListen   string   `toml:"rotctld_listen"`
	StaticDir       string   `toml:"static_dir"`
	Workers         int      `toml:"workers"`
	QueueSize       int      `toml:"queue_size"`
	Simulate        int      `toml:"simulate"`
	MQTTBroker      string   `toml:"mqtt_broker"`
	MQTTTopic       string   `toml:"mqtt_topic"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.lisat/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".lisat", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values to cfg, skipping flags listed in changed.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt("baud", fc.Baud, &cfg.Baud)
	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("monitor-interval", fc.MonitorInterval, &cfg.MonitorInterval); err != nil {
		return err
	}
	if err := s.setDuration("settle-delay", fc.SettleDelay, &cfg.SettleDelay); err != nil {
		return err
	}

	s.setString("driver", fc.Driver, &cfg.Driver)
	s.setString("device", fc.Device, &cfg.Device)
	s.setBool("auto-connect", fc.AutoConnect, &cfg.AutoConnect)
	s.setStrings("port-pattern", fc.PortPatterns, &cfg.PortPatterns)
	s.setBool("usb-only", fc.USBOnly, &cfg.USBOnly)
	s.setString("watch-dir", fc.WatchDir, &cfg.WatchDir)

	s.setString("listen", fc.Listen, &cfg.Listen)
	s.setString("rotctld-listen", fc.RotctldListen, &cfg.RotctldListen)
	s.setString("static-dir", fc.StaticDir, &cfg.StaticDir)

	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("simulate", fc.Simulate, &cfg.Simulate)

	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTTTopic, &cfg.MQTTTopic)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	return nil
}

// FileExists reports whether a file exists at p.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
