package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/w1xm/lisat_interface/events"
	"github.com/w1xm/lisat_interface/internal/config"
	"github.com/w1xm/lisat_interface/internal/logging"
	"github.com/w1xm/lisat_interface/link"
	"github.com/w1xm/lisat_interface/ports"
	"github.com/w1xm/lisat_interface/simulator"
	"github.com/w1xm/lisat_interface/station"
)

var longHelp = strings.TrimSpace(`
Drive the LiSat-1 solar panel tilt actuator over a serial link.

Connect manually to a named port or let auto-connect probe each candidate
until one accepts the neutral command. Tilt commands from 0 to 90 degrees
are accepted over HTTP, a websocket and an optional rotctld socket.
`)

var exampleUsage = strings.TrimSpace(`
  groundstation --auto-connect
  groundstation --device /dev/ttyUSB0 --rotctld-listen 127.0.0.1:4533
  groundstation --simulate 3 --log-level debug
`)

const portsDebounce = 500 * time.Millisecond

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := config.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "groundstation",
		Short:         "Serial controller for the LiSat-1 panel tilt actuator",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = config.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && config.FileExists(cfgFile) {
				fc, err := config.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := config.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			// LISAT_* override the file but not explicit flags.
			if err := config.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			log := logging.Logger()
			log.Info().Interface("config", cfg).Msg("configuration")
			return run(cfg)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.lisat/config.toml)")
	f.IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "serial read timeout")
	f.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "serial write timeout")
	f.DurationVar(&cfg.MonitorInterval, "monitor-interval", cfg.MonitorInterval, "interval between link liveness probes")
	f.DurationVar(&cfg.SettleDelay, "settle-delay", cfg.SettleDelay, "wait after the auto-connect probe")
	f.StringVar(&cfg.Driver, "driver", cfg.Driver, "serial driver: tarm or bugst")
	f.StringVar(&cfg.Device, "device", cfg.Device, "connect to this device at startup")
	f.BoolVar(&cfg.AutoConnect, "auto-connect", cfg.AutoConnect, "auto-connect at startup when no device is given")
	f.StringSliceVar(&cfg.PortPatterns, "port-pattern", cfg.PortPatterns, "glob limiting which ports are candidates (repeatable)")
	f.BoolVar(&cfg.USBOnly, "usb-only", cfg.USBOnly, "only offer USB serial adapters")
	f.StringVar(&cfg.WatchDir, "watch-dir", cfg.WatchDir, "directory watched for serial hotplug (empty disables)")
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
	f.StringVar(&cfg.RotctldListen, "rotctld-listen", cfg.RotctldListen, "rotctld listen address (empty disables)")
	f.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "directory containing static files")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "background workers")
	f.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "pending request limit")
	f.IntVar(&cfg.Simulate, "simulate", cfg.Simulate, "use N simulated actuators instead of serial ports")
	f.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "publish events to this MQTT broker (empty disables)")
	f.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")

	if err := root.Execute(); err != nil {
		log := logging.Logger()
		log.Error().Err(err).Msg("groundstation")
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	log := logging.Logger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var (
		opener link.Opener
		lister ports.Lister
	)
	if cfg.Simulate > 0 {
		bank := simulator.NewBank(ctx, cfg.Simulate, log.With().Str("component", "simulator").Logger())
		opener, lister = bank, bank
		g.Go(func() error {
			<-ctx.Done()
			return bank.Wait()
		})
	} else {
		o, err := link.NewOpener(cfg.Driver)
		if err != nil {
			return err
		}
		opener = o
		lister = ports.Enumerator{Patterns: cfg.PortPatterns, USBOnly: cfg.USBOnly, Log: log}
	}

	hub := events.NewHub(64)
	sink := events.Multi{hub, events.Logger{Log: log.With().Str("component", "events").Logger()}}
	if cfg.MQTTBroker != "" {
		mq, err := events.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopic, log)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer mq.Close()
		sink = append(sink, mq)
	}

	m := station.NewManager(opener, lister, sink,
		station.WithLinkConfig(link.Config{
			Baud:         cfg.Baud,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}),
		station.WithHandshaker(station.NeutralProbe{Settle: cfg.SettleDelay}),
		station.WithLogger(log),
	)
	panel := station.NewPanel(m, station.PanelConfig{
		Workers:         cfg.Workers,
		QueueSize:       cfg.QueueSize,
		MonitorInterval: cfg.MonitorInterval,
	})
	hub.OnPorts(lister.List())

	switch {
	case cfg.Device != "":
		panel.Connect(cfg.Device)
	case cfg.AutoConnect:
		panel.AutoConnect()
	}

	s := NewServer(panel, hub, log.With().Str("component", "server").Logger())
	srv := &http.Server{
		Handler:      s.Router(cfg.StaticDir),
		Addr:         cfg.Listen,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g.Go(func() error {
		return panel.Run(ctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Listen).Msg("serving HTTP")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.RotctldListen != "" {
		g.Go(func() error {
			log.Info().Str("addr", cfg.RotctldListen).Msg("serving rotctld")
			return s.ListenRotctld(ctx, cfg.RotctldListen)
		})
	}
	if cfg.Simulate == 0 && cfg.WatchDir != "" {
		g.Go(func() error {
			if err := ports.Watch(ctx, cfg.WatchDir, portsDebounce, lister, hub.OnPorts); err != nil {
				// GET /api/ports still rescans.
				log.Warn().Err(err).Msg("port watcher stopped")
			}
			return nil
		})
	}

	err := g.Wait()
	log.Info().Msg("shutdown complete")
	return err
}
