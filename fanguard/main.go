// fanguard monitors a rotating machine with an accelerometer: it calibrates
// the sampling rate to the dominant vibration frequency, then classifies
// per-window RMS features and ships the results over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/itohio/fanguard/pkg/config"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configPath string
	sensor     string
	port       string
	broker     string
	logLevel   string
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "fanguard",
		Short: "Adaptive-rate vibration anomaly monitor",
		Long: `fanguard samples an accelerometer at a fixed high rate once to find the
dominant vibration frequency, derives a steady sampling rate from it, and then
classifies fixed-length RMS windows forever. Window records are published to
an MQTT broker, or logged when no broker is configured.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "config.yaml", "configuration file path")
	f.StringVar(&opts.sensor, "sensor", "", "sensor kind override (mock, serial, mpu9250)")
	f.StringVarP(&opts.port, "port", "p", "", "serial port override (e.g., COM3 or /dev/ttyACM0)")
	f.StringVar(&opts.broker, "broker", "", "MQTT broker URL override (e.g., tcp://localhost:1883)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.sensor != "" {
		cfg.Sensor.Kind = opts.sensor
	}
	if opts.port != "" {
		cfg.Sensor.Port = opts.port
	}
	if opts.broker != "" {
		cfg.MQTT.Broker = opts.broker
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	app, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("fanguard starting",
		"version", version,
		"sensor", cfg.Sensor.Kind,
		"classifier", cfg.Classifier.Kind,
		"broker", cfg.MQTT.Broker,
	)

	err = app.scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down", "samples", app.scheduler.Samples(), "dropped", app.queue.Dropped())
		return nil
	}
	if err != nil {
		return fmt.Errorf("sampler stopped: %w", err)
	}
	return nil
}
