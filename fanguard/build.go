package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/itohio/fanguard/pkg/anomaly"
	"github.com/itohio/fanguard/pkg/config"
	"github.com/itohio/fanguard/pkg/dispatch"
	"github.com/itohio/fanguard/pkg/power"
	"github.com/itohio/fanguard/pkg/scheduler"
	"github.com/itohio/fanguard/pkg/sensor"
	"github.com/itohio/fanguard/pkg/transmit"
)

// application is the wired sampling chain.
type application struct {
	scheduler *scheduler.Scheduler
	queue     *dispatch.Queue
	closers   []io.Closer
}

// Close releases hardware handles in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}

	reader, err := buildSensor(cfg, logger, app)
	if err != nil {
		app.Close()
		return nil, err
	}

	classifier, err := buildClassifier(ctx, cfg.Classifier)
	if err != nil {
		app.Close()
		return nil, err
	}
	evaluator := anomaly.NewEvaluator(
		classifier,
		cfg.Classifier.Threshold,
		anomaly.ParseFailPolicy(cfg.Classifier.FailPolicy),
		logger.With("component", "evaluator"),
	)

	tx, radio := buildTransmitter(cfg, logger)
	if !cfg.Power.QuiesceRadio {
		radio = nil
	}

	app.queue = dispatch.NewQueue(cfg.Dispatch.QueueSize)
	disp := dispatch.New(app.queue, tx, logger.With("component", "dispatch"))

	app.scheduler = scheduler.New(
		&cfg.Sampling,
		reader,
		power.NewHost(radio),
		evaluator,
		disp,
		logger.With("component", "scheduler"),
	)
	return app, nil
}

func buildSensor(cfg *config.Config, logger *slog.Logger, app *application) (sensor.Reader, error) {
	log := logger.With("component", "sensor")

	var reader sensor.Reader
	switch cfg.Sensor.Kind {
	case config.SensorSerial:
		s := sensor.NewSerial(cfg.Sensor.Port, cfg.Sensor.BaudRate, cfg.Sensor.ReadTimeout, log)
		if err := s.Connect(); err != nil {
			return nil, err
		}
		app.closers = append(app.closers, s)
		reader = s
	case config.SensorMPU9250:
		m, err := sensor.NewMPU9250(cfg.Sensor.SPIDevice, cfg.Sensor.CSPin, cfg.Sensor.AccelRange, log)
		if err != nil {
			return nil, fmt.Errorf("mpu9250: %w", err)
		}
		reader = m
	case config.SensorMock:
		reader = sensor.NewMock(&cfg.Mock, nil)
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", cfg.Sensor.Kind)
	}

	r := cfg.Sensor.Retry
	return sensor.WithRetry(reader, sensor.NewBackoff(r.MaxAttempts, r.MinInterval, r.MaxInterval, log)), nil
}

func buildClassifier(ctx context.Context, cfg config.ClassifierConfig) (anomaly.Classifier, error) {
	switch cfg.Kind {
	case config.ClassifierSageMaker:
		return anomaly.NewSageMaker(ctx, cfg.Endpoint, cfg.Region, cfg.ContentType, cfg.Timeout)
	case config.ClassifierLimit:
		return anomaly.Limit{Max: float32(cfg.RMSLimit)}, nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", cfg.Kind)
	}
}

// buildTransmitter picks MQTT when a broker is configured and the log sink
// otherwise. The returned radio is nil for the log sink.
func buildTransmitter(cfg *config.Config, logger *slog.Logger) (dispatch.Transmitter, power.Radio) {
	log := logger.With("component", "transmit")
	if cfg.MQTT.Broker == "" {
		return transmit.NewLog(log), nil
	}
	m := transmit.NewMQTT(cfg.MQTT, log)
	return m, m
}
