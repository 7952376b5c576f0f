package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for configurations that cannot run.
var ErrInvalid = errors.New("invalid configuration")

// Sensor kinds.
const (
	SensorMock    = "mock"
	SensorSerial  = "serial"
	SensorMPU9250 = "mpu9250"
)

// Classifier kinds.
const (
	ClassifierLimit     = "limit"
	ClassifierSageMaker = "sagemaker"
)

// Classifier failure policies.
const (
	FailOpen   = "open"
	FailClosed = "closed"
)

// Config represents the application configuration.
type Config struct {
	Sensor     SensorConfig     `yaml:"sensor"`
	Sampling   SamplingConfig   `yaml:"sampling"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Power      PowerConfig      `yaml:"power"`
	Mock       MockConfig       `yaml:"mock"`
	Log        LogConfig        `yaml:"log"`
}

// SensorConfig selects and configures the accelerometer source.
type SensorConfig struct {
	Kind        string        `yaml:"kind"`         // mock, serial or mpu9250
	Port        string        `yaml:"port"`         // serial port of the firmware front end
	BaudRate    int           `yaml:"baud_rate"`    // serial baud rate
	ReadTimeout time.Duration `yaml:"read_timeout"` // max wait for one serial line
	SPIDevice   string        `yaml:"spi_device"`   // MPU9250 SPI device path
	CSPin       string        `yaml:"cs_pin"`       // MPU9250 chip-select GPIO name
	AccelRange  byte          `yaml:"accel_range"`  // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	Retry       RetryConfig   `yaml:"retry"`
}

// RetryConfig configures backoff for transient sensor read failures.
type RetryConfig struct {
	MaxAttempts uint64        `yaml:"max_attempts"`
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

// SamplingConfig contains calibration and steady-state sampling parameters.
type SamplingConfig struct {
	CalibrationRateHz      int     `yaml:"calibration_rate_hz"`      // acquisition rate while calibrating
	CalibrationSamples     int     `yaml:"calibration_samples"`      // spectral buffer length N
	InitialMaxRateHz       int     `yaml:"initial_max_rate_hz"`      // hardware ceiling for the steady rate
	SessionDurationSeconds int     `yaml:"session_duration_seconds"` // RMS window length in seconds
	NoiseThreshold         float64 `yaml:"noise_threshold"`          // minimum spectral magnitude of a peak
	SafetyFactor           float64 `yaml:"safety_factor"`            // multiplier over the peak frequency
}

// ClassifierConfig configures the anomaly classifier and decision rule.
type ClassifierConfig struct {
	Kind        string        `yaml:"kind"`         // limit or sagemaker
	Threshold   float64       `yaml:"threshold"`    // anomaly iff P(label 0) > threshold
	FailPolicy  string        `yaml:"fail_policy"`  // open or closed
	RMSLimit    float64       `yaml:"rms_limit"`    // per-axis limit for the limit model (g)
	Endpoint    string        `yaml:"endpoint"`     // SageMaker endpoint name
	Region      string        `yaml:"region"`       // AWS region
	Timeout     time.Duration `yaml:"timeout"`      // per-inference timeout
	ContentType string        `yaml:"content_type"` // request content type
}

// DispatchConfig configures the outbound record queue.
type DispatchConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// MQTTConfig configures the transmission unit.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"` // empty selects the log sink
	ClientID       string        `yaml:"client_id"`
	Topic          string        `yaml:"topic"`
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// PowerConfig configures the power-saving suspend.
type PowerConfig struct {
	QuiesceRadio bool `yaml:"quiesce_radio"`
}

// MockConfig contains mock sensor parameters.
type MockConfig struct {
	ToneHz       float64       `yaml:"tone_hz"`       // dominant vibration frequency
	Amplitude    float64       `yaml:"amplitude"`     // tone amplitude (g)
	NoiseLevel   float64       `yaml:"noise_level"`   // uniform noise amplitude (g)
	FaultAfter   time.Duration `yaml:"fault_after"`   // 0 disables the simulated fault
	FaultGain    float64       `yaml:"fault_gain"`    // amplitude multiplier once faulted
	ReadDuration time.Duration `yaml:"read_duration"` // simulated I/O latency
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Kind:        SensorMock,
			Port:        "/dev/ttyACM0",
			BaudRate:    115200,
			ReadTimeout: 500 * time.Millisecond,
			SPIDevice:   "/dev/spidev0.0",
			CSPin:       "8",
			AccelRange:  0,
			Retry: RetryConfig{
				MaxAttempts: 3,
				MinInterval: 2 * time.Millisecond,
				MaxInterval: 50 * time.Millisecond,
			},
		},
		Sampling: SamplingConfig{
			CalibrationRateHz:      100,
			CalibrationSamples:     100,
			InitialMaxRateHz:       100,
			SessionDurationSeconds: 30,
			NoiseThreshold:         5.0,
			SafetyFactor:           2.5,
		},
		Classifier: ClassifierConfig{
			Kind:        ClassifierLimit,
			Threshold:   0.5,
			FailPolicy:  FailOpen,
			RMSLimit:    1.5,
			Region:      "eu-west-1",
			Timeout:     2 * time.Second,
			ContentType: "application/json",
		},
		Dispatch: DispatchConfig{
			QueueSize: 10,
		},
		MQTT: MQTTConfig{
			Broker:         "",
			Topic:          "fanguard/rms",
			QoS:            0,
			ConnectTimeout: 5 * time.Second,
			PublishTimeout: 2 * time.Second,
		},
		Power: PowerConfig{
			QuiesceRadio: true,
		},
		Mock: MockConfig{
			ToneHz:     10,
			Amplitude:  0.5,
			NoiseLevel: 0.01,
			FaultAfter: 0,
			FaultGain:  4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configurations the sampler cannot run with.
func (c *Config) Validate() error {
	s := c.Sampling
	switch {
	case s.CalibrationRateHz <= 0:
		return fmt.Errorf("%w: calibration_rate_hz must be positive", ErrInvalid)
	case s.CalibrationSamples < 3:
		return fmt.Errorf("%w: calibration_samples must be at least 3, got %d", ErrInvalid, s.CalibrationSamples)
	case s.InitialMaxRateHz < 2:
		return fmt.Errorf("%w: initial_max_rate_hz must be at least 2, got %d", ErrInvalid, s.InitialMaxRateHz)
	case s.SessionDurationSeconds <= 0:
		return fmt.Errorf("%w: session_duration_seconds must be positive", ErrInvalid)
	case s.SafetyFactor < 2:
		return fmt.Errorf("%w: safety_factor %.2f is below the Nyquist minimum", ErrInvalid, s.SafetyFactor)
	}

	if c.Classifier.Threshold <= 0 || c.Classifier.Threshold >= 1 {
		return fmt.Errorf("%w: classifier threshold %.2f outside (0,1)", ErrInvalid, c.Classifier.Threshold)
	}
	switch c.Classifier.FailPolicy {
	case FailOpen, FailClosed:
	default:
		return fmt.Errorf("%w: unknown fail_policy %q", ErrInvalid, c.Classifier.FailPolicy)
	}
	switch c.Classifier.Kind {
	case ClassifierLimit:
	case ClassifierSageMaker:
		if c.Classifier.Endpoint == "" {
			return fmt.Errorf("%w: sagemaker classifier needs an endpoint", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown classifier kind %q", ErrInvalid, c.Classifier.Kind)
	}

	switch c.Sensor.Kind {
	case SensorMock, SensorSerial, SensorMPU9250:
	default:
		return fmt.Errorf("%w: unknown sensor kind %q", ErrInvalid, c.Sensor.Kind)
	}
	if c.Sensor.AccelRange > 3 {
		return fmt.Errorf("%w: accel_range must be 0-3, got %d", ErrInvalid, c.Sensor.AccelRange)
	}

	if c.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalid)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt qos must be 0-2, got %d", ErrInvalid, c.MQTT.QoS)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Sensor.Kind == "" {
		c.Sensor.Kind = def.Sensor.Kind
	}
	if c.Sensor.Port == "" {
		c.Sensor.Port = def.Sensor.Port
	}
	if c.Sensor.BaudRate == 0 {
		c.Sensor.BaudRate = def.Sensor.BaudRate
	}
	if c.Sensor.ReadTimeout == 0 {
		c.Sensor.ReadTimeout = def.Sensor.ReadTimeout
	}
	if c.Sensor.SPIDevice == "" {
		c.Sensor.SPIDevice = def.Sensor.SPIDevice
	}
	if c.Sensor.CSPin == "" {
		c.Sensor.CSPin = def.Sensor.CSPin
	}
	if c.Sensor.Retry.MaxAttempts == 0 {
		c.Sensor.Retry.MaxAttempts = def.Sensor.Retry.MaxAttempts
	}
	if c.Sensor.Retry.MinInterval == 0 {
		c.Sensor.Retry.MinInterval = def.Sensor.Retry.MinInterval
	}
	if c.Sensor.Retry.MaxInterval == 0 {
		c.Sensor.Retry.MaxInterval = def.Sensor.Retry.MaxInterval
	}

	if c.Sampling.CalibrationRateHz == 0 {
		c.Sampling.CalibrationRateHz = def.Sampling.CalibrationRateHz
	}
	if c.Sampling.CalibrationSamples == 0 {
		c.Sampling.CalibrationSamples = def.Sampling.CalibrationSamples
	}
	if c.Sampling.InitialMaxRateHz == 0 {
		c.Sampling.InitialMaxRateHz = def.Sampling.InitialMaxRateHz
	}
	if c.Sampling.SessionDurationSeconds == 0 {
		c.Sampling.SessionDurationSeconds = def.Sampling.SessionDurationSeconds
	}
	if c.Sampling.NoiseThreshold == 0 {
		c.Sampling.NoiseThreshold = def.Sampling.NoiseThreshold
	}
	if c.Sampling.SafetyFactor == 0 {
		c.Sampling.SafetyFactor = def.Sampling.SafetyFactor
	}

	if c.Classifier.Kind == "" {
		c.Classifier.Kind = def.Classifier.Kind
	}
	if c.Classifier.Threshold == 0 {
		c.Classifier.Threshold = def.Classifier.Threshold
	}
	if c.Classifier.FailPolicy == "" {
		c.Classifier.FailPolicy = def.Classifier.FailPolicy
	}
	if c.Classifier.RMSLimit == 0 {
		c.Classifier.RMSLimit = def.Classifier.RMSLimit
	}
	if c.Classifier.Region == "" {
		c.Classifier.Region = def.Classifier.Region
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = def.Classifier.Timeout
	}
	if c.Classifier.ContentType == "" {
		c.Classifier.ContentType = def.Classifier.ContentType
	}

	if c.Dispatch.QueueSize == 0 {
		c.Dispatch.QueueSize = def.Dispatch.QueueSize
	}

	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.ConnectTimeout == 0 {
		c.MQTT.ConnectTimeout = def.MQTT.ConnectTimeout
	}
	if c.MQTT.PublishTimeout == 0 {
		c.MQTT.PublishTimeout = def.MQTT.PublishTimeout
	}

	if c.Mock.ToneHz == 0 {
		c.Mock.ToneHz = def.Mock.ToneHz
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}
	if c.Mock.FaultGain == 0 {
		c.Mock.FaultGain = def.Mock.FaultGain
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}
