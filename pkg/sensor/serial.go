package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/fanguard/pkg/sample"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the firmware UART.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds the wait for one line.
	DefaultReadTimeout = 500 * time.Millisecond

	microG = 1e-6
)

// Serial reads accelerometer lines streamed by the firmware front end.
// Only the most recent line is kept; Read waits for the next one.
type Serial struct {
	port        string
	baudRate    int
	readTimeout time.Duration
	logger      *slog.Logger

	conn      io.ReadCloser
	latest    chan sample.Triple
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// NewSerial creates a reader for the given serial port.
func NewSerial(port string, baudRate int, readTimeout time.Duration, logger *slog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:        port,
		baudRate:    baudRate,
		readTimeout: readTimeout,
		logger:      logger,
		latest:      make(chan sample.Triple, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Ports returns the names of available serial ports.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Connect opens the serial port and starts reading lines.
func (s *Serial) Connect() error {
	port, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}
	return s.attach(port)
}

func (s *Serial) attach(conn io.ReadCloser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	s.conn = conn
	s.connected = true

	go s.readLines(conn)

	return nil
}

// Close closes the port and stops reading.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("error closing serial port", "port", s.port, "error", err)
		}
		s.conn = nil
	}

	s.connected = false

	return nil
}

// Read implements Reader. It returns ErrTimeout if no line arrives within
// the read timeout.
func (s *Serial) Read(ctx context.Context) (sample.Triple, error) {
	t := time.NewTimer(s.readTimeout)
	defer t.Stop()

	select {
	case v := <-s.latest:
		return v, nil
	case <-t.C:
		return sample.Triple{}, ErrTimeout
	case <-s.ctx.Done():
		return sample.Triple{}, ErrClosed
	case <-ctx.Done():
		return sample.Triple{}, ctx.Err()
	}
}

// readLines parses lines from the port and keeps only the newest sample.
func (s *Serial) readLines(conn io.Reader) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if s.ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := parseLine(line)
		if err != nil {
			s.logger.Debug("failed to parse line", "line", line, "error", err)
			continue
		}

		// Replace a stale sample the sampler has not picked up.
		select {
		case s.latest <- v:
		default:
			select {
			case <-s.latest:
			default:
			}
			select {
			case s.latest <- v:
			default:
			}
		}
	}

	if err := scanner.Err(); err != nil && s.ctx.Err() == nil {
		s.logger.Error("error reading from serial port", "port", s.port, "error", err)
	}
}

// parseLine parses one firmware line into a Triple in g.
// Format: x,y,z in micro-g, e.g. "12000,-3400,981000".
func parseLine(line string) (sample.Triple, error) {
	parts := strings.Split(line, ",")
	if len(parts) != sample.Axes {
		return sample.Triple{}, fmt.Errorf("invalid line format: expected %d comma-separated values, got %d", sample.Axes, len(parts))
	}

	var t sample.Triple
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return sample.Triple{}, fmt.Errorf("invalid axis %d: %w", i, err)
		}
		t[i] = float32(float64(v) * microG)
	}
	return t, nil
}
