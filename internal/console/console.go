// Package console builds the diagnostic text log. Lines go to stderr and,
// when a port is configured, to a serial console.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/pion/logging"
	"go.bug.st/serial"
)

// DefaultBaudRate is the usual serial monitor speed.
const DefaultBaudRate = 115200

// ParseLevel converts a level name to a pion log level.
func ParseLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "", "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLoggerFactory returns a factory whose loggers write to w at level.
func NewLoggerFactory(w io.Writer, level logging.LogLevel) *logging.DefaultLoggerFactory {
	f := logging.NewDefaultLoggerFactory()
	f.Writer = w
	f.DefaultLogLevel = level
	return f
}

// OpenSerial opens a serial port for writing diagnostics.
func OpenSerial(port string, baud int) (io.WriteCloser, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return &crlfWriter{w: p, c: p}, nil
}

// crlfWriter translates "\n" to "\r\n" for serial terminals.
type crlfWriter struct {
	w io.Writer
	c io.Closer
}

func (cw *crlfWriter) Write(p []byte) (int, error) {
	out := strings.ReplaceAll(string(p), "\n", "\r\n")
	if _, err := io.WriteString(cw.w, out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (cw *crlfWriter) Close() error {
	return cw.c.Close()
}

// Tee returns a writer that copies to every non-nil writer. A failing serial
// port does not stop the others from receiving the line.
func Tee(writers ...io.Writer) io.Writer {
	var ws []io.Writer
	for _, w := range writers {
		if w != nil {
			ws = append(ws, w)
		}
	}
	return &teeWriter{ws: ws}
}

type teeWriter struct {
	ws []io.Writer
}

func (t *teeWriter) Write(p []byte) (int, error) {
	var first error
	for _, w := range t.ws {
		if _, err := w.Write(p); err != nil && first == nil {
			first = err
		}
	}
	return len(p), first
}
