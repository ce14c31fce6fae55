package device

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the bridge firmware baud rate.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds the wait for one response line.
	DefaultTimeout = 500 * time.Millisecond

	// maxLineLength bounds a response line; longer input is discarded.
	maxLineLength = 64
	// readPoll is the serial read timeout used while waiting for a line.
	readPoll = 20 * time.Millisecond
)

var (
	// ErrTimeout is returned when the bridge does not answer in time.
	ErrTimeout = errors.New("device: response timeout")

	// ErrBridge is returned when the bridge answers with an error line.
	ErrBridge = errors.New("device: bridge error")
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}
	return result, nil
}

// conn is the part of serial.Port the bridge uses.
type conn interface {
	io.ReadWriteCloser
}

// Serial is a connection to the sensor bridge MCU. The bridge speaks a
// newline terminated request/response protocol:
//
//	A<ch>  -> A<ch>,<code>      analog sample, 12-bit
//	N      -> N,<count>         one-wire device count
//	R<i>   -> R<i>,<16 hex>     one-wire ROM code
//	T<i>   -> T<i>,<celsius>    one-wire temperature
//	any    -> E,<request>,<reason>  failure of request
//
// Requests are serialized; Serial is safe for concurrent use.
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	conn      conn
	pending   []byte
	buf       [maxLineLength]byte
	connected bool
}

// NewSerial creates a bridge connection for port. Zero baudRate or timeout
// select the defaults.
func NewSerial(port string, baudRate int, timeout time.Duration, log zerolog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		timeout:  timeout,
		log:      log.With().Str("component", "bridge").Str("port", port).Logger(),
	}
}

// Connect opens the serial port.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}
	if err := port.SetReadTimeout(readPoll); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", d.port, err)
	}

	d.attach(port)
	return nil
}

// attach installs an open connection. Callers hold d.mu.
func (d *Serial) attach(c conn) {
	d.conn = c
	d.pending = d.pending[:0]
	d.connected = true
}

// Close closes the serial port.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.connected = false
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", d.port, err)
	}
	return nil
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Sample implements ADC.
func (d *Serial) Sample(channel int) (uint16, error) {
	if channel < 0 || channel >= ADCChannels {
		return 0, fmt.Errorf("%w: %d", ErrChannel, channel)
	}
	value, err := d.transact("A" + strconv.Itoa(channel))
	if err != nil {
		return 0, err
	}
	return parseCode(value)
}

// DeviceCount implements OneWire.
func (d *Serial) DeviceCount() (int, error) {
	value, err := d.transact("N")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid device count %q", value)
	}
	return n, nil
}

// Address implements OneWire.
func (d *Serial) Address(index int) (Address, error) {
	value, err := d.transact("R" + strconv.Itoa(index))
	if err != nil {
		return Address{}, err
	}
	return ParseAddress(value)
}

// Temperature implements OneWire.
func (d *Serial) Temperature(index int) (float32, error) {
	value, err := d.transact("T" + strconv.Itoa(index))
	if err != nil {
		return 0, err
	}
	t, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature %q: %w", value, err)
	}
	return float32(t), nil
}

// transact sends one request and returns the payload of its response.
// Lines answering other requests (left over from a timed out exchange) are
// skipped.
func (d *Serial) transact(request string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return "", ErrNotConnected
	}

	if _, err := d.conn.Write([]byte(request + "\n")); err != nil {
		return "", fmt.Errorf("failed to send %q: %w", request, err)
	}

	deadline := time.Now().Add(d.timeout)
	for {
		line, err := d.readLine(deadline)
		if err != nil {
			return "", fmt.Errorf("request %q: %w", request, err)
		}
		value, err := parseResponse(line, request)
		if errors.Is(err, errStale) {
			d.log.Debug().Str("line", line).Msg("skipping stale response")
			continue
		}
		return value, err
	}
}

// readLine returns the next non-empty line received before deadline.
func (d *Serial) readLine(deadline time.Time) (string, error) {
	for {
		if i := bytes.IndexByte(d.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(d.pending[:i]))
			d.pending = d.pending[i+1:]
			if line == "" {
				continue
			}
			return line, nil
		}
		if len(d.pending) > maxLineLength {
			d.pending = d.pending[:0]
			return "", fmt.Errorf("response line exceeds %d bytes", maxLineLength)
		}
		if !time.Now().Before(deadline) {
			return "", ErrTimeout
		}

		// a read timeout returns 0 bytes and no error
		n, err := d.conn.Read(d.buf[:])
		if err != nil {
			return "", fmt.Errorf("failed to read from serial port: %w", err)
		}
		d.pending = append(d.pending, d.buf[:n]...)
	}
}

var errStale = errors.New("response to another request")

// parseResponse parses a bridge line answering request.
// Format: <request>,<value> or E,<request>,<reason>. Error lines echo the
// request so a late failure is not blamed on the next request.
func parseResponse(line, request string) (string, error) {
	tag, value, ok := strings.Cut(line, ",")
	if !ok {
		return "", fmt.Errorf("invalid response %q: missing separator", line)
	}
	if tag == "E" {
		failed, reason, _ := strings.Cut(value, ",")
		if failed != request {
			return "", errStale
		}
		return "", fmt.Errorf("%w: %s", ErrBridge, reason)
	}
	if tag != request {
		return "", errStale
	}
	return value, nil
}

// parseCode parses a 12-bit conversion result.
func parseCode(value string) (uint16, error) {
	code, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid sample %q: %w", value, err)
	}
	if code > ADCMax {
		return 0, fmt.Errorf("sample out of range: %d (max %d)", code, ADCMax)
	}
	return uint16(code), nil
}
