package device

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/gotemp/pkg/config"
)

// familyDS18B20 is the one-wire family code of the DS18B20 thermometer.
const familyDS18B20 = 0x28

// Mock simulates the sensor hardware for testing and development.
// Temperatures drift slowly around the configured mean with a little noise.
type Mock struct {
	cfg *config.MockConfig

	mu        sync.Mutex
	connected bool
	startTime time.Time
	rng       *rand.Rand
	now       func() time.Time

	addresses []Address
	codes     [ADCChannels]uint16
	failures  map[string]error
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			OneWireDevices: 2,
			Temperature:    21.5,
			Swing:          1.5,
			Period:         10 * time.Minute,
			Noise:          0.05,
			NTCCode:        2048,
		}
	}

	m := &Mock{
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(1, 2)),
		now:      time.Now,
		failures: make(map[string]error),
	}
	for i := range cfg.OneWireDevices {
		m.addresses = append(m.addresses, makeAddress(familyDS18B20, uint64(0x1B0000+i)))
	}
	for ch := range m.codes {
		m.codes[ch] = cfg.NTCCode
	}
	return m
}

// Connect simulates connecting to the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	m.connected = true
	m.startTime = m.now()
	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected returns whether the mock is connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetAddresses replaces the simulated bus population, in enumeration order.
func (m *Mock) SetAddresses(addrs ...Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses = append([]Address(nil), addrs...)
}

// SetCode sets the conversion result reported for an analog channel.
func (m *Mock) SetCode(channel int, code uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[channel] = code
}

// Fail makes the named operation ("sample", "count", "address", "temperature")
// return err until cleared with a nil err.
func (m *Mock) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Sample implements ADC.
func (m *Mock) Sample(channel int) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("sample"); err != nil {
		return 0, err
	}
	if channel < 0 || channel >= ADCChannels {
		return 0, fmt.Errorf("%w: %d", ErrChannel, channel)
	}
	return m.codes[channel], nil
}

// DeviceCount implements OneWire.
func (m *Mock) DeviceCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("count"); err != nil {
		return 0, err
	}
	return len(m.addresses), nil
}

// Address implements OneWire.
func (m *Mock) Address(index int) (Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("address"); err != nil {
		return Address{}, err
	}
	if index < 0 || index >= len(m.addresses) {
		return Address{}, fmt.Errorf("%w: %d", ErrNoDevice, index)
	}
	return m.addresses[index], nil
}

// Temperature implements OneWire.
func (m *Mock) Temperature(index int) (float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check("temperature"); err != nil {
		return 0, err
	}
	if index < 0 || index >= len(m.addresses) {
		return 0, fmt.Errorf("%w: %d", ErrNoDevice, index)
	}

	// spread devices in phase so they do not read identically
	phase := float32(index)
	if m.cfg.Period > 0 {
		elapsed := float32(m.now().Sub(m.startTime).Seconds())
		phase += 2 * math32.Pi * elapsed / float32(m.cfg.Period.Seconds())
	}
	noise := m.cfg.Noise * (2*m.rng.Float32() - 1)
	return m.cfg.Temperature + m.cfg.Swing*math32.Sin(phase) + noise, nil
}

// check returns the injected failure for op or ErrNotConnected. Callers hold m.mu.
func (m *Mock) check(op string) error {
	if !m.connected {
		return ErrNotConnected
	}
	if err, ok := m.failures[op]; ok {
		return fmt.Errorf("mock %s: %w", op, err)
	}
	return nil
}
