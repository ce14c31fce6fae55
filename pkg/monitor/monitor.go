// Package monitor is the application context of the temperature monitor. It
// owns the sensor registry, the persisted settings records and the rolling
// per-sensor history, and serializes every operation on them.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/itohio/gotemp/pkg/config"
	"github.com/itohio/gotemp/pkg/device"
	"github.com/itohio/gotemp/pkg/logging"
	"github.com/itohio/gotemp/pkg/record"
	"github.com/itohio/gotemp/pkg/ring"
	"github.com/itohio/gotemp/pkg/sample"
	"github.com/itohio/gotemp/pkg/sensor"
	"github.com/itohio/gotemp/pkg/settings"
	"github.com/itohio/gotemp/pkg/store"
)

// Patch targets.
const (
	TargetNetwork      = "network"
	TargetAccessPoint  = "softap"
	TargetPresentation = "presentation"
	// TargetSensorPrefix is followed by the registry index: "sensors/3".
	TargetSensorPrefix = "sensors/"
)

var (
	// ErrUnknownTarget is returned by Patch for an unrecognized target.
	ErrUnknownTarget = errors.New("monitor: unknown patch target")

	// ErrUnknownSensor is returned for an identity not in the registry.
	ErrUnknownSensor = errors.New("monitor: unknown sensor")
)

// Reading is the latest value of one sensor in the presentation unit.
type Reading struct {
	Identity string
	Name     string
	Kind     sensor.Kind
	Active   bool
	Value    float32
	Unit     settings.Unit
}

// Monitor ties the hardware, the store and the persisted state together.
type Monitor struct {
	cfg   *config.Config
	dev   device.Device
	store store.Store
	ntc   *sample.NTC
	log   zerolog.Logger
	now   func() time.Time

	mu           sync.Mutex
	registry     *sensor.Registry
	network      *record.Record[settings.Network]
	accessPoint  *record.Record[settings.AccessPoint]
	presentation *record.Record[settings.Presentation]
	history      map[string]*ring.Buffer[sample.Sample]

	callbacks []func(readings []Reading)
	cbMu      sync.RWMutex
}

// New creates a monitor holding defaults. Call Boot to discover sensors and
// load persisted state.
func New(cfg *config.Config, dev device.Device, st store.Store, log zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:          cfg,
		dev:          dev,
		store:        st,
		ntc:          sample.NewNTC(cfg.NTC),
		log:          logging.WithComponent(log, "monitor"),
		now:          time.Now,
		registry:     sensor.New(dev, log),
		network:      settings.NewNetwork(log),
		accessPoint:  settings.NewAccessPoint(log),
		presentation: settings.NewPresentation(log),
		history:      make(map[string]*ring.Buffer[sample.Sample]),
	}
}

// Boot discovers the sensors, overlays the persisted sensor list and loads
// every settings record. Load failures are logged and leave defaults in place.
func (m *Monitor) Boot() sensor.DiscoveryReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := m.registry.Discover()
	clear(m.history)

	// failures are logged by the registry and records themselves
	_ = m.registry.Load(m.store)
	_ = m.network.Load(m.store)
	_ = m.accessPoint.Load(m.store)
	_ = m.presentation.Load(m.store)

	m.log.Info().
		Int("sensors", m.registry.Len()).
		Int("active", m.registry.NumActive()).
		Msg("monitor booted")
	return report
}

// Poll reads every active sensor once, records the value as the entry's last
// value and appends it to the sensor history. Sensors that fail to read keep
// their previous value; all read errors are returned joined.
func (m *Monitor) Poll() error {
	m.mu.Lock()
	ts := m.now()
	var errs []error
	for i, e := range m.registry.Entries() {
		if !e.Active {
			continue
		}
		v, err := m.read(e)
		if err != nil {
			m.log.Warn().Str("sensor", e.Identity).Str("reason", err.Error()).Msg("sensor read failed")
			errs = append(errs, fmt.Errorf("sensor %s: %w", e.Identity, err))
			continue
		}
		_ = m.registry.SetLastValue(i, v)
		m.push(e.Identity, sample.Sample{Timestamp: ts, Value: v})
	}
	readings := m.readings()
	m.mu.Unlock()

	m.notifyCallbacks(readings)
	return errors.Join(errs...)
}

func (m *Monitor) read(e sensor.Entry) (float32, error) {
	switch e.Kind {
	case sensor.NTC:
		code, err := m.dev.Sample(e.Channel)
		if err != nil {
			return 0, err
		}
		return m.ntc.Celsius(code)
	case sensor.OneWire:
		return m.dev.Temperature(e.Channel)
	default:
		return 0, fmt.Errorf("unsupported sensor kind %v", e.Kind)
	}
}

// push appends s to the history of identity. The first sample fills the
// whole buffer so charts start level.
func (m *Monitor) push(identity string, s sample.Sample) {
	h, ok := m.history[identity]
	if !ok {
		h = ring.New[sample.Sample](m.cfg.Sampling.HistoryLength)
		h.Fill(s)
		m.history[identity] = h
		return
	}
	h.PushBackEvictOldest(s)
}

// Patch applies document to target: "network", "softap", "presentation" or
// "sensors/<index>". The whole validate and apply sequence runs under the
// monitor lock.
func (m *Monitor) Patch(target string, document []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch target {
	case TargetNetwork:
		return m.network.Patch(document)
	case TargetAccessPoint:
		return m.accessPoint.Patch(document)
	case TargetPresentation:
		return m.presentation.Patch(document)
	}

	if idx, ok := strings.CutPrefix(target, TargetSensorPrefix); ok {
		index, err := strconv.Atoi(idx)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
		}
		return m.registry.PatchOne(index, document)
	}
	return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
}

// Modified reports whether any persisted state has unsaved changes.
func (m *Monitor) Modified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Modified() || m.network.Modified() ||
		m.accessPoint.Modified() || m.presentation.Modified()
}

// SaveModified saves every record with unsaved changes. A failed save keeps
// its modified flag so the next call retries it.
func (m *Monitor) SaveModified() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	save := func(modified bool, fn func(store.Store) error) {
		if !modified {
			return
		}
		if err := fn(m.store); err != nil {
			errs = append(errs, err)
		}
	}
	save(m.network.Modified(), m.network.Save)
	save(m.accessPoint.Modified(), m.accessPoint.Save)
	save(m.presentation.Modified(), m.presentation.Save)
	save(m.registry.Modified(), m.registry.Save)
	return errors.Join(errs...)
}

// Network returns the station network settings.
func (m *Monitor) Network() settings.Network {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network.Value()
}

// AccessPoint returns the soft access point settings.
func (m *Monitor) AccessPoint() settings.AccessPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessPoint.Value()
}

// Presentation returns the chart settings.
func (m *Monitor) Presentation() settings.Presentation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presentation.Value()
}

// Sensors returns a copy of the registry entries.
func (m *Monitor) Sensors() []sensor.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Entries()
}

// Readings returns the latest value of every sensor in the presentation unit.
func (m *Monitor) Readings() []Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readings()
}

func (m *Monitor) readings() []Reading {
	unit := m.presentation.Value().Unit
	entries := m.registry.Entries()
	result := make([]Reading, len(entries))
	for i, e := range entries {
		result[i] = Reading{
			Identity: e.Identity,
			Name:     e.Name.String(),
			Kind:     e.Kind,
			Active:   e.Active,
			Value:    unit.Convert(e.LastValue),
			Unit:     unit,
		}
	}
	return result
}

// History returns the history of the sensor with identity, oldest first, in
// the presentation unit. It is empty until the sensor was polled.
func (m *Monitor) History(identity string) ([]sample.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyOf(identity)
}

// Downsampled returns at most maxPoints samples of the sensor history.
func (m *Monitor) Downsampled(identity string, maxPoints int) ([]sample.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.historyOf(identity)
	if err != nil {
		return nil, err
	}
	return sample.Downsample(h[:0], h, maxPoints), nil
}

func (m *Monitor) historyOf(identity string) ([]sample.Sample, error) {
	idx, ok := m.registry.Find(identity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSensor, identity)
	}
	e, _ := m.registry.Entry(idx)
	h, ok := m.history[e.Identity]
	if !ok {
		return []sample.Sample{}, nil
	}
	snap := h.Snapshot(nil)
	return sample.ConvertUnit(snap, snap, m.presentation.Value().Unit), nil
}

// OnUpdate registers a callback invoked with the readings after every poll.
// The callback runs without the monitor lock held and should return quickly.
func (m *Monitor) OnUpdate(callback func(readings []Reading)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

func (m *Monitor) notifyCallbacks(readings []Reading) {
	m.cbMu.RLock()
	callbacks := make([]func([]Reading), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(readings)
		}
	}
}

// Run polls at the configured interval until ctx is done, saving modified
// state after each poll.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Sampling.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// read errors are logged per sensor
			_ = m.Poll()
			if err := m.SaveModified(); err != nil {
				m.log.Warn().Str("reason", err.Error()).Msg("saving settings failed")
			}
		}
	}
}
