package sensor

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/itohio/gotemp/pkg/bounded"
	"github.com/itohio/gotemp/pkg/device"
	"github.com/itohio/gotemp/pkg/record"
)

// DiscoveryReport summarizes one Discover pass.
type DiscoveryReport struct {
	// OneWire and NTC count the entries added per kind.
	OneWire int
	NTC     int
	// Skipped counts bus devices whose address could not be read or was
	// invalid or duplicated.
	Skipped int
	// Dropped counts entries that did not fit the capacity.
	Dropped int
}

// Registry is the ordered list of sensors. It is not safe for concurrent
// use; the owner serializes access.
type Registry struct {
	bus      device.OneWire
	entries  []Entry
	modified bool
	log      zerolog.Logger
}

// New creates an empty registry enumerating bus.
func New(bus device.OneWire, log zerolog.Logger) *Registry {
	return &Registry{
		bus:     bus,
		entries: make([]Entry, 0, Capacity),
		log:     log.With().Str("component", "sensors").Logger(),
	}
}

// Discover rebuilds the registry from hardware: bus devices first, in
// enumeration order, then the analog channels. Entries beyond Capacity are
// dropped with a diagnostic; existing entries are never evicted.
func (r *Registry) Discover() DiscoveryReport {
	var report DiscoveryReport
	r.entries = r.entries[:0]
	r.modified = false

	count, err := r.bus.DeviceCount()
	if err != nil {
		r.log.Warn().Str("reason", err.Error()).Msg("one-wire enumeration failed")
		count = 0
	}
	if count > Capacity {
		r.log.Warn().Int("found", count).Int("capacity", Capacity).
			Str("reason", "registry full").Msg("dropping one-wire devices")
		report.Dropped += count - Capacity
		count = Capacity
	}

	for i := range count {
		addr, err := r.bus.Address(i)
		if err != nil {
			r.log.Warn().Int("index", i).Str("reason", err.Error()).Msg("skipping one-wire device")
			report.Skipped++
			continue
		}
		if !addr.Valid() {
			r.log.Warn().Int("index", i).Str("address", addr.String()).
				Str("reason", "address crc mismatch").Msg("skipping one-wire device")
			report.Skipped++
			continue
		}
		if _, dup := r.Find(addr.String()); dup {
			r.log.Warn().Int("index", i).Str("address", addr.String()).
				Str("reason", "duplicate address").Msg("skipping one-wire device")
			report.Skipped++
			continue
		}
		r.entries = append(r.entries, newOneWireEntry(i, addr))
		report.OneWire++
	}

	for ch := range NTCChannels {
		if len(r.entries) >= Capacity {
			r.log.Warn().Int("channel", ch).Str("reason", "registry full").Msg("dropping NTC channel")
			report.Dropped++
			continue
		}
		r.entries = append(r.entries, newNTCEntry(ch))
		report.NTC++
	}

	r.log.Info().
		Int("onewire", report.OneWire).
		Int("ntc", report.NTC).
		Int("skipped", report.Skipped).
		Int("dropped", report.Dropped).
		Msg("sensors discovered")
	return report
}

// Persisted is the stored metadata of one sensor.
type Persisted struct {
	Identity string
	// Kind is zero when the document did not name one.
	Kind   Kind
	Name   string
	Active bool
}

// Reconcile overlays persisted metadata onto discovered entries. The name and
// active flag of an entry are replaced when a persisted identity matches it;
// persisted entries matching nothing are discarded. Names are checked before
// anything is applied.
func (r *Registry) Reconcile(persisted []Persisted) error {
	names := make([]bounded.String, len(persisted))
	for i, p := range persisted {
		names[i] = newName("")
		if err := names[i].Set(p.Name); err != nil {
			return fmt.Errorf("%w: sensor %q name: %w", record.ErrValidation, p.Identity, err)
		}
	}

	matched := 0
	for i, p := range persisted {
		idx, ok := r.Find(p.Identity)
		if !ok {
			r.log.Debug().Str("id", p.Identity).Msg("persisted sensor not present")
			continue
		}
		r.entries[idx].Name = names[i]
		r.entries[idx].Active = p.Active
		matched++
	}

	r.log.Debug().Int("persisted", len(persisted)).Int("matched", matched).Msg("sensors reconciled")
	return nil
}

// PatchOne updates the entry at index from a document with optional "name"
// (string) and "active" (integer, non-zero is true) keys. Unlike a record
// patch, keys are applied independently: a rejected key does not undo an
// accepted one. All rejections are returned joined.
func (r *Registry) PatchOne(index int, data []byte) error {
	if index < 0 || index >= len(r.entries) {
		err := fmt.Errorf("%w: %d", ErrIndex, index)
		r.fail("patch", err)
		return err
	}
	if len(data) > record.DefaultMaxSize {
		err := fmt.Errorf("%w: %w: patch is %d bytes, limit %d", record.ErrValidation, record.ErrTooLarge, len(data), record.DefaultMaxSize)
		r.fail("patch", err)
		return err
	}

	doc, err := record.Decode(data, false)
	if err != nil {
		r.fail("patch", err)
		return err
	}

	e := &r.entries[index]
	var errs []error
	for _, key := range slices.Sorted(maps.Keys(doc)) {
		switch v := doc[key]; key {
		case "name":
			s, ok := v.(string)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: key %q must be string", record.ErrValidation, key))
				continue
			}
			name := e.Name
			if err := name.Set(s); err != nil {
				errs = append(errs, fmt.Errorf("%w: key %q: %w", record.ErrValidation, key, err))
				continue
			}
			r.modified = r.modified || name != e.Name
			e.Name = name
		case "active":
			active, err := truthy(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: key %q: %w", record.ErrValidation, key, err))
				continue
			}
			r.modified = r.modified || active != e.Active
			e.Active = active
		default:
			errs = append(errs, fmt.Errorf("%w: unknown key %q", record.ErrValidation, key))
		}
	}

	if err := errors.Join(errs...); err != nil {
		r.fail("patch", err)
		return err
	}
	return nil
}

// NumActive returns the number of active entries.
func (r *Registry) NumActive() int {
	n := 0
	for _, e := range r.entries {
		if e.Active {
			n++
		}
	}
	return n
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns a copy of the entries in registry order.
func (r *Registry) Entries() []Entry { return slices.Clone(r.entries) }

// Entry returns the entry at index.
func (r *Registry) Entry(index int) (Entry, error) {
	if index < 0 || index >= len(r.entries) {
		return Entry{}, fmt.Errorf("%w: %d", ErrIndex, index)
	}
	return r.entries[index], nil
}

// Find returns the index of the entry matching identity.
func (r *Registry) Find(identity string) (int, bool) {
	key := identityKey(identity)
	for i, e := range r.entries {
		if identityKey(e.Identity) == key {
			return i, true
		}
	}
	return -1, false
}

// SetLastValue records a reading. It does not mark the registry modified.
func (r *Registry) SetLastValue(index int, v float32) error {
	if index < 0 || index >= len(r.entries) {
		return fmt.Errorf("%w: %d", ErrIndex, index)
	}
	r.entries[index].LastValue = v
	return nil
}

// Modified reports whether persisted metadata changed since the last Discover,
// Load or Save.
func (r *Registry) Modified() bool { return r.modified }

func (r *Registry) fail(op string, err error) {
	r.log.Warn().Str("op", op).Str("reason", err.Error()).Msg("sensor registry operation failed")
}
