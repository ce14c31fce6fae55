// Package sensor keeps the registry of temperature sensors: digital sensors
// found on the one-wire bus followed by the fixed analog NTC channels.
//
// Entries are rebuilt from hardware on every boot and then overlaid with the
// persisted names and active flags, matched by identity.
package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/gotemp/pkg/bounded"
	"github.com/itohio/gotemp/pkg/device"
	"github.com/itohio/gotemp/pkg/record"
)

const (
	// Capacity is the maximum number of registry entries.
	Capacity = 10
	// NTCChannels is the number of analog thermistor channels.
	NTCChannels = device.ADCChannels

	// IdentityWidth is the significant length of an identity.
	IdentityWidth = 16
	// NameMax is the display name width.
	NameMax = 16
)

// ErrIndex is returned for an entry index outside the registry.
var ErrIndex = errors.New("sensor: index out of range")

// Kind is the sensor type.
type Kind int

const (
	OneWire Kind = iota + 1
	NTC
)

func (k Kind) String() string {
	switch k {
	case OneWire:
		return "OneWire"
	case NTC:
		return "NTC"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind parses the document form of a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "OneWire":
		return OneWire, nil
	case "NTC":
		return NTC, nil
	}
	return 0, fmt.Errorf("%w: sensor type %q", record.ErrUnknownValue, s)
}

// Entry is one registry slot.
type Entry struct {
	// Identity is the hardware address for bus sensors and ntc-<channel>
	// for analog channels.
	Identity string
	Kind     Kind
	// Channel is the bus enumeration index or the analog channel.
	Channel int
	Name    bounded.String
	Active  bool

	// LastValue is the most recent reading in °C. It is never persisted.
	LastValue float32
}

func newName(v string) bounded.String { return bounded.New(0, NameMax, v) }

// NTCIdentity returns the reserved identity of analog channel ch.
func NTCIdentity(ch int) string { return "ntc-" + strconv.Itoa(ch) }

func newOneWireEntry(index int, addr device.Address) Entry {
	return Entry{
		Identity: addr.String(),
		Kind:     OneWire,
		Channel:  index,
		Name:     newName("Sensor" + strconv.Itoa(index)),
		Active:   false,
	}
}

func newNTCEntry(ch int) Entry {
	return Entry{
		Identity: NTCIdentity(ch),
		Kind:     NTC,
		Channel:  ch,
		Name:     newName("NTC-" + strconv.Itoa(ch)),
		Active:   true,
	}
}

// identityKey folds an identity for matching: case-insensitive and limited
// to IdentityWidth bytes.
func identityKey(id string) string {
	if len(id) > IdentityWidth {
		id = id[:IdentityWidth]
	}
	return strings.ToUpper(id)
}
