// Package device talks to the sensor hardware: the analog converter behind
// the thermistor channels and the one-wire bus.
package device

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// ADCMax is the largest 12-bit conversion result.
	ADCMax = 4095
	// ADCChannels is the number of analog thermistor channels.
	ADCChannels = 4
)

// AddressLen is the length of a one-wire ROM code.
const AddressLen = 8

var (
	// ErrNotConnected is returned by operations on a closed device.
	ErrNotConnected = errors.New("device: not connected")

	// ErrChannel is returned for an analog channel outside [0, ADCChannels).
	ErrChannel = errors.New("device: invalid channel")

	// ErrNoDevice is returned for a one-wire index outside [0, DeviceCount()).
	ErrNoDevice = errors.New("device: no such one-wire device")

	// ErrBadAddress is returned for malformed address text.
	ErrBadAddress = errors.New("device: invalid one-wire address")
)

// Address is a one-wire ROM code: family byte, 48-bit serial, CRC byte.
type Address [AddressLen]byte

// String returns the canonical form: 16 upper-case hex digits, first byte first.
func (a Address) String() string {
	return strings.ToUpper(hex.EncodeToString(a[:]))
}

// Family returns the device family code (0x28 for DS18B20).
func (a Address) Family() byte { return a[0] }

// Valid reports whether the trailing CRC byte matches the first seven bytes.
func (a Address) Valid() bool {
	return crc8(a[:AddressLen-1]) == a[AddressLen-1]
}

// ParseAddress parses the canonical 16 hex digit form, in either case.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) != 2*AddressLen {
		return a, fmt.Errorf("%w: %q", ErrBadAddress, s)
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("%w: %q: %w", ErrBadAddress, s, err)
	}
	return a, nil
}

// crc8 is the Dallas/Maxim CRC (polynomial x^8 + x^5 + x^4 + 1, reflected).
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		for range 8 {
			mix := (crc ^ b) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8C
			}
			b >>= 1
		}
	}
	return crc
}

// makeAddress builds a valid ROM code from a family and serial.
func makeAddress(family byte, serial uint64) Address {
	var a Address
	a[0] = family
	for i := 1; i < AddressLen-1; i++ {
		a[i] = byte(serial >> (8 * (i - 1)))
	}
	a[AddressLen-1] = crc8(a[:AddressLen-1])
	return a
}
