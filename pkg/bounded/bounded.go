// Package bounded provides a length-checked string value for fixed-width
// configuration fields such as SSIDs, passwords and sensor names.
package bounded

import (
	"errors"
	"fmt"
)

var (
	// ErrTooLong is returned when a value exceeds the field width.
	ErrTooLong = errors.New("bounded: value too long")

	// ErrTooShort is returned when a value is shorter than the field minimum.
	ErrTooShort = errors.New("bounded: value too short")
)

// String is a string constrained to [min, max] bytes. It is comparable, so
// structs embedding it keep field-wise == equality.
//
// Lengths are counted in bytes, matching the fixed char arrays on the device.
type String struct {
	value    string
	min, max int
}

// New returns a String with the given bounds holding initial.
// It panics if initial violates the bounds; use it for compiled-in defaults.
func New(min, max int, initial string) String {
	s := String{min: min, max: max}
	if err := s.Set(initial); err != nil {
		panic(err)
	}
	return s
}

// Set replaces the value. The receiver is unchanged on error.
func (s *String) Set(v string) error {
	if len(v) > s.max {
		return fmt.Errorf("%w: %d bytes, max %d", ErrTooLong, len(v), s.max)
	}
	if len(v) < s.min {
		return fmt.Errorf("%w: %d bytes, min %d", ErrTooShort, len(v), s.min)
	}
	s.value = v
	return nil
}

func (s String) String() string { return s.value }

// Max returns the field width.
func (s String) Max() int { return s.max }

// Min returns the minimum length.
func (s String) Min() int { return s.min }
