package record

import "errors"

// Failure classes of the record protocol. Use errors.Is to classify.
var (
	// ErrValidation covers unknown keys, wrong value shapes, missing required
	// keys and setter domain rejections. State is unchanged.
	ErrValidation = errors.New("record: validation failed")

	// ErrStore covers persisted store read and write failures. State is unchanged.
	ErrStore = errors.New("record: store failure")

	// ErrTooLarge is returned when a document exceeds its size ceiling or
	// a serialized record exceeds its save budget.
	ErrTooLarge = errors.New("record: document too large")

	// ErrBadAddress is returned by setters for text that is not a dotted IPv4 address.
	ErrBadAddress = errors.New("record: invalid IPv4 address")

	// ErrUnknownValue is returned by enum setters for unrecognized values.
	ErrUnknownValue = errors.New("record: unrecognized value")
)
