package record

import (
	"encoding/json"
	"fmt"
	"net/netip"
)

// Shape is the JSON value kind a field accepts.
type Shape int

const (
	String Shape = iota + 1
	Integer
	Number
	Object
)

func (s Shape) String() string {
	switch s {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Number:
		return "number"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// matches reports whether a decoded value has this shape. Documents are
// decoded with UseNumber, so numbers arrive as json.Number.
func (s Shape) matches(v any) bool {
	switch s {
	case String:
		_, ok := v.(string)
		return ok
	case Integer:
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case Number:
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Float64()
		return err == nil
	case Object:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// Field is one whitelist entry: a document key, the shape its value must
// have and the setter applying it to a record value of type T.
type Field[T any] struct {
	Name  string
	Shape Shape
	// Fields is the sub-whitelist of an Object field.
	Fields []Field[T]

	set func(rec *T, v any) error
}

// StringField declares a string-valued field.
func StringField[T any](name string, set func(rec *T, v string) error) Field[T] {
	return Field[T]{Name: name, Shape: String, set: func(rec *T, v any) error {
		return set(rec, v.(string))
	}}
}

// IntField declares an integer-valued field.
func IntField[T any](name string, set func(rec *T, v int64) error) Field[T] {
	return Field[T]{Name: name, Shape: Integer, set: func(rec *T, v any) error {
		n, err := v.(json.Number).Int64()
		if err != nil {
			return err
		}
		return set(rec, n)
	}}
}

// NumberField declares a field accepting any JSON number.
func NumberField[T any](name string, set func(rec *T, v float64) error) Field[T] {
	return Field[T]{Name: name, Shape: Number, set: func(rec *T, v any) error {
		n, err := v.(json.Number).Float64()
		if err != nil {
			return err
		}
		return set(rec, n)
	}}
}

// ObjectField declares a nested object validated against its own whitelist.
// Keys of the nested object are applied individually, so a patch may carry
// only part of the block.
func ObjectField[T any](name string, fields ...Field[T]) Field[T] {
	return Field[T]{Name: name, Shape: Object, Fields: fields}
}

// ParseIPv4 parses dotted-quad IPv4 text.
func ParseIPv4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrBadAddress, s)
	}
	return addr, nil
}
