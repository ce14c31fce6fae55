// Package record implements the validate-then-commit protocol shared by all
// persisted configuration records.
//
// A record type declares its persisted fields once, as a whitelist table of
// Field values. Record then provides Load, Save and Patch on top of that
// table with all-or-nothing semantics: either every field of a document is
// accepted and the new value replaces the old one, or nothing changes.
package record

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/itohio/gotemp/pkg/store"
)

const (
	// DefaultMaxSize is the document ceiling of a scalar record in the store.
	DefaultMaxSize = 1024
	// DefaultSaveBudget is the serialization budget of a scalar record. Every
	// value the setters accept must fit, including six-byte escapes of
	// control characters in SSIDs and passwords.
	DefaultSaveBudget = DefaultMaxSize
)

// Schema describes one record type.
type Schema[T comparable] struct {
	// Name identifies the record in diagnostics.
	Name string
	// Path is the store path of the persisted document.
	Path string
	// MaxSize is the ceiling for stored and patch documents.
	MaxSize int64
	// SaveBudget is the maximum serialized size accepted by Save.
	SaveBudget int
	// Default returns the compiled-in defaults.
	Default func() T
	// Fields is the whitelist table.
	Fields []Field[T]
	// Document returns the value Save marshals. It must emit every field
	// Load requires.
	Document func(v T) any
}

// Record holds the live value of one configuration record and its sticky
// modified flag. It is not safe for concurrent use; callers serialize access
// across the whole Patch, Load or Save call.
type Record[T comparable] struct {
	schema   *Schema[T]
	value    T
	modified bool
	log      zerolog.Logger
}

// New creates a record holding the schema defaults.
func New[T comparable](schema *Schema[T], log zerolog.Logger) *Record[T] {
	return &Record[T]{
		schema: schema,
		value:  schema.Default(),
		log:    log.With().Str("record", schema.Name).Logger(),
	}
}

// Name returns the schema name.
func (r *Record[T]) Name() string { return r.schema.Name }

// Value returns a copy of the live value.
func (r *Record[T]) Value() T { return r.value }

// Modified reports whether the value changed since the last successful Load or Save.
func (r *Record[T]) Modified() bool { return r.modified }

// Update runs fn on a copy of the value and adopts the copy if fn succeeds.
// The modified flag is set only if the value actually changed.
func (r *Record[T]) Update(fn func(v *T) error) error {
	next := r.value
	if err := fn(&next); err != nil {
		err = fmt.Errorf("%w: %w", ErrValidation, err)
		r.fail("update", err)
		return err
	}
	r.commit(next)
	return nil
}

// Patch applies a partial document. Every key is checked against the
// whitelist before any setter runs; any unknown key, wrong shape or setter
// rejection leaves the record unchanged. A patch that reasserts the current
// values is a no-op and does not touch the modified flag.
func (r *Record[T]) Patch(data []byte) error {
	if int64(len(data)) > r.schema.MaxSize {
		err := fmt.Errorf("%w: %w: patch is %d bytes, limit %d", ErrValidation, ErrTooLarge, len(data), r.schema.MaxSize)
		r.fail("patch", err)
		return err
	}

	doc, err := Decode(data, false)
	if err != nil {
		r.fail("patch", err)
		return err
	}
	if err := Validate(r.schema.Fields, doc, true); err != nil {
		r.fail("patch", err)
		return err
	}

	next := r.value
	if err := Apply(r.schema.Fields, doc, &next); err != nil {
		r.fail("patch", err)
		return err
	}

	r.commit(next)
	return nil
}

// Load replaces the value with the persisted document. The document must
// contain every whitelisted key; a fresh default value is populated through
// the field setters and adopted only if all of them succeed.
func (r *Record[T]) Load(s store.Store) error {
	data, err := s.ReadFile(r.schema.Path, r.schema.MaxSize)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStore, err)
		if errors.Is(err, store.ErrTooLarge) {
			err = fmt.Errorf("%w: %w", ErrTooLarge, err)
		}
		r.fail("load", err)
		return err
	}

	doc, err := Decode(data, true)
	if err != nil {
		r.fail("load", err)
		return err
	}
	if err := Require(r.schema.Fields, doc); err != nil {
		r.fail("load", err)
		return err
	}
	if err := Validate(r.schema.Fields, doc, false); err != nil {
		r.fail("load", err)
		return err
	}

	next := r.schema.Default()
	if err := Apply(r.schema.Fields, doc, &next); err != nil {
		r.fail("load", err)
		return err
	}

	r.value = next
	r.modified = false
	r.log.Debug().Str("path", r.schema.Path).Msg("record loaded")
	return nil
}

// Save writes every persisted field as one document. The modified flag is
// cleared only when the write succeeds.
func (r *Record[T]) Save(s store.Store) error {
	data, err := Encode(r.schema.Document(r.value))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStore, err)
		r.fail("save", err)
		return err
	}
	if len(data) > r.schema.SaveBudget {
		err := fmt.Errorf("%w: %w: %d bytes, budget %d", ErrStore, ErrTooLarge, len(data), r.schema.SaveBudget)
		r.fail("save", err)
		return err
	}

	if err := s.WriteFile(r.schema.Path, data); err != nil {
		err = fmt.Errorf("%w: %w", ErrStore, err)
		r.fail("save", err)
		return err
	}

	r.modified = false
	r.log.Debug().Str("path", r.schema.Path).Int("bytes", len(data)).Msg("record saved")
	return nil
}

func (r *Record[T]) commit(next T) {
	if next == r.value {
		return
	}
	r.value = next
	r.modified = true
}

func (r *Record[T]) fail(op string, err error) {
	r.log.Warn().Str("op", op).Str("reason", err.Error()).Msg("record operation failed")
}
