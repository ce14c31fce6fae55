package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/tidwall/jsonc"
)

// Decode parses a JSON object document. Comments and trailing commas are
// stripped first when lenient is set, which is how hand-edited flash images
// are read back. Numbers are kept as json.Number for shape checks.
func Decode(data []byte, lenient bool) (map[string]any, error) {
	if lenient {
		data = jsonc.ToJSON(data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrValidation)
		}
		return nil, fmt.Errorf("%w: failed to parse document: %w", ErrValidation, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrValidation)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrValidation)
	}
	return doc, nil
}

// Encode serializes v as one newline terminated JSON document. HTML
// characters are written as is; only JSON itself requires escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks the shape of every key in doc against fields. With strict
// set, keys missing from the whitelist are rejected; otherwise they are
// ignored.
func Validate[T any](fields []Field[T], doc map[string]any, strict bool) error {
	return validate(fields, doc, "", strict)
}

func validate[T any](fields []Field[T], doc map[string]any, prefix string, strict bool) error {
	// sorted so the reported key is deterministic
	for _, key := range slices.Sorted(maps.Keys(doc)) {
		f, ok := lookup(fields, key)
		if !ok {
			if strict {
				return fmt.Errorf("%w: unknown key %q", ErrValidation, prefix+key)
			}
			continue
		}
		v := doc[key]
		if !f.Shape.matches(v) {
			return fmt.Errorf("%w: key %q must be %s", ErrValidation, prefix+key, f.Shape)
		}
		if f.Shape == Object {
			if err := validate(f.Fields, v.(map[string]any), prefix+key+".", strict); err != nil {
				return err
			}
		}
	}
	return nil
}

// Require checks that every field, including nested ones, is present in doc.
func Require[T any](fields []Field[T], doc map[string]any) error {
	return requireKeys(fields, doc, "")
}

func requireKeys[T any](fields []Field[T], doc map[string]any, prefix string) error {
	for _, f := range fields {
		v, ok := doc[f.Name]
		if !ok {
			return fmt.Errorf("%w: missing key %q", ErrValidation, prefix+f.Name)
		}
		if f.Shape == Object {
			sub, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: key %q must be %s", ErrValidation, prefix+f.Name, f.Shape)
			}
			if err := requireKeys(f.Fields, sub, prefix+f.Name+"."); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply runs the setter of every field present in doc, in whitelist order.
// doc must already have passed Validate. The first setter error is returned
// and rec may be partially modified, so callers apply to a copy.
func Apply[T any](fields []Field[T], doc map[string]any, rec *T) error {
	return apply(fields, doc, rec, "")
}

func apply[T any](fields []Field[T], doc map[string]any, rec *T, prefix string) error {
	for _, f := range fields {
		v, ok := doc[f.Name]
		if !ok {
			continue
		}
		if f.Shape == Object {
			if err := apply(f.Fields, v.(map[string]any), rec, prefix+f.Name+"."); err != nil {
				return err
			}
			continue
		}
		if err := f.set(rec, v); err != nil {
			return fmt.Errorf("%w: key %q: %w", ErrValidation, prefix+f.Name, err)
		}
	}
	return nil
}

func lookup[T any](fields []Field[T], name string) (Field[T], bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}
