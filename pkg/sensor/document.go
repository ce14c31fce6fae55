package sensor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itohio/gotemp/pkg/record"
	"github.com/itohio/gotemp/pkg/store"
)

const (
	// Path is the store path of the sensor list document.
	Path = "/config/sensors"
	// MaxSize is the ceiling of the sensor list document.
	MaxSize = 2048
)

// persistedFields is the whitelist of one entry of the sensor list. All keys
// are required on load.
var persistedFields = []record.Field[Persisted]{
	record.StringField("id", func(p *Persisted, v string) error {
		p.Identity = v
		return nil
	}),
	record.StringField("type", func(p *Persisted, v string) error {
		k, err := ParseKind(v)
		if err != nil {
			return err
		}
		p.Kind = k
		return nil
	}),
	record.StringField("name", func(p *Persisted, v string) error {
		name := newName("")
		if err := name.Set(v); err != nil {
			return err
		}
		p.Name = v
		return nil
	}),
	record.IntField("active", func(p *Persisted, v int64) error {
		p.Active = v != 0
		return nil
	}),
}

type entryDocument struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Active int    `json:"active"`
}

type listDocument struct {
	Sensors []entryDocument `json:"sensors"`
}

// Load reads the persisted sensor list and reconciles it with the discovered
// entries. The whole list is validated first; a single malformed entry
// aborts the load and the discovered defaults stand.
func (r *Registry) Load(s store.Store) error {
	data, err := s.ReadFile(Path, MaxSize)
	if err != nil {
		err = fmt.Errorf("%w: %w", record.ErrStore, err)
		if errors.Is(err, store.ErrTooLarge) {
			err = fmt.Errorf("%w: %w", record.ErrTooLarge, err)
		}
		r.fail("load", err)
		return err
	}

	persisted, err := decodeList(data)
	if err != nil {
		r.fail("load", err)
		return err
	}
	if err := r.Reconcile(persisted); err != nil {
		r.fail("load", err)
		return err
	}

	r.modified = false
	r.log.Debug().Str("path", Path).Int("entries", len(persisted)).Msg("sensor list loaded")
	return nil
}

func decodeList(data []byte) ([]Persisted, error) {
	doc, err := record.Decode(data, true)
	if err != nil {
		return nil, err
	}
	v, ok := doc["sensors"]
	if !ok {
		return nil, fmt.Errorf("%w: missing key %q", record.ErrValidation, "sensors")
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: key %q must be array", record.ErrValidation, "sensors")
	}

	persisted := make([]Persisted, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: sensors[%d] must be object", record.ErrValidation, i)
		}
		if err := record.Require(persistedFields, obj); err != nil {
			return nil, fmt.Errorf("sensors[%d]: %w", i, err)
		}
		if err := record.Validate(persistedFields, obj, false); err != nil {
			return nil, fmt.Errorf("sensors[%d]: %w", i, err)
		}
		var p Persisted
		if err := record.Apply(persistedFields, obj, &p); err != nil {
			return nil, fmt.Errorf("sensors[%d]: %w", i, err)
		}
		persisted = append(persisted, p)
	}
	return persisted, nil
}

// Save writes the identity, type, name and active flag of every entry.
// The modified flag is cleared only when the write succeeds.
func (r *Registry) Save(s store.Store) error {
	doc := listDocument{Sensors: make([]entryDocument, 0, len(r.entries))}
	for _, e := range r.entries {
		active := 0
		if e.Active {
			active = 1
		}
		doc.Sensors = append(doc.Sensors, entryDocument{
			ID:     e.Identity,
			Type:   e.Kind.String(),
			Name:   e.Name.String(),
			Active: active,
		})
	}

	data, err := record.Encode(doc)
	if err != nil {
		err = fmt.Errorf("%w: %w", record.ErrStore, err)
		r.fail("save", err)
		return err
	}
	if len(data) > MaxSize {
		err := fmt.Errorf("%w: %w: %d bytes, budget %d", record.ErrStore, record.ErrTooLarge, len(data), MaxSize)
		r.fail("save", err)
		return err
	}

	if err := s.WriteFile(Path, data); err != nil {
		err = fmt.Errorf("%w: %w", record.ErrStore, err)
		r.fail("save", err)
		return err
	}

	r.modified = false
	r.log.Debug().Str("path", Path).Int("bytes", len(data)).Msg("sensor list saved")
	return nil
}

// truthy interprets an integer document value: zero is false, anything else true.
func truthy(v any) (bool, error) {
	n, ok := v.(json.Number)
	if !ok {
		return false, errors.New("must be integer")
	}
	i, err := n.Int64()
	if err != nil {
		return false, fmt.Errorf("must be integer: %w", err)
	}
	return i != 0, nil
}
