package settings

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/itohio/gotemp/pkg/record"
)

// Unit is the temperature unit readings are presented in. The document form
// is the single character value.
type Unit byte

const (
	Celsius    Unit = 'C'
	Fahrenheit Unit = 'F'
	Kelvin     Unit = 'K'
)

func (u Unit) String() string { return string(rune(u)) }

// ParseUnit parses "C", "F" or "K".
func ParseUnit(s string) (Unit, error) {
	if len(s) == 1 {
		switch u := Unit(s[0]); u {
		case Celsius, Fahrenheit, Kelvin:
			return u, nil
		}
	}
	return 0, fmt.Errorf("%w: unit %q", record.ErrUnknownValue, s)
}

// Convert converts a Celsius reading into u.
func (u Unit) Convert(celsius float32) float32 {
	switch u {
	case Fahrenheit:
		return celsius*9/5 + 32
	case Kelvin:
		return celsius + 273.15
	default:
		return celsius
	}
}

// Presentation controls how readings are charted.
type Presentation struct {
	Unit       Unit
	YMin       float32
	YMax       float32
	YIncrement float32
}

// DefaultPresentation returns the compiled-in chart settings.
func DefaultPresentation() Presentation {
	return Presentation{
		Unit:       Celsius,
		YMin:       0,
		YMax:       90,
		YIncrement: 10,
	}
}

// SetUnit sets the presentation unit from "C", "F" or "K".
func (p *Presentation) SetUnit(s string) error {
	u, err := ParseUnit(s)
	if err != nil {
		return err
	}
	p.Unit = u
	return nil
}

// SetYMin sets the lower bound of the chart axis.
func (p *Presentation) SetYMin(v float64) error { return setFinite(&p.YMin, v) }

// SetYMax sets the upper bound of the chart axis.
func (p *Presentation) SetYMax(v float64) error { return setFinite(&p.YMax, v) }

// SetYIncrement sets the axis tick spacing.
func (p *Presentation) SetYIncrement(v float64) error { return setFinite(&p.YIncrement, v) }

// setFinite rejects values that do not fit a float32.
func setFinite(dst *float32, v float64) error {
	if math.IsNaN(v) || math.Abs(v) > math.MaxFloat32 {
		return fmt.Errorf("%w: %g does not fit a float32", record.ErrUnknownValue, v)
	}
	*dst = float32(v)
	return nil
}

type presentationDocument struct {
	YMin       float32 `json:"ymin"`
	YMax       float32 `json:"ymax"`
	YIncrement float32 `json:"yincrement"`
	Unit       string  `json:"unit"`
}

// PresentationSchema is the whitelist and persistence layout of Presentation.
var PresentationSchema = &record.Schema[Presentation]{
	Name:       "presentation",
	Path:       PresentationPath,
	MaxSize:    record.DefaultMaxSize,
	SaveBudget: record.DefaultSaveBudget,
	Default:    DefaultPresentation,
	Fields: []record.Field[Presentation]{
		record.NumberField("ymin", (*Presentation).SetYMin),
		record.NumberField("ymax", (*Presentation).SetYMax),
		record.NumberField("yincrement", (*Presentation).SetYIncrement),
		record.StringField("unit", (*Presentation).SetUnit),
	},
	Document: func(p Presentation) any {
		return presentationDocument{
			YMin:       p.YMin,
			YMax:       p.YMax,
			YIncrement: p.YIncrement,
			Unit:       p.Unit.String(),
		}
	},
}

// NewPresentation creates the presentation record holding defaults.
func NewPresentation(log zerolog.Logger) *record.Record[Presentation] {
	return record.New(PresentationSchema, log)
}
