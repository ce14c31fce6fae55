package sample

import (
	"errors"
	"fmt"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/gotemp/pkg/config"
	"github.com/itohio/gotemp/pkg/settings"
)

const (
	// ADCMax is the full scale code of the 12-bit converter.
	ADCMax = 4095

	// zeroCelsius is 0 °C in Kelvin.
	zeroCelsius = 273.15
)

// ErrSaturated is returned for conversion results at either rail, where the
// divider reads an open or shorted thermistor.
var ErrSaturated = errors.New("sample: adc code saturated")

// Sample is one timestamped temperature reading.
type Sample struct {
	Timestamp time.Time
	Value     float32 // °C unless converted with ConvertUnit
}

// ADCToVoltage converts a 12-bit ADC reading to voltage.
func ADCToVoltage(code uint16, vref float32) float32 {
	return float32(code) / ADCMax * vref
}

// NTCResistance calculates the thermistor resistance from a ratiometric
// divider reading. The thermistor sits on the low side: code = ADCMax * R / (R + series).
func NTCResistance(code uint16, series float32) (float32, error) {
	if code == 0 || code >= ADCMax {
		return 0, fmt.Errorf("%w: %d", ErrSaturated, code)
	}
	return series * float32(code) / float32(ADCMax-code), nil
}

// BetaCelsius converts a thermistor resistance to °C using the beta equation:
// 1/T = 1/T0 + ln(R/R0)/B
func BetaCelsius(resistance, nominalResistance, nominalCelsius, beta float32) float32 {
	t0 := nominalCelsius + zeroCelsius
	inv := 1/t0 + math32.Log(resistance/nominalResistance)/beta
	return 1/inv - zeroCelsius
}

// NTC converts divider readings of the analog channels into temperatures.
type NTC struct {
	cfg config.NTCConfig
}

// NewNTC creates a converter for the given divider parameters.
func NewNTC(cfg config.NTCConfig) *NTC {
	return &NTC{cfg: cfg}
}

// Celsius converts a 12-bit code to °C.
func (n *NTC) Celsius(code uint16) (float32, error) {
	r, err := NTCResistance(code, n.cfg.SeriesResistance)
	if err != nil {
		return 0, err
	}
	c := BetaCelsius(r, n.cfg.NominalResistance, n.cfg.NominalTemperature, n.cfg.Beta)
	if math32.IsNaN(c) || math32.IsInf(c, 0) {
		return 0, fmt.Errorf("conversion of code %d is not finite", code)
	}
	return c, nil
}

// ConvertUnit converts Celsius samples into unit.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
func ConvertUnit(dst, src []Sample, unit settings.Unit) []Sample {
	if cap(dst) < len(src) {
		dst = make([]Sample, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		dst[i] = Sample{Timestamp: s.Timestamp, Value: unit.Convert(s.Value)}
	}
	return dst
}
