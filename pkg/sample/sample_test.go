package sample

import (
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gotemp/pkg/config"
	"github.com/itohio/gotemp/pkg/settings"
)

func TestADCToVoltage(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		vref float32
		want float32
	}{
		{name: "zero ADC", code: 0, vref: 3.3, want: 0},
		{name: "max ADC", code: 4095, vref: 3.3, want: 3.3},
		{name: "half ADC", code: 2047, vref: 3.3, want: 1.65},
		{name: "quarter ADC", code: 1024, vref: 3.3, want: 0.825},
		{name: "different VRef", code: 2047, vref: 5.0, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ADCToVoltage(tt.code, tt.vref)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestNTCResistance(t *testing.T) {
	tests := []struct {
		name    string
		code    uint16
		series  float32
		want    float32
		wantErr bool
	}{
		{name: "divider midpoint", code: 2048, series: 10000, want: 10004.9},
		{name: "low side quarter", code: 1024, series: 10000, want: 3334.4},
		{name: "open thermistor", code: 4095, series: 10000, wantErr: true},
		{name: "shorted thermistor", code: 0, series: 10000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NTCResistance(tt.code, tt.series)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSaturated)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.5)
		})
	}
}

func TestBetaCelsius(t *testing.T) {
	const (
		nominalR = 10000
		nominalC = 25
		beta     = 3950
	)

	assert.InDelta(t, 25, BetaCelsius(nominalR, nominalR, nominalC, beta), 0.001)

	for _, celsius := range []float32{-20, 0, 37, 90} {
		// forward beta equation: R = R0 * exp(B * (1/T - 1/T0))
		r := nominalR * math32.Exp(beta*(1/(celsius+zeroCelsius)-1/(nominalC+zeroCelsius)))
		assert.InDelta(t, celsius, BetaCelsius(r, nominalR, nominalC, beta), 0.05, "T=%v", celsius)
	}

	// hotter means lower resistance
	assert.Greater(t, BetaCelsius(5000, nominalR, nominalC, beta), float32(nominalC))
}

func TestNTC_Celsius(t *testing.T) {
	ntc := NewNTC(config.Default().NTC)

	c, err := ntc.Celsius(2048)
	require.NoError(t, err)
	assert.InDelta(t, 25, c, 0.1)

	cold, err := ntc.Celsius(3000)
	require.NoError(t, err)
	assert.Less(t, cold, c)

	_, err = ntc.Celsius(4095)
	assert.ErrorIs(t, err, ErrSaturated)
}

func TestConvertUnit(t *testing.T) {
	now := time.Now()
	src := []Sample{
		{Timestamp: now, Value: 0},
		{Timestamp: now.Add(time.Second), Value: 100},
	}

	f := ConvertUnit(nil, src, settings.Fahrenheit)
	require.Len(t, f, 2)
	assert.InDelta(t, 32, f[0].Value, 0.001)
	assert.InDelta(t, 212, f[1].Value, 0.001)
	assert.Equal(t, src[1].Timestamp, f[1].Timestamp)

	k := ConvertUnit(f, src, settings.Kelvin)
	assert.InDelta(t, 273.15, k[0].Value, 0.001)
	assert.Equal(t, cap(f), cap(k))

	// source is never touched
	assert.Equal(t, float32(100), src[1].Value)
}
