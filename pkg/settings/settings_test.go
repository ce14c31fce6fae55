package settings

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gotemp/pkg/bounded"
	"github.com/itohio/gotemp/pkg/record"
	"github.com/itohio/gotemp/pkg/store"
)

func TestDefaultNetwork(t *testing.T) {
	n := NewNetwork(zerolog.Nop())
	v := n.Value()

	assert.False(t, v.Enabled)
	assert.Equal(t, DHCP, v.Assignment)
	assert.Equal(t, "192.168.1.1", v.StaticIP.String())
	assert.Equal(t, "192.168.1.1", v.StaticGateway.String())
	assert.Equal(t, "255.255.255.0", v.StaticSubnet.String())
	assert.Equal(t, "HouseNetwork", v.SSID.String())
	assert.Equal(t, "testtest", v.Password.String())
	assert.False(t, n.Modified())
}

func TestNetworkPatch_EnableStatic(t *testing.T) {
	n := NewNetwork(zerolog.Nop())

	err := n.Patch([]byte(`{"enabled":1,"assignment":"static","static":{"ip":"10.0.0.5"}}`))
	require.NoError(t, err)

	v := n.Value()
	assert.True(t, v.Enabled)
	assert.Equal(t, Static, v.Assignment)
	assert.Equal(t, "10.0.0.5", v.StaticIP.String())
	assert.Equal(t, "192.168.1.1", v.StaticGateway.String(), "gateway not in patch keeps its default")
	assert.True(t, n.Modified())
}

func TestNetworkPatch_UnknownKeyRejected(t *testing.T) {
	n := NewNetwork(zerolog.Nop())

	err := n.Patch([]byte(`{"enabled":1,"bogus":"x"}`))
	assert.ErrorIs(t, err, record.ErrValidation)
	assert.False(t, n.Value().Enabled)
	assert.False(t, n.Modified())
}

func TestNetworkPatch_Atomic(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{name: "bad address", patch: `{"enabled":1,"ssid":"Other","static":{"ip":"10.0.0.300"}}`},
		{name: "bad assignment", patch: `{"enabled":1,"assignment":"auto"}`},
		{name: "ssid too long", patch: `{"enabled":1,"ssid":"` + strings.Repeat("s", 33) + `"}`},
		{name: "empty ssid", patch: `{"enabled":1,"ssid":""}`},
		{name: "password too long", patch: `{"enabled":1,"password":"` + strings.Repeat("p", 64) + `"}`},
		{name: "enabled as string", patch: `{"enabled":"1"}`},
		{name: "enabled as bool", patch: `{"enabled":true}`},
		{name: "unknown static key", patch: `{"enabled":1,"static":{"dns":"1.1.1.1"}}`},
		{name: "static as string", patch: `{"static":"10.0.0.1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNetwork(zerolog.Nop())
			before := n.Value()

			err := n.Patch([]byte(tt.patch))
			assert.ErrorIs(t, err, record.ErrValidation)
			assert.Equal(t, before, n.Value())
			assert.False(t, n.Modified())
		})
	}
}

func TestNetworkPatch_SetterErrors(t *testing.T) {
	n := NewNetwork(zerolog.Nop())

	err := n.Patch([]byte(`{"static":{"subnet":"not-an-ip"}}`))
	assert.ErrorIs(t, err, record.ErrBadAddress)

	err = n.Patch([]byte(`{"ssid":"` + strings.Repeat("s", 33) + `"}`))
	assert.ErrorIs(t, err, bounded.ErrTooLong)

	err = n.Patch([]byte(`{"assignment":"auto"}`))
	assert.ErrorIs(t, err, record.ErrUnknownValue)
}

func TestNetworkPatch_TruthyEnabled(t *testing.T) {
	n := NewNetwork(zerolog.Nop())

	require.NoError(t, n.Patch([]byte(`{"enabled":7}`)))
	assert.True(t, n.Value().Enabled)

	require.NoError(t, n.Patch([]byte(`{"enabled":0}`)))
	assert.False(t, n.Value().Enabled)
}

func TestNetworkPatch_NoOp(t *testing.T) {
	n := NewNetwork(zerolog.Nop())

	require.NoError(t, n.Patch([]byte(`{"enabled":0,"assignment":"dhcp","static":{"gateway":"192.168.1.1"}}`)))
	assert.False(t, n.Modified(), "reasserting defaults must not mark the record modified")
}

func TestNetwork_RoundTrip(t *testing.T) {
	s := store.NewMemory()
	n := NewNetwork(zerolog.Nop())
	require.NoError(t, n.Patch([]byte(`{
		"enabled": 1,
		"assignment": "static",
		"ssid": "Cellar",
		"password": "",
		"static": {"ip": "10.0.0.5", "gateway": "10.0.0.1", "subnet": "255.0.0.0"}
	}`)))

	require.NoError(t, n.Save(s))
	assert.False(t, n.Modified())

	data, err := s.ReadFile(NetworkPath, record.DefaultMaxSize)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"enabled": 1,
		"assignment": "static",
		"ssid": "Cellar",
		"password": "",
		"static": {"ip": "10.0.0.5", "gateway": "10.0.0.1", "subnet": "255.0.0.0"}
	}`, string(data))

	loaded := NewNetwork(zerolog.Nop())
	require.NoError(t, loaded.Load(s))
	assert.Equal(t, n.Value(), loaded.Value())
}

func TestNetworkLoad_MissingStaticKey(t *testing.T) {
	s := store.NewMemory()
	doc := `{"enabled":1,"assignment":"static","ssid":"x","password":"","static":{"ip":"10.0.0.5","gateway":"10.0.0.1"}}`
	require.NoError(t, s.WriteFile(NetworkPath, []byte(doc)))

	n := NewNetwork(zerolog.Nop())
	err := n.Load(s)
	assert.ErrorIs(t, err, record.ErrValidation)
	assert.Equal(t, DefaultNetwork(), n.Value())
}

func TestNetworkLoad_PartialSuccessNotPersisted(t *testing.T) {
	s := store.NewMemory()
	// every key present, last setter fails
	doc := `{"enabled":1,"assignment":"static","ssid":"x","password":"","static":{"ip":"10.0.0.5","gateway":"10.0.0.1","subnet":"bad"}}`
	require.NoError(t, s.WriteFile(NetworkPath, []byte(doc)))

	n := NewNetwork(zerolog.Nop())
	assert.Error(t, n.Load(s))
	assert.Equal(t, DefaultNetwork(), n.Value())
}

func TestAccessPoint_PatchAndRoundTrip(t *testing.T) {
	s := store.NewMemory()
	ap := NewAccessPoint(zerolog.Nop())
	assert.Equal(t, "192.168.0.1", ap.Value().IP.String())
	assert.Equal(t, "TestAP", ap.Value().SSID.String())

	require.NoError(t, ap.Patch([]byte(`{"ip":"172.16.0.1","ssid":"Thermo"}`)))
	assert.True(t, ap.Modified())

	require.NoError(t, ap.Save(s))
	loaded := NewAccessPoint(zerolog.Nop())
	require.NoError(t, loaded.Load(s))
	assert.Equal(t, ap.Value(), loaded.Value())
	assert.Equal(t, netip.MustParseAddr("172.16.0.1"), loaded.Value().IP)
}

func TestSaveLoad_WidestCredentials(t *testing.T) {
	tests := []struct {
		name     string
		ssid     string
		password string
	}{
		{name: "html characters", ssid: strings.Repeat("&", 32), password: strings.Repeat("<", 63)},
		{name: "control bytes", ssid: strings.Repeat("\x01", 32), password: strings.Repeat("\x1f", 63)},
		{name: "quotes and backslashes", ssid: strings.Repeat(`"`, 32), password: strings.Repeat(`\`, 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemory()

			n := NewNetwork(zerolog.Nop())
			require.NoError(t, n.Update(func(v *Network) error {
				if err := v.SetSSID(tt.ssid); err != nil {
					return err
				}
				return v.SetPassword(tt.password)
			}))
			require.NoError(t, n.Save(s))

			loadedNetwork := NewNetwork(zerolog.Nop())
			require.NoError(t, loadedNetwork.Load(s))
			assert.Equal(t, n.Value(), loadedNetwork.Value())

			ap := NewAccessPoint(zerolog.Nop())
			require.NoError(t, ap.Update(func(v *AccessPoint) error {
				if err := v.SetSSID(tt.ssid); err != nil {
					return err
				}
				return v.SetPassword(tt.password)
			}))
			require.NoError(t, ap.Save(s))

			loadedAP := NewAccessPoint(zerolog.Nop())
			require.NoError(t, loadedAP.Load(s))
			assert.Equal(t, ap.Value(), loadedAP.Value())
		})
	}
}

func TestNetworkSave_KeepsHTMLCharacters(t *testing.T) {
	s := store.NewMemory()
	n := NewNetwork(zerolog.Nop())
	require.NoError(t, n.Patch([]byte(`{"ssid":"Tom&Jerry","password":"<secret>"}`)))
	require.NoError(t, n.Save(s))

	data, err := s.ReadFile(NetworkPath, record.DefaultMaxSize)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ssid":"Tom&Jerry"`)
	assert.Contains(t, string(data), `"password":"<secret>"`)
}

func TestAccessPoint_PatchRejectsNonString(t *testing.T) {
	ap := NewAccessPoint(zerolog.Nop())

	for _, patch := range []string{
		`{"ip":1}`,
		`{"ssid":"x","static":{"ip":"10.0.0.1"}}`,
		`{"enabled":1}`,
	} {
		err := ap.Patch([]byte(patch))
		assert.ErrorIs(t, err, record.ErrValidation, patch)
	}
	assert.Equal(t, DefaultAccessPoint(), ap.Value())
}

func TestPresentation_Patch(t *testing.T) {
	p := NewPresentation(zerolog.Nop())

	require.NoError(t, p.Patch([]byte(`{"ymin":-10,"ymax":120.5,"unit":"F"}`)))
	v := p.Value()
	assert.Equal(t, float32(-10), v.YMin)
	assert.Equal(t, float32(120.5), v.YMax)
	assert.Equal(t, float32(10), v.YIncrement)
	assert.Equal(t, Fahrenheit, v.Unit)
}

func TestPresentation_PatchRejected(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{name: "unknown unit", patch: `{"ymin":1,"unit":"X"}`},
		{name: "multi char unit", patch: `{"unit":"CC"}`},
		{name: "empty unit", patch: `{"unit":""}`},
		{name: "lower case unit", patch: `{"unit":"c"}`},
		{name: "unit as number", patch: `{"unit":67}`},
		{name: "number as string", patch: `{"ymax":"90"}`},
		{name: "float32 overflow", patch: `{"ymax":1e300}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPresentation(zerolog.Nop())
			assert.ErrorIs(t, p.Patch([]byte(tt.patch)), record.ErrValidation)
			assert.Equal(t, DefaultPresentation(), p.Value())
		})
	}
}

func TestPresentation_RoundTrip(t *testing.T) {
	s := store.NewMemory()
	p := NewPresentation(zerolog.Nop())
	require.NoError(t, p.Patch([]byte(`{"ymin":-12.25,"ymax":42.1,"yincrement":2.5,"unit":"K"}`)))

	require.NoError(t, p.Save(s))
	loaded := NewPresentation(zerolog.Nop())
	require.NoError(t, loaded.Load(s))
	assert.Equal(t, p.Value(), loaded.Value())
}

func TestUnit_Convert(t *testing.T) {
	tests := []struct {
		unit Unit
		in   float32
		want float32
	}{
		{unit: Celsius, in: 21.5, want: 21.5},
		{unit: Fahrenheit, in: 100, want: 212},
		{unit: Fahrenheit, in: -40, want: -40},
		{unit: Kelvin, in: 0, want: 273.15},
	}
	for _, tt := range tests {
		t.Run(tt.unit.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.unit.Convert(tt.in), 0.001)
		})
	}
}
