package settings

import (
	"net/netip"

	"github.com/rs/zerolog"

	"github.com/itohio/gotemp/pkg/bounded"
	"github.com/itohio/gotemp/pkg/record"
)

// AccessPoint is the soft access point the device opens for setup.
type AccessPoint struct {
	IP       netip.Addr
	Gateway  netip.Addr
	Subnet   netip.Addr
	SSID     bounded.String
	Password bounded.String
}

// DefaultAccessPoint returns the compiled-in access point configuration.
func DefaultAccessPoint() AccessPoint {
	return AccessPoint{
		IP:       netip.AddrFrom4([4]byte{192, 168, 0, 1}),
		Gateway:  netip.AddrFrom4([4]byte{192, 168, 0, 1}),
		Subnet:   netip.AddrFrom4([4]byte{255, 255, 255, 0}),
		SSID:     newSSID("TestAP"),
		Password: newPassword("testtest"),
	}
}

// SetIP sets the access point address.
func (a *AccessPoint) SetIP(s string) error { return setIPv4(&a.IP, s) }

// SetGateway sets the gateway address handed to clients.
func (a *AccessPoint) SetGateway(s string) error { return setIPv4(&a.Gateway, s) }

// SetSubnet sets the subnet mask.
func (a *AccessPoint) SetSubnet(s string) error { return setIPv4(&a.Subnet, s) }

// SetSSID sets the advertised network name, 1 to 32 bytes.
func (a *AccessPoint) SetSSID(s string) error { return a.SSID.Set(s) }

// SetPassword sets the WPA2 passphrase, at most 63 bytes.
func (a *AccessPoint) SetPassword(s string) error { return a.Password.Set(s) }

type accessPointDocument struct {
	IP       string `json:"ip"`
	Gateway  string `json:"gateway"`
	Subnet   string `json:"subnet"`
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// AccessPointSchema is the whitelist and persistence layout of AccessPoint.
var AccessPointSchema = &record.Schema[AccessPoint]{
	Name:       "softap",
	Path:       AccessPointPath,
	MaxSize:    record.DefaultMaxSize,
	SaveBudget: record.DefaultSaveBudget,
	Default:    DefaultAccessPoint,
	Fields: []record.Field[AccessPoint]{
		record.StringField("ip", (*AccessPoint).SetIP),
		record.StringField("gateway", (*AccessPoint).SetGateway),
		record.StringField("subnet", (*AccessPoint).SetSubnet),
		record.StringField("ssid", (*AccessPoint).SetSSID),
		record.StringField("password", (*AccessPoint).SetPassword),
	},
	Document: func(a AccessPoint) any {
		return accessPointDocument{
			IP:       a.IP.String(),
			Gateway:  a.Gateway.String(),
			Subnet:   a.Subnet.String(),
			SSID:     a.SSID.String(),
			Password: a.Password.String(),
		}
	},
}

// NewAccessPoint creates the access point record holding defaults.
func NewAccessPoint(log zerolog.Logger) *record.Record[AccessPoint] {
	return record.New(AccessPointSchema, log)
}
