package settings

import (
	"fmt"
	"net/netip"

	"github.com/rs/zerolog"

	"github.com/itohio/gotemp/pkg/bounded"
	"github.com/itohio/gotemp/pkg/record"
)

// Assignment selects how the station interface gets its address.
type Assignment int

const (
	Static Assignment = iota
	DHCP
)

func (a Assignment) String() string {
	switch a {
	case Static:
		return "static"
	case DHCP:
		return "dhcp"
	default:
		return fmt.Sprintf("Assignment(%d)", int(a))
	}
}

// ParseAssignment parses the document form ("static" or "dhcp").
func ParseAssignment(s string) (Assignment, error) {
	switch s {
	case "static":
		return Static, nil
	case "dhcp":
		return DHCP, nil
	default:
		return 0, fmt.Errorf("%w: assignment %q", record.ErrUnknownValue, s)
	}
}

// Network is the station (client) network configuration.
type Network struct {
	Enabled       bool
	Assignment    Assignment
	StaticIP      netip.Addr
	StaticGateway netip.Addr
	StaticSubnet  netip.Addr
	SSID          bounded.String
	Password      bounded.String
}

// DefaultNetwork returns the compiled-in station configuration.
func DefaultNetwork() Network {
	return Network{
		Enabled:       false,
		Assignment:    DHCP,
		StaticIP:      netip.AddrFrom4([4]byte{192, 168, 1, 1}),
		StaticGateway: netip.AddrFrom4([4]byte{192, 168, 1, 1}),
		StaticSubnet:  netip.AddrFrom4([4]byte{255, 255, 255, 0}),
		SSID:          newSSID("HouseNetwork"),
		Password:      newPassword("testtest"),
	}
}

// SetEnabled uses integer truthiness: 0 disables, anything else enables.
func (n *Network) SetEnabled(v int64) error {
	n.Enabled = v != 0
	return nil
}

// SetAssignment sets the address assignment from "static" or "dhcp".
func (n *Network) SetAssignment(s string) error {
	a, err := ParseAssignment(s)
	if err != nil {
		return err
	}
	n.Assignment = a
	return nil
}

// SetStaticIP sets the static station address.
func (n *Network) SetStaticIP(s string) error { return setIPv4(&n.StaticIP, s) }

// SetStaticGateway sets the static gateway address.
func (n *Network) SetStaticGateway(s string) error { return setIPv4(&n.StaticGateway, s) }

// SetStaticSubnet sets the static subnet mask.
func (n *Network) SetStaticSubnet(s string) error { return setIPv4(&n.StaticSubnet, s) }

// SetSSID sets the network name, 1 to 32 bytes.
func (n *Network) SetSSID(s string) error { return n.SSID.Set(s) }

// SetPassword sets the WPA2 passphrase, at most 63 bytes.
func (n *Network) SetPassword(s string) error { return n.Password.Set(s) }

type networkDocument struct {
	Enabled    int            `json:"enabled"`
	Assignment string         `json:"assignment"`
	SSID       string         `json:"ssid"`
	Password   string         `json:"password"`
	Static     staticDocument `json:"static"`
}

type staticDocument struct {
	IP      string `json:"ip"`
	Gateway string `json:"gateway"`
	Subnet  string `json:"subnet"`
}

// NetworkSchema is the whitelist and persistence layout of Network.
var NetworkSchema = &record.Schema[Network]{
	Name:       "network",
	Path:       NetworkPath,
	MaxSize:    record.DefaultMaxSize,
	SaveBudget: record.DefaultSaveBudget,
	Default:    DefaultNetwork,
	Fields: []record.Field[Network]{
		record.IntField("enabled", (*Network).SetEnabled),
		record.StringField("assignment", (*Network).SetAssignment),
		record.StringField("ssid", (*Network).SetSSID),
		record.StringField("password", (*Network).SetPassword),
		record.ObjectField("static",
			record.StringField("ip", (*Network).SetStaticIP),
			record.StringField("gateway", (*Network).SetStaticGateway),
			record.StringField("subnet", (*Network).SetStaticSubnet),
		),
	},
	Document: func(n Network) any {
		enabled := 0
		if n.Enabled {
			enabled = 1
		}
		return networkDocument{
			Enabled:    enabled,
			Assignment: n.Assignment.String(),
			SSID:       n.SSID.String(),
			Password:   n.Password.String(),
			Static: staticDocument{
				IP:      n.StaticIP.String(),
				Gateway: n.StaticGateway.String(),
				Subnet:  n.StaticSubnet.String(),
			},
		}
	},
}

// NewNetwork creates the station record holding defaults.
func NewNetwork(log zerolog.Logger) *record.Record[Network] {
	return record.New(NetworkSchema, log)
}
