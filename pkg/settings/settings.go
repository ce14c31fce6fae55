// Package settings declares the persisted configuration records of the
// monitor: station network, soft access point and presentation.
package settings

import (
	"net/netip"

	"github.com/itohio/gotemp/pkg/bounded"
	"github.com/itohio/gotemp/pkg/record"
)

// Store paths of the persisted documents.
const (
	NetworkPath      = "/config/wifi/network"
	AccessPointPath  = "/config/wifi/softap"
	PresentationPath = "/config/presentation"
)

// WPA2 limits. Some routers only accept 31 SSID bytes, but 32 is the standard.
const (
	ssidMin     = 1
	ssidMax     = 32
	passwordMax = 63
)

func newSSID(v string) bounded.String     { return bounded.New(ssidMin, ssidMax, v) }
func newPassword(v string) bounded.String { return bounded.New(0, passwordMax, v) }

func setIPv4(dst *netip.Addr, s string) error {
	addr, err := record.ParseIPv4(s)
	if err != nil {
		return err
	}
	*dst = addr
	return nil
}
