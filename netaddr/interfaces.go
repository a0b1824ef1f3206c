package netaddr

import (
	"fmt"

	"github.com/moyoez/retadi-server/tool"
)

// NetworkInfo describes one usable local IPv4 address.
type NetworkInfo struct {
	InterfaceName string `json:"interface_name"`
	IPAddress     string `json:"ip_address"`
	Number        string `json:"number"`     // "#12" for 192.168.3.12
	NumberInt     int    `json:"number_int"` // last octet
}

// NetworkInfos lists every usable IPv4 address. Tunnel and loopback
// interfaces are ignored.
func (r *Resolver) NetworkInfos() []NetworkInfo {
	var result []NetworkInfo

	ifaces, err := r.source()
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to get network interfaces: %v", err)
		return result
	}

	for _, iface := range ifaces {
		if RejectUnsupportedInterface(iface) {
			continue
		}
		for _, addr := range iface.Addrs {
			ip := addrIP(addr)
			if ip == nil {
				continue
			}
			ip = ip.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			lastOctet := int(ip[3])
			result = append(result, NetworkInfo{
				InterfaceName: iface.Name,
				IPAddress:     ip.String(),
				Number:        fmt.Sprintf("#%d", lastOctet),
				NumberInt:     lastOctet,
			})
		}
	}
	return result
}
