// Package netaddr works out which address a companion device on the same
// network can use to reach this host.
package netaddr

import (
	"errors"
	"net"
	"strings"

	"github.com/moyoez/retadi-server/tool"
)

// ErrNoLANAddress is returned when only loopback is available. Callers
// degrade to 127.0.0.1, which works for same-machine testing only.
var ErrNoLANAddress = errors.New("no LAN address found")

var loopback = net.IPv4(127, 0, 0, 1).To4()

// Interface is the subset of net.Interface the resolver looks at.
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// InterfaceSource enumerates host interfaces.
type InterfaceSource func() ([]Interface, error)

// SystemInterfaces reads the host's interfaces. Interfaces whose addresses
// cannot be read are returned without addresses.
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			tool.DefaultLogger.Debugf("Skipping addresses of %s: %v", iface.Name, err)
			addrs = nil
		}
		result = append(result, Interface{Name: iface.Name, Flags: iface.Flags, Addrs: addrs})
	}
	return result, nil
}

type Resolver struct {
	scheme string
	source InterfaceSource
}

// NewResolver builds a resolver over the host's interfaces.
func NewResolver(scheme string) *Resolver {
	return NewResolverWithSource(scheme, SystemInterfaces)
}

func NewResolverWithSource(scheme string, source InterfaceSource) *Resolver {
	if scheme == "" {
		scheme = "http"
	}
	if source == nil {
		source = SystemInterfaces
	}
	return &Resolver{scheme: scheme, source: source}
}

func (r *Resolver) Scheme() string {
	return r.scheme
}

// LANAddress picks the best address for a peer on the local segment:
// private or global IPv4, then global or unique-local IPv6, then link-local
// IPv4. IPv6 link-local is never chosen because it needs a zone to be
// dialled. Returns loopback and ErrNoLANAddress when nothing qualifies.
func (r *Resolver) LANAddress() (net.IP, error) {
	ifaces, err := r.source()
	if err != nil {
		return loopback, errors.Join(ErrNoLANAddress, err)
	}

	var best net.IP
	bestRank := rankUnusable
	for _, iface := range ifaces {
		if RejectUnsupportedInterface(iface) {
			continue
		}
		for _, addr := range iface.Addrs {
			ip := addrIP(addr)
			if ip == nil {
				continue
			}
			if rank := rankIP(ip); rank < bestRank {
				best, bestRank = ip, rank
			}
		}
	}
	if best == nil {
		return loopback, ErrNoLANAddress
	}
	return best, nil
}

// Resolve returns scheme://ip:port. It never fails; when no LAN address
// exists the loopback URL is returned and a warning logged.
func (r *Resolver) Resolve(port uint16) string {
	ip, err := r.LANAddress()
	if err != nil {
		tool.DefaultLogger.Warnf("Address resolution degraded, using loopback: %v", err)
	}
	return tool.BuildBaseURL(r.scheme, ip, port)
}

const (
	rankIPv4 = iota
	rankIPv6
	rankLinkLocalIPv4
	rankUnusable
)

func rankIP(ip net.IP) int {
	switch {
	case ip.IsLoopback(), ip.IsUnspecified(), ip.IsMulticast():
		return rankUnusable
	case ip.To4() != nil && ip.IsLinkLocalUnicast():
		return rankLinkLocalIPv4
	case ip.To4() != nil:
		return rankIPv4
	case ip.IsLinkLocalUnicast():
		return rankUnusable
	case ip.IsGlobalUnicast():
		return rankIPv6
	default:
		return rankUnusable
	}
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		if ip4 := v.IP.To4(); ip4 != nil {
			return ip4
		}
		return v.IP
	case *net.IPAddr:
		if ip4 := v.IP.To4(); ip4 != nil {
			return ip4
		}
		return v.IP
	}
	return nil
}

var tunnelPrefixes = []string{"tun", "utun", "tap", "wg", "ppp", "ipsec"}

// RejectUnsupportedInterface filters interfaces a phone on the LAN could not
// reach: down, loopback, and VPN/tunnel devices.
func RejectUnsupportedInterface(iface Interface) bool {
	if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
		return true
	}
	name := strings.ToLower(iface.Name)
	for _, prefix := range tunnelPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
