package tool

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const ConnectPath = "/api/connect"

// BuildBaseURL formats scheme://host:port with no trailing slash.
// IPv6 hosts are bracketed.
func BuildBaseURL(scheme string, ip net.IP, port uint16) string {
	if scheme == "" {
		scheme = "http"
	}
	host := "127.0.0.1"
	if ip != nil {
		host = ip.String()
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(int(port))))
}

// BuildConnectURL appends the handshake path to a server base URL.
func BuildConnectURL(baseURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + ConnectPath
	u.RawQuery = ""
	return StringToBytes(u.String()), nil
}
