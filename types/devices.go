package types

import "time"

// DeviceInfo is the optional JSON shape a companion may send as its handshake
// payload. Every field is advisory; nothing is verified.
type DeviceInfo struct {
	Alias       string `json:"alias"`
	DeviceModel string `json:"deviceModel,omitempty"`
	DeviceType  string `json:"deviceType,omitempty"` // mobile | tablet | desktop | web
}

// ConnectedDevice records one handshake. It carries no identity or trust.
type ConnectedDevice struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	Alias       string    `json:"alias,omitempty"`
	DeviceModel string    `json:"deviceModel,omitempty"`
	DeviceType  string    `json:"deviceType,omitempty"`
	Payload     string    `json:"payload"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// DisplayName prefers the announced alias, then the remote address.
func (d ConnectedDevice) DisplayName() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.RemoteAddr
}
