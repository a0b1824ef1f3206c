package types

// StatusResponse is served by GET /api/status.
type StatusResponse struct {
	Running    bool              `json:"running"`
	URL        string            `json:"url"`
	Port       uint16            `json:"port"`
	Version    string            `json:"version"`
	Devices    []ConnectedDevice `json:"devices"`
	Interfaces []InterfaceInfo   `json:"interfaces"`
}

type InterfaceInfo struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	Number    string `json:"number"`
}
