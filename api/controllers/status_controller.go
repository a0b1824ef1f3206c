package controllers

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/retadi-server/api/models"
	"github.com/moyoez/retadi-server/netaddr"
	"github.com/moyoez/retadi-server/session"
	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/types"
)

type StatusController struct {
	state    session.Reader
	devices  *models.DeviceRegistry
	resolver *netaddr.Resolver
}

func NewStatusController(state session.Reader, devices *models.DeviceRegistry, resolver *netaddr.Resolver) *StatusController {
	return &StatusController{
		state:    state,
		devices:  devices,
		resolver: resolver,
	}
}

func (ctrl *StatusController) HandleStatus(c *gin.Context) {
	snap := ctrl.state.Snapshot()
	response := types.StatusResponse{
		Running:    snap.Running,
		URL:        snap.URL,
		Port:       snap.Port,
		Version:    tool.Version,
		Devices:    ctrl.devices.Recent(),
		Interfaces: make([]types.InterfaceInfo, 0),
	}
	for _, info := range ctrl.resolver.NetworkInfos() {
		response.Interfaces = append(response.Interfaces, types.InterfaceInfo{
			Name:      info.InterfaceName,
			IPAddress: info.IPAddress,
			Number:    info.Number,
		})
	}

	payload, err := sonic.Marshal(&response)
	if err != nil {
		tool.DefaultLogger.Errorf("Failed to encode status response: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}
