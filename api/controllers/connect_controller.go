package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/moyoez/retadi-server/api/models"
	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/types"
)

type ConnectController struct {
	handler types.HandlerInterface
}

func NewConnectController(handler types.HandlerInterface) *ConnectController {
	return &ConnectController{
		handler: handler,
	}
}

// HandleConnect acknowledges a companion's announcement. The body is opaque
// and never validated; the answer is always 200.
func (ctrl *ConnectController) HandleConnect(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, types.MaxHandshakePayload+1))
	if err != nil {
		// A half-read body is still an announcement.
		tool.DefaultLogger.Warnf("[Connect] Failed to read handshake body from %s: %v", c.ClientIP(), err)
	}
	payload, truncated := models.TruncatePayload(body, types.MaxHandshakePayload)
	if truncated {
		tool.DefaultLogger.Warnf("[Connect] Handshake from %s truncated to %d bytes", c.ClientIP(), types.MaxHandshakePayload)
	}

	device := &types.ConnectedDevice{
		ID:          uuid.NewString(),
		RemoteAddr:  c.ClientIP(),
		Payload:     payload,
		ConnectedAt: time.Now(),
	}
	if info, ok := models.ParseDeviceInfo(payload); ok {
		device.Alias = info.Alias
		device.DeviceModel = info.DeviceModel
		device.DeviceType = info.DeviceType
	}

	tool.DefaultLogger.Infof("Device connected: %s (from %s)", models.DescribePayload(payload), device.RemoteAddr)

	if ctrl.handler != nil {
		if err := ctrl.handler.OnConnect(device); err != nil {
			tool.DefaultLogger.Errorf("[Connect] Connect callback error: %v", err)
		}
	}

	c.String(http.StatusOK, types.ConnectAck)
}
