package models

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/types"
)

// ParseDeviceInfo sniffs a handshake payload for the optional JSON device
// description. Anything that is not a JSON object yields ok=false; that is
// not an error for the handshake itself.
func ParseDeviceInfo(payload string) (info types.DeviceInfo, ok bool) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return info, false
	}
	if err := sonic.UnmarshalString(trimmed, &info); err != nil {
		return info, false
	}
	return info, info.Alias != "" || info.DeviceModel != "" || info.DeviceType != ""
}

// TruncatePayload cuts payload to limit bytes without splitting a UTF-8
// sequence and reports whether anything was dropped.
func TruncatePayload(payload []byte, limit int) (string, bool) {
	if len(payload) <= limit {
		return string(payload), false
	}
	cut := limit
	for cut > 0 && cut > limit-4 && (payload[cut]&0xC0) == 0x80 {
		cut--
	}
	return string(payload[:cut]), true
}

// DescribePayload shortens a payload for a log line.
func DescribePayload(payload string) string {
	const max = 256
	if len(payload) <= max {
		return payload
	}
	head, _ := TruncatePayload(tool.StringToBytes(payload), max)
	return fmt.Sprintf("%s... (%d bytes)", head, len(payload))
}
