package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"

	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/types"
)

// Announce plays the companion side of pairing: it POSTs payload to
// baseURL/api/connect and returns the acknowledgement body.
func Announce(ctx context.Context, baseURL string, payload []byte) (string, error) {
	urlBytes, err := tool.BuildConnectURL(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to build connect URL: %w", err)
	}
	target := tool.BytesToString(urlBytes)
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("failed to parse connect URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create connect request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	client := tool.NewHTTPClient(parsed.Scheme)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send connect request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read connect response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("connect request failed: %s", resp.Status)
	}
	log.Debugf("Connect acknowledged by %s: %s", target, string(body))
	return string(body), nil
}

// AnnounceDevice sends info as a JSON handshake payload.
func AnnounceDevice(ctx context.Context, baseURL string, info types.DeviceInfo) (string, error) {
	payload, err := sonic.Marshal(&info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal device info: %w", err)
	}
	return Announce(ctx, baseURL, payload)
}
