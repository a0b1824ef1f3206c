package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/types"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // e.g. "device_connected"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

// Notifier posts JSON notifications to a webhook.
type Notifier struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// retryLogger adapts the shared logger to retryablehttp.LeveledLogger.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...any) {
	tool.DefaultLogger.Error(msg, keysAndValues...)
}

func (retryLogger) Info(msg string, keysAndValues ...any) {}

func (retryLogger) Debug(msg string, keysAndValues ...any) {
	tool.DefaultLogger.Debug(msg, keysAndValues...)
}

func (retryLogger) Warn(msg string, keysAndValues ...any) {
	tool.DefaultLogger.Warn(msg, keysAndValues...)
}

// New returns nil when webhookURL is empty, which disables notifications.
func New(webhookURL string, headers map[string]string) (*Notifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	parsed, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid notify URL %q: want http(s)://host", webhookURL)
	}

	// webhooks are third-party services, so certificates are always verified
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = tool.DefaultTimeout
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryLogger{}

	return &Notifier{
		url:     webhookURL,
		headers: headers,
		client:  retryClient.StandardClient(),
	}, nil
}

// Send posts notification. A nil notification sends an empty JSON object.
func (n *Notifier) Send(ctx context.Context, notification *Notification) error {
	var payload []byte
	var err error
	if notification != nil {
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification data: %w", err)
		}
	} else {
		payload = []byte("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range n.headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		tool.DefaultLogger.Debugf("failed to read response body: %v", readErr)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification send failed, HTTP status code: %d, response: %s", resp.StatusCode, string(body))
	}

	if notification != nil {
		tool.DefaultLogger.Infof("notification successfully sent to %s: %s - %s", n.url, notification.Type, notification.Title)
	}
	return nil
}

// DeviceConnected announces a handshake.
func (n *Notifier) DeviceConnected(ctx context.Context, device *types.ConnectedDevice) error {
	if n == nil || device == nil {
		return nil
	}
	return n.Send(ctx, &Notification{
		Type:    "device_connected",
		Title:   "Device Connected",
		Message: fmt.Sprintf("Device connected: %s", device.DisplayName()),
		Data: map[string]any{
			"id":          device.ID,
			"remoteAddr":  device.RemoteAddr,
			"alias":       device.Alias,
			"deviceModel": device.DeviceModel,
			"deviceType":  device.DeviceType,
			"connectedAt": device.ConnectedAt.Format(time.RFC3339),
		},
	})
}
