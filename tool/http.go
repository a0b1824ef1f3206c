package tool

import (
	"crypto/tls"
	"net/http"
	"time"
)

var DefaultTimeout = 30 * time.Second

// NewHTTPClient creates an HTTP client. In https mode the peer is expected to
// present a self-signed certificate, so verification is skipped.
func NewHTTPClient(protocol string) *http.Client {
	client := &http.Client{Timeout: DefaultTimeout}
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if protocol == "https" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client.Transport = transport
	return client
}
