package netaddr

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ProbeResult summarises a reachability check against a peer.
type ProbeResult struct {
	Host       string
	Sent       int
	Received   int
	AvgRTT     time.Duration
	PacketLoss float64
}

// Prober pings peers with unprivileged (UDP) ICMP echo. Hosts where the
// kernel forbids unprivileged ping return an error; callers treat it as
// informational only.
type Prober struct {
	Count      int
	Interval   time.Duration
	Timeout    time.Duration
	Privileged bool
}

func NewProber() *Prober {
	return &Prober{Count: 3, Interval: 200 * time.Millisecond, Timeout: 2 * time.Second}
}

// Probe pings host and blocks until the count is reached, the timeout
// expires or ctx is cancelled.
func (p *Prober) Probe(ctx context.Context, host string) (ProbeResult, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return ProbeResult{Host: host}, fmt.Errorf("failed to create pinger for %s: %w", host, err)
	}
	pinger.Count = p.Count
	pinger.Interval = p.Interval
	pinger.Timeout = p.Timeout
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return ProbeResult{Host: host}, fmt.Errorf("ping %s failed: %w", host, err)
	}
	stats := pinger.Statistics()
	return ProbeResult{
		Host:       host,
		Sent:       stats.PacketsSent,
		Received:   stats.PacketsRecv,
		AvgRTT:     stats.AvgRtt,
		PacketLoss: stats.PacketLoss,
	}, nil
}
