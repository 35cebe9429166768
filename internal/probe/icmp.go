package probe

import (
	"context"
	"fmt"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ICMPProber pings in-process via pro-bing and renders the statistics in
// the same summary form ping prints, so Classify handles both probers.
type ICMPProber struct {
	timeout time.Duration
	count   int
}

// NewICMPProber creates an in-process prober sending count echo requests.
func NewICMPProber(timeout time.Duration, count int) *ICMPProber {
	if count <= 0 {
		count = 4
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ICMPProber{timeout: timeout, count: count}
}

// Probe pings addr and returns a "N packets transmitted, M received,
// X% packet loss" line.
func (p *ICMPProber) Probe(ctx context.Context, addr string) (string, error) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return "", fmt.Errorf("create pinger: %w", err)
	}

	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	// Run pinger in a goroutine for context cancellation.
	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case runErr := <-done:
		if runErr != nil {
			return "", fmt.Errorf("ping %s: %w", addr, runErr)
		}
		return FormatStatistics(pinger.Statistics()), nil
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return "", ctx.Err()
	}
}

// FormatStatistics renders pro-bing statistics as a ping summary line.
func FormatStatistics(s *probing.Statistics) string {
	return fmt.Sprintf("%d packets transmitted, %d received, %g%% packet loss",
		s.PacketsSent, s.PacketsRecv, s.PacketLoss)
}
