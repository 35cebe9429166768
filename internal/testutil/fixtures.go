package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/HerbHall/rangeping/internal/addrrange"
)

// Canned probe replies.
const (
	ReplyReachable   = "4 packets transmitted, 4 received, 0% packet loss, time 3005ms"
	ReplyPartial     = "4 packets transmitted, 2 received, 50% packet loss, time 3005ms"
	ReplyNoAnswer    = "4 packets transmitted, 0 received, 100% packet loss, time 3050ms"
	ReplyUnreachable = "From 10.0.0.254 icmp_seq=1 Destination Host Unreachable\n4 packets transmitted, 0 received, +4 errors, 100% packet loss"
)

// FakeProber returns canned output per address and records every call.
type FakeProber struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string

	// Default is returned for addresses without a canned reply.
	Default string

	// OnProbe, if set, runs before the reply is returned.
	OnProbe func(ctx context.Context, addr string)
}

// NewFakeProber returns a FakeProber that answers ReplyReachable by default.
func NewFakeProber() *FakeProber {
	return &FakeProber{
		replies: make(map[string]string),
		errs:    make(map[string]error),
		Default: ReplyReachable,
	}
}

// Reply sets the output returned for addr.
func (f *FakeProber) Reply(addr, out string) *FakeProber {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[addr] = out
	return f
}

// Fail makes probing addr return err.
func (f *FakeProber) Fail(addr string, err error) *FakeProber {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[addr] = err
	return f
}

// Probe implements probe.Prober.
func (f *FakeProber) Probe(ctx context.Context, addr string) (string, error) {
	if f.OnProbe != nil {
		f.OnProbe(ctx, addr)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, addr)
	if err, ok := f.errs[addr]; ok {
		return "", err
	}
	if out, ok := f.replies[addr]; ok {
		return out, nil
	}
	return f.Default, nil
}

// Calls returns the probed addresses in call order.
func (f *FakeProber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// MustRange parses spec as CIDR or fails the test.
func MustRange(t testing.TB, spec string) addrrange.Range {
	t.Helper()
	r, err := addrrange.Parse(spec, "")
	if err != nil {
		t.Fatalf("testutil.MustRange(%q): %v", spec, err)
	}
	return r
}
