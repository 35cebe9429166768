// Package probe runs reachability checks against single addresses and
// classifies their output.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Prober checks one address and returns the raw text of the reply summary.
type Prober interface {
	Probe(ctx context.Context, addr string) (string, error)
}

// AddrPlaceholder in probe arguments is replaced by the target address.
// Without it the address is appended as the last argument.
const AddrPlaceholder = "{addr}"

// CommandProber runs an external reachability command, ping by default,
// once per address and returns its combined stdout and stderr.
type CommandProber struct {
	command string
	args    []string
	timeout time.Duration
}

// NewCommandProber creates a prober for command with whitespace-separated
// args. A zero timeout disables the per-probe deadline.
func NewCommandProber(command, args string, timeout time.Duration) *CommandProber {
	if command == "" {
		command = "ping"
	}
	return &CommandProber{
		command: command,
		args:    strings.Fields(args),
		timeout: timeout,
	}
}

// CommandLine returns the argv that would be executed for addr.
func (p *CommandProber) CommandLine(addr string) []string {
	argv := make([]string, 0, len(p.args)+2)
	argv = append(argv, p.command)
	substituted := false
	for _, a := range p.args {
		if strings.Contains(a, AddrPlaceholder) {
			a = strings.ReplaceAll(a, AddrPlaceholder, addr)
			substituted = true
		}
		argv = append(argv, a)
	}
	if !substituted {
		argv = append(argv, addr)
	}
	return argv
}

// Probe runs the command. A non-zero exit status is not an error: ping
// exits 1 when no reply arrives, and the output still describes the loss.
func (p *CommandProber) Probe(ctx context.Context, addr string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	argv := p.CommandLine(addr)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return string(out), nil
		}
		if ctx.Err() != nil {
			return string(out), fmt.Errorf("%s %s: %w", argv[0], addr, ctx.Err())
		}
		return string(out), fmt.Errorf("run %s: %w", argv[0], err)
	}
	return string(out), nil
}
