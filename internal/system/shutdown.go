// Package system performs host-level actions.
package system

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultShutdownCommand powers the appliance off.
const DefaultShutdownCommand = "sudo shutdown -h now"

// Runner executes a command. Replaced in tests.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Shutdown requests a host shutdown by running a configured command.
type Shutdown struct {
	argv []string
	run  Runner
}

// NewShutdown creates a Shutdown that runs cmdline, split on whitespace.
func NewShutdown(cmdline string) *Shutdown {
	return &Shutdown{argv: strings.Fields(cmdline), run: execRunner}
}

// WithRunner returns a copy of s that runs commands through r.
func (s *Shutdown) WithRunner(r Runner) *Shutdown {
	c := *s
	c.run = r
	return &c
}

// RequestShutdown runs the shutdown command.
func (s *Shutdown) RequestShutdown(ctx context.Context) error {
	if len(s.argv) == 0 {
		return errors.New("no shutdown command configured")
	}
	return s.run(ctx, s.argv[0], s.argv[1:]...)
}
