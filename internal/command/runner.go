// Package command wraps external tool invocation behind a Runner interface
// so drivers stay testable without spawning processes.
package command

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external invocation. Env is an overlay merged
// on top of the current process environment; an empty value clears the
// variable for the child process (used to drop GOOS/GOARCH after
// cross-compiling).
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
}

// String renders the invocation the way a shell would see it, for logging
// and for command-length accounting.
func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// Runner executes external commands. All methods block until the child
// process exits; a non-zero exit surfaces as an error unchanged.
type Runner interface {
	// Run executes the command, streaming stdout/stderr to the parent.
	Run(ctx context.Context, cmd Command) error
	// Output executes the command and returns captured stdout.
	Output(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner is the os/exec backed Runner used outside of tests.
type ExecRunner struct{}

// NewRunner returns the default process-spawning runner.
func NewRunner() *ExecRunner { return &ExecRunner{} }

func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := r.build(ctx, cmd)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	slog.Debug("Running command", "cmd", cmd.String(), "dir", cmd.Dir)
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", cmd.Name, err)
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, cmd Command) (string, error) {
	c := r.build(ctx, cmd)
	var stdout bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = os.Stderr
	slog.Debug("Running command", "cmd", cmd.String(), "dir", cmd.Dir)
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w", cmd.Name, err)
	}
	return stdout.String(), nil
}

func (r *ExecRunner) build(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = MergeEnv(os.Environ(), cmd.Env)
	return c
}

// MergeEnv applies overlay on top of base ("KEY=VALUE" pairs). Overlay keys
// with empty values remove the variable from the result.
func MergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, overridden := overlay[key]; overridden {
			continue
		}
		out = append(out, kv)
	}
	for key, value := range overlay {
		if value == "" {
			continue
		}
		out = append(out, key+"="+value)
	}
	return out
}
