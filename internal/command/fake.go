package command

import (
	"context"
	"strings"
)

// FakeRunner records invocations and replays scripted results. Test-only
// collaborator kept in the package so every driver test can share it.
type FakeRunner struct {
	Commands []Command

	// Outputs maps a command-line prefix to the stdout Output should return.
	// The first matching prefix wins.
	Outputs map[string]string

	// Failures maps a command-line prefix to the error Run/Output should
	// return for matching invocations.
	Failures map[string]error
}

// NewFakeRunner returns an empty fake with no scripted results.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Outputs:  make(map[string]string),
		Failures: make(map[string]error),
	}
}

func (f *FakeRunner) Run(_ context.Context, cmd Command) error {
	f.Commands = append(f.Commands, cmd)
	return f.failureFor(cmd)
}

func (f *FakeRunner) Output(_ context.Context, cmd Command) (string, error) {
	f.Commands = append(f.Commands, cmd)
	if err := f.failureFor(cmd); err != nil {
		return "", err
	}
	line := cmd.String()
	for prefix, out := range f.Outputs {
		if strings.HasPrefix(line, prefix) {
			return out, nil
		}
	}
	return "", nil
}

// Lines returns every recorded invocation rendered as a command line.
func (f *FakeRunner) Lines() []string {
	out := make([]string, len(f.Commands))
	for i, c := range f.Commands {
		out[i] = c.String()
	}
	return out
}

func (f *FakeRunner) failureFor(cmd Command) error {
	line := cmd.String()
	for prefix, err := range f.Failures {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	return nil
}
