package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/version"
)

// RepoPath is the import path compiled binaries are addressed under.
const RepoPath = "github.com/andrewl/agentci"

// FlagSettings carries the inputs that shape compiler and linker flags.
type FlagSettings struct {
	EmbeddedPath   string
	RtloaderRoot   string
	PythonHome2    string
	PythonHome3    string
	MajorVersion   string
	PythonRuntimes string
}

// Flags is the computed set of go build inputs plus the environment overlay
// threaded through every subsequent stage.
type Flags struct {
	LDFlags string
	GCFlags string
	Env     map[string]string
}

// ComputeFlags derives ldflags, gcflags, and the build environment from the
// requested settings and the current git state.
func ComputeFlags(ctx context.Context, runner command.Runner, s FlagSettings) (Flags, error) {
	ver, err := version.Resolve(ctx, runner, version.Options{
		IncludeGit:   true,
		MajorVersion: s.MajorVersion,
	})
	if err != nil {
		return Flags{}, err
	}

	commit, err := runner.Output(ctx, command.Command{
		Name: "git",
		Args: []string{"rev-parse", "--short", "HEAD"},
	})
	if err != nil {
		return Flags{}, err
	}
	commit = strings.TrimSpace(commit)

	ld := []string{
		fmt.Sprintf("-X %s/pkg/version.Commit=%s", RepoPath, commit),
		fmt.Sprintf("-X %s/pkg/version.AgentVersion=%s", RepoPath, ver),
		fmt.Sprintf("-X %s/pkg/config.DefaultPython=%s", RepoPath, defaultPython(s.PythonRuntimes)),
	}
	if s.PythonHome2 != "" {
		ld = append(ld, fmt.Sprintf("-X %s/pkg/config.PythonHome2=%s", RepoPath, s.PythonHome2))
	}
	if s.PythonHome3 != "" {
		ld = append(ld, fmt.Sprintf("-X %s/pkg/config.PythonHome3=%s", RepoPath, s.PythonHome3))
	}

	env := map[string]string{}
	if s.EmbeddedPath != "" {
		env["CGO_CFLAGS"] = fmt.Sprintf("-I%s", filepath.Join(s.EmbeddedPath, "include"))
		env["CGO_LDFLAGS"] = fmt.Sprintf("-L%s", filepath.Join(s.EmbeddedPath, "lib"))
	}
	if s.RtloaderRoot != "" {
		env["PKG_CONFIG_PATH"] = filepath.Join(s.RtloaderRoot, "rtloader")
	}

	return Flags{
		LDFlags: strings.Join(ld, " "),
		GCFlags: "",
		Env:     env,
	}, nil
}

// HasBothPython reports whether the runtime selection covers Python 2 and 3.
func HasBothPython(pythonRuntimes string) bool {
	runtimes := strings.Split(pythonRuntimes, ",")
	return len(runtimes) == 2
}

// WinPyRuntimeVar returns the resource-compiler define selecting the Python
// runtime(s) linked into the Windows build.
func WinPyRuntimeVar(pythonRuntimes string) string {
	if HasBothPython(pythonRuntimes) {
		return "PY2_PY3_RUNTIME"
	}
	if strings.TrimSpace(pythonRuntimes) == "2" {
		return "PY2_RUNTIME"
	}
	return "PY3_RUNTIME"
}

func defaultPython(pythonRuntimes string) string {
	if strings.TrimSpace(pythonRuntimes) == "2" {
		return "2"
	}
	return "3"
}
