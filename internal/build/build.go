// Package build drives compilation of the agent binary and the staging of
// its configuration and asset tree.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/version"
)

// Options are the feature-flag selections for a single agent build.
type Options struct {
	Rebuild         bool
	Race            bool
	BuildInclude    string // comma-separated include tags, empty for defaults
	BuildExclude    string // comma-separated exclude tags
	IOT             bool
	Development     bool
	SkipAssets      bool
	EmbeddedPath    string
	RtloaderRoot    string
	PythonHome2     string
	PythonHome3     string
	MajorVersion    string
	PythonRuntimes  string
	Arch            string
	ExcludeRtloader bool
	GoMod           string
	WindowsSysprobe bool
}

// BinName appends the platform executable suffix.
func BinName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Run builds the agent binary and stages its dist tree. Every external
// invocation failure aborts immediately; there is no partial-success
// reporting.
func Run(ctx context.Context, runner command.Runner, opts Options) error {
	if !opts.ExcludeRtloader && !opts.IOT {
		// The embedded path doubles as the rtloader install prefix so the
		// CGO flags computed below can find the headers and libs.
		if err := RtloaderMake(ctx, runner, opts.PythonRuntimes, opts.EmbeddedPath); err != nil {
			return err
		}
		if err := RtloaderInstall(ctx, runner); err != nil {
			return err
		}
	}

	flags, err := ComputeFlags(ctx, runner, FlagSettings{
		EmbeddedPath:   opts.EmbeddedPath,
		RtloaderRoot:   opts.RtloaderRoot,
		PythonHome2:    opts.PythonHome2,
		PythonHome3:    opts.PythonHome3,
		MajorVersion:   opts.MajorVersion,
		PythonRuntimes: opts.PythonRuntimes,
	})
	if err != nil {
		return err
	}
	env := flags.Env

	if runtime.GOOS == "windows" {
		// Cross-compiling the resource file needs CGO on.
		env["CGO_ENABLED"] = "1"
		if opts.Arch == "x86" {
			env["GOARCH"] = "386"
		}
		numeric, err := version.ResolveNumeric(ctx, runner, opts.MajorVersion)
		if err != nil {
			return err
		}
		if err := generateVersionResource(ctx, runner, opts.Arch, opts.PythonRuntimes, numeric, env); err != nil {
			return err
		}
	}

	var buildTags []string
	if opts.IOT {
		// IOT mode overrides whatever came through include/exclude.
		buildTags = DefaultBuildTags(FlavorIOT, opts.Arch)
	} else {
		include := DefaultBuildTags(FlavorAgent, opts.Arch)
		if opts.BuildInclude != "" {
			include = FilterIncompatibleTags(strings.Split(opts.BuildInclude, ","), opts.Arch)
		}
		var exclude []string
		if opts.BuildExclude != "" {
			exclude = strings.Split(opts.BuildExclude, ",")
		}
		buildTags = ComputeBuildTags(include, exclude)
	}

	// Regenerate templated go sources before the main compile.
	if err := runner.Run(ctx, command.Command{
		Name: "go",
		Args: []string{"generate", RepoPath + "/pkg/status"},
		Env:  env,
	}); err != nil {
		return err
	}

	flavor := "agent"
	if opts.IOT {
		flavor = "iot-agent"
	}
	args := []string{"build", "-mod=" + opts.GoMod}
	if opts.Race {
		args = append(args, "-race")
	}
	if opts.Rebuild {
		args = append(args, "-a")
	}
	args = append(args,
		"-tags", strings.Join(buildTags, " "),
		"-o", filepath.Join(BinPath, BinName("agent")),
		fmt.Sprintf("-gcflags=%s", flags.GCFlags),
		fmt.Sprintf("-ldflags=%s", flags.LDFlags),
		RepoPath+"/cmd/"+flavor,
	)
	if err := runner.Run(ctx, command.Command{Name: "go", Args: args, Env: env}); err != nil {
		return err
	}

	// Drop cross-compiling bits before rendering configuration.
	env["GOOS"] = ""
	env["GOARCH"] = ""

	buildType := "agent-py3"
	if opts.IOT {
		buildType = "iot-agent"
	} else if HasBothPython(opts.PythonRuntimes) {
		buildType = "agent-py2py3"
	}
	if err := RenderConfig(buildType, "pkg/config/config_template.yaml", "cmd/agent/dist/datadog.yaml", env); err != nil {
		return err
	}

	if runtime.GOOS != "windows" || opts.WindowsSysprobe {
		if err := RenderConfig("system-probe", "pkg/config/system_probe_template.yaml", "cmd/agent/dist/system-probe.yaml", env); err != nil {
			return err
		}
	}

	if !opts.SkipAssets {
		if err := RefreshAssets(AssetOptions{
			BuildTags:       buildTags,
			Development:     opts.Development,
			IOT:             opts.IOT,
			WindowsSysprobe: opts.WindowsSysprobe,
		}); err != nil {
			return err
		}
	}

	slog.Info("Agent build finished", "flavor", flavor, "tags", len(buildTags))
	return nil
}
