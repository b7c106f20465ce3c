package commands

import (
	"context"
	"path/filepath"

	"github.com/andrewl/agentci/internal/build"
	"github.com/andrewl/agentci/internal/command"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Rebuild         bool   `help:"Force rebuilding of all packages (-a)"`
	Race            bool   `help:"Build with the race detector"`
	BuildInclude    string `name:"build-include" help:"Comma-separated build tags to include (defaults per flavor)"`
	BuildExclude    string `name:"build-exclude" help:"Comma-separated build tags to exclude"`
	IOT             bool   `name:"iot" help:"Build the IoT flavor (overrides include/exclude)"`
	Development     bool   `default:"true" negatable:"" help:"Overlay developer-mode extras into the dist tree"`
	SkipAssets      bool   `name:"skip-assets" help:"Skip refreshing config and GUI assets"`
	EmbeddedPath    string `name:"embedded-path" help:"Embedded dependencies root (doubles as rtloader install prefix)"`
	RtloaderRoot    string `name:"rtloader-root" help:"Root of a pre-built rtloader tree"`
	PythonHome2     string `name:"python-home-2" help:"Python 2 home baked into the binary"`
	PythonHome3     string `name:"python-home-3" help:"Python 3 home baked into the binary"`
	MajorVersion    string `name:"major-version" default:"7" help:"Major version the build ships under"`
	PythonRuntimes  string `name:"python-runtimes" default:"3" help:"Python runtimes to link (2, 3, or 2,3)"`
	Arch            string `default:"x64" help:"Target architecture"`
	ExcludeRtloader bool   `name:"exclude-rtloader" help:"Skip building the native runtime loader"`
	GoMod           string `name:"go-mod" default:"mod" help:"-mod flag value for go build"`
	WindowsSysprobe bool   `name:"windows-sysprobe" help:"Stage system-probe bits on Windows"`
}

func (b *BuildCmd) options() build.Options {
	return build.Options{
		Rebuild:         b.Rebuild,
		Race:            b.Race,
		BuildInclude:    b.BuildInclude,
		BuildExclude:    b.BuildExclude,
		IOT:             b.IOT,
		Development:     b.Development,
		SkipAssets:      b.SkipAssets,
		EmbeddedPath:    b.EmbeddedPath,
		RtloaderRoot:    b.RtloaderRoot,
		PythonHome2:     b.PythonHome2,
		PythonHome3:     b.PythonHome3,
		MajorVersion:    b.MajorVersion,
		PythonRuntimes:  b.PythonRuntimes,
		Arch:            b.Arch,
		ExcludeRtloader: b.ExcludeRtloader,
		GoMod:           b.GoMod,
		WindowsSysprobe: b.WindowsSysprobe,
	}
}

func (b *BuildCmd) Run(g *Global) error {
	return build.Run(context.Background(), g.Runner, b.options())
}

// RunCmd builds the agent (unless skipped) and executes it.
type RunCmd struct {
	BuildCmd
	SkipBuild bool `name:"skip-build" help:"Execute the existing binary without rebuilding"`
}

func (r *RunCmd) Run(g *Global) error {
	ctx := context.Background()
	if !r.SkipBuild {
		if err := build.Run(ctx, g.Runner, r.options()); err != nil {
			return err
		}
	}
	return g.Runner.Run(ctx, command.Command{
		Name: filepath.Join(build.BinPath, build.BinName("agent")),
	})
}
