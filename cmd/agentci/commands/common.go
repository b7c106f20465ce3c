package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/config"
)

// Global context passed to subcommands: the process runner every external
// invocation goes through (swapped for a fake in tests).
type Global struct {
	Runner command.Runner
}

// CLI definition & global flags.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version-flag" help:"Show agentci version and exit"`

	Build            BuildCmd            `cmd:"" help:"Build the agent binary and stage its config/asset tree"`
	Run              RunCmd              `cmd:"" help:"Build (unless skipped) and execute the agent binary"`
	ImageBuild       ImageBuildCmd       `cmd:"" name:"image-build" help:"Build the agent docker images from the latest package"`
	IntegrationTests IntegrationTestsCmd `cmd:"" name:"integration-tests" help:"Run the agent integration test suites"`
	OmnibusBuild     OmnibusBuildCmd     `cmd:"" name:"omnibus-build" help:"Build the agent packages with the Omnibus installer"`
	OmnibusManifest  OmnibusManifestCmd  `cmd:"" name:"omnibus-manifest" help:"List Omnibus package contents without building"`
	DepTree          DepTreeCmd          `cmd:"" name:"build-dep-tree" help:"Export the dependency tree for the current or a tagged revision"`
	Clean            CleanCmd            `cmd:"" help:"Remove temporary objects and binary artifacts"`
	AgentVersion     VersionCmd          `cmd:"" name:"version" help:"Print the resolved agent version"`
	CheckPython      CheckPythonCmd      `cmd:"" name:"check-supports-python-version" help:"Check whether a setup.py declares support for a Python major version"`
	GetCache         GetCacheCmd         `cmd:"" name:"get-integrations-from-cache" help:"Download cached integration wheels"`
	UploadCache      UploadCacheCmd      `cmd:"" name:"upload-integration-to-cache" help:"Upload a built integration wheel to the cache"`
	Notify           NotifyCmd           `cmd:"" help:"Notify owning teams about failed pipeline jobs"`
	FailedTests      FailedTestsCmd      `cmd:"" name:"failed-tests" help:"List failed tests of a job with their code owners"`
}

// AfterApply runs after flag parsing: set up logging and the developer
// environment overlay once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	config.LoadEnvOverlay()
	return nil
}
