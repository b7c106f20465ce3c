package commands

import (
	"context"
	"log/slog"

	"github.com/andrewl/agentci/internal/metrics"
	"github.com/andrewl/agentci/internal/omnibus"
)

// omnibusEnvFlags are the flags shared by the build and manifest commands.
type omnibusEnvFlags struct {
	IOT             bool   `name:"iot" help:"Package the IoT flavor"`
	AgentBinaries   bool   `name:"agent-binaries" help:"Package the agent-binaries project"`
	LogLevel        string `name:"log-level" default:"info" help:"Packaging tool log level"`
	BaseDir         string `name:"base-dir" help:"Packaging base directory (falls back to OMNIBUS_BASE_DIR)"`
	GemPath         string `name:"gem-path" help:"Install packaging tool dependencies under this path"`
	SkipSign        bool   `name:"skip-sign" help:"On macOS, build an unsigned package"`
	ReleaseVersion  string `name:"release-version" default:"nightly" help:"Release pins entry to export"`
	MajorVersion    string `name:"major-version" default:"7" help:"Major version the package ships under"`
	PythonRuntimes  string `name:"python-runtimes" default:"3" help:"Python runtimes to package"`
	HardenedRuntime bool   `name:"hardened-runtime" help:"On macOS, enforce the hardened runtime setting"`
	SystemProbeBin  string `name:"system-probe-bin" help:"Prebuilt system-probe binary to embed"`
	GoModCache      string `name:"go-mod-cache" help:"Shared module cache path to reuse"`
}

func (f *omnibusEnvFlags) envOptions() omnibus.EnvOptions {
	return omnibus.EnvOptions{
		SkipSign:        f.SkipSign,
		ReleaseVersion:  f.ReleaseVersion,
		MajorVersion:    f.MajorVersion,
		PythonRuntimes:  f.PythonRuntimes,
		HardenedRuntime: f.HardenedRuntime,
		SystemProbeBin:  f.SystemProbeBin,
		GoModCache:      f.GoModCache,
	}
}

// OmnibusBuildCmd implements the 'omnibus-build' command.
type OmnibusBuildCmd struct {
	omnibusEnvFlags
	SkipDeps       bool   `name:"skip-deps" help:"Skip downloading module dependencies"`
	OmnibusS3Cache bool   `name:"omnibus-s3-cache" help:"Populate the packaging tool's S3 build cache"`
	NikosPath      string `name:"nikos-path" help:"Path to the nikos runtime dependency"`
	MetricsFile    string `name:"metrics-file" env:"AGENTCI_METRICS_FILE" help:"Write phase metrics to this file in Prometheus text format"`
}

func (c *OmnibusBuildCmd) Run(g *Global) error {
	env := c.envOptions()
	env.NikosPath = c.NikosPath

	rec := metrics.Recorder(metrics.NoopRecorder{})
	var textfile *metrics.TextfileRecorder
	if c.MetricsFile != "" {
		textfile = metrics.NewTextfileRecorder(c.MetricsFile)
		rec = textfile
	}

	buildErr := omnibus.Build(context.Background(), g.Runner, rec, omnibus.BuildOptions{
		Env:            env,
		IOT:            c.IOT,
		AgentBinaries:  c.AgentBinaries,
		LogLevel:       c.LogLevel,
		BaseDir:        c.BaseDir,
		GemPath:        c.GemPath,
		SkipDeps:       c.SkipDeps,
		OmnibusS3Cache: c.OmnibusS3Cache,
	})

	// Failed phases are worth scraping too, so flush regardless.
	if textfile != nil {
		if err := textfile.Flush(); err != nil {
			slog.Warn("Failed to write metrics file", "path", c.MetricsFile, "error", err)
		}
	}
	return buildErr
}

// OmnibusManifestCmd implements the 'omnibus-manifest' command: list
// package contents without building.
type OmnibusManifestCmd struct {
	omnibusEnvFlags
	Platform string `help:"Platform family to resolve the manifest for"`
	Arch     string `help:"Architecture to resolve the manifest for"`
}

func (c *OmnibusManifestCmd) Run(g *Global) error {
	return omnibus.Manifest(context.Background(), g.Runner, omnibus.ManifestOptions{
		Env:           c.envOptions(),
		IOT:           c.IOT,
		AgentBinaries: c.AgentBinaries,
		LogLevel:      c.LogLevel,
		BaseDir:       c.BaseDir,
		GemPath:       c.GemPath,
		Platform:      c.Platform,
		Arch:          c.Arch,
	})
}
