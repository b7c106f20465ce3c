// Package omnibus drives the external installer-packaging tool against a
// resolved environment of version strings, signing material, and cache
// settings.
package omnibus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/config"
	"github.com/andrewl/agentci/internal/errors"
	"github.com/andrewl/agentci/internal/metrics"
	"github.com/andrewl/agentci/internal/secrets"
	"github.com/andrewl/agentci/internal/version"
)

const omnibusDir = "omnibus"

// EnvOptions shape the environment exported to the packaging tool.
type EnvOptions struct {
	SkipSign        bool
	ReleaseVersion  string
	MajorVersion    string
	PythonRuntimes  string
	HardenedRuntime bool
	SystemProbeBin  string
	NikosPath       string
	GoModCache      string
	ReleaseFile     string
}

// BuildEnv assembles the environment overlay for a packaging run: release
// version pins, module cache reuse, signing credentials (Windows only, and
// only when SIGN_WINDOWS is set), deployment targets, and version exports.
func BuildEnv(ctx context.Context, runner command.Runner, opts EnvOptions) (map[string]string, error) {
	releaseFile := opts.ReleaseFile
	if releaseFile == "" {
		releaseFile = config.DefaultReleaseFile
	}
	entry, err := config.LoadReleaseVersions(releaseFile, opts.ReleaseVersion)
	if err != nil {
		return nil, err
	}
	env := map[string]string(entry)

	// If the host has a GOMODCACHE set, reuse it.
	goModCache := opts.GoModCache
	if goModCache == "" {
		goModCache = os.Getenv("GOMODCACHE")
	}
	if goModCache != "" {
		env["OMNIBUS_GOMODCACHE"] = goModCache
	}

	// Only overrides the pin when the value is a non-empty string.
	if core := os.Getenv("INTEGRATIONS_CORE_VERSION"); core != "" {
		env["INTEGRATIONS_CORE_VERSION"] = core
	}

	if runtime.GOOS == "windows" && os.Getenv("SIGN_WINDOWS") != "" {
		pfxFile, err := secrets.SigningCert(ctx, runner)
		if err != nil {
			return nil, err
		}
		pfxPass, err := secrets.PfxPassword(ctx, runner)
		if err != nil {
			return nil, err
		}
		env["SIGN_PFX"] = pfxFile
		env["SIGN_PFX_PW"] = pfxPass
	}

	if runtime.GOOS == "darwin" {
		env["MACOSX_DEPLOYMENT_TARGET"] = "10.12"
	}
	if opts.SkipSign {
		env["SKIP_SIGN_MAC"] = "true"
	}
	if opts.HardenedRuntime {
		env["HARDENED_RUNTIME_MAC"] = "true"
	}

	pkgVersion, err := version.Resolve(ctx, runner, version.Options{
		IncludeGit:      true,
		URLSafe:         true,
		IncludePipeline: true,
		MajorVersion:    opts.MajorVersion,
	})
	if err != nil {
		return nil, err
	}
	env["PACKAGE_VERSION"] = pkgVersion
	env["MAJOR_VERSION"] = opts.MajorVersion
	env["PY_RUNTIMES"] = opts.PythonRuntimes

	if opts.SystemProbeBin != "" {
		env["SYSTEM_PROBE_BIN"] = opts.SystemProbeBin
	}
	if opts.NikosPath != "" {
		env["NIKOS_PATH"] = opts.NikosPath
	}
	return env, nil
}

// BundleInstall installs the packaging tool's dependencies idempotently:
// a stale lock file is removed first so every run re-resolves.
func BundleInstall(ctx context.Context, runner command.Runner, gemPath string, env map[string]string) error {
	lockFile := filepath.Join(omnibusDir, "Gemfile.lock")
	if _, err := os.Stat(lockFile); err == nil {
		if err := os.Remove(lockFile); err != nil {
			return fmt.Errorf("remove stale %s: %w", lockFile, err)
		}
	}

	args := []string{"install"}
	if gemPath != "" {
		args = append(args, "--path", gemPath)
	}
	if err := runner.Run(ctx, command.Command{Name: "bundle", Args: args, Dir: omnibusDir, Env: env}); err != nil {
		return errors.Externalf(err, "bundle install failed")
	}
	return nil
}

// RunTask invokes the packaging tool for one task (build or manifest).
func RunTask(ctx context.Context, runner command.Runner, task []string, targetProject string, baseDir string, env map[string]string, populateS3Cache bool, logLevel string) error {
	name := "omnibus"
	if runtime.GOOS == "windows" {
		name = "omnibus.bat"
	}

	args := append([]string{"exec", name}, task...)
	args = append(args, targetProject, "--log-level="+logLevel)
	if populateS3Cache {
		args = append(args, "--populate-s3-cache")
	}
	if baseDir != "" {
		args = append(args, "--override=base_dir:"+baseDir)
	}

	cmdEnv := env
	if runtime.GOOS == "darwin" {
		// The venv launcher variable leaks into child interpreters and
		// breaks the packager's embedded Python; clear it for the child.
		cmdEnv = make(map[string]string, len(env)+1)
		for k, v := range env {
			cmdEnv[k] = v
		}
		cmdEnv["__PYVENV_LAUNCHER__"] = ""
	}

	if err := runner.Run(ctx, command.Command{Name: "bundle", Args: args, Dir: omnibusDir, Env: cmdEnv}); err != nil {
		return errors.Externalf(err, "omnibus %s failed", strings.Join(task, " "))
	}
	return nil
}

// TargetProject maps build selections to the packaging project name.
func TargetProject(iot, agentBinaries bool) string {
	switch {
	case iot:
		return "iot-agent"
	case agentBinaries:
		return "agent-binaries"
	default:
		return "agent"
	}
}

// BuildOptions parameterize a full packaging run.
type BuildOptions struct {
	Env            EnvOptions
	IOT            bool
	AgentBinaries  bool
	LogLevel       string
	BaseDir        string
	GemPath        string
	SkipDeps       bool
	OmnibusS3Cache bool
}

// Build performs a full packaging run: dependency install, packaging-tool
// dependency install, then the actual build, with each phase timed,
// reported, and observed through the Recorder.
func Build(ctx context.Context, runner command.Runner, rec metrics.Recorder, opts BuildOptions) error {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	start := time.Now()

	var depsElapsed time.Duration
	if !opts.SkipDeps {
		depsStart := time.Now()
		if err := runner.Run(ctx, command.Command{Name: "go", Args: []string{"mod", "download"}}); err != nil {
			rec.IncPhaseResult("deps", metrics.ResultFailed)
			return errors.Externalf(err, "dependency install failed")
		}
		depsElapsed = time.Since(depsStart)
		rec.ObservePhaseDuration("deps", depsElapsed)
		rec.IncPhaseResult("deps", metrics.ResultSuccess)
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = os.Getenv("OMNIBUS_BASE_DIR")
	}
	if baseDir != "" && runtime.GOOS == "windows" {
		// Backslashes in base_dir break the packager's glob copy step.
		baseDir = strings.ReplaceAll(baseDir, "\\", "/")
	}

	env, err := BuildEnv(ctx, runner, opts.Env)
	if err != nil {
		return err
	}

	bundleStart := time.Now()
	if err := BundleInstall(ctx, runner, opts.GemPath, env); err != nil {
		rec.IncPhaseResult("bundle", metrics.ResultFailed)
		return err
	}
	bundleElapsed := time.Since(bundleStart)
	rec.ObservePhaseDuration("bundle", bundleElapsed)
	rec.IncPhaseResult("bundle", metrics.ResultSuccess)

	omnibusStart := time.Now()
	project := TargetProject(opts.IOT, opts.AgentBinaries)
	if err := RunTask(ctx, runner, []string{"build"}, project, baseDir, env, opts.OmnibusS3Cache, opts.LogLevel); err != nil {
		rec.IncPhaseResult("omnibus", metrics.ResultFailed)
		return err
	}
	omnibusElapsed := time.Since(omnibusStart)
	rec.ObservePhaseDuration("omnibus", omnibusElapsed)
	rec.IncPhaseResult("omnibus", metrics.ResultSuccess)
	rec.ObservePackageDuration(time.Since(start))

	fmt.Println("Build component timing:")
	if !opts.SkipDeps {
		fmt.Printf("Deps:    %s\n", depsElapsed)
	}
	fmt.Printf("Bundle:  %s\n", bundleElapsed)
	fmt.Printf("Omnibus: %s\n", omnibusElapsed)
	slog.Info("Packaging finished", "project", project, "elapsed", time.Since(start))
	return nil
}

// ManifestOptions parameterize a manifest-only run, which lists package
// contents without building.
type ManifestOptions struct {
	Env           EnvOptions
	IOT           bool
	AgentBinaries bool
	LogLevel      string
	BaseDir       string
	GemPath       string
	Platform      string
	Arch          string
}

// Manifest runs the packaging tool in manifest-only mode.
func Manifest(ctx context.Context, runner command.Runner, opts ManifestOptions) error {
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = os.Getenv("OMNIBUS_BASE_DIR")
	}

	env, err := BuildEnv(ctx, runner, opts.Env)
	if err != nil {
		return err
	}
	if err := BundleInstall(ctx, runner, opts.GemPath, env); err != nil {
		return err
	}

	task := []string{"manifest"}
	if opts.Platform != "" {
		task = append(task, "--platform-family="+opts.Platform, "--platform="+opts.Platform)
	}
	if opts.Arch != "" {
		task = append(task, "--architecture="+opts.Arch)
	}

	project := TargetProject(opts.IOT, opts.AgentBinaries)
	return RunTask(ctx, runner, task, project, baseDir, env, false, opts.LogLevel)
}
