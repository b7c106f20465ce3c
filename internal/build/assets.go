package build

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/andrewl/agentci/internal/util/sets"
)

// BinPath is the binary output directory holding the agent and its dist tree.
const BinPath = "bin/agent"

// Per-subsystem default configuration directories staged into the dist
// tree. Immutable: callers pass these (or their own list) into
// RefreshAssets explicitly.
var (
	AgentCorechecks = []string{
		"containerd", "cpu", "cri", "snmp", "docker", "file_handle",
		"go_expvar", "io", "jmx", "kubernetes_apiserver", "load", "memory",
		"ntp", "oom_kill", "systemd", "tcp_queue_length", "uptime",
		"winproc", "jetson",
	}

	IOTAgentCorechecks = []string{
		"cpu", "disk", "io", "load", "memory", "network", "ntp", "uptime",
		"systemd", "jetson",
	}
)

// AssetOptions controls which pieces land in the staged dist tree.
type AssetOptions struct {
	BuildTags       []string
	Corechecks      []string
	Development     bool
	IOT             bool
	WindowsSysprobe bool
}

// RefreshAssets recreates the dist tree under bin/agent: rendered configs,
// per-subsystem default config directories, GUI assets, and the optional
// developer overlay.
func RefreshAssets(opts AssetOptions) error {
	if err := os.MkdirAll(BinPath, 0o750); err != nil {
		return err
	}

	distDir := filepath.Join(BinPath, "dist")
	if err := os.RemoveAll(distDir); err != nil {
		return err
	}
	if err := os.MkdirAll(distDir, 0o750); err != nil {
		return err
	}

	tags := sets.New(opts.BuildTags...)

	if tags.Has("python") {
		if err := CopyDir("cmd/agent/dist/checks", filepath.Join(distDir, "checks")); err != nil {
			return err
		}
		if err := CopyDir("cmd/agent/dist/utils", filepath.Join(distDir, "utils")); err != nil {
			return err
		}
		if err := copyFile("cmd/agent/dist/config.py", filepath.Join(distDir, "config.py")); err != nil {
			return err
		}
	}

	if !opts.IOT {
		// The dd-agent placeholder ships next to the binary, not in dist.
		if err := copyFile("cmd/agent/dist/dd-agent", filepath.Join(BinPath, "dd-agent")); err != nil {
			return err
		}
	}

	// System probe is not supported on Windows unless explicitly requested.
	if runtime.GOOS == "linux" || opts.WindowsSysprobe {
		if err := copyFile("cmd/agent/dist/system-probe.yaml", filepath.Join(distDir, "system-probe.yaml")); err != nil {
			return err
		}
	}
	if err := copyFile("cmd/agent/dist/datadog.yaml", filepath.Join(distDir, "datadog.yaml")); err != nil {
		return err
	}

	checks := opts.Corechecks
	if checks == nil {
		checks = AgentCorechecks
		if opts.IOT {
			checks = IOTAgentCorechecks
		}
	}
	for _, check := range checks {
		src := filepath.Join("cmd/agent/dist/conf.d", check+".d")
		dst := filepath.Join(distDir, "conf.d", check+".d")
		if err := CopyDir(src, dst); err != nil {
			return err
		}
	}

	if tags.Has("apm") {
		if err := copyFile("cmd/agent/dist/conf.d/apm.yaml.default",
			filepath.Join(distDir, "conf.d/apm.yaml.default")); err != nil {
			return err
		}
	}
	if tags.Has("process") {
		if err := copyFile("cmd/agent/dist/conf.d/process_agent.yaml.default",
			filepath.Join(distDir, "conf.d/process_agent.yaml.default")); err != nil {
			return err
		}
	}

	if err := CopyDir("cmd/agent/gui/views", filepath.Join(distDir, "views")); err != nil {
		return err
	}

	if opts.Development {
		if err := CopyDir("dev/dist", distDir); err != nil {
			return err
		}
	}

	slog.Info("Refreshed agent assets", "dist", distDir, "checks", len(checks))
	return nil
}

// CopyDir recursively copies a directory tree.
func CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
