// Package docker builds the agent container images from the latest
// packaged artifact.
package docker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
	"github.com/andrewl/agentci/internal/util/sets"
)

const (
	// AgentImageTag is the tag applied to locally built images.
	AgentImageTag = "datadog/agent:master"

	buildContext = "Dockerfiles/agent"
)

var bothPythonVersions = sets.New("both", "2+3")

// ValidPythonVersion reports whether the requested python version selection
// is in the allow-list (2, 3, both, 2+3).
func ValidPythonVersion(v string) bool {
	return v == "2" || v == "3" || bothPythonVersions.Has(v)
}

// BuildOptions parameterize an image build.
type BuildOptions struct {
	Arch          string
	BaseDir       string
	PythonVersion string
	SkipTests     bool
}

// Build locates the newest package artifact for the architecture, stages
// it into the image build context, pulls base images with content trust,
// and builds the testing and release targets.
func Build(ctx context.Context, runner command.Runner, opts BuildOptions) error {
	if !ValidPythonVersion(opts.PythonVersion) {
		return errors.Preconditionf("provided python version %q is invalid (want 2, 3, both, or 2+3)", opts.PythonVersion)
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = os.Getenv("OMNIBUS_BASE_DIR")
	}
	pkgDir := filepath.Join(baseDir, "pkg")
	debGlob := fmt.Sprintf("datadog-agent*_%s.deb", opts.Arch)
	dockerfile := filepath.Join(buildContext, opts.Arch, "Dockerfile")

	latest, err := latestArtifact(pkgDir, debGlob)
	if err != nil {
		return err
	}
	slog.Info("Staging package into build context", "package", latest, "context", buildContext)

	staged := filepath.Join(buildContext, filepath.Base(latest))
	if err := copyFile(latest, staged); err != nil {
		return fmt.Errorf("stage %s: %w", latest, err)
	}
	defer func() {
		if err := os.Remove(staged); err != nil {
			slog.Warn("Failed to remove staged package", "path", staged, "error", err)
		}
	}()

	if err := PullBaseImages(ctx, runner, dockerfile); err != nil {
		return err
	}

	commonArgs := []string{"build", "-t", AgentImageTag, "-f", dockerfile}
	if !bothPythonVersions.Has(opts.PythonVersion) {
		commonArgs = append(commonArgs, "--build-arg", "PYTHON_VERSION="+opts.PythonVersion)
	}

	if !opts.SkipTests {
		args := append(append([]string{}, commonArgs...), "--target", "testing", buildContext)
		if err := runner.Run(ctx, command.Command{Name: "docker", Args: args}); err != nil {
			return errors.Externalf(err, "docker build (testing target) failed")
		}
	}

	args := append(append([]string{}, commonArgs...), "--target", "release", buildContext)
	if err := runner.Run(ctx, command.Command{Name: "docker", Args: args}); err != nil {
		return errors.Externalf(err, "docker build (release target) failed")
	}
	return nil
}

// latestArtifact returns the newest-by-modification-time file matching the
// glob. Zero matches is fatal here: the newest artifact is selected
// deterministically, never treated as ambiguous.
func latestArtifact(pkgDir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(pkgDir, pattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", errors.Preconditionf("no package build found in %s (run omnibus-build first)", pkgDir)
	}

	latest := ""
	var latestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().UnixNano() > latestMod {
			latest = m
			latestMod = info.ModTime().UnixNano()
		}
	}
	return latest, nil
}

// PullBaseImages pulls every base image referenced by the Dockerfile with
// content-trust verification enabled.
func PullBaseImages(ctx context.Context, runner command.Runner, dockerfile string) error {
	images, err := baseImages(dockerfile)
	if err != nil {
		return err
	}
	for _, image := range images {
		if err := runner.Run(ctx, command.Command{
			Name: "docker",
			Args: []string{"pull", image},
			Env:  map[string]string{"DOCKER_CONTENT_TRUST": "1"},
		}); err != nil {
			return errors.Externalf(err, "signed pull of %s failed", image)
		}
	}
	return nil
}

// baseImages extracts the FROM images of a Dockerfile, skipping references
// to earlier build stages and scratch.
func baseImages(dockerfile string) ([]string, error) {
	f, err := os.Open(dockerfile)
	if err != nil {
		return nil, errors.Preconditionf("cannot read Dockerfile %s: %v", dockerfile, err)
	}
	defer func() { _ = f.Close() }()

	var images []string
	stages := sets.New("scratch")
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.EqualFold(fields[0], "FROM") {
			continue
		}
		image := fields[1]
		// FROM x AS name introduces a stage other FROMs may reference.
		if len(fields) >= 4 && strings.EqualFold(fields[2], "AS") {
			stages.Add(fields[3])
		}
		if stages.Has(image) {
			continue
		}
		images = append(images, image)
	}
	return images, scanner.Err()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode())
}
