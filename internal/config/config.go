// Package config loads the file-backed settings the release tasks consume:
// the per-release version pin map and the optional developer .env overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/andrewl/agentci/internal/errors"
)

// DefaultReleaseFile is the repository-conventional location of the
// release version pins.
const DefaultReleaseFile = "release.yaml"

// ReleaseEntry is the flat set of named string-valued options pinned for a
// release train (dependency versions, embedded component refs). The values
// are opaque to the tasks; they are exported verbatim into the packaging
// environment.
type ReleaseEntry map[string]string

// releaseFile mirrors the on-disk document: release name -> pins.
type releaseFile map[string]ReleaseEntry

// LoadReleaseVersions reads the release pin file and returns the entry for
// the requested release. An unknown release is a fatal precondition error.
func LoadReleaseVersions(path, release string) (ReleaseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("cannot read release versions file %s", path))
	}

	var all releaseFile
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("cannot parse release versions file %s", path))
	}

	entry, ok := all[release]
	if !ok {
		return nil, errors.Preconditionf("release %q not found in %s", release, path)
	}

	// Copy so callers can overlay without mutating a shared map.
	out := make(ReleaseEntry, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	return out, nil
}

// LoadEnvOverlay loads the optional developer .env files into the process
// environment. Existing variables are never overwritten. Absence of the
// files is not an error.
func LoadEnvOverlay() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment overlay", "path", path)
	}
}
