// Package wheelcache syncs prebuilt integration wheels between the local
// build tree and the object-store cache, keyed by the last source-control
// change of each integration.
package wheelcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

// wheelFilename returns the glob matching an integration's wheel file.
func wheelFilename(integration string) string {
	return fmt.Sprintf("datadog_%s-*.whl", integration)
}

// wheelDirectory returns the cache-relative directory an integration wheel
// lives in: scoped by source hash and python version.
func wheelDirectory(hash, python string) string {
	return fmt.Sprintf("integration-wheels/%s/%s/", hash, python)
}

// ResolveHashes maps each integration to the hash of the last commit that
// touched its directory. An integration without a directory in the
// repository is a fatal precondition error.
func ResolveHashes(integrationsDir string, integrations []string) (map[string]string, error) {
	repo, err := git.PlainOpen(integrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryPrecondition, errors.SeverityFatal,
			fmt.Sprintf("cannot open integrations repository at %s", integrationsDir)).WithExitCode(2)
	}

	hashes := make(map[string]string, len(integrations))
	for _, integration := range integrations {
		if _, err := os.Stat(filepath.Join(integrationsDir, integration)); os.IsNotExist(err) {
			return nil, errors.Preconditionf(
				"integration %s given, but doesn't exist in %s", integration, integrationsDir).WithExitCode(2)
		}

		prefix := integration + "/"
		iter, err := repo.Log(&git.LogOptions{
			PathFilter: func(path string) bool {
				return path == integration || strings.HasPrefix(path, prefix)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("log for %s: %w", integration, err)
		}
		commit, err := iter.Next()
		iter.Close()
		if err != nil {
			return nil, errors.Preconditionf("no commit found touching integration %s", integration)
		}
		hashes[integration] = commit.Hash.String()
	}
	return hashes, nil
}

// GetOptions parameterize a cache download.
type GetOptions struct {
	Python          string
	Bucket          string
	IntegrationsDir string
	TargetDir       string
	Integrations    []string
	AWSCLI          string
}

// GetFromCache downloads the cached wheels for the requested integrations
// and relocates each into the flat target directory. Integrations with no
// cached wheel are skipped and only counted; more than one match per
// integration is a fatal ambiguity.
func GetFromCache(ctx context.Context, runner command.Runner, opts GetOptions) error {
	hashes, err := ResolveHashes(opts.IntegrationsDir, opts.Integrations)
	if err != nil {
		return err
	}

	ordered := sortedKeys(hashes)
	slog.Info("Trying to retrieve integration wheels from cache", "count", len(ordered))

	for _, cmd := range buildSyncCommands(opts.AWSCLI, opts.Bucket, opts.TargetDir, opts.Python, ordered, hashes) {
		if err := runner.Run(ctx, cmd); err != nil {
			return errors.Externalf(err, "cache sync failed")
		}
	}

	found := 0
	for _, integration := range ordered {
		pattern := filepath.Join(opts.TargetDir,
			wheelDirectory(hashes[integration], opts.Python)+wheelFilename(integration))
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return err
		}
		switch {
		case len(matches) == 0:
			continue
		case len(matches) > 1:
			return errors.Ambiguousf("more than 1 wheel for integration %s matched by %s: %v",
				integration, pattern, matches)
		}
		slog.Info("Found cached wheel", "integration", integration)
		if err := moveFile(matches[0], filepath.Join(opts.TargetDir, filepath.Base(matches[0]))); err != nil {
			return fmt.Errorf("move wheel for %s: %w", integration, err)
		}
		found++
	}

	slog.Info("Cache retrieval finished", "found", found, "requested", len(ordered))
	return nil
}

// UploadOptions parameterize a cache upload.
type UploadOptions struct {
	Python          string
	Bucket          string
	IntegrationsDir string
	BuildDir        string
	Integration     string
	AWSCLI          string
}

// Upload caches one built integration wheel. Exactly one wheel must match
// in the build directory: zero and multiple matches are both fatal, with
// distinct messages.
func Upload(ctx context.Context, runner command.Runner, opts UploadOptions) error {
	pattern := filepath.Join(opts.BuildDir, wheelFilename(opts.Integration))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	switch {
	case len(matches) == 0:
		return errors.Preconditionf("no wheel for integration %s found in %s", opts.Integration, opts.BuildDir)
	case len(matches) > 1:
		return errors.Ambiguousf("more than 1 wheel for integration %s matched by %s: %v",
			opts.Integration, pattern, matches)
	}
	wheelPath := matches[0]

	hashes, err := ResolveHashes(opts.IntegrationsDir, []string{opts.Integration})
	if err != nil {
		return err
	}

	targetName := wheelDirectory(hashes[opts.Integration], opts.Python) + filepath.Base(wheelPath)
	slog.Info("Caching wheel", "target", targetName)
	if err := runner.Run(ctx, command.Command{
		Name: opts.AWSCLI,
		Args: []string{"s3", "cp", wheelPath, fmt.Sprintf("s3://%s/%s", opts.Bucket, targetName)},
	}); err != nil {
		return errors.Externalf(err, "cache upload failed")
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// moveFile renames src to dst, falling back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return os.Remove(src)
}
