// Package version resolves the agent version string from git history and
// applies the naming transforms the packaging pipeline expects.
package version

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

// Options controls how the version string is assembled.
type Options struct {
	// IncludeGit appends commit-distance metadata (+git.N.SHA) when HEAD is
	// ahead of the latest version tag.
	IncludeGit bool
	// URLSafe uses "-" instead of "+" as the metadata separator so the
	// result can appear in URLs and package file names.
	URLSafe bool
	// IncludePipeline appends the CI pipeline id to the git metadata when
	// CI_PIPELINE_ID is set.
	IncludePipeline bool
	// MajorVersion overrides the major component of the tagged version
	// (release trains ship the same tree under different majors).
	MajorVersion string
	// GitSHALength pins the abbreviated SHA length; different git versions
	// default differently across builders.
	GitSHALength int
}

// describeSuffix matches the "-<commits>-g<sha>" trailer git describe adds
// when HEAD is not exactly on a tag.
var describeSuffix = regexp.MustCompile(`-(\d+)-g([0-9a-f]+)$`)

// Resolve computes the version string from `git describe` output.
func Resolve(ctx context.Context, runner command.Runner, opts Options) (string, error) {
	shaLen := opts.GitSHALength
	if shaLen <= 0 {
		shaLen = 7
	}

	out, err := runner.Output(ctx, command.Command{
		Name: "git",
		Args: []string{
			"describe", "--tags", "--candidates=50",
			"--match", "[0-9]*",
			fmt.Sprintf("--abbrev=%d", shaLen),
		},
	})
	if err != nil {
		return "", errors.Externalf(err, "git describe failed")
	}

	tagged := strings.TrimSpace(out)
	commits, sha := "", ""
	if m := describeSuffix.FindStringSubmatch(tagged); m != nil {
		commits, sha = m[1], m[2]
		tagged = strings.TrimSuffix(tagged, m[0])
	}
	tagged = strings.TrimPrefix(tagged, "v")

	if opts.MajorVersion != "" {
		if idx := strings.Index(tagged, "."); idx > 0 {
			tagged = opts.MajorVersion + tagged[idx:]
		}
	}

	version := tagged
	if opts.IncludeGit && commits != "" && commits != "0" {
		sep := "+"
		if opts.URLSafe {
			sep = "-"
		}
		version += fmt.Sprintf("%sgit.%s.%s", sep, commits, sha)
		if opts.IncludePipeline {
			if pipeline := os.Getenv("CI_PIPELINE_ID"); pipeline != "" {
				version += ".pipeline." + pipeline
			}
		}
	}
	return version, nil
}

// numericPrefix extracts the leading MAJOR.MINOR.PATCH triple.
var numericPrefix = regexp.MustCompile(`^(\d+\.\d+\.\d+)`)

// ResolveNumeric returns the bare MAJOR.MINOR.PATCH triple, as consumed by
// the Windows version-resource defines.
func ResolveNumeric(ctx context.Context, runner command.Runner, majorVersion string) (string, error) {
	v, err := Resolve(ctx, runner, Options{MajorVersion: majorVersion})
	if err != nil {
		return "", err
	}
	m := numericPrefix.FindString(v)
	if m == "" {
		return "", errors.Preconditionf("cannot extract numeric version from %q", v)
	}
	return m, nil
}

var omnibusUnsafe = regexp.MustCompile(`[^a-zA-Z0-9.+:~]+`)

// OmnibusFormat applies the same transformations the packager applies to
// version names, so the result matches package file names exactly: dashes
// become tildes, then any run of characters outside [A-Za-z0-9.+:~]
// collapses to a single underscore.
func OmnibusFormat(version string) string {
	version = strings.ReplaceAll(version, "-", "~")
	return omnibusUnsafe.ReplaceAllString(version, "_")
}
