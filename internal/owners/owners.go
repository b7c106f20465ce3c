// Package owners routes failed jobs and failed tests to their owning
// teams via CODEOWNERS-style pattern files.
package owners

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hmarr/codeowners"

	"github.com/andrewl/agentci/internal/ci"
	"github.com/andrewl/agentci/internal/errors"
)

// Conventional locations of the ownership files.
const (
	DefaultJobOwnersFile  = ".gitlab/JOBOWNERS"
	DefaultCodeOwnersFile = ".github/CODEOWNERS"
)

// Load parses a CODEOWNERS-style ownership file.
func Load(path string) (codeowners.Ruleset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryPrecondition, errors.SeverityFatal,
			fmt.Sprintf("cannot open ownership file %s", path))
	}
	defer func() { _ = f.Close() }()

	ruleset, err := codeowners.ParseFile(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryParse, errors.SeverityFatal,
			fmt.Sprintf("cannot parse ownership file %s", path))
	}
	return ruleset, nil
}

// FindJobOwners maps owning teams to the failed jobs they should hear
// about. Jobs that were retried to success or are allowed to fail are
// excluded. Only TEAM owners are routed; username and email owners are
// dropped (current policy, pending product confirmation) with a debug log
// so the drop is observable.
func FindJobOwners(failedJobs []ci.JobSummary, ownersFile string) (map[string][]ci.JobSummary, error) {
	ruleset, err := Load(ownersFile)
	if err != nil {
		return nil, err
	}

	toNotify := make(map[string][]ci.JobSummary)
	for _, job := range failedJobs {
		if job.Status != ci.StatusFailed || job.AllowFailure {
			continue
		}
		rule, err := ruleset.Match(job.Name)
		if err != nil {
			return nil, fmt.Errorf("match job %s: %w", job.Name, err)
		}
		if rule == nil {
			continue
		}
		for _, owner := range rule.Owners {
			if owner.Type != codeowners.TeamOwner {
				slog.Debug("Dropping non-team owner for failed job",
					"job", job.Name, "owner", owner.String(), "kind", owner.Type)
				continue
			}
			toNotify[owner.Value] = append(toNotify[owner.Value], job)
		}
	}
	return toNotify, nil
}

// ResolveTestOwners maps each failed test to its owners (teams or
// individuals) by matching the test's repository-relative package path
// against the code ownership file.
func ResolveTestOwners(tests []ci.FailedTest, ownersFile string, modulePrefix string) (map[ci.FailedTest][]string, error) {
	ruleset, err := Load(ownersFile)
	if err != nil {
		return nil, err
	}

	resolved := make(map[ci.FailedTest][]string, len(tests))
	for _, test := range tests {
		path := strings.TrimPrefix(strings.TrimPrefix(test.Package, modulePrefix), "/")
		rule, err := ruleset.Match(path)
		if err != nil {
			return nil, fmt.Errorf("match test package %s: %w", test.Package, err)
		}
		var names []string
		if rule != nil {
			for _, owner := range rule.Owners {
				names = append(names, owner.String())
			}
		}
		resolved[test] = names
	}
	return resolved, nil
}
