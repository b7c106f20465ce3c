package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/andrewl/agentci/internal/ci"
	"github.com/andrewl/agentci/internal/notify"
	"github.com/andrewl/agentci/internal/owners"
)

// NotifyCmd aggregates a pipeline's failed jobs, routes them to owning
// teams, and dispatches one chat message per team.
type NotifyCmd struct {
	Project       string `default:"DataDog/datadog-agent" help:"CI project path"`
	PipelineID    string `name:"pipeline-id" required:"" help:"Pipeline to inspect"`
	Header        string `default:"Pipeline failure:" help:"Message header"`
	JobOwnersFile string `name:"job-owners-file" default:".gitlab/JOBOWNERS" help:"Job ownership mapping file"`
	APIURL        string `name:"api-url" help:"CI API base URL (defaults to the hosted endpoint)"`
	DryRun        bool   `name:"dry-run" help:"Print messages instead of sending them"`
}

func (c *NotifyCmd) Run(g *Global) error {
	ctx := context.Background()

	client := ci.NewClient(c.APIURL, "")
	jobs, err := client.AllJobs(ctx, c.Project, c.PipelineID)
	if err != nil {
		return err
	}

	failed := ci.FailedJobs(jobs)
	toNotify, err := owners.FindJobOwners(failed, c.JobOwnersFile)
	if err != nil {
		return err
	}

	base := notify.BaseMessage(c.Header)

	teams := make([]string, 0, len(toNotify))
	for team := range toNotify {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	for _, team := range teams {
		message := base + "\n" + notify.FormatJobs(toNotify[team])
		if c.DryRun {
			fmt.Printf("--- %s ---\n%s\n", team, message)
			continue
		}
		if err := notify.Send(ctx, g.Runner, team, message); err != nil {
			return err
		}
	}
	return nil
}

// FailedTestsCmd lists the failing tests of one job together with their
// resolved code owners.
type FailedTestsCmd struct {
	Project      string `default:"DataDog/datadog-agent" help:"CI project path"`
	JobID        int64  `name:"job-id" required:"" help:"Job whose artifact to inspect"`
	ArtifactPath string `name:"artifact-path" default:"test_output.json" help:"Artifact file holding test output"`
	OwnersFile   string `name:"owners-file" default:".github/CODEOWNERS" help:"Code ownership mapping file"`
	ModulePath   string `name:"module-path" default:"github.com/DataDog/datadog-agent" help:"Module prefix stripped from package paths"`
	APIURL       string `name:"api-url" help:"CI API base URL (defaults to the hosted endpoint)"`
}

func (c *FailedTestsCmd) Run(_ *Global) error {
	ctx := context.Background()

	client := ci.NewClient(c.APIURL, "")
	artifact, err := client.Artifact(ctx, c.Project, c.JobID, c.ArtifactPath)
	if err != nil {
		return err
	}

	failed := ci.ParseFailedTests(artifact)
	resolved, err := owners.ResolveTestOwners(failed, c.OwnersFile, c.ModulePath)
	if err != nil {
		return err
	}

	for _, test := range failed {
		fmt.Printf("%s %s -> %v\n", test.Package, test.Name, resolved[test])
	}
	fmt.Printf("%d failed tests\n", len(failed))
	return nil
}
