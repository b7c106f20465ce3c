// Package notify composes pipeline failure summaries from CI-provided
// environment context and dispatches them through the external notifier.
package notify

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/andrewl/agentci/internal/ci"
	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

// notifierBin is the external chat notifier invoked per recipient.
const notifierBin = "postmessage"

// BaseMessage builds the human-readable failure header from the CI
// environment: pipeline link, commit metadata, and the commit author.
func BaseMessage(header string) string {
	commitURL := fmt.Sprintf("%s/commit/%s", os.Getenv("CI_PROJECT_URL"), os.Getenv("CI_COMMIT_SHA"))
	return fmt.Sprintf(`%s pipeline <%s|%s> for %s failed.
%s (<%s|%s>) by %s`,
		header,
		os.Getenv("CI_PIPELINE_URL"),
		os.Getenv("CI_PIPELINE_ID"),
		os.Getenv("CI_COMMIT_REF_NAME"),
		os.Getenv("CI_COMMIT_TITLE"),
		commitURL,
		os.Getenv("CI_COMMIT_SHORT_SHA"),
		GitAuthor("."),
	)
}

// GitAuthor returns the author name of the HEAD commit of the repository
// at path, or an empty string when it cannot be resolved.
func GitAuthor(path string) string {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(commit.Author.Name)
}

// FormatJobs renders one line per failed job: name, link, and the retry
// history so "failed then green on retry" reads differently from "failed
// consistently".
func FormatJobs(jobs []ci.JobSummary) string {
	var b strings.Builder
	for _, job := range jobs {
		fmt.Fprintf(&b, "- <%s|%s> (stage: %s, attempts: %s)\n",
			job.URL, job.Name, job.Stage, strings.Join(job.RetrySummary, " -> "))
	}
	return b.String()
}

// Send dispatches one message to a recipient through the external
// notifier. The notifier's exit status propagates unchanged.
func Send(ctx context.Context, runner command.Runner, recipient, message string) error {
	if err := runner.Run(ctx, command.Command{
		Name: notifierBin,
		Args: []string{recipient, message},
	}); err != nil {
		return errors.Externalf(err, "sending notification to %s failed", recipient)
	}
	return nil
}
