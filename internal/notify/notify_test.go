package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewl/agentci/internal/ci"
	"github.com/andrewl/agentci/internal/command"
	agenterrors "github.com/andrewl/agentci/internal/errors"
)

func TestBaseMessage(t *testing.T) {
	t.Setenv("CI_PROJECT_URL", "https://gitlab.example.com/DataDog/datadog-agent")
	t.Setenv("CI_PIPELINE_URL", "https://gitlab.example.com/pipelines/42")
	t.Setenv("CI_PIPELINE_ID", "42")
	t.Setenv("CI_COMMIT_REF_NAME", "main")
	t.Setenv("CI_COMMIT_TITLE", "Fix the thing")
	t.Setenv("CI_COMMIT_SHA", "deadbeefcafe")
	t.Setenv("CI_COMMIT_SHORT_SHA", "deadbeef")

	msg := BaseMessage("Nightly pipeline failure:")

	assert.Contains(t, msg, "Nightly pipeline failure: pipeline <https://gitlab.example.com/pipelines/42|42> for main failed.")
	assert.Contains(t, msg, "Fix the thing (<https://gitlab.example.com/DataDog/datadog-agent/commit/deadbeefcafe|deadbeef>)")
}

func TestGitAuthorNotARepo(t *testing.T) {
	assert.Equal(t, "", GitAuthor(t.TempDir()))
}

func TestFormatJobs(t *testing.T) {
	jobs := []ci.JobSummary{
		{
			Name:         "tests_deb-x64",
			Stage:        "test",
			URL:          "https://ci/jobs/2",
			RetrySummary: []string{"failed", "failed"},
		},
		{
			Name:         "kitchen_deb",
			Stage:        "kitchen",
			URL:          "https://ci/jobs/5",
			RetrySummary: []string{"failed", "success"},
		},
	}

	got := FormatJobs(jobs)
	want := "- <https://ci/jobs/2|tests_deb-x64> (stage: test, attempts: failed -> failed)\n" +
		"- <https://ci/jobs/5|kitchen_deb> (stage: kitchen, attempts: failed -> success)\n"
	assert.Equal(t, want, got)
}

func TestFormatJobsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatJobs(nil))
}

func TestSend(t *testing.T) {
	f := command.NewFakeRunner()
	require.NoError(t, Send(context.Background(), f, "DataDog/agent-platform", "pipeline failed"))

	require.Len(t, f.Commands, 1)
	assert.Equal(t, "postmessage", f.Commands[0].Name)
	assert.Equal(t, []string{"DataDog/agent-platform", "pipeline failed"}, f.Commands[0].Args)
}

func TestSendPropagatesFailure(t *testing.T) {
	f := command.NewFakeRunner()
	f.Failures["postmessage"] = errors.New("exit status 3")

	err := Send(context.Background(), f, "DataDog/agent-platform", "msg")
	require.Error(t, err)
	assert.True(t, agenterrors.IsCategory(err, agenterrors.CategoryExternal))
}
