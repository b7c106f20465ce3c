package version

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewl/agentci/internal/command"
)

func describeRunner(output string) *command.FakeRunner {
	f := command.NewFakeRunner()
	f.Outputs["git describe"] = output
	return f
}

func TestResolveOnTag(t *testing.T) {
	f := describeRunner("7.26.0\n")

	v, err := Resolve(context.Background(), f, Options{IncludeGit: true})
	require.NoError(t, err)
	assert.Equal(t, "7.26.0", v)
}

func TestResolveAheadOfTag(t *testing.T) {
	f := describeRunner("7.26.0-rc.2-5-g1a2b3c4\n")

	v, err := Resolve(context.Background(), f, Options{IncludeGit: true})
	require.NoError(t, err)
	assert.Equal(t, "7.26.0-rc.2+git.5.1a2b3c4", v)
}

func TestResolveURLSafeSeparator(t *testing.T) {
	f := describeRunner("7.26.0-3-gabcdef0\n")

	v, err := Resolve(context.Background(), f, Options{IncludeGit: true, URLSafe: true})
	require.NoError(t, err)
	assert.Equal(t, "7.26.0-git.3.abcdef0", v)
}

func TestResolveWithoutGitMetadata(t *testing.T) {
	f := describeRunner("7.26.0-3-gabcdef0\n")

	v, err := Resolve(context.Background(), f, Options{})
	require.NoError(t, err)
	assert.Equal(t, "7.26.0", v)
}

func TestResolveMajorVersionOverride(t *testing.T) {
	f := describeRunner("7.26.0-3-gabcdef0\n")

	v, err := Resolve(context.Background(), f, Options{IncludeGit: true, MajorVersion: "6"})
	require.NoError(t, err)
	assert.Equal(t, "6.26.0+git.3.abcdef0", v)
}

func TestResolveStripsLeadingV(t *testing.T) {
	f := describeRunner("v7.26.0\n")

	v, err := Resolve(context.Background(), f, Options{})
	require.NoError(t, err)
	assert.Equal(t, "7.26.0", v)
}

func TestResolvePipelineID(t *testing.T) {
	t.Setenv("CI_PIPELINE_ID", "123456")
	f := describeRunner("7.26.0-3-gabcdef0\n")

	v, err := Resolve(context.Background(), f, Options{IncludeGit: true, IncludePipeline: true})
	require.NoError(t, err)
	assert.Equal(t, "7.26.0+git.3.abcdef0.pipeline.123456", v)
}

func TestResolvePassesSHALength(t *testing.T) {
	f := describeRunner("7.26.0\n")

	_, err := Resolve(context.Background(), f, Options{GitSHALength: 12})
	require.NoError(t, err)
	require.Len(t, f.Commands, 1)
	assert.Contains(t, f.Commands[0].Args, "--abbrev=12")
}

func TestResolveNumeric(t *testing.T) {
	f := describeRunner("7.26.0-rc.2-5-g1a2b3c4\n")

	v, err := ResolveNumeric(context.Background(), f, "")
	require.NoError(t, err)
	assert.Equal(t, "7.26.0", v)
}

func TestOmnibusFormat(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"7.26.0", "7.26.0"},
		{"7.26.0-rc.2", "7.26.0~rc.2"},
		{"7.26.0-rc.2-git.5.1a2b3c4", "7.26.0~rc.2~git.5.1a2b3c4"},
		{"7.26.0+git.5.1a2b3c4", "7.26.0+git.5.1a2b3c4"},
		{"7.26.0 beta (unstable)", "7.26.0_beta_unstable_"},
		{"1:7.26.0~rc.2", "1:7.26.0~rc.2"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OmnibusFormat(tc.in), "input %q", tc.in)
	}
}
