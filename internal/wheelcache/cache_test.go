package wheelcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

// integrationsRepo builds a git repository with one directory per
// integration. Returns the repo path and the hash of each commit in order.
func integrationsRepo(t *testing.T, integrations ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}

	for _, name := range integrations {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, "setup.py"), []byte("# "+name+"\n"), 0o600))
		_, err = wt.Add(filepath.Join(name, "setup.py"))
		require.NoError(t, err)
	}
	first, err := wt.Commit("add integrations", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	// Touch only the first integration so its hash diverges.
	require.NoError(t, os.WriteFile(filepath.Join(dir, integrations[0], "setup.py"), []byte("# changed\n"), 0o600))
	_, err = wt.Add(filepath.Join(integrations[0], "setup.py"))
	require.NoError(t, err)
	second, err := wt.Commit("update "+integrations[0], &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	return dir, []string{first.String(), second.String()}
}

func TestResolveHashesPerIntegration(t *testing.T) {
	dir, commits := integrationsRepo(t, "redis", "nginx")

	hashes, err := ResolveHashes(dir, []string{"redis", "nginx"})
	require.NoError(t, err)
	assert.Equal(t, commits[1], hashes["redis"], "touched integration should track the newer commit")
	assert.Equal(t, commits[0], hashes["nginx"], "untouched integration should keep the older commit")
}

func TestResolveHashesMissingIntegration(t *testing.T) {
	dir, _ := integrationsRepo(t, "redis")

	_, err := ResolveHashes(dir, []string{"absent"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryPrecondition))
	assert.Equal(t, 2, errors.ExitCode(err))
	assert.Contains(t, err.Error(), "absent")
}

func TestResolveHashesNotARepo(t *testing.T) {
	_, err := ResolveHashes(t.TempDir(), []string{"redis"})
	require.Error(t, err)
	assert.Equal(t, 2, errors.ExitCode(err))
}

func TestGetFromCacheMatchContract(t *testing.T) {
	// alpha has exactly one cached wheel, beta has none, gamma has two.
	repoDir, _ := integrationsRepo(t, "alpha", "beta", "gamma")
	hashes, err := ResolveHashes(repoDir, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)

	targetDir := t.TempDir()
	writeWheel := func(integration, version string) {
		dir := filepath.Join(targetDir, wheelDirectory(hashes[integration], "3"))
		require.NoError(t, os.MkdirAll(dir, 0o750))
		name := "datadog_" + integration + "-" + version + "-py2.py3-none-any.whl"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("wheel"), 0o600))
	}
	writeWheel("alpha", "1.0.0")
	writeWheel("gamma", "1.0.0")
	writeWheel("gamma", "1.1.0")

	f := command.NewFakeRunner()
	err = GetFromCache(context.Background(), f, GetOptions{
		Python:          "3",
		Bucket:          "wheel-bucket",
		IntegrationsDir: repoDir,
		TargetDir:       targetDir,
		Integrations:    []string{"alpha", "beta", "gamma"},
		AWSCLI:          "aws",
	})

	// gamma's double match is fatal.
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAmbiguous))
	assert.Contains(t, err.Error(), "gamma")

	// alpha was processed before the failure: its wheel moved to the flat
	// target, beta was silently skipped.
	_, statErr := os.Stat(filepath.Join(targetDir, "datadog_alpha-1.0.0-py2.py3-none-any.whl"))
	assert.NoError(t, statErr, "expected alpha's wheel relocated to the target root")

	// One batched sync ran against the bucket.
	require.NotEmpty(t, f.Lines())
	assert.Contains(t, f.Lines()[0], "aws s3 sync s3://wheel-bucket "+targetDir)
}

func TestGetFromCacheAllFound(t *testing.T) {
	repoDir, _ := integrationsRepo(t, "redis", "nginx")
	hashes, err := ResolveHashes(repoDir, []string{"redis", "nginx"})
	require.NoError(t, err)

	targetDir := t.TempDir()
	for _, name := range []string{"redis", "nginx"} {
		dir := filepath.Join(targetDir, wheelDirectory(hashes[name], "3"))
		require.NoError(t, os.MkdirAll(dir, 0o750))
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "datadog_"+name+"-2.0.0-py2.py3-none-any.whl"), []byte("wheel"), 0o600))
	}

	f := command.NewFakeRunner()
	err = GetFromCache(context.Background(), f, GetOptions{
		Python:          "3",
		Bucket:          "wheel-bucket",
		IntegrationsDir: repoDir,
		TargetDir:       targetDir,
		Integrations:    []string{"redis", "nginx"},
		AWSCLI:          "aws",
	})
	require.NoError(t, err)

	for _, name := range []string{"redis", "nginx"} {
		_, statErr := os.Stat(filepath.Join(targetDir, "datadog_"+name+"-2.0.0-py2.py3-none-any.whl"))
		assert.NoError(t, statErr)
	}
}

func TestUploadSingleWheel(t *testing.T) {
	repoDir, _ := integrationsRepo(t, "redis")
	hashes, err := ResolveHashes(repoDir, []string{"redis"})
	require.NoError(t, err)

	buildDir := t.TempDir()
	wheel := filepath.Join(buildDir, "datadog_redis-3.0.0-py2.py3-none-any.whl")
	require.NoError(t, os.WriteFile(wheel, []byte("wheel"), 0o600))

	f := command.NewFakeRunner()
	err = Upload(context.Background(), f, UploadOptions{
		Python:          "3",
		Bucket:          "wheel-bucket",
		IntegrationsDir: repoDir,
		BuildDir:        buildDir,
		Integration:     "redis",
		AWSCLI:          "aws",
	})
	require.NoError(t, err)

	require.Len(t, f.Commands, 1)
	assert.Equal(t,
		"aws s3 cp "+wheel+" s3://wheel-bucket/"+wheelDirectory(hashes["redis"], "3")+"datadog_redis-3.0.0-py2.py3-none-any.whl",
		f.Commands[0].String())
}

func TestUploadNoWheel(t *testing.T) {
	repoDir, _ := integrationsRepo(t, "redis")
	f := command.NewFakeRunner()

	err := Upload(context.Background(), f, UploadOptions{
		Python:          "3",
		Bucket:          "wheel-bucket",
		IntegrationsDir: repoDir,
		BuildDir:        t.TempDir(),
		Integration:     "redis",
		AWSCLI:          "aws",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryPrecondition))
	assert.Empty(t, f.Commands)
}

func TestUploadAmbiguousWheels(t *testing.T) {
	repoDir, _ := integrationsRepo(t, "redis")
	buildDir := t.TempDir()
	for _, v := range []string{"3.0.0", "3.0.1"} {
		require.NoError(t, os.WriteFile(
			filepath.Join(buildDir, "datadog_redis-"+v+"-py2.py3-none-any.whl"), []byte("wheel"), 0o600))
	}

	f := command.NewFakeRunner()
	err := Upload(context.Background(), f, UploadOptions{
		Python:          "3",
		Bucket:          "wheel-bucket",
		IntegrationsDir: repoDir,
		BuildDir:        buildDir,
		Integration:     "redis",
		AWSCLI:          "aws",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAmbiguous))
	assert.Empty(t, f.Commands)
}

func TestMoveFileRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.whl")
	dst := filepath.Join(dir, "dst.whl")
	require.NoError(t, os.WriteFile(src, []byte("wheel"), 0o600))

	require.NoError(t, moveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "wheel", string(data))
}
