package ci

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewl/agentci/internal/errors"
)

func TestAllJobsPaginates(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("PRIVATE-TOKEN"))
		require.True(t, strings.HasSuffix(r.URL.Path, "/pipelines/42/jobs"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("include_retried"))

		var jobs []Job
		switch r.URL.Query().Get("page") {
		case "1":
			for i := 0; i < 100; i++ {
				jobs = append(jobs, Job{ID: int64(i), Name: fmt.Sprintf("job-%d", i)})
			}
		case "2":
			jobs = []Job{{ID: 100, Name: "job-100"}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(jobs))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token")
	jobs, err := client.AllJobs(context.Background(), "DataDog/datadog-agent", "42")
	require.NoError(t, err)

	assert.Len(t, jobs, 101)
	assert.Equal(t, []string{"secret-token", "secret-token"}, tokens)
}

func TestAllJobsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"401 Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-token")
	_, err := client.AllJobs(context.Background(), "proj", "42")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Contains(t, err.Error(), "401")
	// The response body carries the actual reason and must survive
	// into the rendered error.
	assert.Contains(t, err.Error(), `{"message":"401 Unauthorized"}`)
}

func TestArtifactReturnsRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/jobs/7/artifacts/test_output.json"), "unexpected path %s", r.URL.Path)
		fmt.Fprint(w, `{"Action":"fail","Test":"TestX","Package":"pkg"}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	body, err := client.Artifact(context.Background(), "proj", 7, "test_output.json")
	require.NoError(t, err)
	assert.Contains(t, body, `"TestX"`)
}

func TestArtifactNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token")
	_, err := client.Artifact(context.Background(), "proj", 7, "test_output.json")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestNewClientDefaults(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "env-token")
	client := NewClient("", "")
	assert.Equal(t, DefaultAPIURL, client.apiURL)
	assert.Equal(t, "env-token", client.token)
}
