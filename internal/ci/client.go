// Package ci queries the CI platform for pipeline job results and
// aggregates failures for notification routing.
package ci

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/andrewl/agentci/internal/errors"
)

// DefaultAPIURL is the hosted CI platform API endpoint.
const DefaultAPIURL = "https://gitlab.com/api/v4"

// Client is a thin read-only CI API client.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
}

// NewClient creates a CI client. An empty apiURL falls back to the hosted
// endpoint; the token comes from GITLAB_TOKEN when not given.
func NewClient(apiURL, token string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if token == "" {
		token = os.Getenv("GITLAB_TOKEN")
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     apiURL,
		token:      token,
	}
}

// newRequest builds a request against the API with auth headers set.
// Endpoint is a relative path, optionally carrying a query string.
func (c *Client) newRequest(ctx context.Context, method, endpoint string) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(endpoint, "/")

	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse API URL %s: %w", c.apiURL, err)
	}
	joined := path.Join(strings.TrimSuffix(u.Path, "/"), cleanEndpoint)
	// Project paths arrive pre-escaped (%2F); keep them that way on the wire.
	if unescaped, err := url.PathUnescape(joined); err == nil && unescaped != joined {
		u.Path = unescaped
		u.RawPath = joined
	} else {
		u.Path = joined
	}
	if rawQuery != "" {
		u.RawQuery = rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}
	req.Header.Set("User-Agent", "agentci/1.0")
	return req, nil
}

// doRequest executes a request and decodes the JSON response into result.
func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryNetwork, errors.SeverityFatal,
			fmt.Sprintf("CI API request to %s failed", req.URL))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := fmt.Sprintf("CI API error: %s", resp.Status)
		// The body usually carries the actual reason (scope, rate limit),
		// so surface it in the message rather than burying it.
		if excerpt := strings.TrimSpace(strings.ReplaceAll(string(limitedBody), "\n", " ")); excerpt != "" {
			msg = fmt.Sprintf("%s: %s", msg, excerpt)
		}
		return errors.New(errors.CategoryNetwork, errors.SeverityFatal, msg).
			WithContext("url", req.URL.String())
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.Wrap(err, errors.CategoryParse, errors.SeverityFatal,
				"failed to decode CI API response")
		}
	}
	return nil
}

// AllJobs returns every job of a pipeline, including earlier retries.
func (c *Client) AllJobs(ctx context.Context, project string, pipelineID string) ([]Job, error) {
	var all []Job
	page := 1
	perPage := 100

	for {
		endpoint := fmt.Sprintf("/projects/%s/pipelines/%s/jobs?include_retried=true&per_page=%d&page=%d",
			url.PathEscape(project), url.PathEscape(pipelineID), perPage, page)
		req, err := c.newRequest(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, err
		}

		var jobs []Job
		if err := c.doRequest(req, &jobs); err != nil {
			return nil, err
		}
		all = append(all, jobs...)

		if len(jobs) < perPage {
			break
		}
		page++
	}
	return all, nil
}

// Artifact fetches a job's artifact file content as raw text.
func (c *Client) Artifact(ctx context.Context, project string, jobID int64, artifactPath string) (string, error) {
	endpoint := fmt.Sprintf("/projects/%s/jobs/%d/artifacts/%s",
		url.PathEscape(project), jobID, artifactPath)
	req, err := c.newRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryNetwork, errors.SeverityFatal,
			fmt.Sprintf("artifact request for job %d failed", jobID))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", errors.New(errors.CategoryNetwork, errors.SeverityFatal,
			fmt.Sprintf("artifact request for job %d returned %s", jobID, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
