package ci

import "time"

// Job statuses reported by the CI platform.
const (
	StatusCreated  = "created"
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusFailed   = "failed"
	StatusSuccess  = "success"
	StatusCanceled = "canceled"
	StatusSkipped  = "skipped"
)

// Job is one raw job attempt as returned by the CI API.
type Job struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Stage        string    `json:"stage"`
	Status       string    `json:"status"`
	AllowFailure bool      `json:"allow_failure"`
	WebURL       string    `json:"web_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// JobSummary is one record per job name: the chronologically-last
// attempt's authoritative fields plus the ordered status of every attempt.
type JobSummary struct {
	Name         string   `json:"name"`
	ID           int64    `json:"id"`
	Stage        string   `json:"stage"`
	Status       string   `json:"status"`
	AllowFailure bool     `json:"allow_failure"`
	URL          string   `json:"url"`
	RetrySummary []string `json:"retry_summary"`
}

// FailedTest is a failing test parsed from a job's artifact log.
type FailedTest struct {
	Name    string `json:"name"`
	Package string `json:"package"`
}
