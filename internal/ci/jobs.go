package ci

import (
	"sort"
)

// FailedJobs reduces all job attempts of a pipeline to one summary per job
// name whose current status is failed. Attempts within a group are ordered
// by creation time ascending, so the last attempt carries the
// authoritative fields and the retry summary preserves chronology
// (distinguishing "failed then succeeded on retry" from "failed
// consistently").
func FailedJobs(jobs []Job) []JobSummary {
	failedNames := make(map[string]bool)
	for _, job := range jobs {
		if job.Status == StatusFailed {
			failedNames[job.Name] = true
		}
	}

	groups := make(map[string][]Job)
	for _, job := range jobs {
		if failedNames[job.Name] {
			groups[job.Name] = append(groups[job.Name], job)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]JobSummary, 0, len(groups))
	for _, name := range names {
		attempts := groups[name]
		sort.SliceStable(attempts, func(i, j int) bool {
			return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
		})

		retries := make([]string, len(attempts))
		for i, attempt := range attempts {
			retries[i] = attempt.Status
		}

		last := attempts[len(attempts)-1]
		summaries = append(summaries, JobSummary{
			Name:         name,
			ID:           last.ID,
			Stage:        last.Stage,
			Status:       last.Status,
			AllowFailure: last.AllowFailure,
			URL:          last.WebURL,
			RetrySummary: retries,
		})
	}
	return summaries
}
