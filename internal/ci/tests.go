package ci

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"strings"
)

// testEvent mirrors the JSON-lines records a test job writes to its
// artifact. Artifact fetch failures surface as {"message": ...} records in
// the same stream, hence the lowercase field.
type testEvent struct {
	Action  string  `json:"Action"`
	Test    *string `json:"Test"`
	Package string  `json:"Package"`
	Message *string `json:"message"`
}

// ParseFailedTests extracts failing tests from a JSON-lines artifact.
// Lines carrying a "message" field are failed requests and are silently
// dropped; lines without a Test field are not test events and are skipped;
// lines that fail to parse are logged as warnings and skipped.
func ParseFailedTests(artifact string) []FailedTest {
	var failed []FailedTest
	scanner := bufio.NewScanner(strings.NewReader(artifact))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var event testEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			slog.Warn("Failed to parse test output line", "line", line, "error", err)
			continue
		}
		if event.Message != nil {
			continue
		}
		if event.Test != nil && event.Action == "fail" {
			failed = append(failed, FailedTest{Name: *event.Test, Package: event.Package})
		}
	}
	return failed
}
