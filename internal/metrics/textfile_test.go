package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextfileRecorderFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentci.prom")
	r := NewTextfileRecorder(path)

	r.ObservePhaseDuration("bundle", 3*time.Second)
	r.IncPhaseResult("bundle", ResultSuccess)
	r.ObservePackageDuration(10 * time.Minute)

	require.NoError(t, r.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `agentci_phase_results_total{phase="bundle",result="success"} 1`)
	assert.Contains(t, text, "agentci_phase_duration_seconds_count")
	assert.Contains(t, text, "agentci_package_duration_seconds_sum")

	// The temp file used for the atomic write must be gone.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "agentci.prom", entries[0].Name())
}

func TestTextfileRecorderFlushTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentci.prom")
	r := NewTextfileRecorder(path)

	r.IncPhaseResult("deps", ResultFailed)
	require.NoError(t, r.Flush())

	r.IncPhaseResult("deps", ResultFailed)
	require.NoError(t, r.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `agentci_phase_results_total{phase="deps",result="failed"} 2`)
}

func TestTextfileRecorderFlushMissingDir(t *testing.T) {
	r := NewTextfileRecorder(filepath.Join(t.TempDir(), "absent", "agentci.prom"))
	require.Error(t, r.Flush())
}
