package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// TextfileRecorder is a PrometheusRecorder backed by a private registry
// whose contents are flushed to a file in the text exposition format when
// the run finishes. Fits the one-shot CLI: a node-exporter textfile
// collector (or anything else scraping the drop directory) picks the
// metrics up afterwards.
type TextfileRecorder struct {
	*PrometheusRecorder

	reg  *prom.Registry
	path string
}

// NewTextfileRecorder creates a recorder whose metrics land in the file at
// path on Flush.
func NewTextfileRecorder(path string) *TextfileRecorder {
	reg := prom.NewRegistry()
	return &TextfileRecorder{
		PrometheusRecorder: NewPrometheusRecorder(reg),
		reg:                reg,
		path:               path,
	}
}

// Flush writes everything recorded so far to the target file. The write
// goes through a temp file in the same directory plus a rename so a
// concurrent reader never sees a partial exposition.
func (t *TextfileRecorder) Flush() error {
	families, err := t.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.path)
}
