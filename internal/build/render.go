package build

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/andrewl/agentci/internal/errors"
)

// templateData is what config templates see: the build type plus the
// environment overlay assembled by the build so far.
type templateData struct {
	BuildType string
	Env       map[string]string
}

// RenderConfig renders a configuration file template, substituting
// environment-derived values. A missing template is a fatal precondition
// error: it means the checkout is incomplete, not that rendering failed.
func RenderConfig(buildType, templateFile, outputFile string, env map[string]string) error {
	if _, err := os.Stat(templateFile); os.IsNotExist(err) {
		return errors.Preconditionf("config template %s not found", templateFile)
	}

	tmpl, err := template.New(filepath.Base(templateFile)).Option("missingkey=zero").ParseFiles(templateFile)
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("cannot parse config template %s", templateFile))
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o750); err != nil {
		return fmt.Errorf("create output directory for %s: %w", outputFile, err)
	}
	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputFile, err)
	}
	defer func() { _ = out.Close() }()

	data := templateData{BuildType: buildType, Env: env}
	if err := tmpl.Execute(out, data); err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("rendering %s failed", templateFile))
	}
	return nil
}
