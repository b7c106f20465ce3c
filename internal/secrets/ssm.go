// Package secrets fetches code-signing material from the parameter store
// via the cloud CLI. Only the Windows signing path uses it.
package secrets

import (
	"context"
	"encoding/base64"
	"os"
	"strings"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

const (
	signingCertParam = "ddagent.windows.signing.pfx"
	pfxPasswordParam = "ddagent.windows.signing.pfx.password"
	ssmRegion        = "us-east-1"
)

// fetchParameter reads one decrypted parameter value through the aws CLI.
func fetchParameter(ctx context.Context, runner command.Runner, name string) (string, error) {
	out, err := runner.Output(ctx, command.Command{
		Name: "aws",
		Args: []string{
			"ssm", "get-parameter",
			"--region", ssmRegion,
			"--name", name,
			"--with-decryption",
			"--query", "Parameter.Value",
			"--output", "text",
		},
	})
	if err != nil {
		return "", errors.Externalf(err, "fetching parameter %s failed", name)
	}
	return strings.TrimSpace(out), nil
}

// SigningCert fetches the base64-encoded signing certificate and writes it
// to a temporary pfx file, returning the file path.
func SigningCert(ctx context.Context, runner command.Runner) (string, error) {
	encoded, err := fetchParameter(ctx, runner, signingCertParam)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryParse, errors.SeverityFatal,
			"signing certificate parameter is not valid base64")
	}

	f, err := os.CreateTemp("", "signing-*.pfx")
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(raw); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// PfxPassword fetches the signing certificate password.
func PfxPassword(ctx context.Context, runner command.Runner) (string, error) {
	return fetchParameter(ctx, runner, pfxPasswordParam)
}
