package commands

import (
	"context"
	"strings"

	"github.com/andrewl/agentci/internal/wheelcache"
)

// GetCacheCmd downloads cached integration wheels for a set of
// integrations and flattens them into the target directory.
type GetCacheCmd struct {
	Python          string `arg:"" help:"Python version to retrieve wheels for"`
	Bucket          string `arg:"" help:"Object-store bucket holding the wheel cache"`
	IntegrationsDir string `arg:"" help:"Directory with the integrations git repository"`
	TargetDir       string `arg:"" help:"Local directory to put wheels into"`
	Integrations    string `arg:"" help:"Comma-separated integration names"`
	AWSCLI          string `name:"awscli" default:"aws" help:"Object-store CLI executable"`
}

func (c *GetCacheCmd) Run(g *Global) error {
	return wheelcache.GetFromCache(context.Background(), g.Runner, wheelcache.GetOptions{
		Python:          c.Python,
		Bucket:          c.Bucket,
		IntegrationsDir: c.IntegrationsDir,
		TargetDir:       c.TargetDir,
		Integrations:    splitIntegrations(c.Integrations),
		AWSCLI:          c.AWSCLI,
	})
}

// UploadCacheCmd uploads one built integration wheel to the cache.
type UploadCacheCmd struct {
	Python          string `arg:"" help:"Python version the wheel was built for"`
	Bucket          string `arg:"" help:"Object-store bucket holding the wheel cache"`
	IntegrationsDir string `arg:"" help:"Directory with the integrations git repository"`
	BuildDir        string `arg:"" help:"Directory containing the built wheel"`
	Integration     string `arg:"" help:"Integration being cached"`
	AWSCLI          string `name:"awscli" default:"aws" help:"Object-store CLI executable"`
}

func (c *UploadCacheCmd) Run(g *Global) error {
	return wheelcache.Upload(context.Background(), g.Runner, wheelcache.UploadOptions{
		Python:          c.Python,
		Bucket:          c.Bucket,
		IntegrationsDir: c.IntegrationsDir,
		BuildDir:        c.BuildDir,
		Integration:     c.Integration,
		AWSCLI:          c.AWSCLI,
	})
}

func splitIntegrations(list string) []string {
	var out []string
	for _, name := range strings.Split(strings.TrimSpace(list), ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
