package commands

import (
	"context"

	"github.com/andrewl/agentci/internal/docker"
)

// ImageBuildCmd implements the 'image-build' command.
type ImageBuildCmd struct {
	Arch          string `default:"amd64" help:"Package architecture to stage"`
	BaseDir       string `name:"base-dir" default:"omnibus" help:"Omnibus base directory holding built packages"`
	PythonVersion string `name:"python-version" default:"2" help:"Python version to build for (2, 3, both, 2+3)"`
	SkipTests     bool   `name:"skip-tests" help:"Skip building the testing target"`
}

func (c *ImageBuildCmd) Run(g *Global) error {
	return docker.Build(context.Background(), g.Runner, docker.BuildOptions{
		Arch:          c.Arch,
		BaseDir:       c.BaseDir,
		PythonVersion: c.PythonVersion,
		SkipTests:     c.SkipTests,
	})
}
