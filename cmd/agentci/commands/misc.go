package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/andrewl/agentci/internal/build"
	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
	"github.com/andrewl/agentci/internal/version"
)

// DepTreeCmd exports the module dependency tree, optionally for a tagged
// revision.
type DepTreeCmd struct {
	GitRef string `name:"git-ref" help:"Tag or ref to export the tree for (default: current state)"`
}

func (c *DepTreeCmd) Run(g *Global) error {
	ctx := context.Background()

	savedBranch := ""
	if c.GitRef != "" {
		slog.Info("Checking out requested ref", "ref", c.GitRef)
		out, err := g.Runner.Output(ctx, command.Command{
			Name: "git", Args: []string{"rev-parse", "--abbrev-ref", "HEAD"},
		})
		if err != nil {
			return err
		}
		savedBranch = strings.TrimSpace(out)
		if err := g.Runner.Run(ctx, command.Command{Name: "git", Args: []string{"checkout", c.GitRef}}); err != nil {
			return err
		}
	} else {
		slog.Info("No ref specified, using the current state of the repository")
	}

	runErr := g.Runner.Run(ctx, command.Command{
		Name: "go", Args: []string{"run", "tools/dep_tree_resolver/go_deps.go"},
	})
	if savedBranch != "" {
		if err := g.Runner.Run(ctx, command.Command{Name: "git", Args: []string{"checkout", savedBranch}}); err != nil {
			slog.Error("Failed to restore branch", "branch", savedBranch, "error", err)
			if runErr == nil {
				return err
			}
		}
	}
	return runErr
}

// CleanCmd removes temporary objects and binary artifacts.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global) error {
	ctx := context.Background()

	slog.Info("Executing go clean")
	if err := g.Runner.Run(ctx, command.Command{Name: "go", Args: []string{"clean"}}); err != nil {
		return err
	}

	slog.Info("Removing agent binary folder")
	if _, err := os.Stat(build.BinPath); err == nil {
		if err := os.RemoveAll(build.BinPath); err != nil {
			return err
		}
	}

	slog.Info("Cleaning rtloader")
	return build.RtloaderClean(ctx, g.Runner)
}

// VersionCmd prints the resolved agent version.
type VersionCmd struct {
	URLSafe       bool   `name:"url-safe" help:"Use a URL-addressable metadata separator"`
	OmnibusFormat bool   `name:"omnibus-format" help:"Apply the packager's version-name transformations"`
	GitSHALength  int    `name:"git-sha-length" default:"7" help:"Abbreviated SHA length (differs across git versions)"`
	MajorVersion  string `name:"major-version" default:"7" help:"Major version override"`
}

func (c *VersionCmd) Run(g *Global) error {
	v, err := version.Resolve(context.Background(), g.Runner, version.Options{
		IncludeGit:      true,
		URLSafe:         c.URLSafe,
		IncludePipeline: true,
		MajorVersion:    c.MajorVersion,
		GitSHALength:    c.GitSHALength,
	})
	if err != nil {
		return err
	}
	if c.OmnibusFormat {
		v = version.OmnibusFormat(v)
	}
	fmt.Println(v)
	return nil
}

// CheckPythonCmd checks whether a setup.py declares support for a Python
// major version. The file is scanned structurally for the exact trove
// classifier token rather than parsed as Python source.
type CheckPythonCmd struct {
	Filename string `arg:"" help:"setup.py path to inspect"`
	Python   string `arg:"" help:"Python major version (2 or 3)"`
}

func (c *CheckPythonCmd) Run(_ *Global) error {
	if c.Python != "2" && c.Python != "3" {
		return errors.Preconditionf("invalid Python version %q", c.Python).WithExitCode(2)
	}
	data, err := os.ReadFile(c.Filename)
	if err != nil {
		return errors.Preconditionf("cannot read %s: %v", c.Filename, err)
	}
	classifier := "Programming Language :: Python :: " + c.Python
	fmt.Print(strings.Contains(string(data), classifier))
	return nil
}
