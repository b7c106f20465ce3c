package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andrewl/agentci/internal/build"
	"github.com/andrewl/agentci/internal/command"
)

// Integration test suites run one at a time; each failure aborts.
var integrationTestPrefixes = []string{
	"./test/integration/config_providers/...",
	"./test/integration/corechecks/...",
	"./test/integration/listeners/...",
	"./test/integration/util/kubelet/...",
}

// IntegrationTestsCmd implements the 'integration-tests' command.
type IntegrationTestsCmd struct {
	InstallDeps  bool   `name:"install-deps" help:"Download module dependencies first"`
	Race         bool   `help:"Run with the race detector"`
	RemoteDocker bool   `name:"remote-docker" help:"Execute test binaries inside a remote docker daemon"`
	GoMod        string `name:"go-mod" default:"mod" help:"-mod flag value for go test"`
	Arch         string `default:"x64" help:"Target architecture"`
}

func (c *IntegrationTestsCmd) Run(g *Global) error {
	ctx := context.Background()
	if c.InstallDeps {
		if err := g.Runner.Run(ctx, command.Command{Name: "go", Args: []string{"mod", "download"}}); err != nil {
			return err
		}
	}

	tags := build.DefaultBuildTags(build.FlavorTest, c.Arch)
	baseArgs := []string{"test", "-mod=" + c.GoMod}
	if c.Race {
		baseArgs = append(baseArgs, "-race")
	}
	baseArgs = append(baseArgs, "-tags", strings.Join(tags, " "))
	if c.RemoteDocker {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		baseArgs = append(baseArgs, "-exec", fmt.Sprintf("%s/test/integration/dockerize_tests.sh", wd))
	}

	for _, prefix := range integrationTestPrefixes {
		args := append(append([]string{}, baseArgs...), prefix)
		if err := g.Runner.Run(ctx, command.Command{Name: "go", Args: args}); err != nil {
			return err
		}
	}
	return nil
}
