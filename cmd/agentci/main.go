package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/andrewl/agentci/cmd/agentci/commands"
	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

var version = "dev"

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("agentci"),
		kong.Description("Build, package and CI tooling for the agent"),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)

	g := &commands.Global{Runner: command.NewRunner()}
	if err := ctx.Run(g); err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(errors.ExitCode(err))
	}
}
