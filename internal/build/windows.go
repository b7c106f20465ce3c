package build

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

// windresTarget maps the build architecture to the resource compiler target.
func windresTarget(arch string) string {
	if arch == "x86" {
		return "pe-i386"
	}
	return "pe-x86-64"
}

// generateVersionResource runs the two Windows preprocessing steps that
// must precede the main compile: windmc renders the message catalog, then
// windres compiles the version resource with the numeric version and
// Python runtime defines baked in. The resulting rsrc.syso is picked up by
// the linker automatically.
func generateVersionResource(ctx context.Context, runner command.Runner, arch, pythonRuntimes, numericVersion string, env map[string]string) error {
	parts := strings.Split(numericVersion, ".")
	if len(parts) != 3 {
		return errors.Preconditionf("numeric version %q is not MAJOR.MINOR.PATCH", numericVersion)
	}
	maj, min, patch := parts[0], parts[1], parts[2]
	target := windresTarget(arch)

	if err := runner.Run(ctx, command.Command{
		Name: "windmc",
		Args: []string{"--target", target, "-r", "cmd/agent", "cmd/agent/agentmsg.mc"},
		Env:  env,
	}); err != nil {
		return errors.Externalf(err, "windmc failed")
	}

	args := []string{
		"--target", target,
		"--define", WinPyRuntimeVar(pythonRuntimes) + "=1",
		"--define", fmt.Sprintf("MAJ_VER=%s", maj),
		"--define", fmt.Sprintf("MIN_VER=%s", min),
		"--define", fmt.Sprintf("PATCH_VER=%s", patch),
		"--define", fmt.Sprintf("BUILD_ARCH_%s=1", arch),
		"-i", "cmd/agent/agent.rc",
		"-O", "coff",
		"-o", "cmd/agent/rsrc.syso",
	}
	if err := runner.Run(ctx, command.Command{Name: "windres", Args: args, Env: env}); err != nil {
		return errors.Externalf(err, "windres failed")
	}
	return nil
}
