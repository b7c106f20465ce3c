package build

import (
	"context"
	"fmt"
	"os"

	"github.com/andrewl/agentci/internal/command"
	"github.com/andrewl/agentci/internal/errors"
)

const rtloaderDir = "rtloader"

// RtloaderMake configures and builds the native runtime loader. When an
// install prefix is given the headers and libraries land there so the
// later CGO flags can find them.
func RtloaderMake(ctx context.Context, runner command.Runner, pythonRuntimes, installPrefix string) error {
	cmakeArgs := []string{"-DBUILD_DEMO=OFF"}
	if HasBothPython(pythonRuntimes) {
		cmakeArgs = append(cmakeArgs, "-DDISABLE_PYTHON2=OFF", "-DDISABLE_PYTHON3=OFF")
	} else if pythonRuntimes == "2" {
		cmakeArgs = append(cmakeArgs, "-DDISABLE_PYTHON3=ON")
	} else {
		cmakeArgs = append(cmakeArgs, "-DDISABLE_PYTHON2=ON")
	}
	if installPrefix != "" {
		cmakeArgs = append(cmakeArgs, fmt.Sprintf("-DCMAKE_INSTALL_PREFIX=%s", installPrefix))
	}
	cmakeArgs = append(cmakeArgs, ".")

	if err := runner.Run(ctx, command.Command{Name: "cmake", Args: cmakeArgs, Dir: rtloaderDir}); err != nil {
		return errors.Externalf(err, "rtloader cmake configure failed")
	}
	if err := runner.Run(ctx, command.Command{Name: "make", Dir: rtloaderDir}); err != nil {
		return errors.Externalf(err, "rtloader build failed")
	}
	return nil
}

// RtloaderInstall installs the built runtime loader.
func RtloaderInstall(ctx context.Context, runner command.Runner) error {
	if err := runner.Run(ctx, command.Command{Name: "make", Args: []string{"install"}, Dir: rtloaderDir}); err != nil {
		return errors.Externalf(err, "rtloader install failed")
	}
	return nil
}

// RtloaderClean removes rtloader build artifacts. A missing build tree is a
// no-op, not an error.
func RtloaderClean(ctx context.Context, runner command.Runner) error {
	if _, err := os.Stat(rtloaderDir); os.IsNotExist(err) {
		return nil
	}
	if err := runner.Run(ctx, command.Command{Name: "make", Args: []string{"clean"}, Dir: rtloaderDir}); err != nil {
		return errors.Externalf(err, "rtloader clean failed")
	}
	return nil
}
