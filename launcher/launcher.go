// Package launcher runs the payload inside the grandchild process: either
// a caller-registered function, or an exec'd command, optionally wrapped
// by the init shim when a PID namespace is active.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	nserrors "nsctl-go/errors"
	"nsctl-go/nsconfig"
	"nsctl-go/nsregistry"
)

// PayloadFunc is a caller routine run in place of an exec'd command. Its
// return value becomes the grandchild's exit code.
type PayloadFunc func() int

// Lookup resolves a registered payload function by name.
type Lookup func(name string) (PayloadFunc, bool)

// Dispatch runs plan's payload. In function mode it calls the looked-up
// function directly and returns its result; in command mode it replaces
// the current process image via exec, so in command mode Dispatch returns
// only when resolving or exec'ing the command failed, and then with an error.
func Dispatch(plan *nsconfig.SpawnPlan, lookup Lookup) (int, error) {
	if plan.PayloadName != "" {
		fn, ok := lookup(plan.PayloadName)
		if !ok {
			return 0, nserrors.SettingError("launcher.Dispatch", fmt.Sprintf("no payload registered under %q", plan.PayloadName))
		}
		return runFunction(fn), nil
	}

	argv, err := buildArgv(plan)
	if err != nil {
		return 0, err
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return 0, nserrors.WrapWithDetail(err, nserrors.ErrIo, "launcher.Dispatch", fmt.Sprintf("resolve %q", argv[0]))
	}

	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return 0, nserrors.SyscallFailed("launcher.Dispatch", "execve", 0, err)
	}
	return 0, nil // unreachable: Exec only returns on error
}

// RunCommand execs argv directly, replacing the current process image. If
// argv is empty it falls back to the resolved interactive shell. Used by
// callers that join existing namespaces via setns rather than creating new
// ones, where there is no SpawnPlan and no init shim to wrap.
func RunCommand(argv []string) (int, error) {
	cmd := argv
	if len(cmd) == 0 {
		shell, err := resolveShell()
		if err != nil {
			return 0, err
		}
		cmd = []string{shell}
	}

	path, err := exec.LookPath(cmd[0])
	if err != nil {
		return 0, nserrors.WrapWithDetail(err, nserrors.ErrIo, "launcher.RunCommand", fmt.Sprintf("resolve %q", cmd[0]))
	}
	if err := syscall.Exec(path, cmd, os.Environ()); err != nil {
		return 0, nserrors.SyscallFailed("launcher.RunCommand", "execve", 0, err)
	}
	return 0, nil // unreachable: Exec only returns on error
}

func runFunction(fn PayloadFunc) (code int) {
	defer func() {
		if r := recover(); r != nil {
			code = 1
		}
	}()
	return fn()
}

// buildArgv resolves the command to exec, wrapping it with the init shim
// when a pid namespace is active and no explicit init_prog was given.
func buildArgv(plan *nsconfig.SpawnPlan) ([]string, error) {
	cmd := plan.Nscmd
	if len(cmd) == 0 {
		shell, err := resolveShell()
		if err != nil {
			return nil, err
		}
		cmd = []string{shell}
	}

	if !plan.Has(nsregistry.PID) {
		return cmd, nil
	}

	shim := plan.InitProg
	if shim == "" {
		var err error
		shim, err = resolveInitShim()
		if err != nil {
			return nil, err
		}
	}

	argv := append([]string{shim, "--skip-startup-files", "--skip-runit", "--quiet", "--"}, cmd...)
	return argv, nil
}
