package orchestrator

import (
	"fmt"
	"os"

	"nsctl-go/launcher"
	"nsctl-go/nsconfig"
	"nsctl-go/nskernel"
	"nsctl-go/nsregistry"
	"nsctl-go/utils"
)

// runGrandchild is the entrypoint of the re-exec'd grandchild: the process
// that becomes PID 1 of the new pid namespace (when one was requested) and
// ultimately execs or invokes the payload. Before signaling readiness it
// applies mount propagation and the /proc remount, since both must happen
// from inside the mount namespace before the top half takes its pin binds.
// When the spawn is non-interactive it also detaches from the caller's
// session and controlling terminal before the payload ever runs.
func runGrandchild() {
	forkHooks.RunAfterChild()

	p3w := os.NewFile(3, "p3-write")
	p4r := os.NewFile(4, "p4-read")

	plan, err := decodePlan(os.Getenv(planEnvVar))
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: grandchild: %v\n", err)
		os.Exit(1)
	}

	if plan.Has(nsregistry.Mount) {
		if err := applyPropagationAndProc(plan); err != nil {
			fmt.Fprintf(os.Stderr, "nsctl: %v\n", err)
			os.Exit(1)
		}
	}

	if err := utils.SignalSentinel(p3w); err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: signal bottom: %v\n", err)
		os.Exit(1)
	}
	p3w.Close()

	if err := utils.WaitSentinel(p4r); err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: wait for bottom: %v\n", err)
		os.Exit(1)
	}
	p4r.Close()

	if !plan.Interactive {
		if err := nskernel.Detach(); err != nil {
			fmt.Fprintf(os.Stderr, "nsctl: detach: %v\n", err)
			os.Exit(1)
		}
	}

	code, err := launcher.Dispatch(plan, lookupPayload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func applyPropagationAndProc(plan *nsconfig.SpawnPlan) error {
	switch plan.Propagation {
	case "slave":
		if err := nskernel.Mount("none", "/", "", nskernel.MS_REC|nskernel.MS_SLAVE, ""); err != nil {
			return err
		}
	case "private":
		if err := nskernel.Mount("none", "/", "", nskernel.MS_REC|nskernel.MS_PRIVATE, ""); err != nil {
			return err
		}
	case "shared":
		if err := nskernel.Mount("none", "/", "", nskernel.MS_REC|nskernel.MS_SHARED, ""); err != nil {
			return err
		}
	case "unchanged", "":
		// no-op
	}

	if plan.MountProc {
		mountPoint := plan.MountPoint
		if mountPoint == "" {
			mountPoint = "/proc"
		}
		if err := nskernel.Mount("proc", mountPoint, "proc", nskernel.MS_NOSUID|nskernel.MS_NODEV|nskernel.MS_NOEXEC, ""); err != nil {
			return err
		}
	}
	return nil
}
