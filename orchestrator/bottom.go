package orchestrator

import (
	"fmt"
	"os"
	"os/exec"

	"nsctl-go/logging"
	"nsctl-go/nskernel"
	"nsctl-go/reexec"
	"nsctl-go/utils"
)

// runBottom is the entrypoint of the re-exec'd "bottom half": it unshares
// the requested namespaces, forks the grandchild, waits for the grandchild
// to finish its propagation and mount_proc setup, reports the grandchild's
// pid to the top half, then relays the top half's go-ahead sentinel before
// reaping (or detaching from) the grandchild.
func runBottom() {
	forkHooks.RunAfterChild()

	p1w := os.NewFile(3, "p1-write")
	p2r := os.NewFile(4, "p2-read")

	plan, err := decodePlan(os.Getenv(planEnvVar))
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: bottom: %v\n", err)
		os.Exit(1)
	}

	if flags := plan.CloneFlags(); flags != 0 {
		if err := nskernel.Unshare(flags); err != nil {
			fmt.Fprintf(os.Stderr, "nsctl: unshare: %v\n", err)
			os.Exit(1)
		}
	}

	// P3: grandchild -> bottom (grandchild has finished propagation/proc setup).
	p3r, p3w, err := os.Pipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: pipe: %v\n", err)
		os.Exit(1)
	}
	// P4: bottom -> grandchild (forwarded go-ahead from the top half).
	p4r, p4w, err := os.Pipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: pipe: %v\n", err)
		os.Exit(1)
	}

	gcmd, err := reexec.Command(grandchildEntrypoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: %v\n", err)
		os.Exit(1)
	}
	gcmd.ExtraFiles = []*os.File{p3w, p4r}
	gcmd.Stdin = os.Stdin
	gcmd.Stdout = os.Stdout
	gcmd.Stderr = os.Stderr

	forkHooks.RunPrepare()
	startErr := gcmd.Start()
	forkHooks.RunAfterParent()
	if startErr != nil {
		fmt.Fprintf(os.Stderr, "nsctl: fork grandchild: %v\n", startErr)
		os.Exit(1)
	}
	p3w.Close()
	p4r.Close()

	if err := utils.WaitSentinel(p3r); err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: wait for grandchild: %v\n", err)
		os.Exit(1)
	}

	if err := utils.WritePIDTo(p1w, gcmd.Process.Pid); err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: report pid: %v\n", err)
		os.Exit(1)
	}

	if err := utils.WaitSentinel(p2r); err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: wait for top half: %v\n", err)
		os.Exit(1)
	}
	if err := utils.SignalSentinel(p4w); err != nil {
		fmt.Fprintf(os.Stderr, "nsctl: signal grandchild: %v\n", err)
		os.Exit(1)
	}

	logging.WithPID(logging.Default(), gcmd.Process.Pid).Debug("bottom half handshake complete")

	// Detached mode: the bottom half's job is done once the grandchild has
	// the go-ahead, so it exits immediately without waiting. The
	// grandchild itself performs the actual session detach (setsid, fd
	// close, chdir, /dev/null redirection) before running the payload.
	if !plan.Interactive {
		os.Exit(0)
	}

	waitErr := gcmd.Wait()
	if waitErr == nil {
		os.Exit(0)
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		os.Exit(exitErr.ExitCode())
	}
	os.Exit(1)
}
