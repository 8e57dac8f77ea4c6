package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	nserrors "nsctl-go/errors"
	"nsctl-go/hooks"
	"nsctl-go/idmap"
	"nsctl-go/logging"
	"nsctl-go/nsconfig"
	"nsctl-go/nskernel"
	"nsctl-go/nspin"
	"nsctl-go/nsregistry"
	"nsctl-go/reexec"
	"nsctl-go/utils"
)

const (
	bottomEntrypoint     = "__nsctl-bottom"
	grandchildEntrypoint = "__nsctl-grandchild"
)

func init() {
	reexec.Register(bottomEntrypoint, runBottom)
	reexec.Register(grandchildEntrypoint, runGrandchild)
}

// forkHooks is the process-global atfork registry described by the
// orchestrator's data model: an append-only, ordered set of callbacks run
// immediately around each of the two forks in the handshake (top->bottom,
// bottom->grandchild). Nothing is registered by default; it exists as the
// extension point a caller embedding this package can hook into, e.g. to
// drop capabilities or close extra descriptors around a fork without
// threading that logic through Spawn itself.
var forkHooks = utils.NewAtforkRegistry()

// RegisterAtfork adds prepare/after-parent/after-child callbacks run around
// every fork this package performs. Any of the three may be nil. The
// registry's one-shot install flag flips on the first call, so only the
// first registration is logged as "installing" the extension point;
// later registrations just extend the already-installed sequences.
func RegisterAtfork(prepare, afterParent, afterChild utils.AtforkHandler) {
	if forkHooks.MarkInstalled() {
		logging.Debug("atfork registry installed")
	}
	forkHooks.Register(prepare, afterParent, afterChild)
}

// Result carries the three process IDs of a completed spawn.
type Result struct {
	TopPID        int
	BottomPID     int
	GrandchildPID int
}

// Spawn runs the full orchestrator handshake for plan: fork the bottom
// half, unshare the requested namespaces, sequence the uid/gid map writes
// and pin binds from the top half, then dispatch the payload in the
// grandchild. It blocks until the handshake completes; in interactive mode
// it also waits for the whole tree to exit. hookSet may be nil.
func Spawn(ctx context.Context, plan *nsconfig.SpawnPlan, hookSet *hooks.Set) (*Result, error) {
	kindNames := make([]string, 0, len(plan.Kinds()))
	for _, k := range plan.Kinds() {
		kindNames = append(kindNames, string(k))
	}

	if hookSet != nil {
		if err := hookSet.Run(hooks.State{Point: hooks.PreSpawn, TopPID: os.Getpid(), Namespaces: kindNames}); err != nil {
			return nil, nserrors.Wrap(err, nserrors.ErrSetting, "spawn")
		}
	}

	encoded, err := encodePlan(plan)
	if err != nil {
		return nil, nserrors.Wrap(err, nserrors.ErrSetting, "spawn")
	}

	// P1: bottom -> top (grandchild pid + sentinel).
	p1r, p1w, err := os.Pipe()
	if err != nil {
		return nil, nserrors.IoError("spawn", err)
	}
	// P2: top -> bottom (sentinel, forwarded to grandchild as P4).
	p2r, p2w, err := os.Pipe()
	if err != nil {
		return nil, nserrors.IoError("spawn", err)
	}

	cmd, err := reexec.Command(bottomEntrypoint)
	if err != nil {
		return nil, nserrors.Wrap(err, nserrors.ErrIo, "spawn")
	}
	cmd.ExtraFiles = []*os.File{p1w, p2r}
	cmd.Env = append(os.Environ(), planEnvVar+"="+encoded)

	var tty *ttySession
	if plan.TTY {
		tty, err = attachTTY(cmd)
		if err != nil {
			p1w.Close()
			p1r.Close()
			p2w.Close()
			p2r.Close()
			return nil, nserrors.IoError("spawn", err)
		}
	} else {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	spawnLog := logging.WithOperation(logging.FromContext(ctx), "spawn")
	spawnLog.InfoContext(ctx, "starting bottom half", "namespaces", plan.Kinds())

	forkHooks.RunPrepare()
	startErr := cmd.Start()
	forkHooks.RunAfterParent()
	if startErr != nil {
		p1w.Close()
		p1r.Close()
		p2w.Close()
		p2r.Close()
		if tty != nil {
			tty.abort()
		}
		return nil, nserrors.SyscallFailed("spawn", "fork", 0, startErr)
	}
	if tty != nil {
		tty.startCopy()
	}

	// The top half only reads P1 and writes P2.
	p1w.Close()
	p2r.Close()
	cleanup := func() {
		p1r.Close()
		p2w.Close()
		cmd.Process.Kill()
		cmd.Wait()
		if tty != nil {
			tty.close()
		}
	}

	gpid, err := utils.ReadPIDFrom(p1r)
	if err != nil {
		cleanup()
		return nil, nserrors.Wrap(err, nserrors.ErrIo, "spawn")
	}
	logging.WithPID(spawnLog, gpid).InfoContext(ctx, "grandchild ready")

	if plan.Has(nsregistry.User) {
		if err := writeIDMaps(plan, gpid); err != nil {
			cleanup()
			return nil, err
		}
	}

	if plan.NsBindDir != "" && plan.Has(nsregistry.Mount) {
		if err := nspin.BindAll(plan, gpid); err != nil {
			cleanup()
			return nil, err
		}
	}

	if err := utils.SignalSentinel(p2w); err != nil {
		cleanup()
		return nil, nserrors.Wrap(err, nserrors.ErrIo, "spawn")
	}
	p2w.Close()
	p1r.Close()

	result := &Result{TopPID: os.Getpid(), BottomPID: cmd.Process.Pid, GrandchildPID: gpid}

	if hookSet != nil {
		if err := hookSet.Run(hooks.State{Point: hooks.PostSpawn, TopPID: result.TopPID, BottomPID: result.BottomPID, GrandchildPID: result.GrandchildPID, Namespaces: kindNames, NsBindDir: plan.NsBindDir}); err != nil {
			return result, nserrors.Wrap(err, nserrors.ErrSetting, "spawn")
		}
	}

	if plan.Interactive {
		waitErr := cmd.Wait()
		if tty != nil {
			tty.close()
		}
		exitCode := 0
		if waitErr != nil {
			exitCode = 1
		}
		if hookSet != nil {
			hookSet.Run(hooks.State{Point: hooks.PostExit, TopPID: result.TopPID, BottomPID: result.BottomPID, GrandchildPID: result.GrandchildPID, Namespaces: kindNames, ExitCode: exitCode})
		}
		if waitErr != nil {
			return result, nserrors.Wrap(waitErr, nserrors.ErrIo, "spawn")
		}
		return result, nil
	}

	go func() {
		cmd.Wait()
		if tty != nil {
			tty.close()
		}
		if hookSet != nil {
			hookSet.Run(hooks.State{Point: hooks.PostExit, TopPID: result.TopPID, BottomPID: result.BottomPID, GrandchildPID: result.GrandchildPID, Namespaces: kindNames})
		}
	}()
	return result, nil
}

func writeIDMaps(plan *nsconfig.SpawnPlan, gpid int) error {
	euid := nskernel.EUID()

	var uidEntries, gidEntries []idmap.Entry
	var err error
	if len(plan.UsersMap) > 0 {
		uidEntries, err = idmap.ParseAll(idmap.UserKind, plan.UsersMap)
	} else if plan.MapRoot {
		uidEntries = []idmap.Entry{idmap.IdentityRootEntry(uint32(euid))}
	}
	if err != nil {
		return err
	}

	if len(plan.GroupsMap) > 0 {
		gidEntries, err = idmap.ParseAll(idmap.GroupKind, plan.GroupsMap)
	} else if plan.MapRoot {
		gidEntries = []idmap.Entry{idmap.IdentityRootEntry(uint32(os.Getegid()))}
	}
	if err != nil {
		return err
	}

	// plan.Setgroups is nil when the caller gave no policy and the resolver
	// did not default it to deny (it does so only when /proc/self/setgroups
	// exists and mapping is active); nil means "leave it alone, don't
	// write" rather than "default to deny".
	if len(gidEntries) > 0 && plan.Setgroups != nil {
		policy := string(*plan.Setgroups)
		setgroupsPath := filepath.Join("/proc", fmt.Sprint(gpid), "setgroups")
		if err := os.WriteFile(setgroupsPath, []byte(policy+"\n"), 0644); err != nil && policy == "deny" {
			// Older kernels may not expose this file at all; only a
			// failure to deny is worth surfacing since deny is required
			// before an unprivileged gid_map write.
			return nserrors.IoError("spawn", err)
		}
	}

	if len(uidEntries) > 0 {
		path := filepath.Join("/proc", fmt.Sprint(gpid), "uid_map")
		if err := os.WriteFile(path, []byte(idmap.FormatMap(uidEntries)), 0644); err != nil {
			return nserrors.IoError("spawn", err)
		}
	}
	if len(gidEntries) > 0 {
		path := filepath.Join("/proc", fmt.Sprint(gpid), "gid_map")
		if err := os.WriteFile(path, []byte(idmap.FormatMap(gidEntries)), 0644); err != nil {
			return nserrors.IoError("spawn", err)
		}
	}
	return nil
}
