// Package nsprobe determines, once per process, which namespace kinds the
// running kernel actually supports, by attempting unshare for each kind in
// a disposable grandchild process and reporting the results back to the
// caller over a pipe.
package nsprobe

import (
	"io"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	nserrors "nsctl-go/errors"
	"nsctl-go/logging"
	"nsctl-go/nsregistry"
	"nsctl-go/reexec"
)

const (
	bottomEntrypoint     = "__nsctl-probe-bottom"
	grandchildEntrypoint = "__nsctl-probe-grandchild"
)

func init() {
	reexec.Register(bottomEntrypoint, runBottom)
	reexec.Register(grandchildEntrypoint, runGrandchild)
}

var (
	once    sync.Once
	probeErr error
)

// Probe runs the capability probe exactly once per process and records
// every kind's availability in nsregistry. Subsequent calls are no-ops.
func Probe() error {
	once.Do(func() {
		probeErr = runProbe()
	})
	return probeErr
}

func runProbe() error {
	r, w, err := os.Pipe()
	if err != nil {
		return nserrors.IoError("probe", err)
	}

	cmd, err := reexec.Command(bottomEntrypoint)
	if err != nil {
		w.Close()
		r.Close()
		return nserrors.Wrap(err, nserrors.ErrIo, "probe")
	}
	cmd.ExtraFiles = []*os.File{w}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nserrors.SyscallFailed("probe", "fork", 0, err)
	}
	w.Close()

	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		cmd.Wait()
		return nserrors.IoError("probe", err)
	}

	// cmd.Wait's error is not fatal to the probe: a crashed grandchild just
	// means fewer (or zero) kinds came back available.
	_ = cmd.Wait()

	available := decodeNames(data)
	set := map[string]bool{}
	for _, n := range available {
		set[n] = true
	}

	for _, kind := range nsregistry.All() {
		if kind == nsregistry.Mount {
			continue
		}
		avail := set[string(kind)]
		nsregistry.SetAvailable(kind, avail)
		logging.WithNamespace(logging.Default(), string(kind)).Debug("probed namespace availability", "available", avail)
	}
	return nil
}

// runBottom is the "child" half: it forks (via re-exec) the disposable
// grandchild that performs the actual unshare trials, and reaps it.
func runBottom() {
	fd := os.NewFile(3, "nsprobe-pipe")
	defer fd.Close()

	cmd, err := reexec.Command(grandchildEntrypoint)
	if err != nil {
		os.Exit(1)
	}
	cmd.ExtraFiles = []*os.File{fd}
	if err := cmd.Start(); err == nil {
		cmd.Wait()
	}
	os.Exit(0)
}

// runGrandchild checks /proc/self/ns/<entry> and tries unshare for every
// probeable kind, and reports the kinds that are available back to the top
// half.
func runGrandchild() {
	fd := os.NewFile(3, "nsprobe-pipe")
	defer fd.Close()

	var available []string
	for _, kind := range nsregistry.All() {
		if kind == nsregistry.Mount {
			continue
		}
		flag, ok := nsregistry.Flag(kind)
		if !ok {
			continue
		}
		entry, _ := nsregistry.ProcEntry(kind)
		if _, err := os.Stat("/proc/self/ns/" + entry); err != nil {
			// No /proc/self/ns entry: the kernel does not expose this kind.
			continue
		}
		err := unix.Unshare(int(flag))
		if err == nil {
			available = append(available, string(kind))
			continue
		}
		if errno, ok := err.(syscall.Errno); ok && errno == syscall.EINVAL {
			// Not compiled into this kernel.
			continue
		}
		// Exists but current credentials reject it: still counts as available.
		available = append(available, string(kind))
	}

	fd.Write(encodeNames(available))
	os.Exit(0)
}

func encodeNames(names []string) []byte {
	var out []byte
	out = append(out, byte(len(names)))
	for _, n := range names {
		out = append(out, byte(len(n)))
		out = append(out, []byte(n)...)
	}
	return out
}

func decodeNames(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	count := int(data[0])
	pos := 1
	names := make([]string, 0, count)
	for i := 0; i < count && pos < len(data); i++ {
		n := int(data[pos])
		pos++
		if pos+n > len(data) {
			break
		}
		names = append(names, string(data[pos:pos+n]))
		pos += n
	}
	return names
}
