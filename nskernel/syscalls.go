// Package nskernel provides typed wrappers over the raw kernel calls the
// namespace orchestrator needs: unshare, setns, mount, umount2,
// pivot_root, sethostname/setdomainname, sched_getcpu and the getres/setres
// credential calls.
package nskernel

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	nserrors "nsctl-go/errors"
)

// Mount propagation / type flags, named the way the kernel names them.
const (
	MS_NOSUID = unix.MS_NOSUID
	MS_NODEV  = unix.MS_NODEV
	MS_NOEXEC = unix.MS_NOEXEC
	MS_BIND   = unix.MS_BIND
	MS_REC    = unix.MS_REC
	MS_PRIVATE = unix.MS_PRIVATE
	MS_SLAVE   = unix.MS_SLAVE
	MS_SHARED  = unix.MS_SHARED

	MNT_FORCE       = unix.MNT_FORCE
	MNT_DETACH      = unix.MNT_DETACH
	MNT_EXPIRE      = unix.MNT_EXPIRE
	UMOUNT_NOFOLLOW = unix.UMOUNT_NOFOLLOW
)

// pivotRootSyscallNo is architecture-dependent; it is taken from the unix
// package's per-architecture syscall table (155 on amd64, 217 on 386).
func pivotRootSyscallNo() (uintptr, error) {
	return unix.SYS_PIVOT_ROOT, nil
}

func classify(op, name string, errno syscall.Errno) error {
	if errno == 0 {
		return nil
	}
	if errno == syscall.EPERM {
		return nserrors.RequireSuperuser(op)
	}
	return nserrors.SyscallFailed(op, name, int(errno), errno)
}

// Unshare disassociates the calling process from shared execution context,
// per the combination of CLONE_NEW* flags passed in.
func Unshare(flags uintptr) error {
	errno := unix.Unshare(int(flags))
	if errno != nil {
		if en, ok := errno.(syscall.Errno); ok {
			return classify("unshare", "unshare", en)
		}
		return nserrors.SyscallFailed("unshare", "unshare", 0, errno)
	}
	return nil
}

// Setns reassociates fd (an open /proc/PID/ns/<entry> file descriptor) with
// the calling thread, for the given CLONE_NEW* flag. It always issues the
// raw setns syscall by number.
func Setns(fd int, flag uintptr) error {
	_, _, errno := syscall.Syscall(unix.SYS_SETNS, uintptr(fd), flag, 0)
	if errno != 0 {
		return classify("setns", "setns", errno)
	}
	return nil
}

// SetnsPath opens path and joins the namespace it names.
func SetnsPath(path string, flag uintptr) error {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_CLOEXEC, 0)
	if err != nil {
		return nserrors.IoError("setns", fmt.Errorf("open %s: %w", path, err))
	}
	defer syscall.Close(fd)
	return Setns(fd, flag)
}

// Mount wraps mount(2).
func Mount(source, target, fstype string, flags uintptr, data string) error {
	if err := unix.Mount(source, target, fstype, flags, data); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return classify("mount", "mount", en)
		}
		return nserrors.SyscallFailed("mount", "mount", 0, err)
	}
	return nil
}

// Unmount2 wraps umount2(2).
func Unmount2(target string, flags int) error {
	if err := unix.Unmount(target, flags); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return classify("umount2", "umount2", en)
		}
		return nserrors.SyscallFailed("umount2", "umount2", 0, err)
	}
	return nil
}

// PivotRoot wraps pivot_root(2), always via the raw syscall number since
// golang.org/x/sys/unix does not provide a portable wrapper.
func PivotRoot(newRoot, putOld string) error {
	sysno, err := pivotRootSyscallNo()
	if err != nil {
		return nserrors.SyscallFailed("pivot_root", "pivot_root", 0, err)
	}
	newRootPtr, err := syscall.BytePtrFromString(newRoot)
	if err != nil {
		return nserrors.IoError("pivot_root", err)
	}
	putOldPtr, err := syscall.BytePtrFromString(putOld)
	if err != nil {
		return nserrors.IoError("pivot_root", err)
	}
	_, _, errno := syscall.Syscall(sysno, uintptr(unsafe.Pointer(newRootPtr)), uintptr(unsafe.Pointer(putOldPtr)), 0)
	if errno != 0 {
		return classify("pivot_root", "pivot_root", errno)
	}
	return nil
}

// Sethostname sets the UTS namespace hostname.
func Sethostname(hostname string) error {
	if hostname == "" {
		return nil
	}
	if err := syscall.Sethostname([]byte(hostname)); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return classify("sethostname", "sethostname", en)
		}
		return nserrors.SyscallFailed("sethostname", "sethostname", 0, err)
	}
	return nil
}

// Setdomainname sets the UTS namespace NIS domain name.
func Setdomainname(domainname string) error {
	if domainname == "" {
		return nil
	}
	if err := syscall.Setdomainname([]byte(domainname)); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return classify("setdomainname", "setdomainname", en)
		}
		return nserrors.SyscallFailed("setdomainname", "setdomainname", 0, err)
	}
	return nil
}

// Detach daemonizes the calling process for a non-interactive spawn: it
// starts a new session via setsid, closes every inherited descriptor above
// stderr, chdirs to /, and reopens stdin/stdout/stderr onto /dev/null, per
// the detached-mode sequence the orchestrator runs on the grandchild path.
func Detach() error {
	if _, err := unix.Setsid(); err != nil {
		if en, ok := err.(syscall.Errno); !ok || en != syscall.EPERM {
			return nserrors.SyscallFailed("detach", "setsid", 0, err)
		}
	}

	closeDescriptorsAbove(2)

	if err := os.Chdir("/"); err != nil {
		return nserrors.IoError("detach", err)
	}

	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nserrors.IoError("detach", err)
	}
	defer null.Close()

	fd := int(null.Fd())
	for _, target := range []int{0, 1, 2} {
		if err := unix.Dup2(fd, target); err != nil {
			return nserrors.SyscallFailed("detach", "dup2", 0, err)
		}
	}
	return nil
}

func closeDescriptorsAbove(max int) {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return
	}
	for _, e := range entries {
		n, convErr := strconv.Atoi(e.Name())
		if convErr != nil || n <= max {
			continue
		}
		unix.Close(n)
	}
}

// SchedGetcpu returns the CPU the calling thread last ran on.
func SchedGetcpu() (int, error) {
	cpu, err := unix.SchedGetcpu()
	if err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return 0, classify("sched_getcpu", "sched_getcpu", en)
		}
		return 0, nserrors.SyscallFailed("sched_getcpu", "sched_getcpu", 0, err)
	}
	return cpu, nil
}

// ResUID holds the real, effective and saved UID of a process.
type ResUID struct{ Real, Effective, Saved uint32 }

// ResGID holds the real, effective and saved GID of a process.
type ResGID struct{ Real, Effective, Saved uint32 }

// GetresUID reads the calling process's real/effective/saved UID set.
func GetresUID() (ResUID, error) {
	var ruid, euid, suid int
	if err := unix.Getresuid(&ruid, &euid, &suid); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return ResUID{}, classify("getresuid", "getresuid", en)
		}
		return ResUID{}, nserrors.SyscallFailed("getresuid", "getresuid", 0, err)
	}
	return ResUID{Real: uint32(ruid), Effective: uint32(euid), Saved: uint32(suid)}, nil
}

// GetresGID reads the calling process's real/effective/saved GID set.
func GetresGID() (ResGID, error) {
	var rgid, egid, sgid int
	if err := unix.Getresgid(&rgid, &egid, &sgid); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return ResGID{}, classify("getresgid", "getresgid", en)
		}
		return ResGID{}, nserrors.SyscallFailed("getresgid", "getresgid", 0, err)
	}
	return ResGID{Real: uint32(rgid), Effective: uint32(egid), Saved: uint32(sgid)}, nil
}

// SetresUID sets the calling process's real/effective/saved UID.
func SetresUID(r ResUID) error {
	if err := unix.Setresuid(int(r.Real), int(r.Effective), int(r.Saved)); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return classify("setresuid", "setresuid", en)
		}
		return nserrors.SyscallFailed("setresuid", "setresuid", 0, err)
	}
	return nil
}

// SetresGID sets the calling process's real/effective/saved GID.
func SetresGID(r ResGID) error {
	if err := unix.Setresgid(int(r.Real), int(r.Effective), int(r.Saved)); err != nil {
		if en, ok := err.(syscall.Errno); ok {
			return classify("setresgid", "setresgid", en)
		}
		return nserrors.SyscallFailed("setresgid", "setresgid", 0, err)
	}
	return nil
}

// EUID returns the caller's effective UID without an error path, used for
// the map_root default and for plan resolution checks.
func EUID() int {
	return os.Geteuid()
}
