// Package nspin bind-mounts a namespace's /proc/PID/ns/<entry> inode onto
// a caller-chosen persistent path, so the namespace outlives the process
// that created it.
package nspin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/mountinfo"

	nserrors "nsctl-go/errors"
	"nsctl-go/nsconfig"
	"nsctl-go/nskernel"
	"nsctl-go/nsregistry"
)

// BindAll pins every namespace kind in plan except mount onto
// plan.NsBindDir/<entry>, bind-mounting each from /proc/<pid>/ns/<entry>.
func BindAll(plan *nsconfig.SpawnPlan, pid int) error {
	if plan.NsBindDir == "" {
		return nil
	}
	if err := checkWritable(plan.NsBindDir); err != nil {
		return err
	}

	for _, kind := range plan.Kinds() {
		if kind == nsregistry.Mount {
			continue
		}
		if err := Bind(plan.NsBindDir, kind, pid); err != nil {
			return err
		}
	}
	return nil
}

// Bind pins a single namespace kind for pid under bindDir.
func Bind(bindDir string, kind nsregistry.Kind, pid int) error {
	entry, ok := nsregistry.ProcEntry(kind)
	if !ok {
		return nserrors.UnknownNamespace("pin", string(kind))
	}

	src := filepath.Join("/proc", fmt.Sprint(pid), "ns", entry)
	dst := filepath.Join(bindDir, entry)

	if err := os.MkdirAll(bindDir, 0755); err != nil {
		return nserrors.IoError("pin", err)
	}
	if err := ensureFile(dst); err != nil {
		return nserrors.IoError("pin", err)
	}

	if err := nskernel.Mount(src, dst, "", nskernel.MS_BIND, ""); err != nil {
		return err
	}
	return nil
}

// Verify confirms dst is actually a mount point, using /proc/self/mountinfo.
func Verify(dst string) (*mountinfo.Info, error) {
	target, err := filepath.Abs(dst)
	if err != nil {
		return nil, nserrors.IoError("pin.Verify", err)
	}
	mounts, err := mountinfo.GetMounts(func(m *mountinfo.Info) (skip, stop bool) {
		return m.Mountpoint != target, false
	})
	if err != nil {
		return nil, nserrors.IoError("pin.Verify", err)
	}
	if len(mounts) == 0 {
		return nil, nserrors.SettingError("pin.Verify", fmt.Sprintf("%s is not a mount point", dst))
	}
	return mounts[len(mounts)-1], nil
}

// Unbind lazily unmounts a previously pinned namespace path.
func Unbind(dst string) error {
	if err := nskernel.Unmount2(dst, nskernel.MNT_DETACH); err != nil {
		return err
	}
	return nil
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nserrors.IoError("pin", err)
	}
	if !info.IsDir() {
		return nserrors.ErrPinDirUnwritable
	}
	if info.Mode().Perm()&0200 == 0 {
		return nserrors.ErrPinDirUnwritable
	}
	return nil
}
