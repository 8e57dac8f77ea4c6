package nskernel

import (
	"syscall"
	"testing"

	nserrors "nsctl-go/errors"
)

func TestPivotRootSyscallNo(t *testing.T) {
	no, err := pivotRootSyscallNo()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if no == 0 {
		t.Fatalf("expected nonzero syscall number")
	}
}

func TestClassifyEPERM(t *testing.T) {
	err := classify("unshare", "unshare", syscall.EPERM)
	kind, ok := nserrors.GetKind(err)
	if !ok || kind != nserrors.ErrRequireSuperuser {
		t.Fatalf("expected RequireSuperuser, got %v (ok=%v)", kind, ok)
	}
}

func TestClassifyOtherErrno(t *testing.T) {
	err := classify("mount", "mount", syscall.EINVAL)
	kind, ok := nserrors.GetKind(err)
	if !ok || kind != nserrors.ErrSyscallFailed {
		t.Fatalf("expected SyscallFailed, got %v (ok=%v)", kind, ok)
	}
}

func TestClassifyNoError(t *testing.T) {
	if err := classify("mount", "mount", 0); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestMountFlagConstants(t *testing.T) {
	if MS_REC == 0 || MS_PRIVATE == 0 || MS_SLAVE == 0 || MS_SHARED == 0 {
		t.Fatalf("expected nonzero propagation flag constants")
	}
}
