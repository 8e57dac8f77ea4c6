package nsconfig

import "testing"

func TestDefaultSpawnRequest(t *testing.T) {
	req := DefaultSpawnRequest()
	if !req.MapRoot || !req.MountProc {
		t.Errorf("expected map_root and mount_proc on by default, got %+v", req)
	}
	if !req.Interactive || !req.Strict {
		t.Errorf("expected interactive and strict on by default, got %+v", req)
	}
	if req.MountPoint != "/proc" {
		t.Errorf("expected default mount point /proc, got %q", req.MountPoint)
	}
	if req.Namespaces != nil {
		t.Errorf("expected nil namespace selection (meaning all available), got %v", req.Namespaces)
	}
}

func TestPropagationConstants(t *testing.T) {
	vals := map[Propagation]string{
		PropagationSlave:     "slave",
		PropagationPrivate:   "private",
		PropagationShared:    "shared",
		PropagationUnchanged: "unchanged",
	}
	for p, want := range vals {
		if string(p) != want {
			t.Errorf("expected %v to equal %q", p, want)
		}
	}
}

func TestSetgroupsConstants(t *testing.T) {
	if SetgroupsAllow != "allow" || SetgroupsDeny != "deny" {
		t.Errorf("unexpected setgroups constant values: %q %q", SetgroupsAllow, SetgroupsDeny)
	}
}
