package orchestrator

import (
	"testing"

	"nsctl-go/nsconfig"
	"nsctl-go/nsregistry"
)

func TestEncodeDecodePlanRoundTrip(t *testing.T) {
	deny := nsconfig.SetgroupsDeny
	plan := &nsconfig.SpawnPlan{
		Namespaces:  map[nsregistry.Kind]bool{nsregistry.User: true, nsregistry.Mount: true},
		MapRoot:     true,
		MountProc:   true,
		MountPoint:  "/proc",
		NsBindDir:   "/run/nsctl/foo",
		Nscmd:       []string{"bash", "-lc", "echo hi"},
		Propagation: nsconfig.PropagationPrivate,
		Setgroups:   &deny,
		UsersMap:    []string{"0 1000"},
		TTY:         true,
		Interactive: true,
	}

	encoded, err := encodePlan(plan)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodePlan(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !decoded.Has(nsregistry.User) || !decoded.Has(nsregistry.Mount) {
		t.Errorf("expected namespaces preserved, got %+v", decoded.Namespaces)
	}
	if decoded.MapRoot != plan.MapRoot || decoded.MountProc != plan.MountProc {
		t.Errorf("expected flags preserved, got %+v", decoded)
	}
	if decoded.Propagation != plan.Propagation {
		t.Errorf("expected propagation %v, got %v", plan.Propagation, decoded.Propagation)
	}
	if decoded.Setgroups == nil || *decoded.Setgroups != deny {
		t.Errorf("expected setgroups deny preserved, got %v", decoded.Setgroups)
	}
	if len(decoded.UsersMap) != 1 || decoded.UsersMap[0] != "0 1000" {
		t.Errorf("expected users map preserved, got %v", decoded.UsersMap)
	}
	if !decoded.TTY {
		t.Errorf("expected tty flag preserved")
	}
}
