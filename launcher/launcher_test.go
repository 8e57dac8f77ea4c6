package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"nsctl-go/nsconfig"
	"nsctl-go/nsregistry"
)

func TestIsExecutable(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "runme")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !isExecutable(exe) {
		t.Errorf("expected %s to be executable", exe)
	}

	notExe := filepath.Join(dir, "data")
	if err := os.WriteFile(notExe, []byte("data"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if isExecutable(notExe) {
		t.Errorf("expected %s to be non-executable", notExe)
	}

	if isExecutable(filepath.Join(dir, "missing")) {
		t.Errorf("expected missing file to be non-executable")
	}
}

func TestBuildArgvWithoutPidNamespace(t *testing.T) {
	plan := &nsconfig.SpawnPlan{
		Namespaces: map[nsregistry.Kind]bool{nsregistry.Net: true},
		Nscmd:      []string{"echo", "hi"},
	}
	argv, err := buildArgv(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(argv) != 2 || argv[0] != "echo" || argv[1] != "hi" {
		t.Errorf("expected command unwrapped, got %v", argv)
	}
}

func TestBuildArgvWrapsWithExplicitInitProg(t *testing.T) {
	plan := &nsconfig.SpawnPlan{
		Namespaces: map[nsregistry.Kind]bool{nsregistry.PID: true},
		Nscmd:      []string{"sleep", "1"},
		InitProg:   "/sbin/custom-init",
	}
	argv, err := buildArgv(plan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"/sbin/custom-init", "--skip-startup-files", "--skip-runit", "--quiet", "--", "sleep", "1"}
	if len(argv) != len(want) {
		t.Fatalf("got %v want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Errorf("index %d: got %q want %q", i, argv[i], want[i])
		}
	}
}

func TestBuildArgvFallsBackToShellWhenNscmdEmpty(t *testing.T) {
	dir := t.TempDir()
	shell := filepath.Join(dir, "myshell")
	if err := os.WriteFile(shell, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SHELL", shell)

	plan := &nsconfig.SpawnPlan{Namespaces: map[nsregistry.Kind]bool{}}
	argv, err := buildArgv(plan)
	// The caller's actual /etc/passwd login shell takes priority over
	// $SHELL, so this only pins down that *some* resolved shell comes
	// back unwrapped, not which one.
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(argv) != 1 || argv[0] == "" {
		t.Errorf("expected a single resolved shell path, got %v", argv)
	}
}

func TestDispatchNoPayloadConfiguredReturnsErrNoPayloadForLookup(t *testing.T) {
	plan := &nsconfig.SpawnPlan{Namespaces: map[nsregistry.Kind]bool{}, PayloadName: "missing"}
	if _, err := Dispatch(plan, func(string) (PayloadFunc, bool) { return nil, false }); err == nil {
		t.Errorf("expected error when the named payload is not registered")
	}
}

func TestDispatchFunctionMode(t *testing.T) {
	plan := &nsconfig.SpawnPlan{Namespaces: map[nsregistry.Kind]bool{}, PayloadName: "test"}
	lookup := func(name string) (PayloadFunc, bool) {
		if name == "test" {
			return func() int { return 7 }, true
		}
		return nil, false
	}
	code, err := Dispatch(plan, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 7 {
		t.Errorf("expected exit code 7, got %d", code)
	}
}

func TestDispatchFunctionModePanicBecomesExitOne(t *testing.T) {
	plan := &nsconfig.SpawnPlan{Namespaces: map[nsregistry.Kind]bool{}, PayloadName: "test"}
	lookup := func(name string) (PayloadFunc, bool) {
		return func() int { panic("boom") }, true
	}
	code, err := Dispatch(plan, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 1 {
		t.Errorf("expected panic to become exit code 1, got %d", code)
	}
}
