package nsregistry

import "testing"

func TestAllStableOrder(t *testing.T) {
	first := All()
	second := All()
	if len(first) != 7 {
		t.Fatalf("expected 7 kinds, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order not stable at index %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestLookupKnown(t *testing.T) {
	for _, name := range []string{"cgroup", "ipc", "net", "mount", "pid", "user", "uts"} {
		if _, ok := Lookup(name); !ok {
			t.Errorf("expected %q to be a known kind", name)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("bogus"); ok {
		t.Errorf("expected bogus to be unknown")
	}
}

func TestMountAssumedAvailable(t *testing.T) {
	available, known := Available(Mount)
	if !known || !available {
		t.Errorf("expected mount namespace to be assumed available, got available=%v known=%v", available, known)
	}
}

func TestSetAvailableRoundTrip(t *testing.T) {
	SetAvailable(Net, false)
	available, known := Available(Net)
	if !known || available {
		t.Errorf("expected net unavailable after SetAvailable(false), got available=%v known=%v", available, known)
	}
	SetAvailable(Net, true)
	available, known = Available(Net)
	if !known || !available {
		t.Errorf("expected net available after SetAvailable(true), got available=%v known=%v", available, known)
	}
}

func TestFlagAndProcEntry(t *testing.T) {
	flag, ok := Flag(UTS)
	if !ok || flag != CloneNewUTS {
		t.Errorf("expected UTS flag %#x, got %#x (ok=%v)", CloneNewUTS, flag, ok)
	}
	entry, ok := ProcEntry(Mount)
	if !ok || entry != "mnt" {
		t.Errorf("expected mount proc entry %q, got %q (ok=%v)", "mnt", entry, ok)
	}
}
