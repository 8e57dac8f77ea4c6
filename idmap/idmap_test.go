package idmap

import "testing"

func TestParseTwoField(t *testing.T) {
	e, err := Parse(UserKind, "0 1000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e != (Entry{Inner: 0, Outer: 1000, Length: 1}) {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestParseThreeField(t *testing.T) {
	e, err := Parse(UserKind, "0 100000 65536")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e != (Entry{Inner: 0, Outer: 100000, Length: 65536}) {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestParseRejectsBadArity(t *testing.T) {
	if _, err := Parse(UserKind, "0"); err == nil {
		t.Errorf("expected error for single-field entry")
	}
	if _, err := Parse(UserKind, "0 1 2 3"); err == nil {
		t.Errorf("expected error for four-field entry")
	}
}

func TestParseAllEnforcesMax(t *testing.T) {
	entries := make([]string, MaxEntries+1)
	for i := range entries {
		entries[i] = "0 0"
	}
	if _, err := ParseAll(UserKind, entries); err == nil {
		t.Errorf("expected error exceeding MaxEntries")
	}
}

func TestFormatMap(t *testing.T) {
	entries := []Entry{{Inner: 0, Outer: 1000, Length: 1}, {Inner: 1, Outer: 100000, Length: 65536}}
	got := FormatMap(entries)
	want := "0 1000 1\n1 100000 65536\n"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestIdentityRootEntry(t *testing.T) {
	e := IdentityRootEntry(1000)
	if e != (Entry{Inner: 0, Outer: 1000, Length: 1}) {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestContainsHelper(t *testing.T) {
	set := []uint32{1000, 1000, 0}
	if !contains(set, 1000) {
		t.Errorf("expected 1000 to be found")
	}
	if contains(set, 42) {
		t.Errorf("expected 42 to be absent")
	}
}
