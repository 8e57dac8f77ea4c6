package nspin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckWritableMissingDirIsOK(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	if err := checkWritable(dir); err != nil {
		t.Errorf("expected missing dir to be acceptable (created later), got %v", err)
	}
}

func TestCheckWritableReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(dir, 0755)
	if err := checkWritable(dir); err == nil {
		t.Errorf("expected read-only dir to be rejected")
	}
}

func TestEnsureFileCreatesMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pin-entry")
	if err := ensureFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestEnsureFileIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pin-entry")
	if err := ensureFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ensureFile(path); err != nil {
		t.Errorf("expected second call to be a no-op, got %v", err)
	}
}
