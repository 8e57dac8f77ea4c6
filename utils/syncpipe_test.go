package utils

import (
	"os"
	"testing"

	nserrors "nsctl-go/errors"
)

func TestSignalAndWaitSentinel(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	go func() {
		if err := SignalSentinel(w); err != nil {
			t.Errorf("SignalSentinel: %v", err)
		}
	}()

	if err := WaitSentinel(r); err != nil {
		t.Errorf("WaitSentinel: %v", err)
	}
}

func TestWritePIDToAndReadPIDFrom(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	go func() {
		if err := WritePIDTo(w, 4242); err != nil {
			t.Errorf("WritePIDTo: %v", err)
		}
	}()

	pid, err := ReadPIDFrom(r)
	if err != nil {
		t.Fatalf("ReadPIDFrom: %v", err)
	}
	if pid != 4242 {
		t.Errorf("got pid %d, want 4242", pid)
	}
}

func TestWaitSentinelRejectsBadByte(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	go func() {
		w.Write([]byte{0xFF})
		w.Close()
	}()

	err = WaitSentinel(r)
	if err == nil {
		t.Fatal("expected error for unexpected sentinel byte")
	}
	if !nserrors.Is(err, nserrors.ErrHandshakeBadSentinel) {
		t.Errorf("expected ErrHandshakeBadSentinel, got %v", err)
	}
}

func TestWaitSentinelRejectsClosedPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	w.Close()
	defer r.Close()

	err = WaitSentinel(r)
	if err == nil {
		t.Fatal("expected error for closed pipe")
	}
	if !nserrors.Is(err, nserrors.ErrHandshakeClosed) {
		t.Errorf("expected ErrHandshakeClosed, got %v", err)
	}
}
