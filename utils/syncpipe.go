// Package utils provides low-level helpers shared by the namespace orchestrator.
package utils

import (
	"os"
	"strconv"

	nserrors "nsctl-go/errors"
)

// SyncByte is the single-byte sentinel value written across every handshake
// pipe. Two names for the same constant existed upstream (ACLCHAR/ACKCHAR);
// this is the one the orchestrator uses everywhere.
const SyncByte byte = 0x06

// The orchestrator's P1/P2/P3/P4 pipes each cross a re-exec boundary: every
// side only ever holds one inherited file descriptor, reconstructed via
// os.NewFile, never both ends of a pipe pair in the same process. These
// free functions operate directly on that one *os.File end.

// WaitSentinel blocks until the sentinel byte arrives on f.
func WaitSentinel(f *os.File) error {
	buf := make([]byte, 1)
	n, err := f.Read(buf)
	if err != nil {
		return nserrors.WrapWithDetail(err, nserrors.ErrIo, "handshake", nserrors.ErrHandshakeClosed.Detail)
	}
	if n != 1 || buf[0] != SyncByte {
		return nserrors.ErrHandshakeBadSentinel
	}
	return nil
}

// SignalSentinel writes the sentinel byte to f.
func SignalSentinel(f *os.File) error {
	_, err := f.Write([]byte{SyncByte})
	return err
}

// WritePIDTo writes a decimal PID followed by the sentinel to f.
func WritePIDTo(f *os.File, pid int) error {
	if _, err := f.Write([]byte(strconv.Itoa(pid))); err != nil {
		return err
	}
	return SignalSentinel(f)
}

// ReadPIDFrom reads a decimal PID written by WritePIDTo from f.
func ReadPIDFrom(f *os.File) (int, error) {
	buf := make([]byte, 32)
	n, err := f.Read(buf)
	if err != nil {
		return 0, nserrors.WrapWithDetail(err, nserrors.ErrIo, "handshake", nserrors.ErrHandshakeClosed.Detail)
	}
	if n == 0 || buf[n-1] != SyncByte {
		return 0, nserrors.ErrHandshakeBadSentinel
	}
	pid, err := strconv.Atoi(string(buf[:n-1]))
	if err != nil {
		return 0, nserrors.WrapWithDetail(err, nserrors.ErrIo, "handshake", "malformed pid handshake")
	}
	return pid, nil
}
