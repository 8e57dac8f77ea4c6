// Package reexec lets the orchestrator re-launch its own binary under a
// different registered entrypoint, standing in for the fork() the kernel
// handshake wants: Go cannot safely fork a multi-threaded runtime without
// immediately exec'ing, so every "child" and "grandchild" in the handshake
// is actually a fresh exec of this same binary landed in Init() instead of
// main().
package reexec

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

var (
	mu       sync.Mutex
	registry = map[string]func(){}
)

// Register associates name with fn. Init() calls fn if os.Args[0] equals
// name when the process starts.
func Register(name string, fn func()) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = fn
}

// Init runs the registered entrypoint for os.Args[0], if any, and reports
// whether it found and ran one. Callers invoke Init() first thing in main()
// and return immediately if it reports true.
func Init() bool {
	mu.Lock()
	fn, ok := registry[os.Args[0]]
	mu.Unlock()
	if !ok {
		return false
	}
	fn()
	return true
}

// Command builds an *exec.Cmd that re-execs the calling binary with Args[0]
// set to name, so that the child process's Init() dispatches to the
// handler registered under that name. Extra arguments are appended after
// name for the handler to parse from os.Args[1:].
func Command(name string, args ...string) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("reexec: resolve self: %w", err)
	}
	cmd := &exec.Cmd{
		Path: self,
		Args: append([]string{name}, args...),
	}
	return cmd, nil
}
