// Package hooks runs external commands at fixed points around a namespace
// spawn, each fed a JSON snapshot of the spawn on stdin.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Point identifies when a hook runs relative to namespace creation.
type Point string

const (
	// PreSpawn hooks run in the top half before the bottom half unshares.
	PreSpawn Point = "preSpawn"

	// PostUnshare names the point after the bottom half unshares. The
	// orchestrator does not run hooks at this point; hooks registered here
	// run only when a caller passes this point to Set.Run itself.
	PostUnshare Point = "postUnshare"

	// PostSpawn hooks run in the top half once the grandchild's id maps and
	// pin binds are in place and the go-ahead sentinel has been sent, so
	// the payload may already be running.
	PostSpawn Point = "postSpawn"

	// PostExit hooks run in the top half after the bottom half has been
	// reaped. Pinned namespaces are not torn down.
	PostExit Point = "postExit"
)

// Hook is a single external command bound to a Point.
type Hook struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// State is the snapshot handed to a hook's stdin as JSON.
type State struct {
	Point         Point          `json:"point"`
	TopPID        int            `json:"top_pid"`
	BottomPID     int            `json:"bottom_pid"`
	GrandchildPID int            `json:"grandchild_pid"`
	Namespaces    []string       `json:"namespaces"`
	NsBindDir     string         `json:"ns_bind_dir,omitempty"`
	ExitCode      int            `json:"exit_code,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Set groups the hooks registered for each point.
type Set struct {
	hooks map[Point][]Hook
}

// NewSet returns an empty hook set.
func NewSet() *Set {
	return &Set{hooks: map[Point][]Hook{}}
}

// Add registers hook to run at point, in registration order.
func (s *Set) Add(point Point, hook Hook) {
	s.hooks[point] = append(s.hooks[point], hook)
}

// Run executes every hook registered for state.Point in order, stopping at
// the first failure.
func (s *Set) Run(state State) error {
	for _, hook := range s.hooks[state.Point] {
		if err := runHook(hook, state); err != nil {
			return fmt.Errorf("%s hook %s: %w", state.Point, hook.Path, err)
		}
	}
	return nil
}

func runHook(hook Hook, state State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal hook state: %w", err)
	}

	var cmd *exec.Cmd
	if hook.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), hook.Timeout)
		defer cancel()
		cmd = exec.CommandContext(ctx, hook.Path, hook.Args...)
	} else {
		cmd = exec.Command(hook.Path, hook.Args...)
	}
	cmd.Stdin = bytes.NewReader(stateJSON)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), hook.Env...)

	return cmd.Run()
}
