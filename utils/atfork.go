package utils

import "sync"

// AtforkHandler is an opaque callback run around one of the orchestrator's
// fork points.
type AtforkHandler func()

// AtforkRegistry holds the three ordered handler sequences (prepare, parent,
// child) the orchestrator runs around each of its forks, plus a one-shot
// guard so the kernel-level install step only happens once per process.
type AtforkRegistry struct {
	mu          sync.Mutex
	installed   bool
	prepare     []AtforkHandler
	afterParent []AtforkHandler
	afterChild  []AtforkHandler
}

// NewAtforkRegistry returns an empty registry.
func NewAtforkRegistry() *AtforkRegistry {
	return &AtforkRegistry{}
}

// Register appends handlers to the prepare/parent/child sequences. Any of
// the three may be nil. Callers are expected not to register the same
// handler twice; identity is not tracked here.
func (r *AtforkRegistry) Register(prepare, afterParent, afterChild AtforkHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prepare != nil {
		r.prepare = append(r.prepare, prepare)
	}
	if afterParent != nil {
		r.afterParent = append(r.afterParent, afterParent)
	}
	if afterChild != nil {
		r.afterChild = append(r.afterChild, afterChild)
	}
}

// MarkInstalled records that the registry has been wired into a fork point.
// It returns false if that had already happened, so callers can install
// idempotently.
func (r *AtforkRegistry) MarkInstalled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installed {
		return false
	}
	r.installed = true
	return true
}

// RunPrepare runs the prepare sequence in registration order, immediately
// before a fork.
func (r *AtforkRegistry) RunPrepare() {
	r.mu.Lock()
	handlers := append([]AtforkHandler(nil), r.prepare...)
	r.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

// RunAfterParent runs the after-parent sequence, in the parent, immediately
// after a fork.
func (r *AtforkRegistry) RunAfterParent() {
	r.mu.Lock()
	handlers := append([]AtforkHandler(nil), r.afterParent...)
	r.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

// RunAfterChild runs the after-child sequence, in the child, immediately
// after a fork.
func (r *AtforkRegistry) RunAfterChild() {
	r.mu.Lock()
	handlers := append([]AtforkHandler(nil), r.afterChild...)
	r.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}
