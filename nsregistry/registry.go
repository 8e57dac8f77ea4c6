// Package nsregistry holds the static table of Linux namespace kinds and
// their per-process probed availability.
package nsregistry

import "sync"

// Kind identifies one of the seven Linux namespace kinds.
type Kind string

// The namespace kinds known to the registry.
const (
	Cgroup Kind = "cgroup"
	IPC    Kind = "ipc"
	Net    Kind = "net"
	Mount  Kind = "mount"
	PID    Kind = "pid"
	User   Kind = "user"
	UTS    Kind = "uts"
)

// Linux namespace clone flags. CLONE_NEWCGROUP has no constant in the
// standard syscall package on most architectures, so it is spelled out.
const (
	CloneNewCgroup uintptr = 0x02000000
	CloneNewIPC    uintptr = 0x08000000
	CloneNewNet    uintptr = 0x40000000
	CloneNewNS     uintptr = 0x00020000
	CloneNewPID    uintptr = 0x20000000
	CloneNewUser   uintptr = 0x10000000
	CloneNewUTS    uintptr = 0x04000000
)

type entry struct {
	flag      uintptr
	procEntry string
	// available is nil until the probe has run for this kind.
	available *bool
}

// orderedKinds fixes the enumeration order used by All().
var orderedKinds = []Kind{Cgroup, IPC, Net, Mount, PID, User, UTS}

var (
	mu       sync.RWMutex
	trueVal  = true
	registry = map[Kind]*entry{
		Cgroup: {flag: CloneNewCgroup, procEntry: "cgroup"},
		IPC:    {flag: CloneNewIPC, procEntry: "ipc"},
		Net:    {flag: CloneNewNet, procEntry: "net"},
		Mount:  {flag: CloneNewNS, procEntry: "mnt", available: &trueVal},
		PID:    {flag: CloneNewPID, procEntry: "pid"},
		User:   {flag: CloneNewUser, procEntry: "user"},
		UTS:    {flag: CloneNewUTS, procEntry: "uts"},
	}
)

// All returns every known kind in a stable declaration order.
func All() []Kind {
	out := make([]Kind, len(orderedKinds))
	copy(out, orderedKinds)
	return out
}

// Lookup reports whether name is a known kind and returns its Kind value.
func Lookup(name string) (Kind, bool) {
	k := Kind(name)
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[k]
	return k, ok
}

// Flag returns the CLONE_NEW* flag for kind.
func Flag(kind Kind) (uintptr, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[kind]
	if !ok {
		return 0, false
	}
	return e.flag, true
}

// ProcEntry returns the /proc/PID/ns/<entry> component for kind.
func ProcEntry(kind Kind) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[kind]
	if !ok {
		return "", false
	}
	return e.procEntry, true
}

// Available reports whether kind was probed (or assumed, for mount)
// available. The second return value is false if the kind is unknown or has
// not been probed yet.
func Available(kind Kind) (available bool, known bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[kind]
	if !ok || e.available == nil {
		return false, false
	}
	return *e.available, true
}

// SetAvailable records the probe result for kind. It is a no-op for unknown
// kinds; for known kinds each call overwrites any earlier recorded value.
func SetAvailable(kind Kind, available bool) {
	mu.Lock()
	defer mu.Unlock()
	e, ok := registry[kind]
	if !ok {
		return
	}
	v := available
	e.available = &v
}

// Probed reports whether every namespace kind has a recorded availability.
func Probed() bool {
	mu.RLock()
	defer mu.RUnlock()
	for _, e := range registry {
		if e.available == nil {
			return false
		}
	}
	return true
}
