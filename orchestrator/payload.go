package orchestrator

import (
	"sync"

	"nsctl-go/launcher"
)

var (
	payloadMu       sync.Mutex
	payloadRegistry = map[string]launcher.PayloadFunc{}
)

// RegisterPayload makes fn runnable as the payload of a SpawnRequest whose
// PayloadName equals name. Register before calling Spawn: the grandchild is
// a re-exec of this binary and only has access to payloads registered
// before main() dispatches into it.
func RegisterPayload(name string, fn launcher.PayloadFunc) {
	payloadMu.Lock()
	defer payloadMu.Unlock()
	payloadRegistry[name] = fn
}

func lookupPayload(name string) (launcher.PayloadFunc, bool) {
	payloadMu.Lock()
	defer payloadMu.Unlock()
	fn, ok := payloadRegistry[name]
	return fn, ok
}
