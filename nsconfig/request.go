// Package nsconfig resolves a caller's SpawnRequest into a kernel-acceptable
// SpawnPlan, rejecting incoherent combinations in strict mode and silently
// downgrading them in permissive mode.
package nsconfig

import "nsctl-go/nsregistry"

// Propagation is one of the mount propagation presets the orchestrator
// understands.
type Propagation string

const (
	PropagationSlave     Propagation = "slave"
	PropagationPrivate   Propagation = "private"
	PropagationShared    Propagation = "shared"
	PropagationUnchanged Propagation = "unchanged"
)

// Setgroups is the policy written to /proc/PID/setgroups.
type Setgroups string

const (
	SetgroupsAllow Setgroups = "allow"
	SetgroupsDeny  Setgroups = "deny"
)

// SpawnRequest is the caller-supplied, unvalidated spawn configuration.
type SpawnRequest struct {
	// Namespaces is the set of kinds to enable; nil means every available kind.
	Namespaces []nsregistry.Kind
	// NegativeNamespaces is subtracted from Namespaces after expansion.
	NegativeNamespaces []nsregistry.Kind

	MapRoot    bool
	MountProc  bool
	MountPoint string
	NsBindDir  string

	Nscmd    []string
	InitProg string

	// PayloadName, when set, names a function registered with the
	// orchestrator's payload registry to run in place of Nscmd.
	PayloadName string

	Propagation *Propagation
	Setgroups   *Setgroups

	UsersMap  []string
	GroupsMap []string

	// TTY allocates a pseudoterminal for the payload and copies it to the
	// caller's own terminal instead of inheriting stdio directly.
	TTY bool

	Interactive bool
	Strict      bool
}

// DefaultSpawnRequest returns a request with the documented defaults:
// map_root and mount_proc on, interactive and strict on, /proc as the
// mount point.
func DefaultSpawnRequest() SpawnRequest {
	return SpawnRequest{
		MapRoot:     true,
		MountProc:   true,
		MountPoint:  "/proc",
		Interactive: true,
		Strict:      true,
	}
}
