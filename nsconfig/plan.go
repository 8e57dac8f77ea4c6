package nsconfig

import "nsctl-go/nsregistry"

// SpawnPlan is the fully-resolved, internally-consistent form of a
// SpawnRequest. Every field reflects what will actually happen.
type SpawnPlan struct {
	Namespaces map[nsregistry.Kind]bool

	MapRoot    bool
	MountProc  bool
	MountPoint string
	NsBindDir  string

	Nscmd       []string
	InitProg    string
	PayloadName string

	Propagation Propagation
	Setgroups   *Setgroups

	UsersMap  []string
	GroupsMap []string

	TTY         bool
	Interactive bool
}

// Has reports whether kind is present in the plan's namespace set.
func (p *SpawnPlan) Has(kind nsregistry.Kind) bool {
	return p.Namespaces[kind]
}

// Kinds returns the plan's namespace set in registry order.
func (p *SpawnPlan) Kinds() []nsregistry.Kind {
	var out []nsregistry.Kind
	for _, k := range nsregistry.All() {
		if p.Namespaces[k] {
			out = append(out, k)
		}
	}
	return out
}

// CloneFlags ORs together the CLONE_NEW* flags for every kind in the plan.
func (p *SpawnPlan) CloneFlags() uintptr {
	var flags uintptr
	for k := range p.Namespaces {
		if flag, ok := nsregistry.Flag(k); ok {
			flags |= flag
		}
	}
	return flags
}
