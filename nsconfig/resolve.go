package nsconfig

import (
	"os"

	nserrors "nsctl-go/errors"
	"nsctl-go/idmap"
	"nsctl-go/nskernel"
	"nsctl-go/nsregistry"
)

// Resolve applies the twelve ordered resolution rules to req and returns a
// consistent SpawnPlan, or the first violated rule's error.
func Resolve(req SpawnRequest) (*SpawnPlan, error) {
	// Rule 1: a command/init_prog and a payload are mutually exclusive.
	hasCmd := len(req.Nscmd) > 0 || req.InitProg != ""
	hasPayload := req.PayloadName != ""
	if hasCmd && hasPayload {
		return nil, nserrors.ErrBothPayloads
	}

	mapRoot := req.MapRoot
	usersMap := append([]string(nil), req.UsersMap...)
	groupsMap := append([]string(nil), req.GroupsMap...)
	mountProc := req.MountProc
	mountPoint := req.MountPoint
	var propagation *Propagation
	if req.Propagation != nil {
		p := *req.Propagation
		propagation = &p
	}
	setgroups := req.Setgroups

	userAvailable, _ := nsregistry.Available(nsregistry.User)
	pidAvailable, _ := nsregistry.Available(nsregistry.PID)
	mountAvailable, _ := nsregistry.Available(nsregistry.Mount)

	// Rule 2: user-mapping options require the user namespace.
	if !userAvailable && (mapRoot || len(usersMap) > 0 || len(groupsMap) > 0) {
		if req.Strict {
			return nil, nserrors.UnavailableNamespace("resolve", "user")
		}
		mapRoot = false
		usersMap = nil
		groupsMap = nil
	}

	// Rule 3: setgroups=allow conflicts with any id mapping request.
	if setgroups != nil && *setgroups == SetgroupsAllow && (mapRoot || len(usersMap) > 0 || len(groupsMap) > 0) {
		if req.Strict {
			return nil, nserrors.ErrSetgroupsConflictsWithMap
		}
		usersMap = nil
		groupsMap = nil
		mapRoot = false
	}

	// Rule 4: mount_proc requires the pid namespace.
	if !pidAvailable && mountProc {
		if req.Strict {
			return nil, nserrors.ErrMountProcNeedsPid
		}
		mountProc = false
		mountPoint = ""
	}

	// Rule 5: propagation requires the mount namespace.
	if !mountAvailable && propagation != nil {
		if req.Strict {
			return nil, nserrors.UnavailableNamespace("resolve", "mount")
		}
		propagation = nil
	}

	// Rule 6: expand the namespace set.
	namespaces, err := expandNamespaces(req)
	if err != nil {
		return nil, err
	}

	// Rule 7: need-privilege predicate.
	needsPrivilege := !namespaces[nsregistry.User] || req.NsBindDir != "" || len(usersMap) > 0 || len(groupsMap) > 0
	if needsPrivilege && nskernel.EUID() != 0 {
		return nil, nserrors.RequireSuperuser("resolve")
	}

	// Rule 8: dependent-namespace coherence.
	if mountProc && !namespaces[nsregistry.Mount] {
		if req.Strict {
			return nil, nserrors.SettingError("resolve", "mount_proc requires the mount namespace in the plan")
		}
		namespaces[nsregistry.Mount] = true
	}
	if mapRoot && !namespaces[nsregistry.User] {
		if req.Strict {
			return nil, nserrors.SettingError("resolve", "map_root requires the user namespace in the plan")
		}
		namespaces[nsregistry.User] = true
	}

	// Rule 9: default propagation to private when mount namespace present.
	if namespaces[nsregistry.Mount] && propagation == nil {
		p := PropagationPrivate
		propagation = &p
	}

	// Rule 10: compile and authorize id map entries.
	if len(usersMap) > 0 {
		entries, err := idmap.ParseAll(idmap.UserKind, usersMap)
		if err != nil {
			return nil, err
		}
		if err := idmap.Authorize(idmap.UserKind, entries); err != nil {
			return nil, err
		}
	}
	if len(groupsMap) > 0 {
		entries, err := idmap.ParseAll(idmap.GroupKind, groupsMap)
		if err != nil {
			return nil, err
		}
		if err := idmap.Authorize(idmap.GroupKind, entries); err != nil {
			return nil, err
		}
	}

	// Rule 11: clear options whose namespace got dropped.
	if !namespaces[nsregistry.User] {
		mapRoot = false
		setgroups = nil
		usersMap = nil
		groupsMap = nil
	}
	if !namespaces[nsregistry.PID] {
		mountProc = false
		mountPoint = ""
	}
	if !namespaces[nsregistry.Mount] {
		if req.NsBindDir != "" {
			if req.Strict {
				return nil, nserrors.ErrBindDirNeedsMount
			}
			req.NsBindDir = ""
		}
		propagation = nil
		mountProc = false
	}

	// Rule 12: setgroups default.
	if namespaces[nsregistry.User] && setgroups == nil {
		if (mapRoot || len(usersMap) > 0 || len(groupsMap) > 0) && setgroupsFileExists() {
			d := SetgroupsDeny
			setgroups = &d
		}
	}

	plan := &SpawnPlan{
		Namespaces:  namespaces,
		MapRoot:     mapRoot,
		MountProc:   mountProc,
		MountPoint:  mountPoint,
		NsBindDir:   req.NsBindDir,
		Nscmd:       req.Nscmd,
		InitProg:    req.InitProg,
		PayloadName: req.PayloadName,
		UsersMap:    usersMap,
		GroupsMap:   groupsMap,
		TTY:         req.TTY,
		Interactive: req.Interactive,
	}
	if propagation != nil {
		plan.Propagation = *propagation
	} else {
		plan.Propagation = PropagationUnchanged
	}
	plan.Setgroups = setgroups

	return plan, nil
}

func expandNamespaces(req SpawnRequest) (map[nsregistry.Kind]bool, error) {
	result := map[nsregistry.Kind]bool{}

	var base []nsregistry.Kind
	if req.Namespaces == nil {
		for _, k := range nsregistry.All() {
			if available, known := nsregistry.Available(k); known && available {
				base = append(base, k)
			}
		}
	} else {
		base = req.Namespaces
	}

	for _, k := range base {
		if _, ok := nsregistry.Lookup(string(k)); !ok {
			return nil, nserrors.UnknownNamespace("resolve", string(k))
		}
		if available, known := nsregistry.Available(k); !known || !available {
			return nil, nserrors.UnavailableNamespace("resolve", string(k))
		}
		result[k] = true
	}

	for _, k := range req.NegativeNamespaces {
		delete(result, k)
	}

	return result, nil
}

// setgroupsFileExists reports whether the running kernel exposes
// /proc/self/setgroups. Declared as a var so tests can stub it.
var setgroupsFileExists = func() bool {
	_, err := os.Stat("/proc/self/setgroups")
	return err == nil
}
