// Package orchestrator implements the parent/child/grandchild handshake
// that creates namespaces, sequences uid/gid mapping, propagation and
// /proc remounting, pin binding, and payload dispatch, per the protocol
// described in the project's design notes.
package orchestrator

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"nsctl-go/nsconfig"
	"nsctl-go/nsregistry"
)

// wirePlan is the over-the-wire (env var) form of a SpawnPlan: a plain
// struct with a string-keyed namespace map, since nsconfig.SpawnPlan's
// Kind-keyed map marshals identically but this keeps the wire format
// independent of internal field names.
type wirePlan struct {
	Namespaces  map[string]bool `json:"namespaces"`
	MapRoot     bool            `json:"map_root"`
	MountProc   bool            `json:"mount_proc"`
	MountPoint  string          `json:"mount_point"`
	NsBindDir   string          `json:"ns_bind_dir"`
	Nscmd       []string        `json:"nscmd"`
	InitProg    string          `json:"init_prog"`
	PayloadName string          `json:"payload_name"`
	Propagation string          `json:"propagation"`
	Setgroups   string          `json:"setgroups"`
	UsersMap    []string        `json:"users_map"`
	GroupsMap   []string        `json:"groups_map"`
	TTY         bool            `json:"tty"`
	Interactive bool            `json:"interactive"`
}

const planEnvVar = "NSCTL_PLAN"

func encodePlan(plan *nsconfig.SpawnPlan) (string, error) {
	w := wirePlan{
		Namespaces:  map[string]bool{},
		MapRoot:     plan.MapRoot,
		MountProc:   plan.MountProc,
		MountPoint:  plan.MountPoint,
		NsBindDir:   plan.NsBindDir,
		Nscmd:       plan.Nscmd,
		InitProg:    plan.InitProg,
		PayloadName: plan.PayloadName,
		Propagation: string(plan.Propagation),
		UsersMap:    plan.UsersMap,
		GroupsMap:   plan.GroupsMap,
		TTY:         plan.TTY,
		Interactive: plan.Interactive,
	}
	for k, v := range plan.Namespaces {
		w.Namespaces[string(k)] = v
	}
	if plan.Setgroups != nil {
		w.Setgroups = string(*plan.Setgroups)
	}

	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodePlan(encoded string) (*nsconfig.SpawnPlan, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	var w wirePlan
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	plan := &nsconfig.SpawnPlan{
		Namespaces:  map[nsregistry.Kind]bool{},
		MapRoot:     w.MapRoot,
		MountProc:   w.MountProc,
		MountPoint:  w.MountPoint,
		NsBindDir:   w.NsBindDir,
		Nscmd:       w.Nscmd,
		InitProg:    w.InitProg,
		PayloadName: w.PayloadName,
		Propagation: nsconfig.Propagation(w.Propagation),
		UsersMap:    w.UsersMap,
		GroupsMap:   w.GroupsMap,
		TTY:         w.TTY,
		Interactive: w.Interactive,
	}
	for k, v := range w.Namespaces {
		plan.Namespaces[nsregistry.Kind(k)] = v
	}
	if w.Setgroups != "" {
		s := nsconfig.Setgroups(w.Setgroups)
		plan.Setgroups = &s
	}
	return plan, nil
}
