// Package idmap compiles symbolic uid/gid map entries ("inner outer
// [length]") into the (inner, outer, length) triples the kernel's
// uid_map/gid_map files expect, and authorizes them against the calling
// process's credentials.
package idmap

import (
	"fmt"
	"os/user"
	"strconv"
	"strings"

	nserrors "nsctl-go/errors"
	"nsctl-go/nskernel"
)

// Entry is a single resolved id map line.
type Entry struct {
	Inner  uint32
	Outer  uint32
	Length uint32
}

// MaxEntries is the largest number of entries accepted on either side.
const MaxEntries = 5

// Kind distinguishes a user map from a group map, since resolution of
// symbolic names goes through different databases.
type Kind int

const (
	UserKind Kind = iota
	GroupKind
)

// Parse parses a single "inner outer [length]" string. Non-numeric tokens
// are resolved via the user/group database according to kind.
func Parse(kind Kind, s string) (Entry, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 && len(fields) != 3 {
		return Entry{}, nserrors.WrapWithDetail(nserrors.ErrIdMapSyntax, nserrors.ErrSetting, "idmap.Parse", fmt.Sprintf("entry %q must have 2 or 3 fields", s))
	}

	inner, err := resolveID(kind, fields[0])
	if err != nil {
		return Entry{}, err
	}
	outer, err := resolveID(kind, fields[1])
	if err != nil {
		return Entry{}, err
	}

	length := uint32(1)
	if len(fields) == 3 {
		n, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return Entry{}, nserrors.WrapWithDetail(err, nserrors.ErrSetting, "idmap.Parse", fmt.Sprintf("invalid length in %q", s))
		}
		length = uint32(n)
	}

	return Entry{Inner: inner, Outer: outer, Length: length}, nil
}

func resolveID(kind Kind, token string) (uint32, error) {
	if n, err := strconv.ParseUint(token, 10, 32); err == nil {
		return uint32(n), nil
	}
	switch kind {
	case UserKind:
		u, err := user.Lookup(token)
		if err != nil {
			return 0, nserrors.WrapWithDetail(err, nserrors.ErrSetting, "idmap.resolveID", fmt.Sprintf("unknown user %q", token))
		}
		n, err := strconv.ParseUint(u.Uid, 10, 32)
		if err != nil {
			return 0, nserrors.WrapWithDetail(err, nserrors.ErrSetting, "idmap.resolveID", fmt.Sprintf("unparseable uid for %q", token))
		}
		return uint32(n), nil
	case GroupKind:
		g, err := user.LookupGroup(token)
		if err != nil {
			return 0, nserrors.WrapWithDetail(err, nserrors.ErrSetting, "idmap.resolveID", fmt.Sprintf("unknown group %q", token))
		}
		n, err := strconv.ParseUint(g.Gid, 10, 32)
		if err != nil {
			return 0, nserrors.WrapWithDetail(err, nserrors.ErrSetting, "idmap.resolveID", fmt.Sprintf("unparseable gid for %q", token))
		}
		return uint32(n), nil
	}
	return 0, nserrors.SettingError("idmap.resolveID", "unreachable kind")
}

// ParseAll parses a list of symbolic entries and enforces the MaxEntries cap.
func ParseAll(kind Kind, entries []string) ([]Entry, error) {
	if len(entries) > MaxEntries {
		return nil, nserrors.ErrTooManyMapEntries
	}
	out := make([]Entry, 0, len(entries))
	for _, s := range entries {
		e, err := Parse(kind, s)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Authorize checks every entry's outer range against the calling process's
// real/effective/saved id set, as required for an unprivileged caller to
// write a uid_map/gid_map entry. Callers with effective UID 0 are exempt.
func Authorize(kind Kind, entries []Entry) error {
	if nskernel.EUID() == 0 {
		return nil
	}

	var owned []uint32
	switch kind {
	case UserKind:
		res, err := nskernel.GetresUID()
		if err != nil {
			return err
		}
		owned = []uint32{res.Real, res.Effective, res.Saved}
	case GroupKind:
		res, err := nskernel.GetresGID()
		if err != nil {
			return err
		}
		owned = []uint32{res.Real, res.Effective, res.Saved}
	}

	for _, e := range entries {
		if e.Length > 3 {
			return nserrors.ErrIdMapRangeTooLarge
		}
		for id := e.Outer; id < e.Outer+e.Length; id++ {
			if !contains(owned, id) {
				return nserrors.ErrIdMapUnauthorized
			}
		}
	}
	return nil
}

func contains(set []uint32, id uint32) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// FormatMap renders entries as the newline-terminated text written to
// /proc/PID/{uid,gid}_map.
func FormatMap(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d %d %d\n", e.Inner, e.Outer, e.Length)
	}
	return b.String()
}

// IdentityRootEntry returns the single entry written when map_root is set
// with no explicit map: inner 0 maps to the caller's id, length 1.
func IdentityRootEntry(outer uint32) Entry {
	return Entry{Inner: 0, Outer: outer, Length: 1}
}
