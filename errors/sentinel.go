// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Resolver errors.
var (
	// ErrBothPayloads indicates a command and a function payload were both set.
	ErrBothPayloads = &NsError{
		Kind:   ErrSetting,
		Detail: "command and function payload are mutually exclusive",
	}

	// ErrSetgroupsConflictsWithMap indicates setgroups=allow was requested alongside a uid/gid map.
	ErrSetgroupsConflictsWithMap = &NsError{
		Kind:   ErrSetting,
		Detail: "setgroups=allow conflicts with map_root or an explicit id map",
	}

	// ErrTooManyMapEntries indicates more than 5 id map entries were supplied on one side.
	ErrTooManyMapEntries = &NsError{
		Kind:   ErrSetting,
		Detail: "at most 5 id map entries are accepted per side",
	}

	// ErrMountProcNeedsPid indicates mount_proc was requested without the pid namespace.
	ErrMountProcNeedsPid = &NsError{
		Kind:   ErrSetting,
		Detail: "mount_proc requires the pid namespace",
	}

	// ErrBindDirNeedsMount indicates ns_bind_dir was set without the mount namespace.
	ErrBindDirNeedsMount = &NsError{
		Kind:   ErrSetting,
		Detail: "ns_bind_dir requires the mount namespace",
	}
)

// Id-map errors.
var (
	// ErrIdMapSyntax indicates a map entry string could not be parsed.
	ErrIdMapSyntax = &NsError{
		Kind:   ErrSetting,
		Detail: "invalid id map entry syntax",
	}

	// ErrIdMapUnauthorized indicates a caller tried to map an id it does not own.
	ErrIdMapUnauthorized = &NsError{
		Kind:   ErrRequireSuperuser,
		Detail: "id map entry not authorized for the calling credentials",
	}

	// ErrIdMapRangeTooLarge indicates an unprivileged caller requested a range longer than 3.
	ErrIdMapRangeTooLarge = &NsError{
		Kind:   ErrSetting,
		Detail: "unprivileged id map ranges may not exceed length 3",
	}
)

// Handshake errors.
var (
	// ErrHandshakeClosed indicates a sentinel pipe closed before the expected byte arrived.
	ErrHandshakeClosed = &NsError{
		Kind:   ErrIo,
		Detail: "handshake pipe closed unexpectedly",
	}

	// ErrHandshakeBadSentinel indicates a byte other than SyncByte arrived on a sentinel pipe.
	ErrHandshakeBadSentinel = &NsError{
		Kind:   ErrIo,
		Detail: "unexpected handshake sentinel value",
	}
)

// Pin binder errors.
var (
	// ErrPinDirUnwritable indicates the bind directory cannot be written to.
	ErrPinDirUnwritable = &NsError{
		Kind:   ErrSetting,
		Detail: "ns_bind_dir is not writable",
	}
)

// Launcher errors.
var (
	// ErrNoPayload indicates neither a command nor a function payload was supplied.
	ErrNoPayload = &NsError{
		Kind:   ErrSetting,
		Detail: "no command or function payload specified",
	}

	// ErrShellNotFound indicates no usable shell could be resolved.
	ErrShellNotFound = &NsError{
		Kind:   ErrIo,
		Detail: "no usable shell found",
	}
)
