package refs

// UpdateFlags control how a single update is interpreted and resolved.
type UpdateFlags uint32

const (
	// NoDeref operates on a symref itself rather than its pointee.
	NoDeref UpdateFlags = 1 << iota
	// LogOnly writes only a reflog entry, not the ref value itself.
	LogOnly
	// HaveNew marks that New is a meaningful value (vs. verify-only).
	HaveNew
	// HaveOld marks that Old carries a real expectation.
	HaveOld
	// Deleting is derived: set when New is the null OID.
	Deleting
	// IsNotHEAD marks an update known not to affect the per-worktree HEAD.
	IsNotHEAD
)

// ResolveFlags are reported to callers of the symref resolver and
// accumulate across hops; ISSYMREF reflects only the last hop.
type ResolveFlags uint32

const (
	// IsSymref: the last hop was symbolic and NoRecurse was requested.
	IsSymref ResolveFlags = 1 << iota
	// IsBroken: unparseable value, invalid target name, or a null OID
	// at a leaf.
	IsBroken
	// BadName: syntactically bad but present, with lenient mode
	// requested by the caller.
	BadName
	// IncludeBroken passes otherwise-skipped broken refs through
	// iteration.
	IncludeBroken
)

// ReadFlags configure symref resolution behavior.
type ReadFlags uint32

const (
	// Reading treats a missing leaf as a hard failure rather than
	// returning a zero OID.
	Reading ReadFlags = 1 << iota
	// NoRecurse stops after the first hop, returning the symbolic
	// target with a zeroed OID.
	NoRecurse
	// AllowBadName permits syntactically invalid starting names to
	// resolve if they are "safe" per refname.IsSafe.
	AllowBadName
)
