package refs

import (
	"context"

	"github.com/marmos91/refstore/internal/oid"
)

// RawRef is the single-hop, unresolved content of a ref: either a
// direct OID, or a symbolic target plus ISSYMREF.
type RawRef struct {
	OID    oid.OID
	Symref string // non-empty iff this ref is symbolic
	Flags  ResolveFlags
}

// RefEntry is one entry produced by iteration: a refname, its resolved
// OID, and any flags accumulated while reading it.
type RefEntry struct {
	Refname string
	OID     oid.OID
	Flags   ResolveFlags
}

// ReflogEntryFunc is invoked once per reflog entry during iteration. A
// non-zero (non-nil) return halts iteration and becomes its result.
type ReflogEntryFunc func(e ReflogEntry) error

// ExpirePredicate decides whether a reflog entry survives expiry.
type ExpirePredicate func(e ReflogEntry) (keep bool)

// ExpireOptions configures reflog expiry for one ref.
type ExpireOptions struct {
	Keep      ExpirePredicate
	UpdateRef bool // if true and at least one entry survives, also
	// update the ref to the last kept entry's New value.
}

// PackRefsOptions configures a files-backend pack-refs operation.
type PackRefsOptions struct {
	AllRefs bool // pack every ref, not just refs/tags and refs/heads
	Prune   bool // remove loose refs once packed
}

// Backend is the capability set every storage engine must supply,
// consumed by the coordinator and the iteration facade. Backend
// identity is never exposed outside the registry and the coordinator.
type Backend interface {
	Name() string

	// InitDB creates empty storage; idempotent.
	InitDB(ctx context.Context) error

	// TransactionBegin prepares the backend for committing tx. It
	// returns no handle; the files and KV backends both implement it
	// as a no-op and do their work in TransactionCommit.
	TransactionBegin(ctx context.Context, tx *Transaction) error

	// TransactionCommit applies tx's updates, honoring each update's
	// Old expectation as a CAS check, and performing the
	// name-availability check. sortedNames is the precomputed,
	// duplicate-checked affected-name list.
	TransactionCommit(ctx context.Context, tx *Transaction, sortedNames []string) error

	// InitialTransactionCommit commits tx without per-ref existence
	// checks; used only for fresh-repository creation.
	InitialTransactionCommit(ctx context.Context, tx *Transaction) error

	TransactionFree(tx *Transaction)

	// ReadRawRef performs a single-hop, unresolved read.
	ReadRawRef(ctx context.Context, name string) (RawRef, error)

	// DoForEachRef walks refs in lexicographic order starting at
	// prefix, trimming trim leading bytes of each name before fn is
	// invoked.
	DoForEachRef(ctx context.Context, prefix string, trim int, flags ResolveFlags, fn func(RefEntry) error) error

	// VerifyRefnameAvailable checks that name does not conflict,
	// as a directory/file collision, with any existing ref (other
	// than those in skip).
	VerifyRefnameAvailable(ctx context.Context, name string, skip map[string]bool) error

	CreateSymref(ctx context.Context, name, target, message string) error
	RenameRef(ctx context.Context, oldName, newName, message string) error
	PeelRef(ctx context.Context, name string) (oid.OID, error)
	PackRefs(ctx context.Context, opts PackRefsOptions) error
	DeleteRefs(ctx context.Context, names []string, message string) error

	ReflogExists(ctx context.Context, name string) (bool, error)
	CreateReflog(ctx context.Context, name string) error
	DeleteReflog(ctx context.Context, name string) error
	ForEachReflogEnt(ctx context.Context, name string, fn ReflogEntryFunc) error
	ForEachReflogEntReverse(ctx context.Context, name string, fn ReflogEntryFunc) error
	ReflogExpire(ctx context.Context, name string, opts ExpireOptions) error

	// ResolveGitlinkRef resolves name inside a submodule's own ref
	// store.
	ResolveGitlinkRef(ctx context.Context, submodule, name string) (oid.OID, error)
}
