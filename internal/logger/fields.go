package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are designed to be backend-agnostic, supporting the files and
// KV ref backends and any future backend.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // trace ID for request correlation
	KeySpanID  = "span_id"  // span ID for operation tracking

	// ========================================================================
	// Backend & Operation (backend-agnostic)
	// ========================================================================
	KeyBackend   = "backend"    // Backend type: files, kv
	KeyOperation = "operation"  // Operation name: update, commit, resolve, for-each-ref, etc.
	KeyRefname   = "refname"    // Refname under operation
	KeyStatus    = "status"     // Operation status code
	KeyStatusMsg = "status_msg" // Human-readable status message

	// ========================================================================
	// Reference Values
	// ========================================================================
	KeyOldOID    = "old_oid"    // Old OID in a CAS check or reflog entry
	KeyNewOID    = "new_oid"    // New OID in a CAS check or reflog entry
	KeyTarget    = "target"     // Symbolic ref target
	KeyRefKind   = "ref_kind"   // normal, per-worktree, pseudoref
	KeyResolved  = "resolved"   // Resolved leaf refname
	KeyFlags     = "flags"      // Accumulated resolution/update flags

	// ========================================================================
	// Transaction
	// ========================================================================
	KeyTxnState   = "txn_state"   // OPEN, PREPARED, CLOSED
	KeyUpdateCnt  = "update_count" // Number of updates in a transaction

	// ========================================================================
	// Locking (files backend lockfile CAS)
	// ========================================================================
	KeyLockPath = "lock_path" // Path of the lockfile acquired/released
	KeyAttempt  = "attempt"   // Retry attempt number

	// ========================================================================
	// Reflog
	// ========================================================================
	KeyReflogPath = "reflog_path" // Path or key of the reflog being touched
	KeyEntryCount = "entry_count" // Number of reflog entries affected

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric/symbolic error code
	KeySource     = "source"      // loose, packed, kv

	// ========================================================================
	// Storage
	// ========================================================================
	KeyStoreName = "store_name" // Named backend instance from the registry
	KeyPath      = "path"       // Filesystem path

	// ========================================================================
	// Network
	// ========================================================================
	KeyAddr = "addr" // Listen or remote network address
)

// TraceID returns a slog.Attr for the trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Backend returns a slog.Attr for the backend name.
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

// Operation returns a slog.Attr for the operation name.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Refname returns a slog.Attr for a refname.
func Refname(name string) slog.Attr { return slog.String(KeyRefname, name) }

// Status returns a slog.Attr for an operation status code.
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// StatusMsg returns a slog.Attr for a human-readable status message.
func StatusMsg(msg string) slog.Attr { return slog.String(KeyStatusMsg, msg) }

// OldOID returns a slog.Attr for the old OID in a CAS check.
func OldOID(hex string) slog.Attr { return slog.String(KeyOldOID, hex) }

// NewOID returns a slog.Attr for the new OID in a CAS check.
func NewOID(hex string) slog.Attr { return slog.String(KeyNewOID, hex) }

// Target returns a slog.Attr for a symbolic ref target.
func Target(name string) slog.Attr { return slog.String(KeyTarget, name) }

// RefKind returns a slog.Attr for the classification of a refname.
func RefKind(kind string) slog.Attr { return slog.String(KeyRefKind, kind) }

// Resolved returns a slog.Attr for the resolved leaf refname.
func Resolved(name string) slog.Attr { return slog.String(KeyResolved, name) }

// Flags returns a slog.Attr for accumulated resolution/update flags.
func Flags(bits uint32) slog.Attr { return slog.Uint64(KeyFlags, uint64(bits)) }

// TxnState returns a slog.Attr for the transaction state.
func TxnState(state string) slog.Attr { return slog.String(KeyTxnState, state) }

// UpdateCount returns a slog.Attr for the number of updates in a transaction.
func UpdateCount(n int) slog.Attr { return slog.Int(KeyUpdateCnt, n) }

// LockPath returns a slog.Attr for the lockfile path.
func LockPath(p string) slog.Attr { return slog.String(KeyLockPath, p) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// ReflogPath returns a slog.Attr for the reflog path or key.
func ReflogPath(p string) slog.Attr { return slog.String(KeyReflogPath, p) }

// EntryCount returns a slog.Attr for the number of reflog entries affected.
func EntryCount(n int) slog.Attr { return slog.Int(KeyEntryCount, n) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a symbolic error code.
func ErrorCode(code string) slog.Attr { return slog.String(KeyErrorCode, code) }

// Source returns a slog.Attr for where a value was read from (loose, packed, kv).
func Source(src string) slog.Attr { return slog.String(KeySource, src) }

// StoreName returns a slog.Attr for a named backend instance.
func StoreName(name string) slog.Attr { return slog.String(KeyStoreName, name) }

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Addr returns a slog.Attr for a listen or remote network address.
func Addr(a string) slog.Attr { return slog.String(KeyAddr, a) }
