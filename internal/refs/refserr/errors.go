// Package refserr defines the typed error taxonomy shared by the
// coordinator, both backends, and the iteration facade. It is a leaf
// package with no internal dependencies so it can be imported by backend
// implementations without causing import cycles.
package refserr

import "fmt"

// Code identifies the category of a reference-store error.
type Code int

const (
	// BadName: refname fails validation.
	BadName Code = iota + 1
	// LockError: CAS failed (old-value mismatch) or lockfile contention.
	LockError
	// NameConflict: proposed name overlaps an existing directory/file.
	NameConflict
	// NotFound: read of an absent ref in READING mode.
	NotFound
	// Broken: value is unparseable or a symref target is invalid.
	Broken
	// TooDeep: symref chain exceeded the hop bound or cycled.
	TooDeep
	// GenericError: duplicate refname in a transaction, malformed input.
	GenericError
	// SplitCommitFailure: primary backend committed, secondary failed.
	SplitCommitFailure
	// Bug: programmer-facing invariant violation.
	Bug
)

func (c Code) String() string {
	switch c {
	case BadName:
		return "BAD_NAME"
	case LockError:
		return "LOCK_ERROR"
	case NameConflict:
		return "NAME_CONFLICT"
	case NotFound:
		return "NOT_FOUND"
	case Broken:
		return "BROKEN"
	case TooDeep:
		return "TOO_DEEP"
	case GenericError:
		return "GENERIC_ERROR"
	case SplitCommitFailure:
		return "SPLIT_COMMIT_FAILURE"
	case Bug:
		return "BUG"
	default:
		return "UNKNOWN"
	}
}

// RefError is the error type returned by every ref-store operation.
type RefError struct {
	Code    Code
	Message string
	Refname string
}

func (e *RefError) Error() string {
	if e.Refname != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Refname)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, refname, format string, args ...any) *RefError {
	return &RefError{Code: code, Message: fmt.Sprintf(format, args...), Refname: refname}
}

func NewBadNameError(refname, reason string) *RefError {
	return newError(BadName, refname, "invalid refname: %s", reason)
}

func NewLockError(refname, reason string) *RefError {
	return newError(LockError, refname, "%s", reason)
}

func NewNameConflictError(refname, conflictsWith string) *RefError {
	return newError(NameConflict, refname, "name conflicts with existing ref %q", conflictsWith)
}

func NewNotFoundError(refname string) *RefError {
	return newError(NotFound, refname, "reference not found")
}

func NewBrokenError(refname, reason string) *RefError {
	return newError(Broken, refname, "%s", reason)
}

func NewTooDeepError(refname string) *RefError {
	return newError(TooDeep, refname, "symbolic reference chain too deep")
}

func NewGenericError(refname, reason string) *RefError {
	return newError(GenericError, refname, "%s", reason)
}

func NewSplitCommitFailure(reason string) *RefError {
	return newError(SplitCommitFailure, "", "%s", reason)
}

func NewBugError(format string, args ...any) *RefError {
	return newError(Bug, "", format, args...)
}

func codeOf(err error) (Code, bool) {
	re, ok := err.(*RefError)
	if !ok {
		return 0, false
	}
	return re.Code, true
}

func IsBadName(err error) bool         { c, ok := codeOf(err); return ok && c == BadName }
func IsLockError(err error) bool       { c, ok := codeOf(err); return ok && c == LockError }
func IsNameConflict(err error) bool    { c, ok := codeOf(err); return ok && c == NameConflict }
func IsNotFound(err error) bool        { c, ok := codeOf(err); return ok && c == NotFound }
func IsBroken(err error) bool          { c, ok := codeOf(err); return ok && c == Broken }
func IsTooDeep(err error) bool         { c, ok := codeOf(err); return ok && c == TooDeep }
func IsGenericError(err error) bool    { c, ok := codeOf(err); return ok && c == GenericError }
func IsSplitCommitFailure(err error) bool {
	c, ok := codeOf(err)
	return ok && c == SplitCommitFailure
}
func IsBug(err error) bool { c, ok := codeOf(err); return ok && c == Bug }
