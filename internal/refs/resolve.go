package refs

import (
	"context"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refname"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// MaxSymrefDepth bounds symbolic-reference chain following; exceeding it,
// or encountering a cycle, yields TOO_DEEP.
const MaxSymrefDepth = 5

// Resolved is the result of following a (possibly symbolic) ref to its
// value.
type Resolved struct {
	Name  string // resolved (leaf) refname
	OID   oid.OID
	Flags ResolveFlags
}

// Resolve follows ref: <target> chains starting at name, up to
// MaxSymrefDepth hops, honoring Reading/NoRecurse/AllowBadName per
// flags.
func Resolve(ctx context.Context, backend Backend, name string, flags ReadFlags) (Resolved, error) {
	if reason := refname.Validate(name, refname.AllowOneLevel); reason != refname.RejectNone {
		if flags&AllowBadName == 0 || !refname.IsSafe(name) {
			return Resolved{Name: name}, refserr.NewBadNameError(name, string(reason))
		}
	}

	var accumulated ResolveFlags
	current := name

	for hop := 0; ; hop++ {
		if hop >= MaxSymrefDepth {
			return Resolved{Name: current, Flags: accumulated}, refserr.NewTooDeepError(name)
		}

		raw, err := backend.ReadRawRef(ctx, current)
		if err != nil {
			if refserr.IsNotFound(err) {
				if flags&Reading != 0 {
					return Resolved{Name: current, Flags: accumulated}, refserr.NewNotFoundError(current)
				}
				return Resolved{Name: current, OID: oid.Null, Flags: accumulated}, nil
			}
			return Resolved{Name: current, Flags: accumulated}, err
		}

		if raw.Symref == "" {
			accumulated &^= IsSymref
			if raw.OID.IsNull() && hop > 0 {
				accumulated |= IsBroken
			}
			return Resolved{Name: current, OID: raw.OID, Flags: accumulated}, nil
		}

		target := raw.Symref
		if reason := refname.Validate(target, refname.AllowOneLevel); reason != refname.RejectNone && !refname.IsSafe(target) {
			accumulated |= IsBroken | BadName
			return Resolved{Name: current, Flags: accumulated}, refserr.NewBrokenError(current, "invalid symref target")
		}

		accumulated |= IsSymref

		if flags&NoRecurse != 0 {
			return Resolved{Name: target, OID: oid.Null, Flags: accumulated}, nil
		}

		current = target
	}
}
