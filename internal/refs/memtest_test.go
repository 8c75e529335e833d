package refs

import (
	"context"
	"sort"
	"strings"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// memBackend is a minimal in-memory Backend used only to exercise
// resolve/coordinator/iteration logic in this package's own tests; the
// real backends live in filesbackend and kvbackend.
type memBackend struct {
	name string
	refs map[string]string // refname -> "oid:<hex>" or "ref:<target>"
}

func newMemBackend(name string) *memBackend {
	return &memBackend{name: name, refs: make(map[string]string)}
}

func (m *memBackend) Name() string { return m.name }

func (m *memBackend) InitDB(ctx context.Context) error { return nil }

func (m *memBackend) TransactionBegin(ctx context.Context, tx *Transaction) error { return nil }

func (m *memBackend) TransactionCommit(ctx context.Context, tx *Transaction, sortedNames []string) error {
	for _, u := range tx.Updates {
		if u.Flags&HaveOld != 0 {
			current, _ := m.rawGet(u.Refname)
			if current != u.Old {
				return refserr.NewLockError(u.Refname, "old value mismatch")
			}
		}
		if u.Flags&Deleting != 0 {
			delete(m.refs, u.Refname)
			continue
		}
		if u.Flags&LogOnly != 0 {
			continue
		}
		m.refs[u.Refname] = "oid:" + u.New.String()
	}
	return nil
}

func (m *memBackend) InitialTransactionCommit(ctx context.Context, tx *Transaction) error {
	return m.TransactionCommit(ctx, tx, nil)
}

func (m *memBackend) TransactionFree(tx *Transaction) {}

func (m *memBackend) rawGet(name string) (oid.OID, bool) {
	v, ok := m.refs[name]
	if !ok {
		return oid.Null, false
	}
	if strings.HasPrefix(v, "oid:") {
		o, _ := oid.Parse(strings.TrimPrefix(v, "oid:"))
		return o, true
	}
	return oid.Null, true
}

func (m *memBackend) ReadRawRef(ctx context.Context, name string) (RawRef, error) {
	v, ok := m.refs[name]
	if !ok {
		return RawRef{}, refserr.NewNotFoundError(name)
	}
	if target, isSymref := strings.CutPrefix(v, "ref:"); isSymref {
		return RawRef{Symref: target, Flags: IsSymref}, nil
	}
	o, _ := oid.Parse(strings.TrimPrefix(v, "oid:"))
	return RawRef{OID: o}, nil
}

func (m *memBackend) DoForEachRef(ctx context.Context, prefix string, trim int, flags ResolveFlags, fn func(RefEntry) error) error {
	names := make([]string, 0, len(m.refs))
	for name := range m.refs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		raw, _ := m.ReadRawRef(ctx, name)
		trimmed := name
		if trim > 0 && trim <= len(name) {
			trimmed = name[trim:]
		}
		if err := fn(RefEntry{Refname: trimmed, OID: raw.OID, Flags: raw.Flags}); err != nil {
			return err
		}
	}
	return nil
}

func (m *memBackend) VerifyRefnameAvailable(ctx context.Context, name string, skip map[string]bool) error {
	for existing := range m.refs {
		if skip[existing] {
			continue
		}
		if strings.HasPrefix(existing+"/", name+"/") && existing != name {
			return refserr.NewNameConflictError(name, existing)
		}
		if strings.HasPrefix(name+"/", existing+"/") && existing != name {
			return refserr.NewNameConflictError(name, existing)
		}
	}
	return nil
}

func (m *memBackend) CreateSymref(ctx context.Context, name, target, message string) error {
	m.refs[name] = "ref:" + target
	return nil
}

func (m *memBackend) RenameRef(ctx context.Context, oldName, newName, message string) error {
	v, ok := m.refs[oldName]
	if !ok {
		return refserr.NewNotFoundError(oldName)
	}
	delete(m.refs, oldName)
	m.refs[newName] = v
	return nil
}

func (m *memBackend) PeelRef(ctx context.Context, name string) (oid.OID, error) {
	o, _ := m.rawGet(name)
	return o, nil
}

func (m *memBackend) PackRefs(ctx context.Context, opts PackRefsOptions) error { return nil }

func (m *memBackend) DeleteRefs(ctx context.Context, names []string, message string) error {
	for _, n := range names {
		delete(m.refs, n)
	}
	return nil
}

func (m *memBackend) ReflogExists(ctx context.Context, name string) (bool, error) { return false, nil }
func (m *memBackend) CreateReflog(ctx context.Context, name string) error         { return nil }
func (m *memBackend) DeleteReflog(ctx context.Context, name string) error         { return nil }
func (m *memBackend) ForEachReflogEnt(ctx context.Context, name string, fn ReflogEntryFunc) error {
	return nil
}
func (m *memBackend) ForEachReflogEntReverse(ctx context.Context, name string, fn ReflogEntryFunc) error {
	return nil
}
func (m *memBackend) ReflogExpire(ctx context.Context, name string, opts ExpireOptions) error {
	return nil
}
func (m *memBackend) ResolveGitlinkRef(ctx context.Context, submodule, name string) (oid.OID, error) {
	return oid.Null, refserr.NewNotFoundError(name)
}

var _ Backend = (*memBackend)(nil)
