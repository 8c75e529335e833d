package refs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// PseudorefStore reads and writes HEAD, MERGE_HEAD, FETCH_HEAD, and
// similar control files directly inside the repository root, bypassing
// any backend. Writes use a lockfile and an optional CAS read.
type PseudorefStore struct {
	Root string
}

// NewPseudorefStore returns a pseudoref store rooted at root (the
// repository's top-level directory, not its refs subtree).
func NewPseudorefStore(root string) *PseudorefStore {
	return &PseudorefStore{Root: root}
}

func (p *PseudorefStore) path(name string) string {
	return filepath.Join(p.Root, name)
}

// Read returns the raw content of a pseudoref: a direct OID, or a
// symbolic target.
func (p *PseudorefStore) Read(ctx context.Context, name string) (RawRef, error) {
	data, err := os.ReadFile(p.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return RawRef{}, refserr.NewNotFoundError(name)
		}
		return RawRef{}, refserr.NewBrokenError(name, err.Error())
	}

	content := strings.TrimRight(string(data), "\n")
	if target, ok := strings.CutPrefix(content, "ref: "); ok {
		return RawRef{Symref: target, Flags: IsSymref}, nil
	}

	o, perr := oid.Parse(content)
	if perr != nil {
		return RawRef{Flags: IsBroken}, refserr.NewBrokenError(name, "unparseable pseudoref content")
	}
	return RawRef{OID: o}, nil
}

// Write installs new content for name, honoring an optional old? CAS
// check, via a lockfile and atomic rename.
func (p *PseudorefStore) Write(ctx context.Context, name string, content string, oldOID *oid.OID) error {
	target := p.path(name)
	lockPath := target + ".lock"

	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return refserr.NewLockError(name, "could not acquire lock: "+err.Error())
	}
	defer os.Remove(lockPath)
	defer lock.Close()

	if oldOID != nil {
		current, rerr := p.Read(ctx, name)
		if rerr != nil && !refserr.IsNotFound(rerr) {
			return rerr
		}
		if current.OID != *oldOID {
			return refserr.NewLockError(name, "old value mismatch")
		}
	}

	if _, err := lock.WriteString(content); err != nil {
		return refserr.NewLockError(name, "write failed: "+err.Error())
	}
	if err := lock.Sync(); err != nil {
		return refserr.NewLockError(name, "fsync failed: "+err.Error())
	}
	if err := os.Rename(lockPath, target); err != nil {
		return refserr.NewLockError(name, "rename failed: "+err.Error())
	}
	return nil
}

// WriteOID writes a direct OID value.
func (p *PseudorefStore) WriteOID(ctx context.Context, name string, value oid.OID, oldOID *oid.OID) error {
	return p.Write(ctx, name, value.String()+"\n", oldOID)
}

// WriteSymref writes a "ref: <target>" value.
func (p *PseudorefStore) WriteSymref(ctx context.Context, name, targetRef string, oldOID *oid.OID) error {
	return p.Write(ctx, name, "ref: "+targetRef+"\n", oldOID)
}

// Delete removes name, honoring an optional old? CAS check.
func (p *PseudorefStore) Delete(ctx context.Context, name string, oldOID *oid.OID) error {
	if oldOID != nil {
		current, rerr := p.Read(ctx, name)
		if rerr != nil {
			if refserr.IsNotFound(rerr) {
				return nil
			}
			return rerr
		}
		if current.OID != *oldOID {
			return refserr.NewLockError(name, "old value mismatch")
		}
	}
	if err := os.Remove(p.path(name)); err != nil && !os.IsNotExist(err) {
		return refserr.NewLockError(name, "delete failed: "+err.Error())
	}
	return nil
}
