package filesbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/refstore/internal/logger"
	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// refLock is an acquired exclusive lockfile for one ref, created with
// O_CREAT|O_EXCL.
type refLock struct {
	path string
	file *os.File
}

func (b *Backend) acquireLock(name string) (*refLock, error) {
	path := b.lockPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, refserr.NewLockError(name, "could not create ref directory: "+err.Error())
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, refserr.NewLockError(name, "lockfile contention: "+err.Error())
	}
	return &refLock{path: path, file: f}, nil
}

func (l *refLock) rollback() {
	l.file.Close()
	os.Remove(l.path)
}

func (l *refLock) commit(target string, content string) error {
	if _, err := l.file.WriteString(content); err != nil {
		l.rollback()
		return err
	}
	if err := l.file.Sync(); err != nil {
		l.rollback()
		return err
	}
	if err := l.file.Close(); err != nil {
		os.Remove(l.path)
		return err
	}
	return os.Rename(l.path, target)
}

// VerifyRefnameAvailable checks that no existing ref is a strict
// prefix or strict extension of name/ (a directory/file conflict),
// ignoring names in skip.
func (b *Backend) VerifyRefnameAvailable(ctx context.Context, name string, skip map[string]bool) error {
	var conflict string
	err := b.DoForEachRef(ctx, "", 0, refs.IncludeBroken, func(e refs.RefEntry) error {
		if skip[e.Refname] || e.Refname == name {
			return nil
		}
		if strings.HasPrefix(e.Refname+"/", name+"/") || strings.HasPrefix(name+"/", e.Refname+"/") {
			conflict = e.Refname
			return errStopIteration
		}
		return nil
	})
	if err != nil && err != errStopIteration {
		return err
	}
	if conflict != "" {
		return refserr.NewNameConflictError(name, conflict)
	}
	return nil
}

var errStopIteration = &stopIterationErr{}

type stopIterationErr struct{}

func (*stopIterationErr) Error() string { return "stop iteration" }

// autoCreatesReflog reports whether name qualifies for reflog
// auto-creation: HEAD, or refs/{heads,remotes,notes}/....
func autoCreatesReflog(name string) bool {
	if name == "HEAD" {
		return true
	}
	for _, prefix := range []string{"refs/heads/", "refs/remotes/", "refs/notes/"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// TransactionBegin is a no-op for the files backend: locks are acquired
// per-update during commit.
func (b *Backend) TransactionBegin(ctx context.Context, tx *refs.Transaction) error { return nil }

func (b *Backend) TransactionFree(tx *refs.Transaction) {}

// TransactionCommit applies every update under its own exclusive
// lockfile, honoring CAS and name-availability, and appends reflog
// entries where auto-creation applies.
func (b *Backend) TransactionCommit(ctx context.Context, tx *refs.Transaction, sortedNames []string) error {
	locks := make([]*refLock, 0, len(tx.Updates))
	defer func() {
		for _, l := range locks {
			l.rollback()
		}
	}()

	for _, name := range sortedNames {
		u := updateFor(tx, name)
		if u == nil {
			continue
		}

		lock, err := b.acquireLock(name)
		if err != nil {
			// A lock that cannot be created because an existing ref
			// occupies a parent path is a directory/file conflict.
			if verr := b.VerifyRefnameAvailable(ctx, name, nil); verr != nil {
				return verr
			}
			return err
		}
		locks = append(locks, lock)

		current, currentErr := b.ReadRawRef(ctx, name)
		hasCurrent := currentErr == nil

		if u.Flags&refs.HaveOld != 0 {
			if !hasCurrent {
				if !u.Old.IsNull() {
					return refserr.NewLockError(name, "expected ref to exist")
				}
			} else if current.OID != u.Old {
				return refserr.NewLockError(name, "old value mismatch")
			}
		}

		if !hasCurrent {
			if err := b.VerifyRefnameAvailable(ctx, name, nil); err != nil {
				return err
			}
		}
	}

	// All CAS/availability checks passed under lock; now apply.
	for _, name := range sortedNames {
		u := updateFor(tx, name)
		if u == nil {
			continue
		}
		lock := lockFor(locks, name)

		if u.Flags&refs.Deleting != 0 {
			if err := os.Remove(b.loosePath(name)); err != nil && !os.IsNotExist(err) {
				return refserr.NewLockError(name, "delete failed: "+err.Error())
			}
			lock.rollback()
			if err := b.rewritePackedWithout(name); err != nil {
				return err
			}
		} else if u.Flags&refs.HaveNew != 0 && u.Flags&refs.LogOnly == 0 {
			content := u.New.String() + "\n"
			if err := lock.commit(b.loosePath(name), content); err != nil {
				return refserr.NewLockError(name, "commit failed: "+err.Error())
			}
		} else {
			lock.rollback()
		}

		if (u.Flags&refs.LogOnly != 0 || u.Flags&refs.HaveNew != 0) && shouldLog(name) {
			if err := b.appendReflog(name, u); err != nil {
				return err
			}
		}
	}

	b.invalidatePackedCache()
	locks = nil
	logger.InfoCtx(ctx, "files backend commit complete", logger.UpdateCount(len(sortedNames)))
	return nil
}

func shouldLog(name string) bool {
	return autoCreatesReflog(name)
}

func updateFor(tx *refs.Transaction, name string) *refs.Update {
	for _, u := range tx.Updates {
		if u.Refname == name {
			return u
		}
	}
	return nil
}

func lockFor(locks []*refLock, name string) *refLock {
	target := name // locks correspond 1:1 with sortedNames in commit order
	for _, l := range locks {
		if strings.HasSuffix(l.path, target+".lock") {
			return l
		}
	}
	return nil
}

// InitialTransactionCommit commits tx without per-ref existence checks;
// used only for fresh-repository creation.
func (b *Backend) InitialTransactionCommit(ctx context.Context, tx *refs.Transaction) error {
	for _, u := range tx.Updates {
		if u.Flags&refs.HaveNew == 0 {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(b.loosePath(u.Refname)), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(b.loosePath(u.Refname), []byte(u.New.String()+"\n"), 0o644); err != nil {
			return err
		}
	}
	b.invalidatePackedCache()
	return nil
}

func (b *Backend) rewritePackedWithout(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	packed, err := readPackedRefs(b.packedRefsPath())
	if err != nil {
		return err
	}
	filtered := packed.Entries[:0]
	changed := false
	for _, e := range packed.Entries {
		if e.Refname == name {
			changed = true
			continue
		}
		filtered = append(filtered, e)
	}
	if !changed {
		return nil
	}
	packed.Entries = filtered
	if err := writePackedRefs(b.packedRefsPath(), packed); err != nil {
		return err
	}
	b.packed = nil
	b.packedRead = false
	return nil
}

// CreateSymref writes a "ref: <target>" loose ref under lock.
func (b *Backend) CreateSymref(ctx context.Context, name, target, message string) error {
	lock, err := b.acquireLock(name)
	if err != nil {
		return err
	}
	if err := lock.commit(b.loosePath(name), "ref: "+target+"\n"); err != nil {
		return refserr.NewLockError(name, err.Error())
	}
	if autoCreatesReflog(name) {
		_ = b.appendReflog(name, &refs.Update{Refname: name, Message: message})
	}
	b.invalidatePackedCache()
	return nil
}

// RenameRef moves oldName's loose-ref content to newName under both
// refs' locks.
func (b *Backend) RenameRef(ctx context.Context, oldName, newName, message string) error {
	oldLock, err := b.acquireLock(oldName)
	if err != nil {
		return err
	}
	defer oldLock.rollback()

	raw, err := b.ReadRawRef(ctx, oldName)
	if err != nil {
		return err
	}

	newLock, err := b.acquireLock(newName)
	if err != nil {
		return err
	}

	var content string
	if raw.Symref != "" {
		content = "ref: " + raw.Symref + "\n"
	} else {
		content = raw.OID.String() + "\n"
	}
	if err := newLock.commit(b.loosePath(newName), content); err != nil {
		return refserr.NewLockError(newName, err.Error())
	}
	if err := os.Remove(b.loosePath(oldName)); err != nil && !os.IsNotExist(err) {
		return refserr.NewLockError(oldName, err.Error())
	}
	b.invalidatePackedCache()
	return nil
}

// DeleteRefs removes each named ref under its own lock, rewriting
// packed-refs once per deleted name that has a packed entry.
func (b *Backend) DeleteRefs(ctx context.Context, names []string, message string) error {
	for _, name := range names {
		lock, err := b.acquireLock(name)
		if err != nil {
			return err
		}
		if err := os.Remove(b.loosePath(name)); err != nil && !os.IsNotExist(err) {
			lock.rollback()
			return refserr.NewLockError(name, err.Error())
		}
		os.Remove(lock.path)
		if err := b.rewritePackedWithout(name); err != nil {
			return err
		}
	}
	return nil
}

// PackRefs consolidates loose refs into packed-refs under the global
// packed-refs.lock, optionally pruning the now-redundant loose files.
func (b *Backend) PackRefs(ctx context.Context, opts refs.PackRefsOptions) error {
	lockPath := b.packedRefsPath() + ".lock"
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return refserr.NewLockError("packed-refs", "contention: "+err.Error())
	}
	lock.Close()
	defer os.Remove(lockPath)

	packed, err := readPackedRefs(b.packedRefsPath())
	if err != nil {
		return err
	}

	idx := make(map[string]int, len(packed.Entries))
	for i, pe := range packed.Entries {
		idx[pe.Refname] = i
	}

	var toPrune []string
	err = b.DoForEachRef(ctx, "", 0, 0, func(e refs.RefEntry) error {
		if e.Flags&refs.IsSymref != 0 {
			return nil
		}
		if !opts.AllRefs && !strings.HasPrefix(e.Refname, "refs/tags/") && !strings.HasPrefix(e.Refname, "refs/heads/") {
			return nil
		}
		entry := packedEntry{OID: e.OID, Refname: e.Refname}
		if i, ok := idx[e.Refname]; ok {
			packed.Entries[i] = entry
		} else {
			packed.Entries = append(packed.Entries, entry)
		}
		toPrune = append(toPrune, e.Refname)
		return nil
	})
	if err != nil {
		return err
	}

	if err := writePackedRefs(b.packedRefsPath(), packed); err != nil {
		return err
	}
	b.invalidatePackedCache()

	if opts.Prune {
		for _, name := range toPrune {
			os.Remove(b.loosePath(name))
		}
	}
	return nil
}
