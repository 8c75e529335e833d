package kvbackend

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/marmos91/refstore/internal/logger"
	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// TransactionBegin is a no-op: the write-path work happens entirely
// inside the single badger.Update call in TransactionCommit, which
// already gives CAS-stable reads and mutual exclusion against other
// writers.
func (b *Backend) TransactionBegin(ctx context.Context, tx *refs.Transaction) error { return nil }

func (b *Backend) TransactionFree(tx *refs.Transaction) {}

// TransactionCommit applies every update inside one badger read-write
// transaction: CAS checks, name-availability checks, and writes all
// observe the same snapshot and commit atomically together.
func (b *Backend) TransactionCommit(ctx context.Context, tx *refs.Transaction, sortedNames []string) error {
	token := newEpochToken()
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, name := range sortedNames {
			u := updateFor(tx, name)
			if u == nil {
				continue
			}

			item, getErr := txn.Get(refKey(name))
			hasCurrent := getErr == nil
			if getErr != nil && getErr != badger.ErrKeyNotFound {
				return getErr
			}

			if u.Flags&refs.HaveOld != 0 {
				if !hasCurrent {
					if !u.Old.IsNull() {
						return refserr.NewLockError(name, "expected ref to exist")
					}
				} else {
					var current refs.RawRef
					if verr := item.Value(func(v []byte) error {
						decoded, derr := decodeValue(v)
						current = decoded
						return derr
					}); verr != nil {
						return verr
					}
					if current.OID != u.Old {
						return refserr.NewLockError(name, "old value mismatch")
					}
				}
			}

			if !hasCurrent {
				if err := verifyAvailableInTxn(txn, name, nil); err != nil {
					return err
				}
			}

			if u.Flags&refs.Deleting != 0 {
				if err := txn.Delete(refKey(name)); err != nil && err != badger.ErrKeyNotFound {
					return refserr.NewLockError(name, err.Error())
				}
			} else if u.Flags&refs.HaveNew != 0 && u.Flags&refs.LogOnly == 0 {
				if err := txn.Set(refKey(name), directValue(u.New.String())); err != nil {
					return refserr.NewLockError(name, err.Error())
				}
			}

			if (u.Flags&refs.LogOnly != 0 || u.Flags&refs.HaveNew != 0) && autoCreatesReflog(name) {
				if err := appendReflogInTxn(txn, name, u); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.InfoCtx(ctx, "kv backend commit complete", logger.UpdateCount(len(sortedNames)), logger.TraceID(token))
	return nil
}

// InitialTransactionCommit commits tx without per-ref existence
// checks; used only for fresh-repository creation.
func (b *Backend) InitialTransactionCommit(ctx context.Context, tx *refs.Transaction) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, u := range tx.Updates {
			if u.Flags&refs.HaveNew == 0 {
				continue
			}
			if err := txn.Set(refKey(u.Refname), directValue(u.New.String())); err != nil {
				return err
			}
		}
		return nil
	})
}

func verifyAvailableInTxn(txn *badger.Txn, name string, skip map[string]bool) error {
	childPrefix := []byte(name + "/")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = childPrefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(childPrefix); it.ValidForPrefix(childPrefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		if len(key) == 0 || key[len(key)-1] != 0 {
			continue
		}
		child := string(key[:len(key)-1])
		if skip[child] {
			continue
		}
		return refserr.NewNameConflictError(name, child)
	}

	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		ancestor := strings.Join(parts[:i], "/")
		if skip[ancestor] {
			continue
		}
		if _, err := txn.Get(refKey(ancestor)); err == nil {
			return refserr.NewNameConflictError(name, ancestor)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
	}
	return nil
}

func updateFor(tx *refs.Transaction, name string) *refs.Update {
	for _, u := range tx.Updates {
		if u.Refname == name {
			return u
		}
	}
	return nil
}

// autoCreatesReflog reports whether name qualifies for reflog
// auto-creation: HEAD, or refs/{heads,remotes,notes}/....
func autoCreatesReflog(name string) bool {
	if name == "HEAD" {
		return true
	}
	for _, prefix := range []string{"refs/heads/", "refs/remotes/", "refs/notes/"} {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// CreateSymref writes a "ref: <target>" value for name.
func (b *Backend) CreateSymref(ctx context.Context, name, target, message string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(refKey(name), symrefValue(target)); err != nil {
			return refserr.NewLockError(name, err.Error())
		}
		return nil
	})
}

// RenameRef copies oldName's value to newName and deletes oldName,
// inside one transaction.
func (b *Backend) RenameRef(ctx context.Context, oldName, newName, message string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(refKey(oldName))
		if err != nil {
			return refserr.NewNotFoundError(oldName)
		}
		var value []byte
		if err := item.Value(func(v []byte) error {
			value = append([]byte{}, v...)
			return nil
		}); err != nil {
			return err
		}
		if err := txn.Set(refKey(newName), value); err != nil {
			return refserr.NewLockError(newName, err.Error())
		}
		return txn.Delete(refKey(oldName))
	})
}

// DeleteRefs removes every named ref's key inside one transaction.
func (b *Backend) DeleteRefs(ctx context.Context, names []string, message string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, name := range names {
			if err := txn.Delete(refKey(name)); err != nil && err != badger.ErrKeyNotFound {
				return refserr.NewLockError(name, err.Error())
			}
		}
		return nil
	})
}

// PackRefs is a no-op: the KV backend has no loose/packed duality to
// consolidate.
func (b *Backend) PackRefs(ctx context.Context, opts refs.PackRefsOptions) error { return nil }
