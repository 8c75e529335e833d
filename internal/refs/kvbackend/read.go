package kvbackend

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

func decodeValue(raw []byte) (refs.RawRef, error) {
	s := strings.TrimSuffix(string(raw), "\x00")
	if target, ok := strings.CutPrefix(s, "ref: "); ok {
		return refs.RawRef{Symref: target, Flags: refs.IsSymref}, nil
	}
	o, err := oid.Parse(s)
	if err != nil {
		return refs.RawRef{Flags: refs.IsBroken}, nil
	}
	return refs.RawRef{OID: o}, nil
}

// ReadRawRef performs a single-hop, unresolved read within its own
// read-only badger transaction.
func (b *Backend) ReadRawRef(ctx context.Context, name string) (refs.RawRef, error) {
	var result refs.RawRef
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(refKey(name))
		if err == badger.ErrKeyNotFound {
			return refserr.NewNotFoundError(name)
		}
		if err != nil {
			return refserr.NewBrokenError(name, err.Error())
		}
		return item.Value(func(v []byte) error {
			decoded, derr := decodeValue(v)
			result = decoded
			return derr
		})
	})
	return result, err
}

// PeelRef returns name's direct OID; the KV backend stores no separate
// peeled annotation. A symbolic ref is not followed: its result is the
// null OID.
func (b *Backend) PeelRef(ctx context.Context, name string) (oid.OID, error) {
	raw, err := b.ReadRawRef(ctx, name)
	if err != nil {
		return oid.Null, err
	}
	return raw.OID, nil
}

// ResolveGitlinkRef always fails with a GenericError: the KV backend
// opens no submodule store and does not resolve refs inside one.
func (b *Backend) ResolveGitlinkRef(ctx context.Context, submodule, name string) (oid.OID, error) {
	return oid.Null, refserr.NewGenericError(name, "kv backend submodule resolution requires an explicit submodule store handle")
}

// DoForEachRef walks every ref key in lexicographic order, skipping
// the "logs/" reflog keyspace.
func (b *Backend) DoForEachRef(ctx context.Context, prefix string, trim int, flags refs.ResolveFlags, fn func(refs.RefEntry) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if len(key) == 0 || key[len(key)-1] != 0 {
				continue
			}
			name := string(key[:len(key)-1])
			if strings.HasPrefix(name, "logs/") {
				continue
			}

			var raw refs.RawRef
			if err := item.Value(func(v []byte) error {
				decoded, derr := decodeValue(v)
				raw = decoded
				return derr
			}); err != nil {
				continue
			}
			if raw.Flags&refs.IsBroken != 0 && flags&refs.IncludeBroken == 0 {
				continue
			}

			trimmed := name
			if trim > 0 && trim <= len(name) {
				trimmed = name[trim:]
			}
			if err := fn(refs.RefEntry{Refname: trimmed, OID: raw.OID, Flags: raw.Flags}); err != nil {
				return err
			}
		}
		return nil
	})
}

// VerifyRefnameAvailable checks for a directory/file style conflict:
// any existing key under "<name>/" or any existing ancestor
// "<prefix>\0" of name.
func (b *Backend) VerifyRefnameAvailable(ctx context.Context, name string, skip map[string]bool) error {
	return b.db.View(func(txn *badger.Txn) error {
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
	})
}
