package kvbackend

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

func appendReflogInTxn(txn *badger.Txn, name string, u *refs.Update) error {
	if _, err := txn.Get(reflogHeaderKey(name)); err == badger.ErrKeyNotFound {
		if err := txn.Set(reflogHeaderKey(name), nil); err != nil {
			return err
		}
	}

	entry := refs.ReflogEntry{
		Old:      u.Old,
		New:      u.New,
		Identity: "refstore <refstore@localhost>",
		Time:     time.Now().Unix(),
		TZOffset: localTZOffsetMinutes(),
		Message:  u.Message,
	}
	encoded := append([]byte(refs.EncodeReflogEntry(entry)), 0)
	key := reflogEntryKey(name, time.Now().UnixNano())
	if err := txn.Set(key, encoded); err != nil {
		return refserr.NewLockError(name, err.Error())
	}
	return nil
}

func localTZOffsetMinutes() int {
	_, offset := time.Now().Zone()
	return offset / 60
}

// ReflogExists reports whether name's reflog header key is present.
func (b *Backend) ReflogExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(reflogHeaderKey(name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// CreateReflog writes the header key for name if absent.
func (b *Backend) CreateReflog(ctx context.Context, name string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reflogHeaderKey(name), nil)
	})
}

// DeleteReflog removes the header key and every entry key for name.
func (b *Backend) DeleteReflog(ctx context.Context, name string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		prefix := reflogPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Backend) readReflogEntries(name string) ([]refs.ReflogEntry, error) {
	var entries []refs.ReflogEntry
	err := b.db.View(func(txn *badger.Txn) error {
		header := reflogHeaderKey(name)
		prefix := reflogPrefix(name)
		end := reflogEntryExclusiveEnd(name)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if string(key) == string(header) {
				continue
			}
			if string(key) >= string(end) {
				break
			}
			if err := item.Value(func(v []byte) error {
				line := string(v)
				if len(line) > 0 && line[len(line)-1] == 0 {
					line = line[:len(line)-1]
				}
				entry, derr := refs.DecodeReflogEntry(line)
				if derr != nil {
					return nil
				}
				entries = append(entries, entry)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

// ForEachReflogEnt iterates name's entries in chronological (key) order.
func (b *Backend) ForEachReflogEnt(ctx context.Context, name string, fn refs.ReflogEntryFunc) error {
	entries, err := b.readReflogEntries(name)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// ForEachReflogEntReverse iterates name's entries newest-first.
func (b *Backend) ForEachReflogEntReverse(ctx context.Context, name string, fn refs.ReflogEntryFunc) error {
	entries, err := b.readReflogEntries(name)
	if err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if err := fn(entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReflogExpire range-scans name's entries, deletes every key whose
// entry does not satisfy opts.Keep, and optionally updates the ref to
// the last surviving entry's new value.
func (b *Backend) ReflogExpire(ctx context.Context, name string, opts refs.ExpireOptions) error {
	return b.db.Update(func(txn *badger.Txn) error {
		prefix := reflogPrefix(name)
		header := reflogHeaderKey(name)

		opts2 := badger.DefaultIteratorOptions
		opts2.Prefix = prefix
		it := txn.NewIterator(opts2)

		var toDelete [][]byte
		var lastKept *refs.ReflogEntry

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if string(key) == string(header) {
				continue
			}
			var entry refs.ReflogEntry
			var decodeErr error
			verr := item.Value(func(v []byte) error {
				line := string(v)
				if len(line) > 0 && line[len(line)-1] == 0 {
					line = line[:len(line)-1]
				}
				entry, decodeErr = refs.DecodeReflogEntry(line)
				return nil
			})
			if verr != nil {
				it.Close()
				return verr
			}
			if decodeErr != nil {
				continue
			}
			if opts.Keep == nil || opts.Keep(entry) {
				e := entry
				lastKept = &e
			} else {
				toDelete = append(toDelete, key)
			}
		}
		it.Close()

		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		if opts.UpdateRef && lastKept != nil {
			item, err := txn.Get(refKey(name))
			if err == nil {
				var raw refs.RawRef
				if verr := item.Value(func(v []byte) error {
					decoded, derr := decodeValue(v)
					raw = decoded
					return derr
				}); verr == nil && raw.Symref == "" {
					if err := txn.Set(refKey(name), directValue(lastKept.New.String())); err != nil {
						return refserr.NewLockError(name, err.Error())
					}
				}
			}
		}
		return nil
	})
}
