// Package kvbackend implements the reference store's ordered
// key-value engine (C7) on top of badger. Badger's own MVCC
// transactions supply the "one writer at a time, snapshot reads"
// contract the design calls for directly, so no process-wide
// transaction slot is needed.
package kvbackend

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/marmos91/refstore/internal/refs"
)

// Backend is the KV-backed reference store engine (C7).
type Backend struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger store at dir.
func Open(dir string) (*Backend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Name() string { return "kv" }

// InitDB is a no-op: Open already creates empty storage.
func (b *Backend) InitDB(ctx context.Context) error { return nil }

// Close releases the underlying store.
func (b *Backend) Close() error { return b.db.Close() }

// newEpochToken returns a fresh identifier that each KV commit logs as
// the trace_id of its commit-complete line (the files backend's commit
// does not carry it); it plays the role the source's "commands run"
// counter plays for snapshot staleness detection, but purely for
// observability since badger's own MVCC already guards staleness.
func newEpochToken() string { return uuid.NewString() }

var _ refs.Backend = (*Backend)(nil)
