package kvbackend

import (
	"context"
	"testing"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestCreateThenRead(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	want := oid.MustParse("356a192b7913b04c54574d18c28d46e6395428ab")

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/main", want, 0, "create"))
	require.NoError(t, b.TransactionCommit(ctx, tx, []string{"refs/heads/main"}))

	raw, err := b.ReadRawRef(ctx, "refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, want, raw.OID)
}

func TestCASFailure(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	aa := oid.MustParse("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bb := oid.MustParse("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	cc := oid.MustParse("cccccccccccccccccccccccccccccccccccccccc")

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/r", aa, 0, ""))
	require.NoError(t, b.TransactionCommit(ctx, tx, []string{"refs/heads/r"}))

	tx2 := refs.Begin(b)
	require.NoError(t, tx2.Update("refs/heads/r", &bb, &cc, refs.HaveNew|refs.HaveOld, ""))
	err := b.TransactionCommit(ctx, tx2, []string{"refs/heads/r"})
	assert.Error(t, err)
	assert.True(t, refserr.IsLockError(err))
}

func TestNameConflict(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	o := oid.MustParse("356a192b7913b04c54574d18c28d46e6395428ab")

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/foo", o, 0, ""))
	require.NoError(t, b.TransactionCommit(ctx, tx, []string{"refs/foo"}))

	tx2 := refs.Begin(b)
	require.NoError(t, tx2.Create("refs/foo/bar", o, 0, ""))
	err := b.TransactionCommit(ctx, tx2, []string{"refs/foo/bar"})
	assert.Error(t, err)
	assert.True(t, refserr.IsNameConflict(err))
}

func TestCreateReflogAndRename(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	dd := oid.MustParse("dddddddddddddddddddddddddddddddddddddddd")
	ee := oid.MustParse("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/r", ee, 0, "first"))
	require.NoError(t, tx.Update("refs/heads/r", &dd, &ee, refs.HaveNew|refs.HaveOld, "second"))
	require.NoError(t, b.InitialTransactionCommit(ctx, tx))

	require.NoError(t, b.CreateReflog(ctx, "refs/heads/r"))
	exists, err := b.ReflogExists(ctx, "refs/heads/r")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, b.RenameRef(ctx, "refs/heads/r", "refs/heads/renamed", ""))
	raw, err := b.ReadRawRef(ctx, "refs/heads/renamed")
	require.NoError(t, err)
	assert.Equal(t, dd, raw.OID)

	_, err = b.ReadRawRef(ctx, "refs/heads/r")
	assert.True(t, refserr.IsNotFound(err))
}

func TestDeleteRefs(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	o := oid.MustParse("356a192b7913b04c54574d18c28d46e6395428ab")

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/tags/v1", o, 0, ""))
	require.NoError(t, b.InitialTransactionCommit(ctx, tx))

	require.NoError(t, b.DeleteRefs(ctx, []string{"refs/tags/v1"}, "delete"))
	_, err := b.ReadRawRef(ctx, "refs/tags/v1")
	assert.True(t, refserr.IsNotFound(err))
}

func TestIterateSkipsReflogKeyspace(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	o := oid.MustParse("356a192b7913b04c54574d18c28d46e6395428ab")

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/main", o, 0, ""))
	require.NoError(t, b.InitialTransactionCommit(ctx, tx))
	require.NoError(t, b.CreateReflog(ctx, "refs/heads/main"))

	var names []string
	err := b.DoForEachRef(ctx, "", 0, 0, func(e refs.RefEntry) error {
		names = append(names, e.Refname)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"refs/heads/main"}, names)
}
