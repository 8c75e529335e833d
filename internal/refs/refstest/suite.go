// Package refstest holds a backend-agnostic conformance suite exercised
// against every storage engine from one shared table of cases.
package refstest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// BackendFactory creates a fresh, initialized Backend for a single test.
// Implementations should use t.TempDir() for on-disk state and
// t.Cleanup() to release it.
type BackendFactory func(t *testing.T) refs.Backend

var oidA = mustOID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
var oidB = mustOID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
var oidC = mustOID("cccccccccccccccccccccccccccccccccccccccc")

func mustOID(s string) oid.OID {
	o, err := oid.Parse(s)
	if err != nil {
		panic(err)
	}
	return o
}

// RunConformanceSuite runs every test in this package against factory.
// Each subtest gets a fresh backend instance to keep tests isolated.
func RunConformanceSuite(t *testing.T, factory BackendFactory) {
	t.Helper()

	t.Run("CreateAndRead", func(t *testing.T) { testCreateAndRead(t, factory) })
	t.Run("CASRejectsStaleOld", func(t *testing.T) { testCASRejectsStaleOld(t, factory) })
	t.Run("NameConflict", func(t *testing.T) { testNameConflict(t, factory) })
	t.Run("SymrefResolution", func(t *testing.T) { testSymrefResolution(t, factory) })
	t.Run("RenameRef", func(t *testing.T) { testRenameRef(t, factory) })
	t.Run("DeleteRef", func(t *testing.T) { testDeleteRef(t, factory) })
	t.Run("ReflogAppendAndExpire", func(t *testing.T) { testReflogAppendAndExpire(t, factory) })
	t.Run("ForEachRefOrderingAndTrim", func(t *testing.T) { testForEachRefOrderingAndTrim(t, factory) })
	t.Run("PackRefsPreservesValue", func(t *testing.T) { testPackRefsPreservesValue(t, factory) })
}

func testCreateAndRead(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/main", oidA, 0, "create main"))
	_, err := refs.NewCoordinator(b).Commit(ctx, tx)
	require.NoError(t, err)

	raw, err := b.ReadRawRef(ctx, "refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, oidA, raw.OID)
	require.Empty(t, raw.Symref)
}

func testCASRejectsStaleOld(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/main", oidA, 0, "create"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	stale := oidB
	tx2 := refs.Begin(b)
	require.NoError(t, tx2.Update("refs/heads/main", &oidC, &stale, refs.HaveNew|refs.HaveOld, "should fail"))
	_, err = coord.Commit(ctx, tx2)
	require.Error(t, err)

	raw, err := b.ReadRawRef(ctx, "refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, oidA, raw.OID, "a failed CAS must leave the ref unchanged")
}

func testNameConflict(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/feature", oidA, 0, "create"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	tx2 := refs.Begin(b)
	require.NoError(t, tx2.Create("refs/heads/feature/sub", oidB, 0, "conflicts"))
	_, err = coord.Commit(ctx, tx2)
	require.Error(t, err)
	require.True(t, refserr.IsNameConflict(err))
}

func testSymrefResolution(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/main", oidA, 0, "create"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	require.NoError(t, b.CreateSymref(ctx, "HEAD", "refs/heads/main", "point HEAD at main"))

	resolved, err := refs.Resolve(ctx, b, "HEAD", refs.Reading)
	require.NoError(t, err)
	require.Equal(t, "refs/heads/main", resolved.Name)
	require.Equal(t, oidA, resolved.OID)

	shallow, err := refs.Resolve(ctx, b, "HEAD", refs.Reading|refs.NoRecurse)
	require.NoError(t, err)
	require.NotZero(t, shallow.Flags&refs.IsSymref)
}

func testRenameRef(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/old", oidA, 0, "create"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	require.NoError(t, b.RenameRef(ctx, "refs/heads/old", "refs/heads/new", "rename"))

	_, err = b.ReadRawRef(ctx, "refs/heads/old")
	require.True(t, refserr.IsNotFound(err))

	raw, err := b.ReadRawRef(ctx, "refs/heads/new")
	require.NoError(t, err)
	require.Equal(t, oidA, raw.OID)
}

func testDeleteRef(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/gone", oidA, 0, "create"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	require.NoError(t, b.DeleteRefs(ctx, []string{"refs/heads/gone"}, "delete"))

	_, err = b.ReadRawRef(ctx, "refs/heads/gone")
	require.True(t, refserr.IsNotFound(err))
}

func testReflogAppendAndExpire(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/main", oidA, 0, "first"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	tx2 := refs.Begin(b)
	require.NoError(t, tx2.Update("refs/heads/main", &oidB, &oidA, refs.HaveNew|refs.HaveOld, "second"))
	_, err = coord.Commit(ctx, tx2)
	require.NoError(t, err)

	var entries []refs.ReflogEntry
	require.NoError(t, b.ForEachReflogEnt(ctx, "refs/heads/main", func(e refs.ReflogEntry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 2)

	require.NoError(t, b.ReflogExpire(ctx, "refs/heads/main", refs.ExpireOptions{
		Keep: func(e refs.ReflogEntry) bool { return e.Message == "second" },
	}))

	var remaining []refs.ReflogEntry
	require.NoError(t, b.ForEachReflogEnt(ctx, "refs/heads/main", func(e refs.ReflogEntry) error {
		remaining = append(remaining, e)
		return nil
	}))
	require.Len(t, remaining, 1)
	require.Equal(t, "second", remaining[0].Message)
}

func testForEachRefOrderingAndTrim(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/a", oidA, 0, "a"))
	require.NoError(t, tx.Create("refs/heads/b", oidB, 0, "b"))
	require.NoError(t, tx.Create("refs/tags/v1", oidC, 0, "v1"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	var names []string
	err = refs.ForEachRef(ctx, b, "refs/heads/", len("refs/heads/"), 0, func(e refs.RefEntry) error {
		names = append(names, e.Refname)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, names)
}

func testPackRefsPreservesValue(t *testing.T, factory BackendFactory) {
	b := factory(t)
	ctx := context.Background()
	coord := refs.NewCoordinator(b)

	tx := refs.Begin(b)
	require.NoError(t, tx.Create("refs/heads/main", oidA, 0, "create"))
	_, err := coord.Commit(ctx, tx)
	require.NoError(t, err)

	require.NoError(t, b.PackRefs(ctx, refs.PackRefsOptions{AllRefs: true, Prune: true}))

	raw, err := b.ReadRawRef(ctx, "refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, oidA, raw.OID)
}
