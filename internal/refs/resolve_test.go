package refs

import (
	"context"
	"testing"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs/refserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDirectRef(t *testing.T) {
	b := newMemBackend("files")
	want := oid.MustParse("356a192b7913b04c54574d18c28d46e6395428ab")
	b.refs["refs/heads/main"] = "oid:" + want.String()

	r, err := Resolve(context.Background(), b, "refs/heads/main", Reading)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", r.Name)
	assert.Equal(t, want, r.OID)
}

func TestResolveFollowsSymref(t *testing.T) {
	b := newMemBackend("files")
	want := oid.MustParse("2aae6c35c94fcfb415dbe95f408b9ce91ee846ed")
	b.refs["refs/heads/main"] = "oid:" + want.String()
	b.refs["HEAD"] = "ref:refs/heads/main"

	r, err := Resolve(context.Background(), b, "HEAD", 0)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", r.Name)
	assert.Equal(t, want, r.OID)
	assert.Zero(t, r.Flags&IsSymref)
}

func TestResolveNoRecurseStopsAtFirstHop(t *testing.T) {
	b := newMemBackend("files")
	b.refs["refs/heads/main"] = "oid:" + oid.MustParse("2aae6c35c94fcfb415dbe95f408b9ce91ee846ed").String()
	b.refs["HEAD"] = "ref:refs/heads/main"

	r, err := Resolve(context.Background(), b, "HEAD", NoRecurse)
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", r.Name)
	assert.True(t, r.OID.IsNull())
	assert.NotZero(t, r.Flags&IsSymref)
}

func TestResolveCycleFails(t *testing.T) {
	b := newMemBackend("files")
	b.refs["refs/heads/a"] = "ref:refs/heads/b"
	b.refs["refs/heads/b"] = "ref:refs/heads/a"

	_, err := Resolve(context.Background(), b, "refs/heads/a", 0)
	require.Error(t, err)
	assert.True(t, refserr.IsTooDeep(err))
}

func TestResolveReadingMissingLeafFails(t *testing.T) {
	b := newMemBackend("files")
	_, err := Resolve(context.Background(), b, "refs/heads/missing", Reading)
	require.Error(t, err)
	assert.True(t, refserr.IsNotFound(err))
}

func TestResolveMissingLeafWithoutReadingReturnsZero(t *testing.T) {
	b := newMemBackend("files")
	r, err := Resolve(context.Background(), b, "refs/heads/missing", 0)
	require.NoError(t, err)
	assert.True(t, r.OID.IsNull())
}
