package rangecache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/rangeping/internal/addrrange"
	"github.com/HerbHall/rangeping/internal/rangecache"
	"github.com/HerbHall/rangeping/internal/testutil"
)

func newCaches(t *testing.T) map[string]*rangecache.Cache {
	t.Helper()
	kv, err := rangecache.NewSQLiteKV(context.Background(), testutil.NewStore(t))
	require.NoError(t, err)
	return map[string]*rangecache.Cache{
		"sqlite": rangecache.New(kv, testutil.Logger(t)),
		"memory": rangecache.New(rangecache.NewMemoryKV(), nil),
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want, err := addrrange.Parse("10.20.0.0/22", "")
			require.NoError(t, err)

			first, err := c.Resolve(ctx, "library", "10.20.0.0/22", "")
			require.NoError(t, err)
			assert.Equal(t, want, first.Range)
			assert.Equal(t, want.HostCount(), first.HostCount)

			stored, err := c.Lookup(ctx, "library")
			require.NoError(t, err)
			assert.Equal(t, want, stored.Range)
			assert.Equal(t, want.HostCount(), stored.HostCount)
			assert.Equal(t, want.Addresses(), stored.Range.Addresses())
		})
	}
}

func TestResolve_HitIgnoresNewSpec(t *testing.T) {
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := c.Resolve(ctx, "gym", "192.168.7.0", "255.255.255.0")
			require.NoError(t, err)

			// A cached identifier wins over whatever the caller passes now.
			e, err := c.Resolve(ctx, "gym", "", "")
			require.NoError(t, err)
			assert.Equal(t, "192.168.7.0/24", e.Range.CIDR())
		})
	}
}

func TestResolve_MissWithBadInput(t *testing.T) {
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Resolve(context.Background(), "annex", "10.0.0/24", "")
			assert.ErrorIs(t, err, addrrange.ErrInvalidInput)

			_, err = c.Lookup(context.Background(), "annex")
			assert.ErrorIs(t, err, rangecache.ErrNotFound, "failed resolve must not store anything")
		})
	}
}

func TestResolve_EmptyIdentifierNotStored(t *testing.T) {
	kv := rangecache.NewMemoryKV()
	c := rangecache.New(kv, nil)

	e, err := c.Resolve(context.Background(), "", "10.0.0.0/30", "")
	require.NoError(t, err)
	assert.Equal(t, 2, e.HostCount)

	_, err = kv.Get(context.Background(), "")
	assert.ErrorIs(t, err, rangecache.ErrNotFound)
}

func TestSave_EmptyIdentifier(t *testing.T) {
	c := rangecache.New(rangecache.NewMemoryKV(), nil)
	r, _ := addrrange.Parse("10.0.0.0/30", "")

	ok, err := c.Save(context.Background(), "", r, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSave_WriteOnceUnlessOverwrite(t *testing.T) {
	for name, c := range newCaches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, _ := addrrange.Parse("10.0.0.0/24", "")
			second, _ := addrrange.Parse("10.9.0.0/16", "")

			ok, err := c.Save(ctx, "hall", first, false)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = c.Save(ctx, "hall", second, false)
			require.NoError(t, err)
			assert.True(t, ok, "no-op save still reports success")

			e, err := c.Lookup(ctx, "hall")
			require.NoError(t, err)
			assert.Equal(t, first, e.Range)

			ok, err = c.Save(ctx, "hall", second, true)
			require.NoError(t, err)
			assert.True(t, ok)

			e, err = c.Lookup(ctx, "hall")
			require.NoError(t, err)
			assert.Equal(t, second, e.Range)
		})
	}
}

func TestLookup_CorruptEntry(t *testing.T) {
	kv := rangecache.NewMemoryKV()
	c := rangecache.New(kv, nil)
	ctx := context.Background()

	tests := map[string]string{
		"not json":       "[[10,10],",
		"bad host count": `{"intervals":[{"lo":10,"hi":10},{"lo":0,"hi":0},{"lo":0,"hi":0},{"lo":0,"hi":3}],"host_count":4}`,
		"invalid octets": `{"intervals":[{"lo":10,"hi":10},{"lo":0,"hi":0},{"lo":0,"hi":0},{"lo":0,"hi":900}],"host_count":2}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Put(ctx, name, []byte(raw)))
			_, err := c.Lookup(ctx, name)
			require.Error(t, err)
			assert.False(t, errors.Is(err, rangecache.ErrNotFound))
		})
	}
}

func TestSQLiteKV_Keys(t *testing.T) {
	ctx := context.Background()
	kv, err := rangecache.NewSQLiteKV(ctx, testutil.NewStore(t))
	require.NoError(t, err)

	require.NoError(t, kv.Put(ctx, "b", []byte("{}")))
	require.NoError(t, kv.Put(ctx, "a", []byte("{}")))
	require.NoError(t, kv.Put(ctx, "b", []byte(`{"x":1}`)))

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	v, err := kv.Get(ctx, "b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(v))
}
