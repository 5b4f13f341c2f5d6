package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBadger(t *testing.T) (*Badger, *fakeClock) {
	t.Helper()
	b, err := OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	clock := newFakeClock()
	b.now = clock.Now
	return b, clock
}

func TestBadger_RoundTrip(t *testing.T) {
	b, _ := openTestBadger(t)
	ctx := context.Background()
	key := Key("B0ABCDEFGH")

	e, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, e)

	require.NoError(t, b.Put(ctx, key, sampleListing("B0ABCDEFGH"), DefaultTTL))

	e, err = b.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, key, e.Key)
	assert.Equal(t, "B0ABCDEFGH", e.Listing.ProductID)
	assert.Equal(t, []string{"Quiet clicks"}, e.Listing.Bullets)
	assert.Equal(t, DefaultTTL, e.TTL)
}

func TestBadger_StoredAtExpiry(t *testing.T) {
	b, clock := openTestBadger(t)
	ctx := context.Background()
	key := Key("B0ABCDEFGH")

	require.NoError(t, b.Put(ctx, key, sampleListing("B0ABCDEFGH"), time.Hour))

	clock.Advance(time.Hour - time.Second)
	e, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, e)

	clock.Advance(2 * time.Second)
	e, err = b.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestBadger_InvalidPayloadIsMiss(t *testing.T) {
	b, _ := openTestBadger(t)
	ctx := context.Background()
	key := Key("B0ABCDEFGH")

	raw := []byte(`{"stored_at":"2026-03-01T12:00:00Z","ttl_seconds":3600,"listing":{"title":"no id"}}`)
	require.NoError(t, b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(listingPrefix+key), raw)
	}))

	e, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestBadger_InvalidateAndClear(t *testing.T) {
	b, _ := openTestBadger(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, Key("B0AAAAAAAA"), sampleListing("B0AAAAAAAA"), time.Hour))
	require.NoError(t, b.Put(ctx, Key("B0BBBBBBBB"), sampleListing("B0BBBBBBBB"), time.Hour))

	require.NoError(t, b.Invalidate(ctx, Key("B0AAAAAAAA")))
	e, err := b.Get(ctx, Key("B0AAAAAAAA"))
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = b.Get(ctx, Key("B0BBBBBBBB"))
	require.NoError(t, err)
	assert.NotNil(t, e)

	require.NoError(t, b.ClearAll(ctx))
	e, err = b.Get(ctx, Key("B0BBBBBBBB"))
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestBadger_CollectGarbage(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		b, _ := openTestBadger(t)
		assert.NoError(t, b.CollectGarbage())
	})

	t.Run("on disk", func(t *testing.T) {
		b, err := OpenBadger(t.TempDir(), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })

		require.NoError(t, b.Put(context.Background(), Key("B0ABCDEFGH"), sampleListing("B0ABCDEFGH"), time.Hour))
		assert.NoError(t, b.CollectGarbage())
	})
}
