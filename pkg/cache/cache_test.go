package cache_test

import (
	"bytes"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twhy/react-component-tagger/pkg/cache"
)

func TestLRU_CountEviction(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU(cache.WithMaxEntries[string, int](2))

	c.Put("a", 1)
	c.Put("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_ByteEviction(t *testing.T) {
	t.Parallel()

	size := func(b []byte) int64 { return int64(len(b)) }
	c := cache.NewLRU(cache.WithMaxBytes[string](10, size))

	c.Put("a", make([]byte, 4))
	c.Put("b", make([]byte, 4))
	c.Put("c", make([]byte, 4))

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, int64(8), c.Stats().Bytes)

	c.Put("huge", make([]byte, 11))

	_, ok = c.Get("huge")
	assert.False(t, ok, "values above the limit are not stored")

	c.Put("b", make([]byte, 9))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(9), c.Stats().Bytes)
}

func TestLRU_RemovePurgeStats(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU(cache.WithMaxEntries[int, string](10))

	c.Put(1, "x")
	c.Put(2, "y")
	c.Remove(1)
	c.Remove(42)

	_, ok := c.Get(1)
	assert.False(t, ok)

	_, ok = c.Get(2)
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)

	c.Purge()
	assert.Zero(t, c.Len())
	assert.Zero(t, cache.Stats{}.HitRate())
}

func TestLRU_RequiresLimit(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		cache.NewLRU[string, int]()
	})
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU(cache.WithMaxEntries[string, int](16))

	var wg sync.WaitGroup

	for g := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 200 {
				key := strconv.Itoa((g * i) % 32)
				c.Put(key, i)
				c.Get(key)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}

func TestCompress_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string][]byte{
		"empty":        {},
		"short":        []byte("x"),
		"repetitive":   bytes.Repeat([]byte(` data-component-name="Row"`), 200),
		"incompressed": {0x01, 0xfe, 0x77, 0x13, 0x99},
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			payload := cache.Compress(data)

			got, err := cache.Decompress(payload)
			require.NoError(t, err)
			assert.Equal(t, len(data), len(got))
			assert.True(t, bytes.Equal(data, got))
		})
	}

	repetitive := tests["repetitive"]
	assert.Less(t, len(cache.Compress(repetitive)), len(repetitive)/4)
}

func TestDecompress_Corrupt(t *testing.T) {
	t.Parallel()

	_, err := cache.Decompress([]byte{1, 2})
	require.ErrorIs(t, err, cache.ErrCorruptPayload)

	_, err = cache.Decompress([]byte{100, 0, 0, 0, 0xff, 0xff})
	require.ErrorIs(t, err, cache.ErrCorruptPayload)
}
