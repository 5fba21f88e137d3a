package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/chain"
)

func mintN(n byte) chain.Address {
	var a chain.Address
	a[0] = n + 1
	return a
}

func TestCachePutGet(t *testing.T) {
	c := NewCache(nil)
	c.Put(Entry{Mint: mintN(1), Name: "A", Symbol: "AAA", CachedAt: 1})
	e, ok := c.Get(mintN(1))
	require.True(t, ok)
	assert.Equal(t, "A", e.Name)
	assert.Equal(t, 1, c.Len())
}

func addrFromIndex(i int) chain.Address {
	var a chain.Address
	a[0] = byte(i >> 16)
	a[1] = byte(i >> 8)
	a[2] = byte(i)
	a[31] = 1 // avoid the all-zero sentinel
	return a
}

func TestCacheEvictsOldestOnOverflow(t *testing.T) {
	c := NewCache(nil)
	first := addrFromIndex(0)
	c.Put(Entry{Mint: first, Name: "oldest"})
	for i := 1; i <= MaxCacheEntries; i++ {
		c.Put(Entry{Mint: addrFromIndex(i), Name: "x"})
	}
	assert.Equal(t, MaxCacheEntries, c.Len())
	_, ok := c.Get(first)
	assert.False(t, ok, "oldest entry must be evicted once capacity is exceeded")
}

func TestCacheNotifiesOnArrival(t *testing.T) {
	var notified []chain.Address
	c := NewCache(func(e Entry) {
		notified = append(notified, e.Mint)
	})
	c.Put(Entry{Mint: mintN(2), Name: "B"})
	require.Len(t, notified, 1)
	assert.Equal(t, mintN(2), notified[0])
}

func TestCacheMissReturnsFalse(t *testing.T) {
	c := NewCache(nil)
	_, ok := c.Get(mintN(99))
	assert.False(t, ok)
}
