package correlator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/chain"
	"poolwatch/internal/domain"
	"poolwatch/internal/metadata"
)

func mintN(n byte) chain.Address {
	var a chain.Address
	a[0] = n + 1
	return a
}

func poolEventFor(mint chain.Address, dex chain.DEXKind) domain.PoolEvent {
	return domain.PoolEvent{
		Kind: domain.NewPool,
		Pool: domain.PoolSnapshot{
			DEX:         dex,
			BaseMint:    mint,
			HasBaseMint: true,
		},
	}
}

type fakeDAS struct {
	name, symbol string
	ok           bool
	calls        int
}

func (f *fakeDAS) FetchAsset(ctx context.Context, mint chain.Address) (string, string, bool) {
	f.calls++
	return f.name, f.symbol, f.ok
}

func TestHandlePoolEventCacheHitForwardsImmediately(t *testing.T) {
	cache := metadata.NewCache(nil)
	mint := mintN(1)
	cache.Put(metadata.Entry{Mint: mint, Name: "Foo", Symbol: "FOO"})

	var forwarded []domain.PoolEvent
	c := New(cache, nil, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })
	c.HandlePoolEvent(poolEventFor(mint, chain.RaydiumAMMv4))

	require.Len(t, forwarded, 1)
	assert.True(t, forwarded[0].HasMetadata)
	assert.Equal(t, "Foo", forwarded[0].TokenName)
	assert.Equal(t, 1.0, c.HitRate())
	assert.Equal(t, 0, c.Pending())
}

func TestHandlePoolEventCacheMissEntersPending(t *testing.T) {
	cache := metadata.NewCache(nil)
	mint := mintN(2)

	var forwarded []domain.PoolEvent
	c := New(cache, nil, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })
	c.HandlePoolEvent(poolEventFor(mint, chain.RaydiumAMMv4))

	assert.Empty(t, forwarded)
	assert.Equal(t, 1, c.Pending())
}

func TestRetryTickResolvesOnCacheArrivalDuringRetry(t *testing.T) {
	cache := metadata.NewCache(nil)
	mint := mintN(3)

	var forwarded []domain.PoolEvent
	c := New(cache, nil, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })
	c.HandlePoolEvent(poolEventFor(mint, chain.RaydiumAMMv4))

	c.RetryTick(context.Background())
	assert.Empty(t, forwarded, "still miss: not cached yet")

	cache.Put(metadata.Entry{Mint: mint, Name: "Bar", Symbol: "BAR"})
	c.RetryTick(context.Background())

	require.Len(t, forwarded, 1)
	assert.Equal(t, "Bar", forwarded[0].TokenName)
	assert.Equal(t, 0, c.Pending())
}

func TestOnMetadataArrivalResolvesPendingImmediately(t *testing.T) {
	cache := metadata.NewCache(nil)
	mint := mintN(4)

	var forwarded []domain.PoolEvent
	c := New(cache, nil, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })
	c.HandlePoolEvent(poolEventFor(mint, chain.RaydiumAMMv4))

	c.OnMetadataArrival(metadata.Entry{Mint: mint, Name: "Baz", Symbol: "BAZ"})

	require.Len(t, forwarded, 1)
	assert.Equal(t, "Baz", forwarded[0].TokenName)
	assert.Equal(t, 0, c.Pending())
}

func TestRetryExhaustionForwardsWithoutMetadataForNonPumpFun(t *testing.T) {
	cache := metadata.NewCache(nil)
	mint := mintN(5)

	var forwarded []domain.PoolEvent
	c := New(cache, nil, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })
	c.HandlePoolEvent(poolEventFor(mint, chain.RaydiumAMMv4))

	for i := 0; i < maxRetries; i++ {
		c.RetryTick(context.Background())
	}

	require.Len(t, forwarded, 1)
	assert.False(t, forwarded[0].HasMetadata)
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, 0.0, c.HitRate())
}

func TestRetryExhaustionUsesDASFallbackForPumpFun(t *testing.T) {
	cache := metadata.NewCache(nil)
	mint := mintN(6)
	das := &fakeDAS{name: "Moon", symbol: "MOON", ok: true}

	var forwarded []domain.PoolEvent
	c := New(cache, das, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })
	c.HandlePoolEvent(poolEventFor(mint, chain.PumpFun))

	for i := 0; i < maxRetries; i++ {
		c.RetryTick(context.Background())
	}

	require.Len(t, forwarded, 1)
	assert.True(t, forwarded[0].HasMetadata)
	assert.Equal(t, "Moon", forwarded[0].TokenName)
	assert.Equal(t, 1, das.calls)

	cached, ok := cache.Get(mint)
	require.True(t, ok)
	assert.Equal(t, "MOON", cached.Symbol)
}

func TestRetryExhaustionDASFailureForwardsWithoutMetadata(t *testing.T) {
	cache := metadata.NewCache(nil)
	mint := mintN(7)
	das := &fakeDAS{ok: false}

	var forwarded []domain.PoolEvent
	c := New(cache, das, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })
	c.HandlePoolEvent(poolEventFor(mint, chain.PumpFun))

	for i := 0; i < maxRetries; i++ {
		c.RetryTick(context.Background())
	}

	require.Len(t, forwarded, 1)
	assert.False(t, forwarded[0].HasMetadata)
	assert.Equal(t, 1, das.calls)
}

func TestPendingCapacityOverflowForwardsWithoutMetadata(t *testing.T) {
	cache := metadata.NewCache(nil)
	var forwarded []domain.PoolEvent
	c := New(cache, nil, func(ev domain.PoolEvent) { forwarded = append(forwarded, ev) })

	for i := 0; i < pendingCapacity; i++ {
		var m chain.Address
		m[0] = byte(i >> 8)
		m[1] = byte(i)
		m[31] = 1
		c.HandlePoolEvent(poolEventFor(m, chain.RaydiumAMMv4))
	}
	require.Equal(t, pendingCapacity, c.Pending())
	require.Empty(t, forwarded)

	var overflow chain.Address
	overflow[31] = 2
	c.HandlePoolEvent(poolEventFor(overflow, chain.RaydiumAMMv4))

	require.Len(t, forwarded, 1)
	assert.False(t, forwarded[0].HasMetadata)
	assert.Equal(t, pendingCapacity, c.Pending())
}
