// Package correlator implements the Metadata Correlator (§4.G): the
// state machine that pairs a PoolEvent with its token metadata, retrying
// against the metadata cache before falling back to a DAS-style HTTP
// lookup and finally forwarding the event regardless. Grounded on the
// teacher's internal/discovery retry-with-ticker shape and on
// internal/metadata.Cache's OnArrival hook for the cache-arrival
// transition.
package correlator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"poolwatch/internal/chain"
	"poolwatch/internal/domain"
	"poolwatch/internal/metadata"
)

// Tuning constants, per §4.G.
const (
	pendingCapacity = 1000
	retryInterval   = 2 * time.Second
	maxRetries      = 5
	dasFetchTimeout = 15 * time.Second
)

// DASFetcher is the secondary metadata lookup issued once per mint, at
// the final retry, for PumpFun events only (§4.G).
type DASFetcher interface {
	FetchAsset(ctx context.Context, mint chain.Address) (name, symbol string, ok bool)
}

// MetadataCache is the subset of *metadata.Cache the correlator needs;
// declared locally so correlator depends only on the shape it uses.
type MetadataCache interface {
	Get(mint chain.Address) (metadata.Entry, bool)
	Put(e metadata.Entry)
}

type pendingEntry struct {
	event   domain.PoolEvent
	retries int
}

// Correlator is state machine A/B from §4.G. Construction wires it to a
// metadata cache, an optional DAS fetcher, and the downstream emit
// function feeding the Emission Pipeline (§4.H).
type Correlator struct {
	mu      sync.Mutex
	pending map[chain.Address]*pendingEntry

	cache MetadataCache
	das   DASFetcher
	emit  func(domain.PoolEvent)

	hits   atomic.Int64
	misses atomic.Int64
}

// New constructs a Correlator. das may be nil: PumpFun events then skip
// straight to the forward-without-metadata path at retries==5.
func New(cache MetadataCache, das DASFetcher, emit func(domain.PoolEvent)) *Correlator {
	return &Correlator{
		pending: make(map[chain.Address]*pendingEntry),
		cache:   cache,
		das:     das,
		emit:    emit,
	}
}

// HandlePoolEvent is state A: look up the cache immediately, and on miss
// enter state B (buffered, to be retried by RetryTick).
func (c *Correlator) HandlePoolEvent(ev domain.PoolEvent) {
	mint := ev.Pool.BaseMint
	if e, ok := c.cache.Get(mint); ok {
		c.hits.Add(1)
		c.forward(ev, e)
		return
	}

	c.mu.Lock()
	if len(c.pending) >= pendingCapacity {
		c.mu.Unlock()
		c.emit(ev) // capacity drop: forward with no metadata, per §4.G
		return
	}
	c.pending[mint] = &pendingEntry{event: ev}
	c.mu.Unlock()
}

// Start runs RetryTick on the §4.G 2-second cadence until ctx is
// cancelled.
func (c *Correlator) Start(ctx context.Context) {
	ticker := time.NewTicker(retryInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RetryTick(ctx)
			}
		}
	}()
}

// RetryTick re-checks every pending mint against the cache, and drives
// each entry's retry count; exposed directly (not only via Start) so
// tests can drive retries without waiting on a real ticker.
func (c *Correlator) RetryTick(ctx context.Context) {
	c.mu.Lock()
	mints := make([]chain.Address, 0, len(c.pending))
	for m := range c.pending {
		mints = append(mints, m)
	}
	c.mu.Unlock()

	for _, mint := range mints {
		c.retryOne(ctx, mint)
	}
}

func (c *Correlator) retryOne(ctx context.Context, mint chain.Address) {
	c.mu.Lock()
	entry, ok := c.pending[mint]
	c.mu.Unlock()
	if !ok {
		return
	}

	if e, hit := c.cache.Get(mint); hit {
		c.removePending(mint)
		c.hits.Add(1)
		c.forward(entry.event, e)
		return
	}

	entry.retries++
	if entry.retries < maxRetries {
		return
	}

	if entry.event.Pool.DEX == chain.PumpFun && c.das != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, dasFetchTimeout)
		name, symbol, ok := c.das.FetchAsset(fetchCtx, mint)
		cancel()
		if ok {
			e := metadata.Entry{Mint: mint, Name: name, Symbol: symbol, CachedAt: time.Now().UnixMilli()}
			c.cache.Put(e)
			c.removePending(mint)
			c.hits.Add(1)
			c.forward(entry.event, e)
			return
		}
	}

	c.removePending(mint)
	c.misses.Add(1)
	c.emit(entry.event)
}

// OnMetadataArrival is registered as the metadata cache's OnArrival
// callback: the cache-arrival transition of §4.G.
func (c *Correlator) OnMetadataArrival(e metadata.Entry) {
	c.mu.Lock()
	entry, ok := c.pending[e.Mint]
	if ok {
		delete(c.pending, e.Mint)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	c.hits.Add(1)
	c.forward(entry.event, e)
}

func (c *Correlator) removePending(mint chain.Address) {
	c.mu.Lock()
	delete(c.pending, mint)
	c.mu.Unlock()
}

func (c *Correlator) forward(ev domain.PoolEvent, e metadata.Entry) {
	ev.TokenName = e.Name
	ev.TokenSymbol = e.Symbol
	ev.HasMetadata = true
	c.emit(ev)
}

// HitRate reports hits/(hits+misses), per §4.G's telemetry contract.
func (c *Correlator) HitRate() float64 {
	h, m := c.hits.Load(), c.misses.Load()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

// Pending reports the current number of buffered mints, for metrics.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
