// Package tracker implements the Pool Tracker (§4.F): dedup, launchpad
// mint registration, graduation detection, vault subscription and
// balance tracking, and position-tracking mode. Grounded on the
// teacher's internal/discovery package for the decode-then-classify
// shape, and on internal/solana/ws_client.go's mutex-guarded-map idiom
// (reused here via dedup.go/bounded.go) for every bounded cache.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"poolwatch/internal/chain"
	"poolwatch/internal/decoder"
	"poolwatch/internal/domain"
	"poolwatch/internal/streampb"
)

// pendingBondingCurveTTL is how long an observed-but-unmapped bonding
// curve account is buffered before being discarded (§4.F / Scenario 3).
const pendingBondingCurveTTL = 30 * time.Second

// priceChangeThreshold is the minimum relative price move that triggers
// a PriceUpdate in position-tracking mode (§4.F).
const priceChangeThreshold = 0.001

// VaultSubscriber is the subset of the Subscription Manager's API the
// tracker needs: issuing additive, named subscriptions. Declared as an
// interface here (not imported from internal/stream) so the tracker
// never depends on the stream package's connection machinery.
type VaultSubscriber interface {
	SubscribeAdditional(key string, filter streampb.AccountFilter) error
}

type pendingCurve struct {
	snapshot  domain.PoolSnapshot
	arrivedAt time.Time
}

type positionEntry struct {
	tokenAddress chain.Address
	dex          chain.DEXKind
	lastPrice    float64
}

// Tracker holds all of §4.F's process-wide state as fields on a single
// value (§9: "never globals; construction creates them, stop() clears
// them").
type Tracker struct {
	dedup       *dedupSet
	graduations *graduationMap
	vaults      *vaultMap

	launchpadMu sync.Mutex
	launchpad   map[chain.Address]chain.Address // bondingCurve -> mint

	pendingMu sync.Mutex
	pending   map[chain.Address]pendingCurve // bondingCurve -> buffered snapshot

	poolsMu sync.Mutex
	pools   map[chain.Address]domain.PoolSnapshot // poolAddress -> latest snapshot

	positionsMu sync.Mutex
	positions   map[chain.Address]positionEntry

	subscriber VaultSubscriber
	emit       func(domain.PoolEvent)
	now        func() time.Time
}

// New constructs a Tracker. emit is called once per event that should
// proceed to the Metadata Correlator (§4.G); subscriber may be nil in
// tests that don't exercise vault/position subscriptions.
func New(subscriber VaultSubscriber, emit func(domain.PoolEvent)) *Tracker {
	return &Tracker{
		dedup:       newDedupSet(),
		graduations: newGraduationMap(time.Now),
		vaults:      newVaultMap(),
		launchpad:   make(map[chain.Address]chain.Address),
		pending:     make(map[chain.Address]pendingCurve),
		pools:       make(map[chain.Address]domain.PoolSnapshot),
		positions:   make(map[chain.Address]positionEntry),
		subscriber:  subscriber,
		emit:        emit,
		now:         time.Now,
	}
}

// WithClock overrides the tracker's time source, for deterministic tests
// (matches the teacher's WithClock idiom in internal/pipeline/phase1.go).
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.now = clock
	t.graduations = newGraduationMap(clock)
	return t
}

// HandlePoolUpdate is registered as stream.Handlers.OnPoolUpdate. It
// decodes the raw update and routes it through dedup, graduation
// detection, and (for PumpFun) the bonding-curve-to-mint mapping.
func (t *Tracker) HandlePoolUpdate(dex chain.DEXKind, update streampb.AccountUpdate) {
	var pool chain.Address
	copy(pool[:], update.Pubkey)

	snap, ok := decoder.Decode(dex, pool, update.Slot, t.now().UnixMilli(), update.Data)
	if !ok {
		return
	}

	if dex == chain.PumpFun {
		t.handleBondingCurve(pool, snap)
		return
	}

	t.storeSnapshot(pool, snap)
	t.requestVaultSubscriptions(pool, snap)

	// Graduation (§4.F) is specifically a PumpFun-bonding-curve mint
	// landing on an AMM Raydium pool, not any AMM venue.
	if snap.HasBaseMint && (dex == chain.RaydiumCPMM || dex == chain.RaydiumAMMv4) {
		if firstSeen, graduated := t.graduations.Consume(snap.BaseMint); graduated {
			key := domain.DedupKey{DEX: snap.DEX, BaseMint: snap.BaseMint, QuoteMint: snap.QuoteMint}
			t.dedup.SeenOrMark(key) // graduation implies the pool is no longer "new"
			t.emitEvent(domain.PoolEvent{
				Kind:                   domain.Graduation,
				Pool:                   snap,
				GraduatedFrom:          chain.PumpFun,
				HasGraduatedFrom:       true,
				BondingCurveDurationMs: uint64(t.now().Sub(firstSeen).Milliseconds()),
			})
			return
		}
	}

	t.emitIfNew(snap)
}

// HandleToken2022Update is registered as stream.Handlers.OnToken2022Update.
// The account itself is the mint; its address derives the bonding-curve
// PDA that the launchpad's pool account is keyed by (§4.F, §4.A "Launchpad
// note").
func (t *Tracker) HandleToken2022Update(update streampb.AccountUpdate) {
	var mint chain.Address
	copy(mint[:], update.Pubkey)
	if !chain.IsValidMint(mint) {
		return
	}

	bondingCurve, err := chain.BondingCurvePDA(mint, chain.PumpFunProgram)
	if err != nil {
		return
	}

	t.launchpadMu.Lock()
	t.launchpad[bondingCurve] = mint
	t.launchpadMu.Unlock()

	t.graduations.Register(mint)

	t.pendingMu.Lock()
	pc, ok := t.pending[bondingCurve]
	if ok {
		delete(t.pending, bondingCurve)
	}
	t.pendingMu.Unlock()
	if !ok || t.now().Sub(pc.arrivedAt) > pendingBondingCurveTTL {
		return
	}

	completed := pc.snapshot
	completed.BaseMint = mint
	completed.HasBaseMint = true
	t.emitIfNew(completed)
}

func (t *Tracker) handleBondingCurve(pool chain.Address, snap domain.PoolSnapshot) {
	t.launchpadMu.Lock()
	mint, ok := t.launchpad[pool]
	t.launchpadMu.Unlock()

	if !ok {
		t.pendingMu.Lock()
		t.pending[pool] = pendingCurve{snapshot: snap, arrivedAt: t.now()}
		t.pendingMu.Unlock()
		return
	}

	snap.BaseMint = mint
	snap.HasBaseMint = true
	t.emitIfNew(snap)
}

// PrunePending discards bonding-curve snapshots that have been waiting
// longer than pendingBondingCurveTTL with no matching mint (Scenario 3).
// Callers invoke this on a ticker; it is not run automatically so tests
// can simulate time without a background goroutine.
func (t *Tracker) PrunePending() {
	cutoff := t.now().Add(-pendingBondingCurveTTL)
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	for k, v := range t.pending {
		if v.arrivedAt.Before(cutoff) {
			delete(t.pending, k)
		}
	}
}

func (t *Tracker) emitIfNew(snap domain.PoolSnapshot) {
	if !snap.HasBaseMint {
		return // never leaves the system without a resolvable baseMint (§3 invariant)
	}
	key := domain.DedupKey{DEX: snap.DEX, BaseMint: snap.BaseMint, QuoteMint: snap.QuoteMint}
	if t.dedup.SeenOrMark(key) {
		return
	}
	if snap.DEX == chain.PumpFun {
		t.graduations.Register(snap.BaseMint)
	}
	t.emitEvent(domain.PoolEvent{Kind: domain.NewPool, Pool: snap})
}

func (t *Tracker) emitEvent(ev domain.PoolEvent) {
	if t.emit != nil {
		t.emit(ev)
	}
}

func (t *Tracker) storeSnapshot(pool chain.Address, snap domain.PoolSnapshot) {
	t.poolsMu.Lock()
	t.pools[pool] = snap
	t.poolsMu.Unlock()
}

func (t *Tracker) requestVaultSubscriptions(pool chain.Address, snap domain.PoolSnapshot) {
	if !snap.Enriched.HasVaults || t.subscriber == nil {
		return
	}
	t.vaults.Put(snap.Enriched.BaseVault, vaultEntry{poolAddress: pool, side: vaultSideBase, mint: snap.BaseMint})
	t.vaults.Put(snap.Enriched.QuoteVault, vaultEntry{poolAddress: pool, side: vaultSideQuote, mint: snap.QuoteMint})

	key := fmt.Sprintf("vault_%x", pool.Bytes()[:8])
	_ = t.subscriber.SubscribeAdditional(key, streampb.AccountFilter{
		Account: [][]byte{snap.Enriched.BaseVault.Bytes(), snap.Enriched.QuoteVault.Bytes()},
		Owner:   [][]byte{chain.SPLTokenProgram.Bytes()},
	})
}

// HandleSPLTokenUpdate is registered as stream.Handlers.OnSPLTokenUpdate.
// It recognizes subscribed vault accounts and updates the owning pool's
// reserve + derived liquidity (§4.F: "amount = u64 at offset 64").
func (t *Tracker) HandleSPLTokenUpdate(update streampb.AccountUpdate) {
	var vaultAddr chain.Address
	copy(vaultAddr[:], update.Pubkey)

	entry, ok := t.vaults.Get(vaultAddr)
	if !ok {
		return
	}
	amount := readTokenAmount(update.Data)

	t.poolsMu.Lock()
	snap, ok := t.pools[entry.poolAddress]
	if !ok {
		t.poolsMu.Unlock()
		return
	}
	if entry.side == vaultSideBase {
		snap.Enriched.Token0Amount = amount
	} else {
		snap.Enriched.Token1Amount = amount
	}
	snap.Enriched.HasReserves = true
	snap.Enriched.LiquiditySol = decoder.RecomputeLiquidity(
		snap.BaseMint, snap.QuoteMint, snap.Enriched.Token0Amount, snap.Enriched.Token1Amount)
	t.pools[entry.poolAddress] = snap
	t.poolsMu.Unlock()
}

func readTokenAmount(data []byte) uint64 {
	const offset = 64
	if offset+8 > len(data) {
		return 0
	}
	var out uint64
	for i := 7; i >= 0; i-- {
		out = out<<8 | uint64(data[offset+i])
	}
	return out
}

// AddPositionTracking starts position-tracking mode for poolAddress
// (§4.F). Subsequent calls to HandlePositionUpdate for this pool compute
// a new price and, on a >=0.1% relative change, emit a PriceUpdate.
func (t *Tracker) AddPositionTracking(poolAddress, tokenAddress chain.Address, dex chain.DEXKind) {
	t.positionsMu.Lock()
	t.positions[poolAddress] = positionEntry{tokenAddress: tokenAddress, dex: dex}
	t.positionsMu.Unlock()

	if t.subscriber != nil {
		key := fmt.Sprintf("position_%x", poolAddress.Bytes()[:8])
		_ = t.subscriber.SubscribeAdditional(key, streampb.AccountFilter{
			Account: [][]byte{poolAddress.Bytes()},
		})
	}
}

// RemovePositionTracking stops position-tracking mode for poolAddress.
// No explicit upstream unsubscribe is required (§4.F).
func (t *Tracker) RemovePositionTracking(poolAddress chain.Address) {
	t.positionsMu.Lock()
	delete(t.positions, poolAddress)
	t.positionsMu.Unlock()
}

// HandlePositionUpdate re-decodes an account update for a tracked pool
// and emits a PriceUpdate if the price moved by at least
// priceChangeThreshold relative to the last observed price.
func (t *Tracker) HandlePositionUpdate(dex chain.DEXKind, update streampb.AccountUpdate) {
	var pool chain.Address
	copy(pool[:], update.Pubkey)

	t.positionsMu.Lock()
	pos, tracked := t.positions[pool]
	t.positionsMu.Unlock()
	if !tracked {
		return
	}

	snap, ok := decoder.Decode(dex, pool, update.Slot, t.now().UnixMilli(), update.Data)
	if !ok {
		return
	}

	newPrice := snap.Enriched.PriceSolPerToken
	var changed bool
	if pos.lastPrice == 0 {
		changed = newPrice != 0
	} else {
		changed = absF(newPrice-pos.lastPrice)/pos.lastPrice >= priceChangeThreshold
	}
	if !changed {
		return
	}

	t.positionsMu.Lock()
	pos.lastPrice = newPrice
	t.positions[pool] = pos
	t.positionsMu.Unlock()

	t.emitEvent(domain.PoolEvent{Kind: domain.PriceUpdate, Pool: snap})
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
