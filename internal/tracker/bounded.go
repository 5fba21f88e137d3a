package tracker

import (
	"container/list"
	"sync"
	"time"

	"poolwatch/internal/chain"
)

const (
	graduationCapacity = 10000
	graduationMaxAge   = 2 * time.Hour

	vaultCapacity     = 10000
	vaultOverflowTrim = 1000
)

// graduationEntry is one launchpad mint awaiting graduation, with the
// timestamp it was first observed (§4.F: "launchpadMint -> firstSeenTimestamp").
type graduationEntry struct {
	mint        chain.Address
	firstSeenAt time.Time
}

// graduationMap tracks every PumpFun mint seen so far, capped at 10,000
// and evicted by age (§4.F). Age-based eviction is swept opportunistically
// on each write rather than on a dedicated ticker, since a single pass
// over the insertion-ordered list is already a prefix scan (oldest
// entries are also the ones most likely to have expired).
type graduationMap struct {
	mu      sync.Mutex
	entries map[chain.Address]*list.Element
	order   *list.List
	now     func() time.Time
}

func newGraduationMap(now func() time.Time) *graduationMap {
	return &graduationMap{
		entries: make(map[chain.Address]*list.Element),
		order:   list.New(),
		now:     now,
	}
}

// Register records mint as first-seen now, unless already present.
func (g *graduationMap) Register(mint chain.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictExpiredLocked()

	if _, ok := g.entries[mint]; ok {
		return
	}
	if g.order.Len() >= graduationCapacity {
		oldest := g.order.Front()
		if oldest != nil {
			delete(g.entries, oldest.Value.(*graduationEntry).mint)
			g.order.Remove(oldest)
		}
	}
	el := g.order.PushBack(&graduationEntry{mint: mint, firstSeenAt: g.now()})
	g.entries[mint] = el
}

// Consume looks up mint; if present and not expired, it removes the
// entry and returns its first-seen time (graduation is a one-time
// event, so the entry is not retained across re-observation).
func (g *graduationMap) Consume(mint chain.Address) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictExpiredLocked()

	el, ok := g.entries[mint]
	if !ok {
		return time.Time{}, false
	}
	firstSeen := el.Value.(*graduationEntry).firstSeenAt
	delete(g.entries, mint)
	g.order.Remove(el)
	return firstSeen, true
}

func (g *graduationMap) evictExpiredLocked() {
	cutoff := g.now().Add(-graduationMaxAge)
	for {
		oldest := g.order.Front()
		if oldest == nil {
			return
		}
		e := oldest.Value.(*graduationEntry)
		if e.firstSeenAt.After(cutoff) {
			return
		}
		delete(g.entries, e.mint)
		g.order.Remove(oldest)
	}
}

func (g *graduationMap) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}

// vaultSide identifies which half of a pool's reserves a vault holds.
type vaultSide int

const (
	vaultSideBase vaultSide = iota
	vaultSideQuote
)

// vaultEntry is the Pool Tracker's record of one subscribed vault
// account (§4.F: "vaultAddr -> {poolAddress, side, mint}").
type vaultEntry struct {
	poolAddress chain.Address
	side        vaultSide
	mint        chain.Address
}

// vaultRecord pairs a stored vaultEntry with its own key, so eviction can
// remove it from the lookup map without a reverse index.
type vaultRecord struct {
	vaultAddr chain.Address
	entry     vaultEntry
}

// vaultMap is the bounded vaultAddr->vaultEntry table, capped at 10,000
// with overflow removing the oldest 1,000 (§4.F).
type vaultMap struct {
	mu      sync.Mutex
	entries map[chain.Address]*list.Element
	order   *list.List
}

func newVaultMap() *vaultMap {
	return &vaultMap{
		entries: make(map[chain.Address]*list.Element),
		order:   list.New(),
	}
}

func (v *vaultMap) Put(vaultAddr chain.Address, e vaultEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if existing, ok := v.entries[vaultAddr]; ok {
		existing.Value.(*vaultRecord).entry = e
		return
	}
	if v.order.Len() >= vaultCapacity {
		for i := 0; i < vaultOverflowTrim; i++ {
			oldest := v.order.Front()
			if oldest == nil {
				break
			}
			delete(v.entries, oldest.Value.(*vaultRecord).vaultAddr)
			v.order.Remove(oldest)
		}
	}
	el := v.order.PushBack(&vaultRecord{vaultAddr: vaultAddr, entry: e})
	v.entries[vaultAddr] = el
}

func (v *vaultMap) Get(vaultAddr chain.Address) (vaultEntry, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	el, ok := v.entries[vaultAddr]
	if !ok {
		return vaultEntry{}, false
	}
	return el.Value.(*vaultRecord).entry, true
}

func (v *vaultMap) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.order.Len()
}
