package tracker

import (
	"container/list"
	"sync"

	"poolwatch/internal/domain"
)

// dedupCapacity is the §4.F dedup set's hard capacity.
const dedupCapacity = 50000

// dedupSet is the bounded (dex, baseMint, quoteMint) seen-set (§4.F). On
// overflow it evicts the oldest half, insertion-ordered, rather than one
// entry at a time — cheaper amortized cost under sustained high-volume
// discovery than evicting one-for-one.
type dedupSet struct {
	mu      sync.Mutex
	entries map[domain.DedupKey]*list.Element
	order   *list.List // front = oldest
}

func newDedupSet() *dedupSet {
	return &dedupSet{
		entries: make(map[domain.DedupKey]*list.Element),
		order:   list.New(),
	}
}

// SeenOrMark reports whether key was already present; if not, it marks
// key as seen and returns false.
func (d *dedupSet) SeenOrMark(key domain.DedupKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[key]; ok {
		return true
	}
	if d.order.Len() >= dedupCapacity {
		d.evictOldestHalf()
	}
	el := d.order.PushBack(key)
	d.entries[key] = el
	return false
}

func (d *dedupSet) evictOldestHalf() {
	n := d.order.Len() / 2
	for i := 0; i < n; i++ {
		oldest := d.order.Front()
		if oldest == nil {
			return
		}
		delete(d.entries, oldest.Value.(domain.DedupKey))
		d.order.Remove(oldest)
	}
}

func (d *dedupSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
