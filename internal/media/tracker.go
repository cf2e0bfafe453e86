package media

import (
	"math/rand/v2"
	"sync"
	"time"
)

type shuffleOrder struct {
	perm      []int
	size      int
	indexedAt time.Time
}

// shuffleTracker keeps one random permutation per category so consecutive
// pages of a shuffled listing never overlap. The order is rebuilt when the
// underlying index changes.
type shuffleTracker struct {
	mu     sync.Mutex
	orders map[string]*shuffleOrder
}

func newShuffleTracker() *shuffleTracker {
	return &shuffleTracker{orders: make(map[string]*shuffleOrder)}
}

func (t *shuffleTracker) order(categoryID string, size int, indexedAt time.Time) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[categoryID]
	if !ok || o.size != size || !o.indexedAt.Equal(indexedAt) {
		o = &shuffleOrder{perm: rand.Perm(size), size: size, indexedAt: indexedAt}
		t.orders[categoryID] = o
	}
	return o.perm
}

func (t *shuffleTracker) clear(categoryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if categoryID == "" {
		t.orders = make(map[string]*shuffleOrder)
		return
	}
	delete(t.orders, categoryID)
}
