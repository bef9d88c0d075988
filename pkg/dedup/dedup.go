// Package dedup drops repeated IDs within a time window, e.g. QoS 1
// redeliveries of the same outcome event.
package dedup

import (
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	now  func() time.Time
	seen map[string]time.Time // id -> expiry
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, now: time.Now, seen: make(map[string]time.Time)}
}

// ShouldProcess reports whether id is new within the window and marks it
// seen. An empty id is always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evict(now)
	}
	return true
}

// evict drops expired entries; if none expired, the one closest to expiry goes.
func (d *Deduper) evict(now time.Time) {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, id)
			continue
		}
		if oldestID == "" || exp.Before(oldest) {
			oldestID, oldest = id, exp
		}
	}
	if len(d.seen) > d.max && oldestID != "" {
		delete(d.seen, oldestID)
	}
}

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
