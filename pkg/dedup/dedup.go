package dedup

import (
	"sync"
	"time"
)

// Deduper suppresses re-deliveries of identical payloads within a TTL.
// Used on the QoS1 MQTT ingest path, where the broker may redeliver.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time // key -> expiry
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// First reports whether key is seen for the first time within the TTL,
// and records it. An empty key is never deduplicated.
func (d *Deduper) First(key string) bool {
	if key == "" {
		return true
	}
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.prune(now)
	}
	return true
}

// prune drops expired entries; caller holds the lock.
func (d *Deduper) prune(now time.Time) {
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
		if len(d.seen) <= d.max {
			return
		}
	}
}
