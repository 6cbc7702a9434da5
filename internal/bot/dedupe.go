package bot

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Gateway resumes can replay MESSAGE_CREATE events; a message ID seen within
// dedupeTTL is handled once.
const (
	dedupeTTL     = 20 * time.Minute
	dedupeMaxSize = 5000
)

// DedupeCache is a TTL-bounded set of message IDs.
type DedupeCache struct {
	seen *expirable.LRU[string, struct{}]
}

// NewDedupeCache creates a dedupe cache. The oldest ID is evicted when
// maxSize is reached.
func NewDedupeCache(ttl time.Duration, maxSize int) *DedupeCache {
	return &DedupeCache{seen: expirable.NewLRU[string, struct{}](maxSize, nil, ttl)}
}

// IsDuplicate returns true if key was already seen within the TTL window.
// If not a duplicate, records the key for future checks. Empty keys are
// never duplicates.
func (d *DedupeCache) IsDuplicate(key string) bool {
	if key == "" {
		return false
	}
	if _, ok := d.seen.Get(key); ok {
		return true
	}
	d.seen.Add(key, struct{}{})
	return false
}
