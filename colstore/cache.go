package colstore

import (
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// contentKey identifies a payload by hash and length. A hit is only a candidate;
// callers compare bytes before reusing the id.
type contentKey struct {
	sum  uint64
	size int
}

func keyOf(p []byte) contentKey {
	return contentKey{sum: xxhash.Sum64(p), size: len(p)}
}

// writeCache maps recently written payloads to their local ids.
type writeCache struct {
	c       *lru.Cache[contentKey, uint64]
	evicted atomic.Int64
}

func newWriteCache(size int) *writeCache {
	w := &writeCache{}
	// lru.NewWithEvict only fails for size <= 0.
	w.c, _ = lru.NewWithEvict[contentKey, uint64](max(size, 1), func(contentKey, uint64) {
		w.evicted.Add(1)
	})
	return w
}

func (w *writeCache) get(k contentKey) (uint64, bool) { return w.c.Get(k) }

func (w *writeCache) add(k contentKey, id uint64) { w.c.Add(k, id) }

// evictions returns how many entries were dropped. After an eviction duplicate
// payloads may be stored twice.
func (w *writeCache) evictions() int64 { return w.evicted.Load() }

// readCache holds decoded values by local id. Concurrent misses for the same id
// share one load.
type readCache[V any] struct {
	store string
	c     *lru.Cache[uint64, V]
	group singleflight.Group
	m     *Metrics
}

func newReadCache[V any](store string, size int, m *Metrics) *readCache[V] {
	c, _ := lru.New[uint64, V](max(size, 1))
	return &readCache[V]{store: store, c: c, m: m}
}

func (r *readCache[V]) get(id uint64, load func() (V, error)) (V, error) {
	if v, ok := r.c.Get(id); ok {
		r.m.cache(r.store, "read", true)
		return v, nil
	}
	r.m.cache(r.store, "read", false)
	v, err, _ := r.group.Do(strconv.FormatUint(id, 10), func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		r.c.Add(id, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}
