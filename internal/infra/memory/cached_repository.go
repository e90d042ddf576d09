package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Backend is the collection repository a CachedRepository fronts.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// CachedRepository caches collection documents with TTL to avoid repeated backend hits.
// Writes go through to the backend first and refresh the cache only when they succeed.
type CachedRepository struct {
	backend Backend
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDoc
	// versions counts writes per key; a backend read only fills the cache when no
	// write happened while it was in flight.
	versions map[string]uint64
}

type cachedDoc struct {
	data      []byte
	found     bool
	expiresAt time.Time
}

type loadResult struct {
	data  []byte
	found bool
}

func NewCachedRepository(backend Backend, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		backend:  backend,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedDoc),
		versions: make(map[string]uint64),
	}
}

func (r *CachedRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if doc, ok := r.lookup(key); ok {
		return append([]byte(nil), doc.data...), doc.found, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if doc, ok := r.lookup(key); ok {
			return loadResult{data: doc.data, found: doc.found}, nil
		}

		version := r.version(key)
		data, found, err := r.backend.Get(ctx, key)
		if err != nil {
			return loadResult{}, err
		}
		r.storeAt(key, data, found, version)
		return loadResult{data: data, found: found}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := result.(loadResult)
	return append([]byte(nil), res.data...), res.found, nil
}

func (r *CachedRepository) Put(ctx context.Context, key string, data []byte) error {
	if err := r.backend.Put(ctx, key, data); err != nil {
		r.invalidate(key)
		return err
	}
	ttl := r.ttlWithJitter()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[key]++
	if ttl > 0 {
		r.cache[key] = cachedDoc{data: append([]byte(nil), data...), found: true, expiresAt: r.clock().Add(ttl)}
	}
	return nil
}

func (r *CachedRepository) Delete(ctx context.Context, key string) error {
	r.invalidate(key)
	return r.backend.Delete(ctx, key)
}

func (r *CachedRepository) lookup(key string) (cachedDoc, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.cache[key]
	if !ok || !doc.expiresAt.After(now) {
		return cachedDoc{}, false
	}
	return doc, true
}

func (r *CachedRepository) version(key string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[key]
}

// storeAt caches data unless key was written after version was observed.
func (r *CachedRepository) storeAt(key string, data []byte, found bool, version uint64) {
	ttl := r.ttlWithJitter()
	if ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.versions[key] != version {
		return
	}
	r.cache[key] = cachedDoc{data: data, found: found, expiresAt: r.clock().Add(ttl)}
}

func (r *CachedRepository) invalidate(key string) {
	r.mu.Lock()
	delete(r.cache, key)
	r.versions[key]++
	r.mu.Unlock()
}

func (r *CachedRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
