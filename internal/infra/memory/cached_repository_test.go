package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCachedRepositoryCaches(t *testing.T) {
	backend := &countingBackend{Backend: NewCollectionStore()}
	_ = backend.Put(context.Background(), "ecoquest_courses", []byte(`[]`))
	repo := NewCachedRepository(backend, time.Minute)

	if _, ok, err := repo.Get(context.Background(), "ecoquest_courses"); err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if backend.gets != 1 {
		t.Fatalf("expected backend once, got %d", backend.gets)
	}

	if _, _, err := repo.Get(context.Background(), "ecoquest_courses"); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if backend.gets != 1 {
		t.Fatalf("expected cache hit, backend gets %d", backend.gets)
	}
}

func TestCachedRepositoryCachesMisses(t *testing.T) {
	backend := &countingBackend{Backend: NewCollectionStore()}
	repo := NewCachedRepository(backend, time.Minute)

	for i := 0; i < 2; i++ {
		if _, ok, err := repo.Get(context.Background(), "missing"); err != nil || ok {
			t.Fatalf("expected miss, ok=%v err=%v", ok, err)
		}
	}
	if backend.gets != 1 {
		t.Fatalf("expected one backend lookup, got %d", backend.gets)
	}
}

func TestCachedRepositoryWriteThrough(t *testing.T) {
	backend := &countingBackend{Backend: NewCollectionStore()}
	repo := NewCachedRepository(backend, time.Minute)
	ctx := context.Background()

	if err := repo.Put(ctx, "k", []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := repo.Get(ctx, "k")
	if err != nil || !ok || string(got) != `[1]` {
		t.Fatalf("unexpected get: %s ok=%v err=%v", got, ok, err)
	}
	if backend.gets != 0 {
		t.Fatalf("expected cached value after put, backend gets %d", backend.gets)
	}

	backend.failPut = true
	if err := repo.Put(ctx, "k", []byte(`[2]`)); err == nil {
		t.Fatalf("expected put failure")
	}
	got, _, _ = repo.Get(ctx, "k")
	if string(got) != `[1]` {
		t.Fatalf("failed write must not be visible, got %s", got)
	}
}

func TestCachedRepositoryExpires(t *testing.T) {
	backend := &countingBackend{Backend: NewCollectionStore()}
	repo := NewCachedRepository(backend, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _, _ = repo.Get(context.Background(), "k")
	now = now.Add(2 * time.Minute)
	_, _, _ = repo.Get(context.Background(), "k")
	if backend.gets != 2 {
		t.Fatalf("expected reload after expiry, got %d", backend.gets)
	}
}

func TestCachedRepositoryDropsReadOverlappingWrite(t *testing.T) {
	ctx := context.Background()
	inner := NewCollectionStore()
	_ = inner.Put(ctx, "k", []byte(`["old"]`))
	backend := &blockingBackend{Backend: inner, entered: make(chan struct{}), release: make(chan struct{})}
	repo := NewCachedRepository(backend, time.Minute)

	done := make(chan []byte)
	go func() {
		data, _, _ := repo.Get(ctx, "k")
		done <- data
	}()

	<-backend.entered
	if err := repo.Put(ctx, "k", []byte(`["new"]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	close(backend.release)
	if got := <-done; string(got) != `["old"]` {
		t.Fatalf("in-flight read should return what it read, got %s", got)
	}

	got, _, err := repo.Get(ctx, "k")
	if err != nil || string(got) != `["new"]` {
		t.Fatalf("expected the written document to stay cached, got %s err=%v", got, err)
	}
}

// blockingBackend holds the first Get until release is closed.
type blockingBackend struct {
	Backend
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, found, err := b.Backend.Get(ctx, key)
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return data, found, err
}

type countingBackend struct {
	Backend
	gets    int
	failPut bool
}

func (b *countingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.gets++
	return b.Backend.Get(ctx, key)
}

func (b *countingBackend) Put(ctx context.Context, key string, data []byte) error {
	if b.failPut {
		return errors.New("quota exceeded")
	}
	return b.Backend.Put(ctx, key, data)
}
