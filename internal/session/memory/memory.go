// Package memory is the in-process session backend: a bounded LRU whose
// entries expire after the session lifetime.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"expensetracker/internal/session"
)

// DefaultMaxEntries bounds the number of concurrently stored sessions.
const DefaultMaxEntries = 10000

type Backend struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

var _ session.Backend = (*Backend)(nil)

// New creates a backend holding at most maxSize values for ttl each.
func New(maxSize int, ttl time.Duration) *Backend {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	return &Backend{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elem, ok := b.items[key]
	if !ok {
		return nil, session.ErrNotFound
	}
	e := elem.Value.(*entry)
	if b.now().After(e.expiresAt) {
		b.removeElement(elem)
		return nil, session.ErrNotFound
	}
	b.lru.MoveToFront(elem)
	return append([]byte(nil), e.value...), nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := &entry{
		key:       key,
		value:     append([]byte(nil), value...),
		expiresAt: b.now().Add(b.ttl),
	}
	if elem, ok := b.items[key]; ok {
		elem.Value = e
		b.lru.MoveToFront(elem)
		return nil
	}

	b.items[key] = b.lru.PushFront(e)
	if b.lru.Len() > b.maxSize {
		if oldest := b.lru.Back(); oldest != nil {
			b.removeElement(oldest)
		}
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elem, ok := b.items[key]; ok {
		b.removeElement(elem)
	}
	return nil
}

func (b *Backend) removeElement(elem *list.Element) {
	delete(b.items, elem.Value.(*entry).key)
	b.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns how many were dropped.
func (b *Backend) CleanExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for elem := b.lru.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*entry).expiresAt) {
			b.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Size returns the current number of stored values, expired ones included.
func (b *Backend) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// StartCleanup runs CleanExpired every interval until Close.
func (b *Backend) StartCleanup(interval time.Duration) {
	b.mu.Lock()
	if b.stop != nil {
		b.mu.Unlock()
		return
	}
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.CleanExpired()
			case <-b.stop:
				return
			}
		}
	}()
}

// Close stops the cleanup goroutine, if running.
func (b *Backend) Close() error {
	b.mu.Lock()
	stop, done := b.stop, b.done
	b.stop = nil
	b.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
