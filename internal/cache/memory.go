package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// documentEntry represents a stored JSON document with optional expiration.
type documentEntry struct {
	value     []byte
	expiresAt time.Time
}

// isExpired checks if the entry has expired.
func (e *documentEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-memory implementation of KeyValueStore.
// Use this for development/testing or single-instance deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*documentEntry
	hashes    map[string]map[string]string
	sets      map[string]map[string]struct{}
	// expiries holds the deadlines of hashes and sets set through Expire.
	expiries map[string]time.Time
	now      func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryStore creates a new in-memory store with automatic cleanup of expired keys.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		documents:       make(map[string]*documentEntry),
		hashes:          make(map[string]map[string]string),
		sets:            make(map[string]map[string]struct{}),
		expiries:        make(map[string]time.Time),
		now:             time.Now,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Exists checks if a key exists and is not expired.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	if entry, ok := s.documents[key]; ok && !entry.isExpired(now) {
		return true, nil
	}
	if s.expiredLocked(key, now) {
		return false, nil
	}
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	if _, ok := s.sets[key]; ok {
		return true, nil
	}
	return false, nil
}

// GetJSON decodes the document at key into dest.
func (s *MemoryStore) GetJSON(ctx context.Context, key string, dest any) error {
	s.mu.RLock()
	entry, ok := s.documents[key]
	if !ok || entry.isExpired(s.now()) {
		s.mu.RUnlock()
		return ErrCacheMiss
	}
	data := make([]byte, len(entry.value))
	copy(data, entry.value)
	s.mu.RUnlock()

	return json.Unmarshal(data, dest)
}

// SetJSON stores value as a JSON document.
func (s *MemoryStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := &documentEntry{value: data}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(key)
	s.documents[key] = entry
	return nil
}

// Delete removes keys of any kind.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(keys...)
	return nil
}

// HMGet returns hash fields positionally.
func (s *MemoryStore) HMGet(ctx context.Context, key string, fields ...string) ([]*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*string, len(fields))
	if s.expiredLocked(key, s.now()) {
		return out, nil
	}
	hash := s.hashes[key]
	for i, field := range fields {
		if v, ok := hash[field]; ok {
			v := v
			out[i] = &v
		}
	}
	return out, nil
}

// HSet merges values into the hash at key.
func (s *MemoryStore) HSet(ctx context.Context, key string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hsetLocked(key, values)
	return nil
}

// SMembers returns the sorted members of the set at key.
func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.expiredLocked(key, s.now()) {
		return []string{}, nil
	}
	set := s.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

// Pipelined applies the queued writes under a single lock.
func (s *MemoryStore) Pipelined(ctx context.Context, fn func(b Batch) error) error {
	b := &memoryBatch{}
	if err := fn(b); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range b.ops {
		op(s)
	}
	return nil
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *MemoryStore) deleteLocked(keys ...string) {
	for _, key := range keys {
		delete(s.documents, key)
		delete(s.hashes, key)
		delete(s.sets, key)
		delete(s.expiries, key)
	}
}

// expiredLocked reports whether the hash or set at key is past its deadline.
// Expired keys are only removed by writers and the janitor.
func (s *MemoryStore) expiredLocked(key string, now time.Time) bool {
	deadline, ok := s.expiries[key]
	return ok && !now.Before(deadline)
}

// purgeLocked drops key if it has expired, so writes start from an empty value.
func (s *MemoryStore) purgeLocked(key string) {
	if s.expiredLocked(key, s.now()) {
		s.deleteLocked(key)
	}
}

// expireLocked sets a deadline on an existing hash or set, like Redis EXPIRE.
func (s *MemoryStore) expireLocked(key string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.purgeLocked(key)
	_, isHash := s.hashes[key]
	_, isSet := s.sets[key]
	if isHash || isSet {
		s.expiries[key] = s.now().Add(ttl)
	}
}

func (s *MemoryStore) hsetLocked(key string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	s.purgeLocked(key)
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string, len(values))
		s.hashes[key] = hash
	}
	for field, v := range values {
		hash[field] = v
	}
}

func (s *MemoryStore) saddLocked(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	s.purgeLocked(key)
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
}

// sremLocked removes members and drops the set once empty, matching Redis.
func (s *MemoryStore) sremLocked(key string, members ...string) {
	s.purgeLocked(key)
	set, ok := s.sets[key]
	if !ok {
		return
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
		delete(s.expiries, key)
	}
}

// cleanup periodically removes expired keys.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// removeExpired removes all expired documents, hashes and sets.
func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.documents {
		if entry.isExpired(now) {
			delete(s.documents, key)
		}
	}
	for key := range s.expiries {
		if s.expiredLocked(key, now) {
			s.deleteLocked(key)
		}
	}
}

type memoryBatch struct {
	ops []func(s *MemoryStore)
}

func (b *memoryBatch) SAdd(key string, members ...string) {
	b.ops = append(b.ops, func(s *MemoryStore) { s.saddLocked(key, members...) })
}

func (b *memoryBatch) SRem(key string, members ...string) {
	b.ops = append(b.ops, func(s *MemoryStore) { s.sremLocked(key, members...) })
}

func (b *memoryBatch) HSet(key string, values map[string]string) {
	b.ops = append(b.ops, func(s *MemoryStore) { s.hsetLocked(key, values) })
}

func (b *memoryBatch) Delete(keys ...string) {
	b.ops = append(b.ops, func(s *MemoryStore) { s.deleteLocked(keys...) })
}

func (b *memoryBatch) Expire(key string, ttl time.Duration) {
	b.ops = append(b.ops, func(s *MemoryStore) { s.expireLocked(key, ttl) })
}

// Ensure MemoryStore implements KeyValueStore
var _ KeyValueStore = (*MemoryStore)(nil)
