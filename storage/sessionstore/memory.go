package sessionstore

import (
	"context"
	"sync"

	"github.com/NVK2907/sms-app-sub000/core/session"
)

type memEntry struct {
	identity *session.Identity
	token    string
}

// MemoryBackend keeps sessions in process memory; they do not survive a restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memEntry)}
}

func (b *MemoryBackend) For(sid string) session.Store { return memStore{b: b, sid: sid} }

func (b *MemoryBackend) Close() error { return nil }

// Len is the number of stored sessions.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

type memStore struct {
	b   *MemoryBackend
	sid string
}

func (s memStore) Load(context.Context) (*session.Identity, string, error) {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()
	e := s.b.entries[s.sid]
	return e.identity.Clone(), e.token, nil
}

func (s memStore) Save(_ context.Context, identity *session.Identity, token string) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.entries[s.sid] = memEntry{identity: identity.Clone(), token: token}
	return nil
}

func (s memStore) Clear(context.Context) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	delete(s.b.entries, s.sid)
	return nil
}
