package pgraph

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ObjectStore used by tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	tags    map[string]map[string]string

	// Ops records store mutations in order, letting tests assert the
	// persist-then-unlock write sequence.
	Ops []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		tags:    make(map[string]map[string]string),
	}
}

func (s *MemoryStore) GetObject(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (s *MemoryStore) PutObject(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(body))
	copy(stored, body)
	s.objects[key] = stored
	s.Ops = append(s.Ops, "put-object "+key)
	return nil
}

func (s *MemoryStore) GetTag(_ context.Context, key, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.tags[key][name]
	return value, ok, nil
}

func (s *MemoryStore) PutTag(_ context.Context, key, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tags[key] == nil {
		s.tags[key] = make(map[string]string)
	}
	s.tags[key][name] = value
	s.Ops = append(s.Ops, "put-tag "+key+" "+name)
	return nil
}

func (s *MemoryStore) DeleteTag(_ context.Context, key, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags[key], name)
	s.Ops = append(s.Ops, "delete-tag "+key+" "+name)
	return nil
}
