package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryKV is an in-process snapshot store. A positive quota caps the value
// size in bytes, mirroring the write rejection a browser-style store produces
// when full.
type MemoryKV struct {
	mu     sync.Mutex
	quota  int
	values map[string]string
}

func NewMemoryKV(quotaBytes int) *MemoryKV {
	return &MemoryKV{
		quota:  quotaBytes,
		values: make(map[string]string),
	}
}

func (s *MemoryKV) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryKV) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 && len(value) > s.quota {
		return fmt.Errorf("snapshot of %d bytes exceeds quota of %d bytes: %w", len(value), s.quota, ErrWriteRejected)
	}
	s.values[key] = value
	return nil
}
