package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"financas/internal/storage"
)

// Store binds a State to its persistence key. Every mutation goes through
// Update, which applies the change and writes the snapshot in one step; a
// rejected write keeps the in-memory state and reports the error upward.
type Store struct {
	mu    sync.Mutex
	kv    storage.KV
	key   string
	state *State
}

// Open restores the snapshot under key, falling back to the default state
// when the snapshot is missing or unreadable. It never fails.
func Open(ctx context.Context, kv storage.KV, key string) *Store {
	return &Store{
		kv:    kv,
		key:   key,
		state: loadState(ctx, kv, key),
	}
}

// Reload re-reads the snapshot from the store, discarding in-memory state.
// Used by the worker binary to pick up changes between ticks.
func (s *Store) Reload(ctx context.Context) {
	st := loadState(ctx, s.kv, s.key)
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Update applies fn to the state and persists the result. When fn fails the
// state is untouched and nothing is written. When the write is rejected the
// mutation stays applied in memory and the wrapped storage error is returned
// for the caller to surface as a warning.
func (s *Store) Update(ctx context.Context, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.state); err != nil {
		return err
	}
	return s.saveLocked(ctx)
}

// Snapshot returns a deep copy for read-only projections.
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) saveLocked(ctx context.Context) error {
	buf, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.kv.Save(ctx, s.key, string(buf)); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func loadState(ctx context.Context, kv storage.KV, key string) *State {
	raw, ok, err := kv.Load(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot load failed, starting from defaults", "key", key, "error", err)
		return DefaultState()
	}
	if !ok {
		return DefaultState()
	}

	var loaded map[string]any
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		slog.WarnContext(ctx, "Snapshot is malformed, starting from defaults", "key", key, "error", err)
		return DefaultState()
	}

	merged := MergeDeep(stateTemplate(), loaded)

	buf, err := json.Marshal(merged)
	if err != nil {
		slog.WarnContext(ctx, "Merged snapshot not serializable, starting from defaults", "key", key, "error", err)
		return DefaultState()
	}
	st := new(State)
	if err := json.Unmarshal(buf, st); err != nil {
		slog.WarnContext(ctx, "Merged snapshot does not fit schema, starting from defaults", "key", key, "error", err)
		return DefaultState()
	}
	st.normalize()
	return st
}

// stateTemplate renders the default state as a generic map, the shape the
// deep merge operates on.
func stateTemplate() map[string]any {
	buf, _ := json.Marshal(DefaultState())
	var m map[string]any
	_ = json.Unmarshal(buf, &m)
	return m
}
