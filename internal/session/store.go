package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/planweave/planweave/internal/turn"
)

// Store is a concurrency-safe in-memory session store with optional file
// persistence. Sessions are keyed by the caller-chosen session ID. Update
// serializes all mutations of a session, which is what keeps turn processing
// single-threaded per session.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*turn.State
	path     string // persistence file, empty disables persistence
}

// NewStore returns an empty Store. If path is non-empty, existing sessions
// are loaded from it and every mutation is flushed back.
func NewStore(path string) (*Store, error) {
	s := &Store{
		sessions: make(map[string]*turn.State),
		path:     path,
	}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.sessions); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", path, err)
	}
	return s, nil
}

// Get returns a deep copy of the session, or an error when it does not
// exist. The copy is safe to inspect without holding any lock.
func (s *Store) Get(id string) (*turn.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return deepCopyState(st), nil
}

// Update applies fn to the session identified by id under the write lock,
// creating the session when absent. The function receives the stored state
// pointer, so mutations apply in place. The store is flushed afterwards.
func (s *Store) Update(id string, fn func(*turn.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		st = &turn.State{}
		s.sessions[id] = st
	}
	fn(st)
	return s.flushLocked()
}

// Delete removes a session. Deleting a missing session is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return s.flushLocked()
}

// FindByPlanID returns the session ID and a copy of the state holding the
// plan with the given ID.
func (s *Store) FindByPlanID(planID string) (string, *turn.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := s.sessions[id]
		if st.Plan != nil && st.Plan.ID == planID {
			return id, deepCopyState(st), nil
		}
	}
	return "", nil, fmt.Errorf("session: plan %q not found", planID)
}

// IDs returns all session IDs in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// flushLocked writes all sessions to the persistence file. Callers hold the
// write lock. Writes go through a temp file and rename so a crash never
// leaves a truncated store behind.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("session: create store dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("session: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("session: replace %s: %w", s.path, err)
	}
	return nil
}

// deepCopyState returns an independent copy of a session state. Plan section
// content is arbitrary JSON-shaped data, so the copy goes through a JSON
// round trip.
func deepCopyState(src *turn.State) *turn.State {
	data, err := json.Marshal(src)
	if err != nil {
		cp := *src
		return &cp
	}
	var dst turn.State
	if err := json.Unmarshal(data, &dst); err != nil {
		cp := *src
		return &cp
	}
	dst.NewVersionCreated = src.NewVersionCreated
	return &dst
}
