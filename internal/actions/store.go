package actions

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"devbridge/cli/internal/logging"
	"devbridge/cli/internal/statestore"

	"github.com/google/uuid"
)

const (
	DefaultCapacity  = 50
	previewMaxLength = 120
)

// Patch is a merge-patch on one action. Nil fields are left untouched.
type Patch struct {
	Status        *Status
	RequestID     *string
	Error         *string
	QueuePosition *int
	CompletedAt   *int64
}

// Store keeps the action history in memory, newest first, and writes the
// whole list back to its storage blob after every mutation. Safe for
// concurrent use; last write wins.
type Store struct {
	mu       sync.Mutex
	state    *statestore.Store
	log      *slog.Logger
	capacity int
	actions  []CodeAction

	now   func() time.Time
	newID func() string
}

type StoreOption func(*Store)

func WithCapacity(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func WithStoreLogger(log *slog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

func withClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore loads any persisted history from state and returns the store.
func NewStore(state *statestore.Store, opts ...StoreOption) (*Store, error) {
	s := &Store{
		state:    state,
		log:      logging.Nop(),
		capacity: DefaultCapacity,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := state.LoadJSON(statestore.KeyCodeActions, &s.actions); err != nil {
		return nil, err
	}
	if len(s.actions) > s.capacity {
		s.actions = s.actions[:s.capacity]
	}
	return s, nil
}

// Add records a new outgoing request. ID and CreatedAt are assigned
// here; the record is prepended and the tail trimmed to capacity.
func (s *Store) Add(a CodeAction) (CodeAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.newID()
	a.CreatedAt = s.now().UnixMilli()
	if a.Status == "" {
		a.Status = StatusSending
	}
	if a.PromptPreview == "" {
		a.PromptPreview = preview(a.PromptFull)
	}

	s.actions = append([]CodeAction{a}, s.actions...)
	if len(s.actions) > s.capacity {
		s.actions = s.actions[:s.capacity]
	}
	return a, s.persistLocked()
}

// Update merge-patches the action with the given id. An unknown id is a
// no-op. A status change that the transition table rejects returns a
// *TransitionError and leaves the record untouched.
func (s *Store) Update(id string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil
	}
	a := s.actions[idx]

	if patch.Status != nil {
		if !canTransition(a.Status, *patch.Status) {
			return &TransitionError{From: a.Status, To: *patch.Status}
		}
		a.Status = *patch.Status
	}
	if patch.RequestID != nil {
		a.RequestID = *patch.RequestID
	}
	if patch.Error != nil {
		a.Error = *patch.Error
	}
	if patch.QueuePosition != nil {
		a.QueuePosition = *patch.QueuePosition
	}
	if patch.CompletedAt != nil {
		a.CompletedAt = *patch.CompletedAt
	}

	s.actions[idx] = a
	return s.persistLocked()
}

// Get returns a copy of the action with the given id.
func (s *Store) Get(id string) (CodeAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return CodeAction{}, false
	}
	return s.actions[idx], true
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return nil
	}
	s.actions = append(s.actions[:idx], s.actions[idx+1:]...)
	return s.persistLocked()
}

func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = nil
	return s.persistLocked()
}

// ClearCompleted drops terminal success/fallback records and keeps
// everything still actionable (pending and failed).
func (s *Store) ClearCompleted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.actions[:0:0]
	for _, a := range s.actions {
		if !IsTerminalSuccess(a.Status) {
			kept = append(kept, a)
		}
	}
	s.actions = kept
	return s.persistLocked()
}

// Pending returns in-flight actions, newest first.
func (s *Store) Pending() []CodeAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []CodeAction
	for _, a := range s.actions {
		if IsPending(a.Status) {
			out = append(out, a)
		}
	}
	return out
}

// Recent returns up to limit actions, newest first. limit <= 0 returns all.
func (s *Store) Recent(limit int) []CodeAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.actions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]CodeAction, n)
	copy(out, s.actions[:n])
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, a := range s.actions {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked() error {
	list := s.actions
	if list == nil {
		list = []CodeAction{}
	}
	if err := s.state.SaveJSON(statestore.KeyCodeActions, list); err != nil {
		s.log.Error("persisting action history failed", "err", err)
		return err
	}
	return nil
}

func preview(full string) string {
	flat := strings.Join(strings.Fields(full), " ")
	if len(flat) <= previewMaxLength {
		return flat
	}
	return flat[:previewMaxLength-1] + "…"
}
