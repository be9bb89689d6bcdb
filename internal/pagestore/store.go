// Package pagestore manages the autofill datasets for the page-store
// panel: named field maps plus the rotation state that decides which
// dataset fills the next form.
package pagestore

import (
	"errors"
	"math/rand"
	"sync"

	"devbridge/cli/internal/statestore"

	"github.com/google/uuid"
)

type RotationMode string

const (
	RotationSequential RotationMode = "sequential"
	RotationRandom     RotationMode = "random"
)

type Dataset struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
}

// state is the persisted blob shape.
type state struct {
	Datasets  []Dataset    `json:"datasets"`
	Mode      RotationMode `json:"mode"`
	NextIndex int          `json:"nextIndex"`
}

type Store struct {
	mu    sync.Mutex
	blobs *statestore.Store
	s     state
	rng   *rand.Rand
}

func NewStore(blobs *statestore.Store) (*Store, error) {
	st := &Store{
		blobs: blobs,
		s:     state{Mode: RotationSequential},
		rng:   rand.New(rand.NewSource(rand.Int63())),
	}
	if _, err := blobs.LoadJSON(statestore.KeyPageStore, &st.s); err != nil {
		return nil, err
	}
	if st.s.Mode != RotationRandom {
		st.s.Mode = RotationSequential
	}
	return st, nil
}

func (s *Store) Add(ds Dataset) (Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}
	if ds.Fields == nil {
		ds.Fields = map[string]string{}
	}
	s.s.Datasets = append(s.s.Datasets, ds)
	return ds, s.persistLocked()
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ds := range s.s.Datasets {
		if ds.ID == id {
			s.s.Datasets = append(s.s.Datasets[:i], s.s.Datasets[i+1:]...)
			if s.s.NextIndex >= len(s.s.Datasets) {
				s.s.NextIndex = 0
			}
			return s.persistLocked()
		}
	}
	return nil
}

func (s *Store) List() []Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Dataset, len(s.s.Datasets))
	copy(out, s.s.Datasets)
	return out
}

func (s *Store) SetMode(mode RotationMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode != RotationSequential && mode != RotationRandom {
		return errors.New("unknown rotation mode")
	}
	s.s.Mode = mode
	return s.persistLocked()
}

func (s *Store) Mode() RotationMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s.Mode
}

// Next selects the dataset for the next autofill. Sequential mode walks
// the list in order and persists the advanced cursor; random mode picks
// uniformly. Returns false when no datasets exist.
func (s *Store) Next() (Dataset, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.s.Datasets)
	if n == 0 {
		return Dataset{}, false, nil
	}
	if s.s.Mode == RotationRandom {
		return s.s.Datasets[s.rng.Intn(n)], true, nil
	}
	idx := s.s.NextIndex % n
	ds := s.s.Datasets[idx]
	s.s.NextIndex = (idx + 1) % n
	return ds, true, s.persistLocked()
}

func (s *Store) persistLocked() error {
	return s.blobs.SaveJSON(statestore.KeyPageStore, s.s)
}
