package modelstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"mapeditor/core-go/internal/esdl"
)

var ErrNotFound = errors.New("modelstore: energy system not found")

// Store keeps the loaded energy systems of a process by id.
type Store struct {
	mu      sync.RWMutex
	systems map[string]*esdl.EnergySystem
}

func New() *Store {
	return &Store{systems: make(map[string]*esdl.EnergySystem)}
}

// Put adds or replaces a system.
func (s *Store) Put(es *esdl.EnergySystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems[es.ID] = es
}

func (s *Store) Get(id string) (*esdl.EnergySystem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	es, ok := s.systems[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return es, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.systems, id)
}

// IDs returns the ids of all stored systems in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.systems))
	for id := range s.systems {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Locate resolves a port of a stored system to its asset and coordinate.
func (s *Store) Locate(esID, portID string) (esdl.Located, error) {
	es, err := s.Get(esID)
	if err != nil {
		return esdl.Located{}, err
	}
	return es.Locate(portID)
}
