// Package settings stores the installation parameters that can be changed at
// runtime through the API.
package settings

import (
	"sync"

	"github.com/kilianp07/hems/core/model"
)

// Observer is notified after every successful update. Observers must not
// call Update.
type Observer func(model.SystemConfig)

// Store guards a SystemConfig. Updates are all-or-nothing and observers see
// them in the order they were applied.
type Store struct {
	// writeMu serializes updates together with their notifications.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	cfg       model.SystemConfig
	observers []Observer
}

// NewStore returns a store holding cfg. Invalid values are replaced by the
// defaults.
func NewStore(cfg model.SystemConfig) *Store {
	if cfg.Validate() != nil {
		cfg = model.DefaultSystemConfig()
	}
	return &Store{cfg: cfg}
}

// Get returns the current config.
func (s *Store) Get() model.SystemConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Subscribe registers an observer.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Update applies a partial update. Any invalid field rejects the whole
// update and the previous config is kept.
func (s *Store) Update(u model.ConfigUpdate) (model.SystemConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next, err := u.Apply(s.cfg)
	if err != nil {
		cur := s.cfg
		s.mu.Unlock()
		return cur, err
	}
	s.cfg = next
	obs := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	for _, o := range obs {
		o(next)
	}
	return next, nil
}
