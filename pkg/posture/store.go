// Package posture tracks the robot's reported body attitude and height.
package posture

import (
	"sync"
	"time"

	"github.com/open-teleop/legged-teleop/domain/teleop"
)

// Store holds the latest posture. It satisfies processing.PostureSource and
// processing.PostureEcho.
type Store struct {
	mu      sync.RWMutex
	posture teleop.RobotPosture
	updated time.Time
}

// NewStore creates a store starting at initial.
func NewStore(initial teleop.RobotPosture) *Store {
	return &Store{posture: initial}
}

// Current returns the latest posture.
func (s *Store) Current() teleop.RobotPosture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posture
}

// Set replaces the posture.
func (s *Store) Set(p teleop.RobotPosture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posture = p
	s.updated = time.Now()
}

// LastUpdate returns when Set was last called, zero if never.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}
