// Package memory holds process-local stores for a terminal running without
// PostgreSQL or Redis.
package memory

import (
	"context"
	"sync"
)

// GenerationTracker keeps superseded-generation floors in a map. State is
// lost on restart, which reopens the replay window for tags this terminal
// saw before; use the Redis tracker where that matters.
type GenerationTracker struct {
	mu     sync.RWMutex
	floors map[string]uint32
}

// NewGenerationTracker creates an empty tracker.
func NewGenerationTracker() *GenerationTracker {
	return &GenerationTracker{floors: make(map[string]uint32)}
}

// Floor implements ports.GenerationTracker.
func (t *GenerationTracker) Floor(_ context.Context, identity []byte) (uint32, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.floors[string(identity)]
	return f, ok, nil
}

// Advance implements ports.GenerationTracker.
func (t *GenerationTracker) Advance(_ context.Context, identity []byte, floor uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.floors[string(identity)]; !ok || floor > cur {
		t.floors[string(identity)] = floor
	}
	return nil
}
