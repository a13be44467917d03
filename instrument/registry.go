package instrument

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// NotRegisteredError reports a lookup for an instrument id that was never
// registered. This is a configuration error: the engine has no implicit
// default range and never recovers from it internally.
type NotRegisteredError struct {
	ID    string
	Known []string
}

func (e *NotRegisteredError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("instrument %q not registered (registry is empty)", e.ID)
	}
	return fmt.Sprintf("instrument %q not registered (known: %s)", e.ID, strings.Join(e.Known, ", "))
}

// Registry maps instrument ids to their ranges. It is an explicit value
// threaded into every engine entry point; registration and clearing happen
// at process start or in test setup, never concurrently with an in-flight
// arrangement call.
type Registry struct {
	mu     sync.RWMutex
	ranges map[string]Range
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ranges: make(map[string]Range)}
}

// Register validates and stores a range under its id. Registering the same
// id twice replaces the earlier entry.
func (reg *Registry) Register(r Range) error {
	if err := r.Validate(); err != nil {
		return err
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.ranges == nil {
		reg.ranges = make(map[string]Range)
	}
	reg.ranges[r.ID] = r
	return nil
}

// Lookup returns the range registered under id.
func (reg *Registry) Lookup(id string) (Range, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.ranges[id]
	if !ok {
		return Range{}, &NotRegisteredError{ID: id, Known: reg.idsLocked()}
	}
	return r, nil
}

// IDs returns the sorted registered instrument ids.
func (reg *Registry) IDs() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.idsLocked()
}

func (reg *Registry) idsLocked() []string {
	ids := make([]string, 0, len(reg.ranges))
	for id := range reg.ranges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear removes every registration. Test-only reset; must not race with an
// arrangement call.
func (reg *Registry) Clear() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.ranges = make(map[string]Range)
}
