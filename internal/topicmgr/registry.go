package topicmgr

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/rxbus/internal/pubsub"
	"github.com/nfrund/rxbus/internal/topic"
)

// Registry maps topic identities to processors. Safe for concurrent use.
type Registry struct {
	factory pubsub.Factory
	entries map[topic.Identity]*Entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry. A nil factory defaults to
// in-memory processors.
func NewRegistry(factory pubsub.Factory) *Registry {
	if factory == nil {
		factory = pubsub.MemoryFactory
	}
	return &Registry{
		factory: factory,
		entries: make(map[topic.Identity]*Entry),
	}
}

// LookupOrCreate returns the processor for id, creating it on first use.
// Concurrent callers with equal identities all get the same processor.
func (r *Registry) LookupOrCreate(id topic.Identity) (pubsub.Processor, error) {
	if err := id.Validate(); err != nil {
		return nil, &TopicError{
			Type:    ErrorInvalidIdentity,
			Topic:   id.String(),
			Message: "cannot create topic",
			Cause:   err,
		}
	}

	r.mu.RLock()
	entry, exists := r.entries[id]
	r.mu.RUnlock()
	if exists {
		return entry.Processor, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have created it between the two locks.
	if entry, exists := r.entries[id]; exists {
		return entry.Processor, nil
	}

	p, err := r.factory(id)
	if err != nil {
		return nil, &TopicError{
			Type:    ErrorCreateFailed,
			Topic:   id.String(),
			Message: fmt.Sprintf("failed to create processor for %s", id),
			Cause:   err,
		}
	}

	r.entries[id] = &Entry{
		Identity:  id,
		Topic:     id.String(),
		Processor: p,
		CreatedAt: time.Now(),
	}
	slog.Debug("Topic created", "topic", id.String())
	return p, nil
}

// LookupExisting returns the processor for id only if one was created
// by LookupOrCreate. It never creates a processor.
func (r *Registry) LookupExisting(id topic.Identity) (pubsub.Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, false
	}
	return entry.Processor, true
}

// GetEntry retrieves a copy of the registry entry for id.
func (r *Registry) GetEntry(id topic.Identity) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return Entry{}, false
	}
	return *entry, true
}

// List returns all registered identities sorted by name.
func (r *Registry) List() []topic.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]topic.Identity, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Count returns the number of registered topics
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Reset closes every processor and removes all topics. Observers attached
// to the old processors are detached.
func (r *Registry) Reset() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[topic.Identity]*Entry)
	r.mu.Unlock()

	var errs []error
	for id, entry := range entries {
		if err := entry.Processor.Close(); err != nil {
			errs = append(errs, &TopicError{
				Type:    ErrorCloseFailed,
				Topic:   id.String(),
				Message: "failed to close processor",
				Cause:   err,
			})
		}
	}
	slog.Debug("Registry reset", "topics", len(entries))
	return errors.Join(errs...)
}

// GetStats returns registry statistics
func (r *Registry) GetStats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		TotalTopics: len(r.entries),
		ByType:      make(map[string]int),
	}

	for id, entry := range r.entries {
		if id.IsKeyed() {
			stats.KeyedTopics++
		} else {
			stats.BareTopics++
		}
		stats.ByType[id.Type().String()]++
		stats.Observers += entry.Processor.ObserverCount()
	}

	return stats
}
