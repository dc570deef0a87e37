// Package memory provides mutex-guarded in-memory repository implementations.
//
// Intended for tests, examples, and single-process deployments that do not
// need firings to survive a restart. The firing claim has the same
// first-writer-wins semantics as the SQL adapters, so scheduler behavior is
// identical aside from durability.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mateteriya/chime"
	"github.com/mateteriya/chime/model"
)

// SubscriptionRepository implements chime.SubscriptionRepository in memory.
type SubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]model.Subscription // keyed by owner ID
}

// NewSubscriptionRepository creates an empty in-memory subscription store.
func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{subs: make(map[string]model.Subscription)}
}

// Upsert stores the subscription, replacing any existing one for the owner.
func (r *SubscriptionRepository) Upsert(_ context.Context, m model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[m.OwnerID] = m
	return nil
}

// Get retrieves an owner's subscription.
func (r *SubscriptionRepository) Get(_ context.Context, ownerID string) (model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[ownerID]
	if !ok {
		return model.Subscription{}, chime.ErrNoData
	}
	return sub, nil
}

// Remove deletes an owner's subscription. Removing an absent owner is a no-op.
func (r *SubscriptionRepository) Remove(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, ownerID)
	return nil
}

// ListAll retrieves every subscription for a scheduler tick snapshot.
func (r *SubscriptionRepository) ListAll(_ context.Context) ([]model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.subs) == 0 {
		return nil, chime.ErrNoData
	}
	subs := make([]model.Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs, nil
}

// FiringRepository implements chime.FiringRepository in memory.
type FiringRepository struct {
	mu      sync.Mutex
	firings map[string]model.Firing // keyed by Firing.Key()
}

// NewFiringRepository creates an empty in-memory firing ledger.
func NewFiringRepository() *FiringRepository {
	return &FiringRepository{firings: make(map[string]model.Firing)}
}

// Record inserts the firing, claiming the occurrence.
// Returns created=false when the occurrence is already claimed.
func (r *FiringRepository) Record(_ context.Context, m model.Firing) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := m.Key()
	if _, exists := r.firings[key]; exists {
		return false, nil
	}
	r.firings[key] = m
	return true, nil
}

// Exists reports whether the occurrence has already been claimed.
func (r *FiringRepository) Exists(_ context.Context, triggerID, ownerID, civilDate string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.firings[firingKey(triggerID, ownerID, civilDate)]
	return exists, nil
}

// UpdateOutcome records the classified delivery result on a claimed firing.
func (r *FiringRepository) UpdateOutcome(_ context.Context, triggerID, ownerID, civilDate, outcome string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := firingKey(triggerID, ownerID, civilDate)
	firing, exists := r.firings[key]
	if !exists {
		return chime.ErrNoData
	}
	firing.Outcome = outcome
	r.firings[key] = firing
	return nil
}

// PurgeOlderThan deletes firing records attempted before the cutoff.
func (r *FiringRepository) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for key, firing := range r.firings {
		if firing.AttemptedAt.Before(cutoff) {
			delete(r.firings, key)
			purged++
		}
	}
	return purged, nil
}

func firingKey(triggerID, ownerID, civilDate string) string {
	return model.Firing{TriggerID: triggerID, OwnerID: ownerID, CivilDate: civilDate}.Key()
}
