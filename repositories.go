package chime

import (
	"context"
	"time"

	"github.com/mateteriya/chime/model"
)

// SubscriptionRepository defines the persistence interface for Web Push
// subscriptions. One live subscription per owner.
//
// Implementations must be safe for concurrent use: the scheduler reads
// snapshots while API handlers upsert and remove concurrently.
type SubscriptionRepository interface {
	// Upsert stores the subscription, atomically replacing any previous
	// subscription for the same owner. There is never a window in which an
	// owner has two live subscriptions.
	Upsert(ctx context.Context, m model.Subscription) error

	// Get retrieves the owner's live subscription.
	// Returns ErrNoData if the owner has none.
	Get(ctx context.Context, ownerID string) (model.Subscription, error)

	// Remove deletes the owner's subscription. Idempotent: removing an
	// absent owner is not an error.
	Remove(ctx context.Context, ownerID string) error

	// ListAll returns every live subscription. No ordering is guaranteed.
	// Returns ErrNoData when there are none.
	ListAll(ctx context.Context) ([]model.Subscription, error)
}

// FiringRepository defines the persistence interface for the trigger firing
// ledger: the (trigger, owner, civil date) de-duplication records.
//
// Records must survive process restarts within the same window. When
// multiple scheduler instances run, Record's claim must be atomic (a
// unique-constraint insert or equivalent) so two instances can never both
// deliver for the same occurrence.
type FiringRepository interface {
	// Record claims the firing. Returns created=true when this call inserted
	// the record, created=false when the (trigger, owner, civil date) triple
	// was already claimed. Only the claimer may attempt delivery.
	Record(ctx context.Context, m model.Firing) (created bool, err error)

	// Exists reports whether the occurrence has already been claimed.
	Exists(ctx context.Context, triggerID, ownerID, civilDate string) (bool, error)

	// UpdateOutcome records the classified delivery result on an existing
	// firing. Best effort: the claim itself, not the outcome, carries the
	// de-duplication invariant.
	UpdateOutcome(ctx context.Context, triggerID, ownerID, civilDate, outcome string) error

	// PurgeOlderThan deletes firing records attempted before the cutoff and
	// returns how many were removed. Keeps the ledger from growing without
	// bound; records only matter within their own civil day.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
