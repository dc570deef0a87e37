package model

import (
	"time"

	"github.com/google/uuid"
)

// FiringOutcomePending is recorded when the firing is claimed, before the
// delivery attempt completes. The other outcome values come from
// DeliveryOutcome.String.
const FiringOutcomePending = "pending"

// Firing records that a delivery attempt was claimed for one
// (trigger, owner, civil date) occurrence. It is the de-duplication ledger:
// the triple is unique, persisted, and survives scheduler restarts, so the
// invariant "at most one delivery attempt per trigger per owner per day"
// holds across restarts and across concurrently running scheduler instances.
//
// A firing is recorded regardless of delivery outcome. A failed attempt is
// deliberately not retried on later ticks within the same window; that keeps
// a partial push-service outage from turning into a notification storm.
type Firing struct {
	ID          string    `json:"id"`
	TriggerID   string    `json:"triggerID"`
	OwnerID     string    `json:"ownerID"`
	CivilDate   string    `json:"civilDate"` // "2006-01-02" in the owner's zone
	Outcome     string    `json:"outcome"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// TableName returns the database table name for Firing.
func (m Firing) TableName() string {
	return tablePrefix + "firing"
}

// NewFiring creates a pending firing record for one occurrence.
func NewFiring(triggerID, ownerID, civilDate string) Firing {
	return Firing{
		ID:          uuid.NewString(),
		TriggerID:   triggerID,
		OwnerID:     ownerID,
		CivilDate:   civilDate,
		Outcome:     FiringOutcomePending,
		AttemptedAt: time.Now(),
	}
}

// Key returns the de-duplication identity of the firing.
func (m Firing) Key() string {
	return m.TriggerID + "|" + m.OwnerID + "|" + m.CivilDate
}

// MarkOutcome records the classified result of the delivery attempt.
func (m *Firing) MarkOutcome(outcome DeliveryOutcome) {
	m.Outcome = outcome.String()
}
