package model

import (
	"fmt"
	"time"
)

// TickSummary aggregates what one scheduler tick did across all owners.
//
// End users never see scheduler errors directly; absence of a notification is
// the only visible symptom. The tick summary is therefore the primary
// operational signal and is handed to the SchedulerObserver after every tick.
type TickSummary struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Owners            int `json:"owners"`            // Subscriptions in the tick snapshot
	Delivered         int `json:"delivered"`         // Successful delivery attempts
	TemporaryFailures int `json:"temporaryFailures"` // Attempts that exhausted in-call retries
	PermanentFailures int `json:"permanentFailures"` // Gone endpoints, subscription removed
	Suppressed        int `json:"suppressed"`        // Duplicate firings skipped (expected, not errors)
	Ineligible        int `json:"ineligible"`        // Predicate returned false inside an open window
	PredicateErrors   int `json:"predicateErrors"`   // Owners skipped this tick, retried next tick
	Errors            int `json:"errors"`            // Unexpected per-owner failures
}

// Attempts returns the number of delivery attempts made during the tick.
func (s TickSummary) Attempts() int {
	return s.Delivered + s.TemporaryFailures + s.PermanentFailures
}

// String renders the compact one-line form used in tick logs.
func (s TickSummary) String() string {
	return fmt.Sprintf("owners=%d delivered=%d temp_failures=%d perm_failures=%d suppressed=%d ineligible=%d predicate_errors=%d errors=%d duration=%v",
		s.Owners, s.Delivered, s.TemporaryFailures, s.PermanentFailures,
		s.Suppressed, s.Ineligible, s.PredicateErrors, s.Errors,
		s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
}
