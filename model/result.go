package model

import "time"

// DeliveryOutcome classifies the result of a push delivery attempt.
type DeliveryOutcome int

const (
	// Delivered indicates the push service accepted the message (2xx).
	Delivered DeliveryOutcome = iota

	// TemporaryFailure indicates a retryable condition (429, 5xx, timeout,
	// transport error). The dispatcher retries a bounded number of times
	// within the call; after that the failure stands until the next natural
	// trigger window.
	TemporaryFailure

	// PermanentFailure indicates the endpoint is gone (404/410). The caller
	// must remove the subscription; no retry is ever attempted.
	PermanentFailure
)

// String returns the outcome name used in firing records and logs.
func (o DeliveryOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TemporaryFailure:
		return "temporary_failure"
	case PermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// DeliveryResult describes the final classified outcome of one Deliver call,
// including any in-call retries.
type DeliveryResult struct {
	Outcome    DeliveryOutcome `json:"outcome"`
	StatusCode int             `json:"statusCode"` // Last HTTP status, 0 on transport error
	RetryAfter time.Duration   `json:"retryAfter"` // Push service backpressure hint, if any
	Attempts   int             `json:"attempts"`   // Total HTTP attempts made
}
