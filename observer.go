package chime

import (
	"context"

	"github.com/mateteriya/chime/model"
)

// SchedulerObserver defines an optional interface for reacting to scheduler
// events (tick summaries, failed deliveries, invalidated subscriptions).
//
// Implementations might export metrics, page an operator, or log to
// monitoring systems. The tick summary is the primary operational signal:
// end users never see scheduler errors, they only notice a missing
// notification.
type SchedulerObserver interface {
	// TickCompleted is called after every scheduler tick with the aggregated
	// summary, including ticks that fired nothing.
	TickCompleted(ctx context.Context, summary model.TickSummary) error

	// DeliveryFailed is called when a delivery attempt ends in a temporary
	// or permanent failure, after in-call retries are exhausted.
	DeliveryFailed(ctx context.Context, ownerID, triggerID string, result model.DeliveryResult) error

	// SubscriptionInvalidated is called when a permanent failure removed a
	// subscription from the registry.
	SubscriptionInvalidated(ctx context.Context, sub model.Subscription) error
}

// NoOpSchedulerObserver is a no-op implementation of SchedulerObserver.
// Use this when observation is not needed.
type NoOpSchedulerObserver struct{}

// TickCompleted does nothing.
func (o *NoOpSchedulerObserver) TickCompleted(_ context.Context, _ model.TickSummary) error {
	return nil
}

// DeliveryFailed does nothing.
func (o *NoOpSchedulerObserver) DeliveryFailed(_ context.Context, _, _ string, _ model.DeliveryResult) error {
	return nil
}

// SubscriptionInvalidated does nothing.
func (o *NoOpSchedulerObserver) SubscriptionInvalidated(_ context.Context, _ model.Subscription) error {
	return nil
}

// LoggingSchedulerObserver is a simple implementation that logs scheduler events.
type LoggingSchedulerObserver struct {
	logger Logger
}

// NewLoggingSchedulerObserver creates a new LoggingSchedulerObserver.
func NewLoggingSchedulerObserver(logger Logger) *LoggingSchedulerObserver {
	return &LoggingSchedulerObserver{logger: logger}
}

// TickCompleted logs the tick summary.
func (o *LoggingSchedulerObserver) TickCompleted(_ context.Context, summary model.TickSummary) error {
	o.logger.Infof("tick completed: %s", summary)
	return nil
}

// DeliveryFailed logs the failed delivery.
func (o *LoggingSchedulerObserver) DeliveryFailed(_ context.Context, ownerID, triggerID string, result model.DeliveryResult) error {
	o.logger.Warnf("delivery failed: owner=%s trigger=%s outcome=%s status=%d attempts=%d",
		ownerID, triggerID, result.Outcome, result.StatusCode, result.Attempts)
	return nil
}

// SubscriptionInvalidated logs the removal.
func (o *LoggingSchedulerObserver) SubscriptionInvalidated(_ context.Context, sub model.Subscription) error {
	o.logger.Infof("subscription invalidated: owner=%s endpoint gone", sub.OwnerID)
	return nil
}
