package chime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mateteriya/chime/civiltime"
	"github.com/mateteriya/chime/model"
)

// Dispatcher defines the interface for delivering an encrypted notification
// to one subscription's push endpoint. This interface avoids a dependency on
// the webpush package while enabling alternative transports in tests.
//
// Implementations classify the result; they must not mutate subscription
// storage; the Scheduler interprets a PermanentFailure and removes the
// subscription itself.
type Dispatcher interface {
	// Deliver attempts delivery and returns the classified result.
	// err is reserved for conditions that prevented any attempt.
	Deliver(ctx context.Context, sub model.Subscription, n model.Notification) (model.DeliveryResult, error)
}

// Scheduler is the orchestrating loop: on every tick it snapshots all
// subscriptions, resolves each owner's effective timezone, tests each
// trigger's local firing window, and dispatches at most one notification per
// (trigger, owner, civil date).
//
// Key responsibilities:
//   - Recompute each owner's effective timezone on every tick (never cached)
//   - Claim firings through the FiringRepository before delivering
//   - Remove subscriptions whose endpoints are permanently gone
//   - Isolate owners: one owner's failure never aborts the tick for others
//
// Thread safety: Safe for concurrent use. Owners within a tick are processed
// by a bounded worker pool; Run itself must only be invoked once.
type Scheduler struct {
	subs        SubscriptionRepository
	firings     FiringRepository
	dispatcher  Dispatcher
	triggers    []model.Trigger
	tz          TimezoneSource
	eligibility EligibilitySource
	clock       Clock
	logger      Logger
	observer    SchedulerObserver
	workers     int
	defaultZone string
}

// NewScheduler creates a Scheduler with the provided options.
//
// Required options:
//   - WithRepositories: subscription and firing repositories
//   - WithDispatcher: push delivery implementation
//   - WithTriggers: at least one trigger definition
//   - WithLogger: logger instance
//
// Optional options:
//   - WithTimezoneSource (default: every owner unset, falls back to default zone)
//   - WithEligibilitySource (default: all owners eligible)
//   - WithClock, WithObserver, WithWorkers, WithDefaultZone
//
// Example:
//
//	scheduler, err := chime.NewScheduler(
//	    chime.WithRepositories(repos.Subscription, repos.Firing),
//	    chime.WithDispatcher(dispatcher),
//	    chime.WithTriggers(triggers...),
//	    chime.WithTimezoneSource(tzSource),
//	    chime.WithLogger(logger),
//	)
func NewScheduler(opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		tz:          StaticTimezone(""),
		eligibility: AllEligible(),
		clock:       SystemClock{},
		observer:    &NoOpSchedulerObserver{},
		workers:     8,
		defaultZone: "UTC",
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply scheduler option", err)
		}
	}

	if s.subs == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriptionRepository is required (use WithRepositories)")
	}
	if s.firings == nil {
		return nil, NewError(ErrCodeConfiguration, "FiringRepository is required (use WithRepositories)")
	}
	if s.dispatcher == nil {
		return nil, NewError(ErrCodeConfiguration, "Dispatcher is required (use WithDispatcher)")
	}
	if len(s.triggers) == 0 {
		return nil, NewError(ErrCodeConfiguration, "at least one trigger is required (use WithTriggers)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}
	if _, err := civiltime.Location(s.defaultZone); err != nil {
		return nil, NewErrorWithCause(ErrCodeConfiguration, "default zone is not a valid IANA timezone", err)
	}

	return s, nil
}

// Run starts the scheduler loop, evaluating triggers at the given interval
// until the context is canceled. The interval must be shorter than the
// narrowest trigger window or windows can be skipped entirely.
//
// This method blocks and should typically be run in a goroutine.
//
// Example:
//
//	ctx := context.Background()
//	go scheduler.Run(ctx, 5*time.Minute)
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			summary, err := s.RunTick(ctx)
			if err != nil {
				s.logger.Errorf("Tick failed: %v", err)
				continue
			}
			if summary.Attempts() > 0 || summary.Errors > 0 {
				s.logger.Infof("Tick: %s", summary)
			}
		}
	}
}

// RunTick evaluates every trigger for every subscribed owner exactly once.
// Exported so serverless deployments can drive the same firing contract from
// an external timer instead of Run.
//
// Per-owner failures are isolated and aggregated into the returned summary;
// the only error conditions are those that prevent the tick entirely, such
// as the subscription snapshot failing.
func (s *Scheduler) RunTick(ctx context.Context) (model.TickSummary, error) {
	summary := model.TickSummary{StartedAt: s.clock.Now()}

	subscriptions, err := s.subs.ListAll(ctx)
	if err != nil && !errors.Is(err, ErrNoData) {
		return summary, NewErrorWithCause(ErrCodeDatabase, "failed to snapshot subscriptions", err)
	}
	summary.Owners = len(subscriptions)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan model.Subscription)
	)

	workers := s.workers
	if workers > len(subscriptions) {
		workers = len(subscriptions)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				result := s.processOwner(ctx, sub)
				mu.Lock()
				summary.Delivered += result.Delivered
				summary.TemporaryFailures += result.TemporaryFailures
				summary.PermanentFailures += result.PermanentFailures
				summary.Suppressed += result.Suppressed
				summary.Ineligible += result.Ineligible
				summary.PredicateErrors += result.PredicateErrors
				summary.Errors += result.Errors
				mu.Unlock()
			}
		}()
	}

	for _, sub := range subscriptions {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()

	summary.FinishedAt = s.clock.Now()

	if err := s.observer.TickCompleted(ctx, summary); err != nil {
		s.logger.Warnf("Tick observer failed: %v", err)
	}

	return summary, nil
}

// processOwner evaluates all triggers for a single owner. Never returns an
// error: every failure mode is folded into the partial summary so the owner
// cannot affect the rest of the tick.
func (s *Scheduler) processOwner(ctx context.Context, sub model.Subscription) model.TickSummary {
	var result model.TickSummary

	zone := s.effectiveZone(ctx, sub.OwnerID)
	now := s.clock.Now()

	for _, trigger := range s.triggers {
		window, open, err := trigger.OpenWindow(now, zone)
		if errors.Is(err, civiltime.ErrUnknownTimezone) {
			// Owner's zone vanished between lookup and use; retry against
			// the default zone rather than dropping the owner's schedule.
			s.logger.Warnf("Unknown timezone %q for owner %s, falling back to %s", zone, sub.OwnerID, s.defaultZone)
			zone = s.defaultZone
			window, open, err = trigger.OpenWindow(now, zone)
		}
		if err != nil {
			s.logger.Errorf("Window evaluation failed for owner %s trigger %s: %v", sub.OwnerID, trigger.ID, err)
			result.Errors++
			continue
		}
		if !open {
			continue
		}

		s.fireTrigger(ctx, sub, trigger, window, &result)
	}

	return result
}

// fireTrigger delivers one occurrence at most once.
func (s *Scheduler) fireTrigger(ctx context.Context, sub model.Subscription, trigger model.Trigger, window model.TriggerWindow, result *model.TickSummary) {
	fired, err := s.firings.Exists(ctx, trigger.ID, sub.OwnerID, window.CivilDate)
	if err != nil {
		s.logger.Errorf("Firing lookup failed for owner %s trigger %s: %v", sub.OwnerID, trigger.ID, err)
		result.Errors++
		return
	}
	if fired {
		s.logger.Debugf("Duplicate firing suppressed: trigger=%s owner=%s date=%s", trigger.ID, sub.OwnerID, window.CivilDate)
		result.Suppressed++
		return
	}

	eligible, err := s.eligibility.Eligible(ctx, sub.OwnerID, trigger.ID)
	if err != nil {
		// Skipped without claiming the firing: the owner is retried on the
		// next tick while the window remains open.
		s.logger.Warnf("Eligibility predicate failed for owner %s trigger %s: %v", sub.OwnerID, trigger.ID, err)
		result.PredicateErrors++
		return
	}
	if !eligible {
		result.Ineligible++
		return
	}

	created, err := s.firings.Record(ctx, model.NewFiring(trigger.ID, sub.OwnerID, window.CivilDate))
	if err != nil {
		s.logger.Errorf("Firing claim failed for owner %s trigger %s: %v", sub.OwnerID, trigger.ID, err)
		result.Errors++
		return
	}
	if !created {
		// Another instance (or a concurrent worker) claimed it first.
		s.logger.Debugf("Duplicate firing suppressed at claim: trigger=%s owner=%s date=%s", trigger.ID, sub.OwnerID, window.CivilDate)
		result.Suppressed++
		return
	}

	delivery, err := s.dispatcher.Deliver(ctx, sub, trigger.Payload)
	if err != nil {
		// The claim stands: a broken subscription must not produce a fresh
		// attempt on every subsequent tick of the window.
		s.logger.Errorf("Delivery attempt failed for owner %s trigger %s: %v", sub.OwnerID, trigger.ID, err)
		result.Errors++
		return
	}

	if err := s.firings.UpdateOutcome(ctx, trigger.ID, sub.OwnerID, window.CivilDate, delivery.Outcome.String()); err != nil {
		s.logger.Warnf("Failed to record delivery outcome for owner %s trigger %s: %v", sub.OwnerID, trigger.ID, err)
	}

	switch delivery.Outcome {
	case model.Delivered:
		result.Delivered++
		s.logger.Infof("Delivered %s to owner %s (status=%d, attempts=%d)",
			trigger.ID, sub.OwnerID, delivery.StatusCode, delivery.Attempts)
	case model.TemporaryFailure:
		result.TemporaryFailures++
		if err := s.observer.DeliveryFailed(ctx, sub.OwnerID, trigger.ID, delivery); err != nil {
			s.logger.Warnf("Delivery observer failed: %v", err)
		}
	case model.PermanentFailure:
		result.PermanentFailures++
		if err := s.observer.DeliveryFailed(ctx, sub.OwnerID, trigger.ID, delivery); err != nil {
			s.logger.Warnf("Delivery observer failed: %v", err)
		}
		if err := s.subs.Remove(ctx, sub.OwnerID); err != nil {
			s.logger.Errorf("Failed to remove gone subscription for owner %s: %v", sub.OwnerID, err)
			return
		}
		s.logger.Infof("Removed subscription for owner %s (endpoint gone, status=%d)", sub.OwnerID, delivery.StatusCode)
		if err := s.observer.SubscriptionInvalidated(ctx, sub); err != nil {
			s.logger.Warnf("Invalidation observer failed: %v", err)
		}
	}
}

// effectiveZone resolves the owner's timezone for this tick, falling back to
// the default zone on lookup failure or when unset.
func (s *Scheduler) effectiveZone(ctx context.Context, ownerID string) string {
	zone, err := s.tz.EffectiveTimezone(ctx, ownerID)
	if err != nil {
		s.logger.Warnf("Timezone lookup failed for owner %s, using %s: %v", ownerID, s.defaultZone, err)
		return s.defaultZone
	}
	if zone == "" {
		return s.defaultZone
	}
	return zone
}

// PurgeFirings removes firing records attempted before the cutoff.
// Occurrences only need their records within their own civil day; a daily
// purge with a cutoff a few days back keeps the ledger small without
// touching any window still in flight.
func (s *Scheduler) PurgeFirings(ctx context.Context, cutoff time.Time) (int, error) {
	purged, err := s.firings.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, NewErrorWithCause(ErrCodeDatabase, "failed to purge firings", err)
	}
	if purged > 0 {
		s.logger.Infof("Purged %d firing records older than %s", purged, cutoff.Format(time.RFC3339))
	}
	return purged, nil
}
