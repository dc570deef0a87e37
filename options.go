package chime

import (
	"github.com/mateteriya/chime/model"
)

// SchedulerOption configures a Scheduler during construction.
type SchedulerOption func(*Scheduler) error

// WithRepositories sets the subscription and firing repositories (required).
func WithRepositories(subs SubscriptionRepository, firings FiringRepository) SchedulerOption {
	return func(s *Scheduler) error {
		if subs == nil {
			return NewError(ErrCodeConfiguration, "subscription repository cannot be nil")
		}
		if firings == nil {
			return NewError(ErrCodeConfiguration, "firing repository cannot be nil")
		}
		s.subs = subs
		s.firings = firings
		return nil
	}
}

// WithDispatcher sets the push delivery implementation (required).
func WithDispatcher(dispatcher Dispatcher) SchedulerOption {
	return func(s *Scheduler) error {
		if dispatcher == nil {
			return NewError(ErrCodeConfiguration, "dispatcher cannot be nil")
		}
		s.dispatcher = dispatcher
		return nil
	}
}

// WithTriggers sets the trigger definitions evaluated on every tick
// (at least one required). Each trigger is validated up front so a
// misconfigured schedule fails at construction rather than mid-tick.
func WithTriggers(triggers ...model.Trigger) SchedulerOption {
	return func(s *Scheduler) error {
		for _, trigger := range triggers {
			if err := trigger.Validate(); err != nil {
				return NewErrorWithCause(ErrCodeValidation, "invalid trigger "+trigger.ID, err)
			}
		}
		s.triggers = append(s.triggers, triggers...)
		return nil
	}
}

// WithTimezoneSource sets the per-owner timezone lookup. Without it every
// owner resolves to the default zone.
func WithTimezoneSource(source TimezoneSource) SchedulerOption {
	return func(s *Scheduler) error {
		if source == nil {
			return NewError(ErrCodeConfiguration, "timezone source cannot be nil")
		}
		s.tz = source
		return nil
	}
}

// WithEligibilitySource sets the per-owner firing predicate. Without it
// every owner is eligible for every trigger.
func WithEligibilitySource(source EligibilitySource) SchedulerOption {
	return func(s *Scheduler) error {
		if source == nil {
			return NewError(ErrCodeConfiguration, "eligibility source cannot be nil")
		}
		s.eligibility = source
		return nil
	}
}

// WithClock sets the time source. Defaults to the system clock; tests
// substitute a fixed clock to step through firing windows.
func WithClock(clock Clock) SchedulerOption {
	return func(s *Scheduler) error {
		if clock == nil {
			return NewError(ErrCodeConfiguration, "clock cannot be nil")
		}
		s.clock = clock
		return nil
	}
}

// WithLogger sets the logger instance (required).
func WithLogger(logger Logger) SchedulerOption {
	return func(s *Scheduler) error {
		if logger == nil {
			return NewError(ErrCodeConfiguration, "logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithObserver sets the scheduler lifecycle observer. Defaults to a no-op.
func WithObserver(observer SchedulerObserver) SchedulerOption {
	return func(s *Scheduler) error {
		if observer == nil {
			return NewError(ErrCodeConfiguration, "observer cannot be nil")
		}
		s.observer = observer
		return nil
	}
}

// WithWorkers sets how many owners are processed concurrently within a tick.
// Defaults to 8.
func WithWorkers(workers int) SchedulerOption {
	return func(s *Scheduler) error {
		if workers < 1 {
			return NewError(ErrCodeConfiguration, "worker count must be at least 1")
		}
		s.workers = workers
		return nil
	}
}

// WithDefaultZone sets the IANA timezone used for owners whose effective
// timezone is unset or cannot be resolved. Defaults to UTC.
func WithDefaultZone(zone string) SchedulerOption {
	return func(s *Scheduler) error {
		if zone == "" {
			return NewError(ErrCodeConfiguration, "default zone cannot be empty")
		}
		s.defaultZone = zone
		return nil
	}
}
