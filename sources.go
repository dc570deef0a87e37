package chime

import "context"

// TimezoneSource resolves an owner's effective IANA timezone. This is an
// external collaborator interface, typically backed by the room/profile
// storage that knows which timezone the owner selected.
//
// The scheduler calls it on every tick for every owner and never caches the
// answer across ticks, because the owner's selection can change between
// ticks. Returning an empty zone or an error makes the scheduler fall back
// to its configured default zone.
type TimezoneSource interface {
	// EffectiveTimezone returns the owner's IANA timezone, or "" when the
	// owner has not set one.
	EffectiveTimezone(ctx context.Context, ownerID string) (string, error)
}

// TimezoneFunc adapts a plain function to the TimezoneSource interface.
type TimezoneFunc func(ctx context.Context, ownerID string) (string, error)

// EffectiveTimezone calls the wrapped function.
func (f TimezoneFunc) EffectiveTimezone(ctx context.Context, ownerID string) (string, error) {
	return f(ctx, ownerID)
}

// StaticTimezone returns a TimezoneSource that answers the same zone for
// every owner. Useful for single-region deployments and tests.
func StaticTimezone(zone string) TimezoneSource {
	return TimezoneFunc(func(context.Context, string) (string, error) {
		return zone, nil
	})
}

// EligibilitySource decides whether a trigger applies to an owner: an
// external collaborator call, e.g. "has an active toy on the tree" or
// "created a room".
//
// The predicate is evaluated only inside an open trigger window, after the
// de-duplication check. An evaluation error skips the owner for this tick
// WITHOUT claiming the firing, so the owner is retried on the next tick.
type EligibilitySource interface {
	// Eligible reports whether the trigger should fire for the owner.
	Eligible(ctx context.Context, ownerID, triggerID string) (bool, error)
}

// EligibilityFunc adapts a plain function to the EligibilitySource interface.
type EligibilityFunc func(ctx context.Context, ownerID, triggerID string) (bool, error)

// Eligible calls the wrapped function.
func (f EligibilityFunc) Eligible(ctx context.Context, ownerID, triggerID string) (bool, error) {
	return f(ctx, ownerID, triggerID)
}

// AllEligible returns an EligibilitySource that accepts every owner for
// every trigger.
func AllEligible() EligibilitySource {
	return EligibilityFunc(func(context.Context, string, string) (bool, error) {
		return true, nil
	})
}
