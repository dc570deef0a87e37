package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mateteriya/chime/civiltime"
)

// Trigger defines a recurring civil-time event, e.g. "Dec 31, 23:57 local".
//
// Triggers are immutable configuration, defined once at system setup and
// shared by every owner; they are never persisted per-user. The civil target
// is resolved against each owner's effective timezone at evaluation time, so
// the same trigger fires at a different absolute instant for every zone.
//
// A trigger is eligible to fire during its window: the half-open interval
// [target, target+Window) in the owner's local time. The window must be wider
// than the scheduler tick interval or ticks may skip it entirely.
type Trigger struct {
	ID      string        `json:"id"`
	Month   time.Month    `json:"month"`
	Day     int           `json:"day"`
	Hour    int           `json:"hour"`
	Minute  int           `json:"minute"`
	Window  time.Duration `json:"window"`
	Yearly  bool          `json:"yearly"` // Recurs every civil year
	Year    int           `json:"year"`   // Fixed year for one-shot triggers
	Payload Notification  `json:"payload"`
}

// TriggerWindow describes an open firing window for a specific occurrence.
type TriggerWindow struct {
	Start     time.Time // Absolute instant of the civil target
	CivilDate string    // Calendar day the occurrence applies to ("2006-01-02")
}

// NewYearlyTrigger creates a trigger that fires once per civil year.
func NewYearlyTrigger(id string, month time.Month, day, hour, minute int, window time.Duration, payload Notification) Trigger {
	return Trigger{
		ID:      id,
		Month:   month,
		Day:     day,
		Hour:    hour,
		Minute:  minute,
		Window:  window,
		Yearly:  true,
		Payload: payload,
	}
}

// NewOneShotTrigger creates a trigger bound to a single civil year.
func NewOneShotTrigger(id string, year int, month time.Month, day, hour, minute int, window time.Duration, payload Notification) Trigger {
	t := NewYearlyTrigger(id, month, day, hour, minute, window, payload)
	t.Yearly = false
	t.Year = year
	return t
}

// Validate checks the trigger describes a real civil time and a usable window.
func (t Trigger) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required, validation.Length(1, 64)),
		validation.Field(&t.Month, validation.Required, validation.Min(time.January), validation.Max(time.December)),
		validation.Field(&t.Day, validation.Required, validation.Min(1), validation.Max(31)),
		validation.Field(&t.Hour, validation.Min(0), validation.Max(23)),
		validation.Field(&t.Minute, validation.Min(0), validation.Max(59)),
		validation.Field(&t.Window, validation.Required, validation.Min(time.Minute)),
		validation.Field(&t.Payload),
	)
}

// CivilDate returns the de-duplication calendar day for the given year's
// occurrence.
func (t Trigger) CivilDate(year int) string {
	return civiltime.Civil{Year: year, Month: t.Month, Day: t.Day}.Date()
}

// Target returns the absolute instant of the trigger's civil target in the
// given year and zone, applying the civiltime DST policy.
func (t Trigger) Target(year int, zone string) (time.Time, error) {
	return civiltime.Resolve(civiltime.Civil{
		Year:   year,
		Month:  t.Month,
		Day:    t.Day,
		Hour:   t.Hour,
		Minute: t.Minute,
	}, zone)
}

// OpenWindow reports whether now falls inside one of the trigger's firing
// windows in the given zone, and if so which occurrence it belongs to.
//
// Both the owner's current and previous local civil year are considered: a
// window opened late on Dec 31 may still be open when the owner's local
// calendar has already rolled over to Jan 1.
func (t Trigger) OpenWindow(now time.Time, zone string) (TriggerWindow, bool, error) {
	loc, err := civiltime.Location(zone)
	if err != nil {
		return TriggerWindow{}, false, err
	}
	localYear := now.In(loc).Year()
	for _, year := range []int{localYear, localYear - 1} {
		if !t.Yearly && year != t.Year {
			continue
		}
		target, err := t.Target(year, zone)
		if err != nil {
			return TriggerWindow{}, false, err
		}
		if !now.Before(target) && now.Before(target.Add(t.Window)) {
			return TriggerWindow{Start: target, CivilDate: t.CivilDate(year)}, true, nil
		}
	}
	return TriggerWindow{}, false, nil
}
