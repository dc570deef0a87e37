// Package civiltime resolves civil date-times ("Dec 31, 23:57") against IANA
// timezones into absolute UTC instants.
//
// Resolution applies the zone's UTC offset at that specific civil date, not
// the zone's current offset, and handles DST transitions with an explicit
// deterministic policy:
//
//   - A civil time that occurs twice (fall-back fold) resolves to the EARLIER
//     of the two real instants.
//   - A civil time that does not exist (spring-forward gap) resolves to the
//     first valid instant after the gap, i.e. the transition instant itself.
//
// Resolution is a pure calculation: identical inputs always yield an
// identical instant.
package civiltime

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownTimezone indicates the IANA timezone identifier could not be
// loaded. Callers are expected to fall back to a configured default zone
// rather than abandoning the owner's schedule.
var ErrUnknownTimezone = errors.New("civiltime: unknown timezone")

// Civil is a calendar date plus time-of-day without any timezone attached.
type Civil struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// Date returns the "2006-01-02" form of the civil calendar day.
func (c Civil) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", c.Year, int(c.Month), c.Day)
}

// String renders the civil time in ISO-8601 local form, without offset.
func (c Civil) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d",
		c.Year, int(c.Month), c.Day, c.Hour, c.Minute, c.Second)
}

// FromTime extracts the civil components of t in its own location.
func FromTime(t time.Time) Civil {
	return Civil{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// Location loads the named IANA zone, translating lookup failures into
// ErrUnknownTimezone so callers can detect the recoverable case.
func Location(zone string) (*time.Location, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, zone)
	}
	return loc, nil
}

// Resolve converts a civil date-time in the named IANA zone to an absolute
// UTC instant, applying the package's documented fold/gap policy.
func Resolve(c Civil, zone string) (time.Time, error) {
	loc, err := Location(zone)
	if err != nil {
		return time.Time{}, err
	}
	return ResolveIn(c, loc), nil
}

// ResolveIn is Resolve for an already-loaded location.
func ResolveIn(c Civil, loc *time.Location) time.Time {
	// Interpret the civil components as if they were UTC, then shift by the
	// zone offsets in effect a day before and a day after. Around a DST
	// transition the two probes see different offsets and produce the two
	// candidate instants.
	utc := time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, 0, time.UTC)

	_, offBefore := utc.Add(-24 * time.Hour).In(loc).Zone()
	_, offAfter := utc.Add(24 * time.Hour).In(loc).Zone()

	candA := utc.Add(-time.Duration(offBefore) * time.Second)
	candB := utc.Add(-time.Duration(offAfter) * time.Second)

	matchA := sameCivil(candA.In(loc), c)
	matchB := sameCivil(candB.In(loc), c)

	switch {
	case matchA && matchB:
		// Fold: the civil time occurs twice. Policy: earlier real instant.
		if candB.Before(candA) {
			return candB.UTC()
		}
		return candA.UTC()
	case matchA:
		return candA.UTC()
	case matchB:
		return candB.UTC()
	default:
		// Gap: the civil time does not exist. Policy: first valid instant
		// after the gap, which is the transition instant itself.
		return transitionAfter(candA, candB, loc).UTC()
	}
}

// sameCivil reports whether t's wall clock reads exactly c.
func sameCivil(t time.Time, c Civil) bool {
	return t.Year() == c.Year &&
		t.Month() == c.Month &&
		t.Day() == c.Day &&
		t.Hour() == c.Hour &&
		t.Minute() == c.Minute &&
		t.Second() == c.Second
}

// transitionAfter locates the instant at which loc's offset changes between
// the two candidate instants, by binary search to one-second precision.
func transitionAfter(a, b time.Time, loc *time.Location) time.Time {
	lo, hi := a, b
	if hi.Before(lo) {
		lo, hi = hi, lo
	}
	_, offLo := lo.In(loc).Zone()
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
		if _, off := mid.In(loc).Zone(); off == offLo {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}
