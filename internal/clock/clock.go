// Package clock provides the wall-clock scheduling primitives for the
// polling loop: an injectable clock and a deterministic cadence schedule
// computed in a configured time zone.
package clock

import (
	"fmt"
	"sort"
	"time"
)

// Clock abstracts time.Now so schedules can be driven deterministically in
// tests.
type Clock interface {
	Now() time.Time
}

// Real is the production clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// DefaultCadences maps each supported timeframe to its polling interval.
// A timeframe is due at wall-clock minute marks aligned to its interval
// (M15 at :00/:15/:30/:45, H1 on the hour, and so on).
var DefaultCadences = map[string]time.Duration{
	"M15": 15 * time.Minute,
	"H1":  time.Hour,
	"H4":  4 * time.Hour,
	"D1":  24 * time.Hour,
}

// Schedule decides when each timeframe is due, in a named time zone.
type Schedule struct {
	loc      *time.Location
	cadences map[string]time.Duration
}

// NewSchedule builds a schedule for the given IANA time zone and cadence
// table. Passing nil cadences selects DefaultCadences.
func NewSchedule(timezone string, cadences map[string]time.Duration) (*Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", timezone, err)
	}
	if cadences == nil {
		cadences = DefaultCadences
	}
	for tf, interval := range cadences {
		if interval < time.Minute || interval%time.Minute != 0 {
			return nil, fmt.Errorf("cadence for %q must be a whole positive number of minutes, got %s", tf, interval)
		}
	}
	return &Schedule{loc: loc, cadences: cadences}, nil
}

// NextWake returns the next minute boundary strictly after now, in the
// schedule's zone. The polling loop wakes every minute and asks Due which
// timeframes to run.
func (s *Schedule) NextWake(now time.Time) time.Time {
	return now.In(s.loc).Truncate(time.Minute).Add(time.Minute)
}

// Due reports whether the timeframe is due at the given instant: the
// minutes elapsed since local midnight are an exact multiple of its
// cadence. Unknown timeframes are never due.
func (s *Schedule) Due(now time.Time, timeframe string) bool {
	interval, ok := s.cadences[timeframe]
	if !ok {
		return false
	}
	local := now.In(s.loc)
	minuteOfDay := local.Hour()*60 + local.Minute()
	return minuteOfDay%int(interval/time.Minute) == 0
}

// Timeframes lists the configured timeframes in a stable order.
func (s *Schedule) Timeframes() []string {
	tfs := make([]string, 0, len(s.cadences))
	for tf := range s.cadences {
		tfs = append(tfs, tf)
	}
	sort.Strings(tfs)
	return tfs
}
