package availability

import (
	"time"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

// Interval is a half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// OpenIntervals places slots on the calendar date of day in loc.
func OpenIntervals(day time.Time, slots []schedule.TimeSlot, loc *time.Location) []Interval {
	out := make([]Interval, 0, len(slots))
	for _, s := range slots {
		start, ok1 := schedule.ParseClock(s.Start)
		end, ok2 := schedule.ParseClock(s.End)
		if !ok1 || !ok2 || start >= end {
			continue
		}
		out = append(out, Interval{
			Start: schedule.At(day, start, loc),
			End:   schedule.At(day, end, loc),
		})
	}
	return out
}

// StartTimes returns start times, stepping by step from each interval's start,
// at which a visit of length duration fits entirely inside one open interval.
// Starts before now are skipped.
func StartTimes(open []Interval, duration, step time.Duration, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	var starts []time.Time
	for _, iv := range open {
		for t := iv.Start; !t.Add(duration).After(iv.End); t = t.Add(step) {
			if t.Before(now) {
				continue
			}
			starts = append(starts, t)
		}
	}
	return starts
}

func containsAny(open []Interval, t time.Time) bool {
	for _, iv := range open {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}
