// Package calendar turns a weekly schedule into dated occurrences and exports them.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/overrides"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

// MaxRangeDays caps how far one expansion may reach.
const MaxRangeDays = 366

var ErrInvalidRange = errors.New("invalid date range")

// Occurrence is one slot on one calendar date.
type Occurrence struct {
	Date    string
	Weekday schedule.Weekday
	Slot    schedule.TimeSlot
	Start   time.Time
	End     time.Time
}

var rruleDays = map[schedule.Weekday]rrule.Weekday{
	schedule.Monday:    rrule.MO,
	schedule.Tuesday:   rrule.TU,
	schedule.Wednesday: rrule.WE,
	schedule.Thursday:  rrule.TH,
	schedule.Friday:    rrule.FR,
	schedule.Saturday:  rrule.SA,
	schedule.Sunday:    rrule.SU,
}

// Expand lists every effective slot between the from and to dates, both
// inclusive, in loc. Dates come from a weekly recurrence over the weekdays
// that carry slots; each date is then resolved through the override store.
func Expand(ws schedule.WeekSchedule, ov *overrides.Store, from, to string, loc *time.Location) ([]Occurrence, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := schedule.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return nil, fmt.Errorf("%w: more than %d days", ErrInvalidRange, MaxRangeDays)
	}

	var days []rrule.Weekday
	for _, d := range schedule.Weekdays() {
		if len(ws[d]) > 0 {
			days = append(days, rruleDays[d])
		}
	}
	if len(days) == 0 {
		return []Occurrence{}, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: days,
		Dtstart:   start,
		Until:     end,
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence: %w", err)
	}

	out := []Occurrence{}
	for _, day := range r.All() {
		date := schedule.FormatDate(day)
		slots, err := ov.ResolveEffectiveSlots(ws, date)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			occ, ok := occurrence(date, slot, loc)
			if ok {
				out = append(out, occ)
			}
		}
	}
	return out, nil
}

func occurrence(date string, slot schedule.TimeSlot, loc *time.Location) (Occurrence, bool) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return Occurrence{}, false
	}
	sm, ok1 := schedule.ParseClock(slot.Start)
	em, ok2 := schedule.ParseClock(slot.End)
	if !ok1 || !ok2 {
		return Occurrence{}, false
	}
	return Occurrence{
		Date:    date,
		Weekday: schedule.WeekdayFromTime(d),
		Slot:    slot,
		Start:   schedule.At(d, sm, loc),
		End:     schedule.At(d, em, loc),
	}, true
}
