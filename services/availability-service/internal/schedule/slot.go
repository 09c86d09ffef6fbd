package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TimeSlot is one contiguous time-of-day window on a weekday. Start and End
// are HH:MM in 24-hour time.
type TimeSlot struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewSlot returns a slot with a fresh random identifier.
func NewSlot(start, end string) TimeSlot {
	return TimeSlot{ID: uuid.NewString(), Start: start, End: end}
}

func (s TimeSlot) String() string {
	return s.Start + "-" + s.End
}

// ParseClock converts HH:MM into minutes since midnight. A single-digit hour
// is accepted; FormatClock gives the canonical form.
func ParseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, false
	}
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(m)
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CanonicalClock rewrites a parsable time as zero-padded HH:MM and returns
// anything else unchanged.
func CanonicalClock(s string) string {
	if m, ok := ParseClock(s); ok {
		return FormatClock(m)
	}
	return s
}

// FormatClock converts minutes since midnight into HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SortSlots returns a copy of slots stably ordered by start time. Slots whose
// start does not parse keep their relative order after the parsable ones.
func SortSlots(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out
}

func sortKey(s TimeSlot) int {
	m, ok := ParseClock(s.Start)
	if !ok {
		return 24 * 60
	}
	return m
}

// FormatDisplay renders HH:MM as a 12-hour clock, e.g. "13:05" as "1:05 PM".
// Input that does not parse is returned unchanged.
func FormatDisplay(hhmm string) string {
	mins, ok := ParseClock(hhmm)
	if !ok {
		return hhmm
	}
	hour, minute := mins/60, mins%60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}
