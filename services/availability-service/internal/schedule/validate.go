package schedule

import (
	"fmt"
	"strings"
)

type ErrorKind string

const (
	MissingField            ErrorKind = "missing_field"
	MalformedTime           ErrorKind = "malformed_time"
	InvertedRange           ErrorKind = "inverted_range"
	OutsideOperationalHours ErrorKind = "outside_operational_hours"
	DuplicateID             ErrorKind = "duplicate_id"
)

// ValidationError rejects a slot before it enters a WeekSchedule.
type ValidationError struct {
	Kind  ErrorKind
	Field string
	Value string
	Slot  TimeSlot
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("slot %s is required", e.Field)
	case MalformedTime:
		return fmt.Sprintf("slot %s %q is not a valid HH:MM time", e.Field, e.Value)
	case InvertedRange:
		return fmt.Sprintf("slot start %s must be before end %s", e.Slot.Start, e.Slot.End)
	case OutsideOperationalHours:
		return fmt.Sprintf("slot %s %s is outside operational hours", e.Field, e.Value)
	case DuplicateID:
		return fmt.Sprintf("slot id %q appears more than once", e.Value)
	default:
		return "invalid slot"
	}
}

// Rules holds the operational window every slot must fit in.
type Rules struct {
	open  int
	close int
}

// DefaultRules allows slots between 08:00 and 19:00.
func DefaultRules() Rules {
	return Rules{open: 8 * 60, close: 19 * 60}
}

// NewRules builds Rules from HH:MM bounds.
func NewRules(open, close string) (Rules, error) {
	o, ok := ParseClock(open)
	if !ok {
		return Rules{}, fmt.Errorf("operational open %q is not a valid HH:MM time", open)
	}
	c, ok := ParseClock(close)
	if !ok {
		return Rules{}, fmt.Errorf("operational close %q is not a valid HH:MM time", close)
	}
	if o >= c {
		return Rules{}, fmt.Errorf("operational open %s must be before close %s", open, close)
	}
	return Rules{open: o, close: c}, nil
}

func (r Rules) Open() string  { return FormatClock(r.open) }
func (r Rules) Close() string { return FormatClock(r.close) }

// Validate checks a single slot. It returns nil or a *ValidationError.
func (r Rules) Validate(slot TimeSlot) error {
	if strings.TrimSpace(slot.Start) == "" {
		return &ValidationError{Kind: MissingField, Field: "start", Slot: slot}
	}
	if strings.TrimSpace(slot.End) == "" {
		return &ValidationError{Kind: MissingField, Field: "end", Slot: slot}
	}
	start, ok := ParseClock(slot.Start)
	if !ok {
		return &ValidationError{Kind: MalformedTime, Field: "start", Value: slot.Start, Slot: slot}
	}
	end, ok := ParseClock(slot.End)
	if !ok {
		return &ValidationError{Kind: MalformedTime, Field: "end", Value: slot.End, Slot: slot}
	}
	if start >= end {
		return &ValidationError{Kind: InvertedRange, Slot: slot}
	}
	if start < r.open {
		return &ValidationError{Kind: OutsideOperationalHours, Field: "start", Value: slot.Start, Slot: slot}
	}
	if end > r.close {
		return &ValidationError{Kind: OutsideOperationalHours, Field: "end", Value: slot.End, Slot: slot}
	}
	return nil
}

// ValidateWeek checks every slot, the uniqueness of ids across the week and
// the absence of overlaps within each weekday.
func (r Rules) ValidateWeek(ws WeekSchedule) error {
	for day := range ws {
		if !day.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day))
		}
	}
	seen := map[string]struct{}{}
	for _, day := range Weekdays() {
		var accepted []TimeSlot
		for _, slot := range ws[day] {
			if err := r.Validate(slot); err != nil {
				return err
			}
			if slot.ID != "" {
				if _, dup := seen[slot.ID]; dup {
					return &ValidationError{Kind: DuplicateID, Field: "id", Value: slot.ID, Slot: slot}
				}
				seen[slot.ID] = struct{}{}
			}
			if res := DetectOverlap(accepted, slot); res.Overlapping {
				return &OverlapError{Weekday: day, Candidate: slot, CollidesWith: res.CollidesWith}
			}
			accepted = append(accepted, slot)
		}
	}
	return nil
}
