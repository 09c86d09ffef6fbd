package schedule

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		name string
		slot TimeSlot
		kind ErrorKind
	}{
		{name: "missing start", slot: TimeSlot{End: "10:00"}, kind: MissingField},
		{name: "missing end", slot: TimeSlot{Start: "09:00"}, kind: MissingField},
		{name: "bad hour", slot: TimeSlot{Start: "24:00", End: "10:00"}, kind: MalformedTime},
		{name: "bad minute", slot: TimeSlot{Start: "09:60", End: "10:00"}, kind: MalformedTime},
		{name: "not a time", slot: TimeSlot{Start: "9am", End: "10:00"}, kind: MalformedTime},
		{name: "inverted", slot: TimeSlot{Start: "12:00", End: "09:00"}, kind: InvertedRange},
		{name: "empty range", slot: TimeSlot{Start: "12:00", End: "12:00"}, kind: InvertedRange},
		{name: "before open", slot: TimeSlot{Start: "07:00", End: "10:00"}, kind: OutsideOperationalHours},
		{name: "after close", slot: TimeSlot{Start: "17:00", End: "19:30"}, kind: OutsideOperationalHours},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rules.Validate(tc.slot)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, verr.Kind)
			}
		})
	}
}

func TestValidate_BoundsInclusive(t *testing.T) {
	if err := DefaultRules().Validate(TimeSlot{Start: "08:00", End: "19:00"}); err != nil {
		t.Fatalf("expected full operational window to be valid, got %v", err)
	}
}

func TestNewRules(t *testing.T) {
	r, err := NewRules("07:00", "21:00")
	if err != nil {
		t.Fatalf("NewRules: %v", err)
	}
	if err := r.Validate(TimeSlot{Start: "07:00", End: "20:30"}); err != nil {
		t.Fatalf("expected slot inside custom window to pass, got %v", err)
	}
	if _, err := NewRules("19:00", "08:00"); err == nil {
		t.Fatalf("expected inverted window to be rejected")
	}
}

func TestDetectOverlap(t *testing.T) {
	existing := []TimeSlot{
		{ID: "a", Start: "09:00", End: "12:00"},
		{ID: "b", Start: "14:00", End: "16:00"},
	}
	cases := []struct {
		name      string
		candidate TimeSlot
		overlap   bool
		with      string
	}{
		{name: "start inside", candidate: TimeSlot{Start: "11:00", End: "14:00"}, overlap: true, with: "a"},
		{name: "end inside", candidate: TimeSlot{Start: "08:00", End: "10:00"}, overlap: true, with: "a"},
		{name: "contains", candidate: TimeSlot{Start: "13:00", End: "17:00"}, overlap: true, with: "b"},
		{name: "identical", candidate: TimeSlot{Start: "14:00", End: "16:00"}, overlap: true, with: "b"},
		{name: "inside", candidate: TimeSlot{Start: "10:00", End: "11:00"}, overlap: true, with: "a"},
		{name: "touching end", candidate: TimeSlot{Start: "12:00", End: "14:00"}},
		{name: "touching start", candidate: TimeSlot{Start: "08:00", End: "09:00"}},
		{name: "gap", candidate: TimeSlot{Start: "16:30", End: "18:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := DetectOverlap(existing, tc.candidate)
			if res.Overlapping != tc.overlap {
				t.Fatalf("expected overlapping=%v, got %+v", tc.overlap, res)
			}
			if tc.overlap && res.CollidesWith.ID != tc.with {
				t.Fatalf("expected collision with %s, got %s", tc.with, res.CollidesWith.ID)
			}
		})
	}
}

func TestDetectOverlap_FirstMatchWins(t *testing.T) {
	existing := []TimeSlot{
		{ID: "a", Start: "09:00", End: "10:00"},
		{ID: "b", Start: "10:00", End: "11:00"},
	}
	res := DetectOverlap(existing, TimeSlot{Start: "08:00", End: "12:00"})
	if !res.Overlapping || res.CollidesWith.ID != "a" {
		t.Fatalf("expected first match a, got %+v", res)
	}
}

func TestValidateWeek(t *testing.T) {
	rules := DefaultRules()
	ok := WeekSchedule{
		Monday:  {{ID: "1", Start: "09:00", End: "12:00"}, {ID: "2", Start: "12:00", End: "13:00"}},
		Tuesday: {{ID: "3", Start: "09:00", End: "12:00"}},
	}
	if err := rules.ValidateWeek(ok); err != nil {
		t.Fatalf("expected valid week, got %v", err)
	}

	overlapping := WeekSchedule{
		Monday: {{ID: "1", Start: "09:00", End: "12:00"}, {ID: "2", Start: "11:00", End: "13:00"}},
	}
	var oerr *OverlapError
	if err := rules.ValidateWeek(overlapping); !errors.As(err, &oerr) || oerr.CollidesWith.ID != "1" {
		t.Fatalf("expected overlap with slot 1, got %v", err)
	}

	dup := WeekSchedule{
		Monday:  {{ID: "1", Start: "09:00", End: "12:00"}},
		Tuesday: {{ID: "1", Start: "09:00", End: "12:00"}},
	}
	var verr *ValidationError
	if err := rules.ValidateWeek(dup); !errors.As(err, &verr) || verr.Kind != DuplicateID {
		t.Fatalf("expected duplicate id error, got %v", err)
	}

	if err := rules.ValidateWeek(WeekSchedule{Weekday(9): nil}); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected invalid weekday error, got %v", err)
	}
}
