package schedule

import "fmt"

type OverlapResult struct {
	Overlapping  bool
	CollidesWith TimeSlot
}

// OverlapError carries the slot a candidate collided with.
type OverlapError struct {
	Weekday      Weekday
	Candidate    TimeSlot
	CollidesWith TimeSlot
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("slot %s on %s overlaps existing slot %s", e.Candidate, e.Weekday, e.CollidesWith)
}

// DetectOverlap reports the first existing slot the candidate collides with.
// Ranges are half-open, so a slot ending at 12:00 does not collide with one
// starting at 12:00. Callers editing a slot in place must leave the slot's
// previous version out of existing.
func DetectOverlap(existing []TimeSlot, candidate TimeSlot) OverlapResult {
	cs, ok1 := ParseClock(candidate.Start)
	ce, ok2 := ParseClock(candidate.End)
	if !ok1 || !ok2 {
		return OverlapResult{}
	}
	for _, slot := range existing {
		s, ok1 := ParseClock(slot.Start)
		e, ok2 := ParseClock(slot.End)
		if !ok1 || !ok2 {
			continue
		}
		startInside := cs >= s && cs < e
		endInside := ce > s && ce <= e
		contains := cs <= s && ce >= e
		if startInside || endInside || contains {
			return OverlapResult{Overlapping: true, CollidesWith: slot}
		}
	}
	return OverlapResult{}
}
