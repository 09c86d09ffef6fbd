package schedule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// WeekSchedule maps each weekday to its slots in start order. A missing
// weekday means no slots on that day.
type WeekSchedule map[Weekday][]TimeSlot

var ErrSlotNotFound = errors.New("slot not found")

// EmptyWeek returns a schedule with every weekday present and empty.
func EmptyWeek() WeekSchedule {
	ws := make(WeekSchedule, 7)
	for _, d := range Weekdays() {
		ws[d] = []TimeSlot{}
	}
	return ws
}

func (ws WeekSchedule) Clone() WeekSchedule {
	out := EmptyWeek()
	for d, slots := range ws {
		out[d] = append([]TimeSlot{}, slots...)
	}
	return out
}

// Len is the number of slots across all weekdays.
func (ws WeekSchedule) Len() int {
	n := 0
	for _, slots := range ws {
		n += len(slots)
	}
	return n
}

// WithIDs returns a sorted copy where every slot without an id gets a new one
// and parsable times are written as zero-padded HH:MM, the form stores read back.
func (ws WeekSchedule) WithIDs() WeekSchedule {
	out := ws.Clone()
	for d, slots := range out {
		for i := range slots {
			if slots[i].ID == "" {
				slots[i].ID = uuid.NewString()
			}
			slots[i].Start = CanonicalClock(slots[i].Start)
			slots[i].End = CanonicalClock(slots[i].End)
		}
		out[d] = SortSlots(slots)
	}
	return out
}

// Editor applies validated mutations to an in-memory WeekSchedule.
type Editor struct {
	rules Rules
	week  WeekSchedule
}

func NewEditor(rules Rules, ws WeekSchedule) *Editor {
	return &Editor{rules: rules, week: ws.Clone()}
}

// Schedule returns a copy of the current state.
func (e *Editor) Schedule() WeekSchedule {
	return e.week.Clone()
}

// Add validates slot, assigns an id when missing and inserts it in start order.
func (e *Editor) Add(day Weekday, slot TimeSlot) (TimeSlot, error) {
	if !day.Valid() {
		return TimeSlot{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day))
	}
	if err := e.rules.Validate(slot); err != nil {
		return TimeSlot{}, err
	}
	if res := DetectOverlap(e.week[day], slot); res.Overlapping {
		return TimeSlot{}, &OverlapError{Weekday: day, Candidate: slot, CollidesWith: res.CollidesWith}
	}
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	e.week[day] = SortSlots(append(e.week[day], slot))
	return slot, nil
}

// Update replaces the times of the slot with the same id. The slot's previous
// version is not considered when checking for overlaps.
func (e *Editor) Update(day Weekday, slot TimeSlot) error {
	slots := e.week[day]
	idx := indexOf(slots, slot.ID)
	if idx < 0 {
		return fmt.Errorf("%w: %s on %s", ErrSlotNotFound, slot.ID, day)
	}
	if err := e.rules.Validate(slot); err != nil {
		return err
	}
	others := make([]TimeSlot, 0, len(slots)-1)
	others = append(others, slots[:idx]...)
	others = append(others, slots[idx+1:]...)
	if res := DetectOverlap(others, slot); res.Overlapping {
		return &OverlapError{Weekday: day, Candidate: slot, CollidesWith: res.CollidesWith}
	}
	e.week[day] = SortSlots(append(others, slot))
	return nil
}

// Remove deletes the slot with id from day.
func (e *Editor) Remove(day Weekday, id string) error {
	slots := e.week[day]
	idx := indexOf(slots, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s on %s", ErrSlotNotFound, id, day)
	}
	e.week[day] = append(append([]TimeSlot{}, slots[:idx]...), slots[idx+1:]...)
	return nil
}

func indexOf(slots []TimeSlot, id string) int {
	for i, s := range slots {
		if s.ID == id {
			return i
		}
	}
	return -1
}
