package schedule

// DayDiff classifies the slots of one weekday. Modified holds the updated
// version of each changed slot.
type DayDiff struct {
	Added     []TimeSlot
	Removed   []TimeSlot
	Modified  []TimeSlot
	Unchanged []TimeSlot
}

func (d DayDiff) Changed() bool {
	return len(d.Added)+len(d.Removed)+len(d.Modified) > 0
}

// DiffDay matches slots by id. Slots are never compared across weekdays.
func DiffDay(original, updated []TimeSlot) DayDiff {
	var out DayDiff
	byID := make(map[string]TimeSlot, len(original))
	for _, s := range original {
		byID[s.ID] = s
	}
	kept := make(map[string]struct{}, len(updated))
	for _, s := range updated {
		prev, ok := byID[s.ID]
		switch {
		case !ok:
			out.Added = append(out.Added, s)
		case prev.Start != s.Start || prev.End != s.End:
			out.Modified = append(out.Modified, s)
			kept[s.ID] = struct{}{}
		default:
			out.Unchanged = append(out.Unchanged, s)
			kept[s.ID] = struct{}{}
		}
	}
	for _, s := range original {
		if _, ok := kept[s.ID]; !ok {
			out.Removed = append(out.Removed, s)
		}
	}
	return out
}

// WeekDiff is the per-weekday classification between two schedules.
type WeekDiff map[Weekday]DayDiff

func Diff(original, updated WeekSchedule) WeekDiff {
	out := make(WeekDiff, 7)
	for _, d := range Weekdays() {
		out[d] = DiffDay(original[d], updated[d])
	}
	return out
}

// Counts returns the number of added, removed, modified and unchanged slots.
func (w WeekDiff) Counts() (added, removed, modified, unchanged int) {
	for _, d := range w {
		added += len(d.Added)
		removed += len(d.Removed)
		modified += len(d.Modified)
		unchanged += len(d.Unchanged)
	}
	return
}

type OpKind int

const (
	OpDelete OpKind = iota + 1
	OpInsert
)

func (k OpKind) String() string {
	switch k {
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Op is one write against persisted state.
type Op struct {
	Kind    OpKind
	Weekday Weekday
	Slot    TimeSlot
}

// Operations turns the classification into writes: removed and modified
// slots are deleted by id, then modified and added slots are inserted.
// Unchanged slots produce nothing. All deletes come before any insert.
func (w WeekDiff) Operations() []Op {
	var deletes, inserts []Op
	for _, day := range Weekdays() {
		d, ok := w[day]
		if !ok {
			continue
		}
		for _, s := range d.Removed {
			deletes = append(deletes, Op{Kind: OpDelete, Weekday: day, Slot: s})
		}
		for _, s := range d.Modified {
			deletes = append(deletes, Op{Kind: OpDelete, Weekday: day, Slot: s})
			inserts = append(inserts, Op{Kind: OpInsert, Weekday: day, Slot: s})
		}
		for _, s := range d.Added {
			inserts = append(inserts, Op{Kind: OpInsert, Weekday: day, Slot: s})
		}
	}
	return append(deletes, inserts...)
}

// Apply replays ops on a copy of original.
func Apply(original WeekSchedule, ops []Op) WeekSchedule {
	out := original.Clone()
	for _, op := range ops {
		slots := out[op.Weekday]
		switch op.Kind {
		case OpDelete:
			if idx := indexOf(slots, op.Slot.ID); idx >= 0 {
				out[op.Weekday] = append(append([]TimeSlot{}, slots[:idx]...), slots[idx+1:]...)
			}
		case OpInsert:
			out[op.Weekday] = append(slots, op.Slot)
		}
	}
	for d, slots := range out {
		out[d] = SortSlots(slots)
	}
	return out
}
