package availability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/storage"
)

// fakeStore is an in-memory storage.Store without transactions.
type fakeStore struct {
	mu          sync.Mutex
	slots       map[string]map[string]storage.WeeklySlot
	unavailable map[string]map[string]bool
	boarding    map[string]map[string]string

	listCalls int
	writes    []string

	listErr error
	// failWrite fails the write whose description matches, e.g. "insert c".
	failWrite string
	// block, when set, makes ListWeeklySlots wait for it to be closed.
	block   chan struct{}
	entered chan struct{}
	// hold, when set, makes the next ListWeeklySlots wait for it after the
	// rows were read. It applies to one call only.
	hold chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slots:       map[string]map[string]storage.WeeklySlot{},
		unavailable: map[string]map[string]bool{},
		boarding:    map[string]map[string]string{},
	}
}

func (f *fakeStore) seedSlot(providerID string, day schedule.Weekday, id, start, end string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slots[providerID] == nil {
		f.slots[providerID] = map[string]storage.WeeklySlot{}
	}
	f.slots[providerID][id] = storage.WeeklySlot{ID: id, Weekday: int(day), StartTime: start, EndTime: end}
}

func (f *fakeStore) week(providerID string) schedule.WeekSchedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws := schedule.EmptyWeek()
	for _, s := range f.slots[providerID] {
		d := schedule.Weekday(s.Weekday)
		ws[d] = append(ws[d], schedule.TimeSlot{ID: s.ID, Start: s.StartTime, End: s.EndTime})
	}
	for d, slots := range ws {
		ws[d] = schedule.SortSlots(slots)
	}
	return ws
}

func (f *fakeStore) write(desc string) error {
	f.writes = append(f.writes, desc)
	if f.failWrite != "" && f.failWrite == desc {
		return fmt.Errorf("write %q failed", desc)
	}
	return nil
}

func (f *fakeStore) ListWeeklySlots(_ context.Context, providerID string) ([]storage.WeeklySlot, error) {
	f.mu.Lock()
	f.listCalls++
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-block
	}

	f.mu.Lock()
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	out := make([]storage.WeeklySlot, 0, len(f.slots[providerID]))
	for _, s := range f.slots[providerID] {
		out = append(out, s)
	}
	hold := f.hold
	f.hold = nil
	f.mu.Unlock()

	if hold != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-hold
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) InsertWeeklySlot(_ context.Context, providerID string, slot storage.WeeklySlot) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if err := f.write("insert " + slot.ID); err != nil {
		return "", err
	}
	if f.slots[providerID] == nil {
		f.slots[providerID] = map[string]storage.WeeklySlot{}
	}
	f.slots[providerID][slot.ID] = slot
	return slot.ID, nil
}

func (f *fakeStore) DeleteWeeklySlot(_ context.Context, id, providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write("delete " + id); err != nil {
		return err
	}
	delete(f.slots[providerID], id)
	return nil
}

func (f *fakeStore) ListUnavailableDates(_ context.Context, providerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for d := range f.unavailable[providerID] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) InsertUnavailableDate(_ context.Context, providerID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable[providerID][date] {
		return fmt.Errorf("unavailable_dates_provider_date_key: %w", storage.ErrUniqueViolation)
	}
	if err := f.write("insert date " + date); err != nil {
		return err
	}
	if f.unavailable[providerID] == nil {
		f.unavailable[providerID] = map[string]bool{}
	}
	f.unavailable[providerID][date] = true
	return nil
}

func (f *fakeStore) DeleteUnavailableDate(_ context.Context, providerID, date string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.unavailable[providerID][date] {
		return 0, nil
	}
	if err := f.write("delete date " + date); err != nil {
		return 0, err
	}
	delete(f.unavailable[providerID], date)
	return 1, nil
}

func (f *fakeStore) ListBoardingDates(_ context.Context, providerID string) ([]storage.BoardingDate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.BoardingDate
	for id, d := range f.boarding[providerID] {
		out = append(out, storage.BoardingDate{ID: id, Date: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (f *fakeStore) InsertBoardingDates(_ context.Context, providerID string, dates []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.boarding[providerID] == nil {
		f.boarding[providerID] = map[string]string{}
	}
	for _, d := range dates {
		if err := f.write("insert boarding " + d); err != nil {
			return err
		}
		f.boarding[providerID]["b-"+d] = d
	}
	return nil
}

func (f *fakeStore) DeleteBoardingDates(_ context.Context, providerID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if err := f.write("delete boarding " + id); err != nil {
			return err
		}
		delete(f.boarding[providerID], id)
	}
	return nil
}

func (f *fakeStore) ResolveAvailabilityForDate(_ context.Context, providerID, date string) ([]storage.WeeklySlot, error) {
	day, err := schedule.WeekdayOf(date)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []storage.WeeklySlot{}
	if f.unavailable[providerID][date] {
		return out, nil
	}
	for _, s := range f.slots[providerID] {
		if s.Weekday == int(day) {
			out = append(out, s)
		}
	}
	return out, nil
}

// txStore adds all-or-nothing batches and outbox events to fakeStore.
type txStore struct {
	*fakeStore
	events []outbox.Event
}

func (t *txStore) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	t.mu.Lock()
	slots := cloneSlots(t.slots)
	unavailable := cloneBools(t.unavailable)
	boarding := cloneStrings(t.boarding)
	events := len(t.events)
	t.mu.Unlock()

	if err := fn(t); err != nil {
		t.mu.Lock()
		t.slots, t.unavailable, t.boarding = slots, unavailable, boarding
		t.events = t.events[:events]
		t.mu.Unlock()
		return err
	}
	return nil
}

func (t *txStore) RecordEvent(_ context.Context, evt outbox.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, evt)
	return nil
}

func cloneSlots(in map[string]map[string]storage.WeeklySlot) map[string]map[string]storage.WeeklySlot {
	out := make(map[string]map[string]storage.WeeklySlot, len(in))
	for p, m := range in {
		out[p] = make(map[string]storage.WeeklySlot, len(m))
		for k, v := range m {
			out[p][k] = v
		}
	}
	return out
}

func cloneBools(in map[string]map[string]bool) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(in))
	for p, m := range in {
		out[p] = make(map[string]bool, len(m))
		for k, v := range m {
			out[p][k] = v
		}
	}
	return out
}

func cloneStrings(in map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for p, m := range in {
		out[p] = make(map[string]string, len(m))
		for k, v := range m {
			out[p][k] = v
		}
	}
	return out
}

// canonicalStore stores times the way the SQL and Mongo stores do: as
// minutes, read back zero-padded.
type canonicalStore struct {
	*fakeStore
}

func (c *canonicalStore) InsertWeeklySlot(ctx context.Context, providerID string, slot storage.WeeklySlot) (string, error) {
	start, ok1 := schedule.ParseClock(slot.StartTime)
	end, ok2 := schedule.ParseClock(slot.EndTime)
	if !ok1 || !ok2 {
		return "", fmt.Errorf("invalid slot times %s-%s", slot.StartTime, slot.EndTime)
	}
	slot.StartTime, slot.EndTime = schedule.FormatClock(start), schedule.FormatClock(end)
	return c.fakeStore.InsertWeeklySlot(ctx, providerID, slot)
}
