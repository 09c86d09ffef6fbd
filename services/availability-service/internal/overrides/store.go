// Package overrides tracks per-date blackouts that suppress a provider's
// recurring weekly schedule.
package overrides

import (
	"fmt"
	"sort"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

type DuplicateOverrideError struct {
	Date string
}

func (e *DuplicateOverrideError) Error() string {
	return fmt.Sprintf("date %s is already marked unavailable", e.Date)
}

// Store is the set of unavailable dates for one provider.
type Store struct {
	dates map[string]struct{}
}

// New builds a store from persisted dates. Dates that do not parse are skipped.
func New(dates ...string) *Store {
	s := &Store{dates: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		if norm, err := schedule.NormalizeDate(d); err == nil {
			s.dates[norm] = struct{}{}
		}
	}
	return s
}

func (s *Store) Add(date string) error {
	norm, err := schedule.NormalizeDate(date)
	if err != nil {
		return err
	}
	if _, ok := s.dates[norm]; ok {
		return &DuplicateOverrideError{Date: norm}
	}
	s.dates[norm] = struct{}{}
	return nil
}

// Remove deletes date and reports how many entries were affected (0 or 1).
func (s *Store) Remove(date string) int {
	norm, err := schedule.NormalizeDate(date)
	if err != nil {
		return 0
	}
	if _, ok := s.dates[norm]; !ok {
		return 0
	}
	delete(s.dates, norm)
	return 1
}

func (s *Store) IsUnavailable(date string) bool {
	norm, err := schedule.NormalizeDate(date)
	if err != nil {
		return false
	}
	_, ok := s.dates[norm]
	return ok
}

// Dates returns the unavailable dates in ascending order.
func (s *Store) Dates() []string {
	out := make([]string, 0, len(s.dates))
	for d := range s.dates {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int { return len(s.dates) }

// ResolveEffectiveSlots returns the slots that apply on date: none when the
// date is blacked out, otherwise the recurring slots of its weekday.
// Everything that needs "is the provider open on this date" goes through here.
func (s *Store) ResolveEffectiveSlots(ws schedule.WeekSchedule, date string) ([]schedule.TimeSlot, error) {
	day, err := schedule.WeekdayOf(date)
	if err != nil {
		return nil, err
	}
	if s.IsUnavailable(date) {
		return []schedule.TimeSlot{}, nil
	}
	return schedule.SortSlots(ws[day]), nil
}
