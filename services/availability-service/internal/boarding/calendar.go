// Package boarding holds the per-date availability used for boarding stays.
// It is independent of the recurring weekly schedule.
package boarding

import (
	"sort"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

type Calendar struct {
	dates map[string]struct{}
}

func New(dates ...string) *Calendar {
	c := &Calendar{dates: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		c.dates[d] = struct{}{}
	}
	return c
}

// Add inserts date and reports whether it was not already present.
func (c *Calendar) Add(date string) (bool, error) {
	if _, err := schedule.ParseDate(date); err != nil {
		return false, err
	}
	if _, ok := c.dates[date]; ok {
		return false, nil
	}
	c.dates[date] = struct{}{}
	return true, nil
}

// Remove deletes date and reports whether it was present.
func (c *Calendar) Remove(date string) bool {
	if _, ok := c.dates[date]; !ok {
		return false
	}
	delete(c.dates, date)
	return true
}

func (c *Calendar) Contains(date string) bool {
	_, ok := c.dates[date]
	return ok
}

func (c *Calendar) Dates() []string {
	out := make([]string, 0, len(c.dates))
	for d := range c.dates {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Apply adds and removes the dates named by d.
func (c *Calendar) Apply(d Delta) {
	for _, date := range d.ToRemove {
		delete(c.dates, date)
	}
	for _, date := range d.ToAdd {
		c.dates[date] = struct{}{}
	}
}

// Delta is the change between two boarding date sets.
type Delta struct {
	ToAdd    []string `json:"to_add"`
	ToRemove []string `json:"to_remove"`
}

func (d Delta) Empty() bool { return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 }

// Diff compares by exact date string: ToAdd is updated minus existing and
// ToRemove is existing minus updated. Both are sorted and free of duplicates.
func Diff(existing, updated []string) Delta {
	have := New(existing...)
	want := New(updated...)
	var d Delta
	for _, date := range want.Dates() {
		if !have.Contains(date) {
			d.ToAdd = append(d.ToAdd, date)
		}
	}
	for _, date := range have.Dates() {
		if !want.Contains(date) {
			d.ToRemove = append(d.ToRemove, date)
		}
	}
	return d
}
