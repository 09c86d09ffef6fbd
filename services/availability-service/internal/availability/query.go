package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

// EffectiveSlots returns the slots that apply on date after overrides.
func (c *Coordinator) EffectiveSlots(ctx context.Context, providerID, date string) ([]schedule.TimeSlot, error) {
	if _, err := schedule.ParseDate(date); err != nil {
		return nil, err
	}
	ws, err := c.Fetch(ctx, providerID)
	if err != nil {
		return nil, err
	}
	ov, err := c.Overrides(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return ov.ResolveEffectiveSlots(ws, date)
}

// Consistency compares the local merge with the store's own resolution.
type Consistency struct {
	Date       string              `json:"date"`
	Local      []schedule.TimeSlot `json:"local"`
	Server     []schedule.TimeSlot `json:"server"`
	Consistent bool                `json:"consistent"`
}

func (c *Coordinator) CheckConsistency(ctx context.Context, providerID, date string) (Consistency, error) {
	local, err := c.EffectiveSlots(ctx, providerID, date)
	if err != nil {
		return Consistency{}, err
	}
	records, err := c.store.ResolveAvailabilityForDate(ctx, providerID, date)
	if err != nil {
		return Consistency{}, persistence("resolve availability for date", err)
	}
	server := make([]schedule.TimeSlot, 0, len(records))
	for _, r := range records {
		server = append(server, schedule.TimeSlot{ID: r.ID, Start: r.StartTime, End: r.EndTime})
	}
	server = schedule.SortSlots(server)

	res := Consistency{Date: date, Local: local, Server: server, Consistent: sameSlots(local, server)}
	if !res.Consistent {
		c.logger.Warn("effective availability diverges from store resolution",
			"provider_id", providerID, "date", date, "local", len(local), "server", len(server))
	}
	return res, nil
}

func sameSlots(a, b []schedule.TimeSlot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsOpenAt reports whether the provider is nominally open at t, taken in the
// provider's time zone. It says nothing about existing bookings.
func (c *Coordinator) IsOpenAt(ctx context.Context, providerID string, t time.Time) (bool, error) {
	local := t.In(c.cfg.Location)
	slots, err := c.EffectiveSlots(ctx, providerID, schedule.FormatDate(local))
	if err != nil {
		return false, err
	}
	return containsAny(OpenIntervals(local, slots, c.cfg.Location), local), nil
}

// StartTimes lists visit start times on date that fit within effective slots.
func (c *Coordinator) StartTimes(ctx context.Context, providerID, date string, duration, step time.Duration) ([]time.Time, error) {
	if duration <= 0 || step <= 0 {
		return nil, fmt.Errorf("duration and step must be positive")
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}
	slots, err := c.EffectiveSlots(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	return StartTimes(OpenIntervals(day, slots, c.cfg.Location), duration, step, c.now()), nil
}

// Occurrences expands the schedule into dated slots between from and to inclusive.
func (c *Coordinator) Occurrences(ctx context.Context, providerID, from, to string) ([]calendar.Occurrence, error) {
	ws, err := c.Fetch(ctx, providerID)
	if err != nil {
		return nil, err
	}
	ov, err := c.Overrides(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return calendar.Expand(ws, ov, from, to, c.cfg.Location)
}

// ExportICS renders the occurrences between from and to as iCalendar text.
func (c *Coordinator) ExportICS(ctx context.Context, providerID, from, to string) (string, error) {
	occ, err := c.Occurrences(ctx, providerID, from, to)
	if err != nil {
		return "", err
	}
	return calendar.EncodeICS(providerID, occ, c.now()), nil
}
