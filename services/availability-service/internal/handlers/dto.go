package handlers

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

var validate = validator.New()

type slotDTO struct {
	ID    string `json:"id,omitempty" validate:"omitempty,max=64"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// weeklyRequest is keyed by weekday name, e.g. "monday" or "mon".
type weeklyRequest struct {
	Schedule map[string][]slotDTO `json:"schedule" validate:"required,dive,dive"`
}

type weeklyResponse struct {
	ProviderID string               `json:"provider_id"`
	Schedule   map[string][]slotDTO `json:"schedule"`
	Error      string               `json:"error,omitempty"`
}

type saveWeeklyResponse struct {
	ProviderID string               `json:"provider_id"`
	Added      int                  `json:"added"`
	Removed    int                  `json:"removed"`
	Modified   int                  `json:"modified"`
	Unchanged  int                  `json:"unchanged"`
	Writes     int                  `json:"writes"`
	Schedule   map[string][]slotDTO `json:"schedule"`
}

type overrideRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type overridesResponse struct {
	ProviderID string   `json:"provider_id"`
	Dates      []string `json:"dates"`
}

type boardingRequest struct {
	Dates []string `json:"dates" validate:"dive,datetime=2006-01-02"`
}

type boardingResponse struct {
	ProviderID string   `json:"provider_id"`
	Dates      []string `json:"dates"`
}

type boardingSaveResponse struct {
	ProviderID string   `json:"provider_id"`
	Added      []string `json:"added"`
	Removed    []string `json:"removed"`
}

type dateQuery struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

type rangeQuery struct {
	From string `validate:"required,datetime=2006-01-02"`
	To   string `validate:"required,datetime=2006-01-02"`
}

type startTimesQuery struct {
	Date     string `validate:"required,datetime=2006-01-02"`
	Duration int    `validate:"required,gt=0,lte=1440"`
	Step     int    `validate:"omitempty,gt=0,lte=1440"`
}

type effectiveResponse struct {
	ProviderID string    `json:"provider_id"`
	Date       string    `json:"date"`
	Slots      []slotDTO `json:"slots"`
	Consistent *bool     `json:"consistent,omitempty"`
}

type openResponse struct {
	ProviderID string `json:"provider_id"`
	At         string `json:"at"`
	Open       bool   `json:"open"`
}

type startTimesResponse struct {
	ProviderID string   `json:"provider_id"`
	Date       string   `json:"date"`
	Starts     []string `json:"starts"`
}

type occurrenceItem struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	SlotID  string `json:"slot_id"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type occurrencesResponse struct {
	ProviderID  string           `json:"provider_id"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Occurrences []occurrenceItem `json:"occurrences"`
}

func toWeekSchedule(in map[string][]slotDTO) (schedule.WeekSchedule, error) {
	ws := schedule.EmptyWeek()
	for name, slots := range in {
		day, err := schedule.ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			ws[day] = append(ws[day], schedule.TimeSlot{ID: s.ID, Start: s.Start, End: s.End})
		}
	}
	return ws, nil
}

func fromWeekSchedule(ws schedule.WeekSchedule) map[string][]slotDTO {
	out := make(map[string][]slotDTO, 7)
	for _, day := range schedule.Weekdays() {
		out[day.String()] = fromSlots(ws[day])
	}
	return out
}

func fromSlots(slots []schedule.TimeSlot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, s := range schedule.SortSlots(slots) {
		out = append(out, slotDTO{ID: s.ID, Start: s.Start, End: s.End})
	}
	return out
}

func fromOccurrences(occ []calendar.Occurrence) []occurrenceItem {
	out := make([]occurrenceItem, 0, len(occ))
	for _, o := range occ {
		out = append(out, occurrenceItem{
			Date:    o.Date,
			Weekday: o.Weekday.String(),
			SlotID:  o.Slot.ID,
			Start:   o.Start.Format(time.RFC3339),
			End:     o.End.Format(time.RFC3339),
		})
	}
	return out
}

func sortedDates(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
