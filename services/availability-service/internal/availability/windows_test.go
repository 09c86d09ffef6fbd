package availability

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

func TestOpenIntervals_WallClockOnDSTDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	got := OpenIntervals(day, []schedule.TimeSlot{{ID: "a", Start: "09:00", End: "12:00"}}, loc)
	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %v", got)
	}
	if got[0].Start.Hour() != 9 || got[0].End.Hour() != 12 {
		t.Fatalf("expected 09:00-12:00 local, got %s-%s", got[0].Start, got[0].End)
	}
	if d := got[0].End.Sub(got[0].Start); d != 3*time.Hour {
		t.Fatalf("expected 3h window, got %s", d)
	}
}

func TestOpenIntervals_SkipsMalformedSlots(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	got := OpenIntervals(day, []schedule.TimeSlot{
		{ID: "a", Start: "+9:00", End: "12:00"},
		{ID: "b", Start: "12:00", End: "11:00"},
		{ID: "c", Start: "13:00", End: "14:00"},
	}, time.UTC)
	if len(got) != 1 || got[0].Start.Hour() != 13 {
		t.Fatalf("expected only the 13:00 interval, got %v", got)
	}
}
