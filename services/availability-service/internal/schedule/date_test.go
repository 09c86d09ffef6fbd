package schedule

import (
	"testing"
	"time"
)

func TestAt_KeepsWallClockOnDSTDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	day, _ := ParseDate("2024-03-10")
	got := At(day, 9*60+30, loc)
	if got.Hour() != 9 || got.Minute() != 30 || got.Day() != 10 {
		t.Fatalf("expected 09:30 local on the 10th, got %s", got)
	}
	if _, off := got.Zone(); off != -4*3600 {
		t.Fatalf("expected daylight offset, got %d", off)
	}
}
