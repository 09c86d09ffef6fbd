package calendar

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

const productID = "-//sitteravail//availability//EN"

// EncodeICS renders occurrences as an iCalendar document, one VEVENT each.
// UIDs combine the slot id and the date so re-exports stay stable.
func EncodeICS(providerID string, occurrences []Occurrence, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, occ := range occurrences {
		ev := cal.AddEvent(occ.Slot.ID + "-" + occ.Date + "@" + providerID)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(occ.Start.UTC())
		ev.SetEndAt(occ.End.UTC())
		ev.SetSummary("Available " + schedule.FormatDisplay(occ.Slot.Start) + " - " + schedule.FormatDisplay(occ.Slot.End))
	}
	return cal.Serialize()
}
