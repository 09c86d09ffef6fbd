// Package storage persists weekly slots, unavailable dates and boarding dates.
package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/outbox"
)

// ErrUniqueViolation is returned when an insert collides with an existing record.
var ErrUniqueViolation = errors.New("unique violation")

// WeeklySlot is a persisted recurring slot. Weekday is 1 (Monday) through 7 (Sunday).
type WeeklySlot struct {
	ID        string
	Weekday   int
	StartTime string
	EndTime   string
}

type BoardingDate struct {
	ID   string
	Date string
}

// Store is the persistence collaborator of the availability coordinator.
type Store interface {
	ListWeeklySlots(ctx context.Context, providerID string) ([]WeeklySlot, error)
	// InsertWeeklySlot stores slot under its id, generating one when empty.
	// Inserting an id that already exists for the provider overwrites it.
	InsertWeeklySlot(ctx context.Context, providerID string, slot WeeklySlot) (string, error)
	// DeleteWeeklySlot is a no-op when the slot does not exist.
	DeleteWeeklySlot(ctx context.Context, id, providerID string) error

	ListUnavailableDates(ctx context.Context, providerID string) ([]string, error)
	InsertUnavailableDate(ctx context.Context, providerID, date string) error
	DeleteUnavailableDate(ctx context.Context, providerID, date string) (int64, error)

	ListBoardingDates(ctx context.Context, providerID string) ([]BoardingDate, error)
	InsertBoardingDates(ctx context.Context, providerID string, dates []string) error
	DeleteBoardingDates(ctx context.Context, providerID string, ids []string) error

	// ResolveAvailabilityForDate applies the override merge server-side.
	ResolveAvailabilityForDate(ctx context.Context, providerID, date string) ([]WeeklySlot, error)
}

// Transactor is implemented by stores that can run a batch atomically. The
// Store passed to fn is bound to the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// EventRecorder is implemented by stores that can write outbox events
// alongside the change they describe.
type EventRecorder interface {
	RecordEvent(ctx context.Context, evt outbox.Event) error
}
