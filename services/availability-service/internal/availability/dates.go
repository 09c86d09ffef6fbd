package availability

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/boarding"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/overrides"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/storage"
)

type overridePayload struct {
	ProviderID string    `json:"provider_id"`
	Date       string    `json:"date"`
	At         time.Time `json:"at"`
}

type boardingPayload struct {
	ProviderID string   `json:"provider_id"`
	Added      []string `json:"added"`
	Removed    []string `json:"removed"`
}

// Overrides loads the provider's unavailable dates.
func (c *Coordinator) Overrides(ctx context.Context, providerID string) (*overrides.Store, error) {
	if providerID == "" {
		return nil, ErrProviderRequired
	}
	dates, err := c.store.ListUnavailableDates(ctx, providerID)
	if err != nil {
		return nil, persistence("list unavailable dates", err)
	}
	return overrides.New(dates...), nil
}

// AddOverride marks date unavailable. A date that is already marked yields
// *overrides.DuplicateOverrideError.
func (c *Coordinator) AddOverride(ctx context.Context, providerID, date string) error {
	if providerID == "" {
		return ErrProviderRequired
	}
	norm, err := schedule.NormalizeDate(date)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	err = c.inTx(ctx, func(s storage.Store) error {
		if err := s.InsertUnavailableDate(ctx, providerID, norm); err != nil {
			return err
		}
		return c.record(ctx, s, providerID, outbox.EventOverrideAdded, overridePayload{
			ProviderID: providerID, Date: norm, At: c.now().UTC(),
		})
	})
	if errors.Is(err, storage.ErrUniqueViolation) {
		return &overrides.DuplicateOverrideError{Date: norm}
	}
	if err != nil {
		return persistence("insert unavailable date", err)
	}
	c.logger.Info("override added", "provider_id", providerID, "date", norm)
	return nil
}

// RemoveOverride clears date. Removing a date that is not marked is not an
// error and reports zero affected records.
func (c *Coordinator) RemoveOverride(ctx context.Context, providerID, date string) (int64, error) {
	if providerID == "" {
		return 0, ErrProviderRequired
	}
	norm, err := schedule.NormalizeDate(date)
	if err != nil {
		return 0, err
	}
	var affected int64
	ctx = context.WithoutCancel(ctx)
	err = c.inTx(ctx, func(s storage.Store) error {
		n, err := s.DeleteUnavailableDate(ctx, providerID, norm)
		if err != nil {
			return err
		}
		affected = n
		if n == 0 {
			return nil
		}
		return c.record(ctx, s, providerID, outbox.EventOverrideRemoved, overridePayload{
			ProviderID: providerID, Date: norm, At: c.now().UTC(),
		})
	})
	if err != nil {
		return 0, persistence("delete unavailable date", err)
	}
	return affected, nil
}

// BoardingDates loads the provider's boarding calendar.
func (c *Coordinator) BoardingDates(ctx context.Context, providerID string) (*boarding.Calendar, error) {
	if providerID == "" {
		return nil, ErrProviderRequired
	}
	records, err := c.store.ListBoardingDates(ctx, providerID)
	if err != nil {
		return nil, persistence("list boarding dates", err)
	}
	dates := make([]string, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.Date)
	}
	return boarding.New(dates...), nil
}

// SaveBoarding makes the stored boarding dates equal to updated by writing
// only the delta against the current server state.
func (c *Coordinator) SaveBoarding(ctx context.Context, providerID string, updated []string) (boarding.Delta, error) {
	if providerID == "" {
		return boarding.Delta{}, ErrProviderRequired
	}
	want := make([]string, 0, len(updated))
	for _, d := range updated {
		norm, err := schedule.NormalizeDate(d)
		if err != nil {
			return boarding.Delta{}, err
		}
		want = append(want, norm)
	}

	ctx = context.WithoutCancel(ctx)
	records, err := c.store.ListBoardingDates(ctx, providerID)
	if err != nil {
		return boarding.Delta{}, persistence("list boarding dates", err)
	}
	idsByDate := make(map[string][]string, len(records))
	existing := make([]string, 0, len(records))
	for _, r := range records {
		idsByDate[r.Date] = append(idsByDate[r.Date], r.ID)
		existing = append(existing, r.Date)
	}

	delta := boarding.Diff(existing, want)
	if delta.Empty() {
		return delta, nil
	}
	var removeIDs []string
	for _, d := range delta.ToRemove {
		removeIDs = append(removeIDs, idsByDate[d]...)
	}

	err = c.inTx(ctx, func(s storage.Store) error {
		if err := s.DeleteBoardingDates(ctx, providerID, removeIDs); err != nil {
			return err
		}
		if err := s.InsertBoardingDates(ctx, providerID, delta.ToAdd); err != nil {
			return err
		}
		return c.record(ctx, s, providerID, outbox.EventBoardingSaved, boardingPayload{
			ProviderID: providerID,
			Added:      sortedCopy(delta.ToAdd),
			Removed:    sortedCopy(delta.ToRemove),
		})
	})
	if err != nil {
		return boarding.Delta{}, persistence("apply boarding changes", err)
	}
	c.logger.Info("boarding dates saved", "provider_id", providerID, "added", len(delta.ToAdd), "removed", len(delta.ToRemove))
	return delta, nil
}
