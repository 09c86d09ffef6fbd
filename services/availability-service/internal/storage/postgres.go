package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/sitteravail/libs/db"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pool   *db.Pool
	q      querier
	tx     pgx.Tx
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, q: pool, outbox: outboxRepo}
}

func (s *Postgres) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&Postgres{pool: s.pool, q: tx, tx: tx, outbox: s.outbox})
	})
}

func (s *Postgres) RecordEvent(ctx context.Context, evt outbox.Event) error {
	if s.tx != nil {
		return s.outbox.Insert(ctx, s.tx, evt)
	}
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return s.outbox.Insert(ctx, tx, evt)
	})
}

func (s *Postgres) ListWeeklySlots(ctx context.Context, providerID string) ([]WeeklySlot, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, weekday, start_minute, end_minute
		FROM weekly_slots
		WHERE provider_id = $1
		ORDER BY weekday, start_minute
	`, providerID)
	if err != nil {
		return nil, err
	}
	return scanSlots(rows)
}

func (s *Postgres) InsertWeeklySlot(ctx context.Context, providerID string, slot WeeklySlot) (string, error) {
	start, end, err := slotMinutes(slot)
	if err != nil {
		return "", err
	}
	id := slot.ID
	if id == "" {
		id = uuid.NewString()
	}
	tag, err := s.q.Exec(ctx, `
		INSERT INTO weekly_slots (id, provider_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET weekday = EXCLUDED.weekday,
		    start_minute = EXCLUDED.start_minute,
		    end_minute = EXCLUDED.end_minute,
		    updated_at = now()
		WHERE weekly_slots.provider_id = EXCLUDED.provider_id
	`, id, providerID, slot.Weekday, start, end)
	if err != nil {
		return "", mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		// The id belongs to another provider.
		return "", fmt.Errorf("slot %s: %w", id, ErrUniqueViolation)
	}
	return id, nil
}

func (s *Postgres) DeleteWeeklySlot(ctx context.Context, id, providerID string) error {
	_, err := s.q.Exec(ctx, `
		DELETE FROM weekly_slots
		WHERE id = $1 AND provider_id = $2
	`, id, providerID)
	return err
}

func (s *Postgres) ListUnavailableDates(ctx context.Context, providerID string) ([]string, error) {
	rows, err := s.q.Query(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD')
		FROM unavailable_dates
		WHERE provider_id = $1
		ORDER BY date
	`, providerID)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (s *Postgres) InsertUnavailableDate(ctx context.Context, providerID, date string) error {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO unavailable_dates (provider_id, date)
		VALUES ($1, $2)
	`, providerID, d)
	return mapPgError(err)
}

func (s *Postgres) DeleteUnavailableDate(ctx context.Context, providerID, date string) (int64, error) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return 0, err
	}
	tag, err := s.q.Exec(ctx, `
		DELETE FROM unavailable_dates
		WHERE provider_id = $1 AND date = $2
	`, providerID, d)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) ListBoardingDates(ctx context.Context, providerID string) ([]BoardingDate, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, to_char(date, 'YYYY-MM-DD')
		FROM boarding_dates
		WHERE provider_id = $1
		ORDER BY date
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BoardingDate
	for rows.Next() {
		var b BoardingDate
		if err := rows.Scan(&b.ID, &b.Date); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Postgres) InsertBoardingDates(ctx context.Context, providerID string, dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, date := range dates {
		d, err := schedule.ParseDate(date)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO boarding_dates (id, provider_id, date)
			VALUES ($1, $2, $3)
			ON CONFLICT (provider_id, date) DO NOTHING
		`, uuid.NewString(), providerID, d)
	}
	br := s.sendBatch(ctx, batch)
	for range dates {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapPgError(err)
		}
	}
	return br.Close()
}

func (s *Postgres) DeleteBoardingDates(ctx context.Context, providerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx, `
		DELETE FROM boarding_dates
		WHERE provider_id = $1 AND id = ANY($2)
	`, providerID, ids)
	return err
}

func (s *Postgres) ResolveAvailabilityForDate(ctx context.Context, providerID, date string) ([]WeeklySlot, error) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, `
		SELECT ws.id, ws.weekday, ws.start_minute, ws.end_minute
		FROM weekly_slots ws
		WHERE ws.provider_id = $1
		  AND ws.weekday = EXTRACT(ISODOW FROM $2::date)::int
		  AND NOT EXISTS (
		      SELECT 1 FROM unavailable_dates ud
		      WHERE ud.provider_id = ws.provider_id AND ud.date = $2::date
		  )
		ORDER BY ws.start_minute
	`, providerID, d)
	if err != nil {
		return nil, err
	}
	return scanSlots(rows)
}

func (s *Postgres) sendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	if s.tx != nil {
		return s.tx.SendBatch(ctx, b)
	}
	return s.pool.SendBatch(ctx, b)
}

func scanSlots(rows pgx.Rows) ([]WeeklySlot, error) {
	defer rows.Close()

	var out []WeeklySlot
	for rows.Next() {
		var (
			slot       WeeklySlot
			start, end int
		)
		if err := rows.Scan(&slot.ID, &slot.Weekday, &start, &end); err != nil {
			return nil, err
		}
		slot.StartTime = schedule.FormatClock(start)
		slot.EndTime = schedule.FormatClock(end)
		out = append(out, slot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func slotMinutes(slot WeeklySlot) (int, int, error) {
	start, ok := schedule.ParseClock(slot.StartTime)
	if !ok {
		return 0, 0, fmt.Errorf("invalid start time %q", slot.StartTime)
	}
	end, ok := schedule.ParseClock(slot.EndTime)
	if !ok {
		return 0, 0, fmt.Errorf("invalid end time %q", slot.EndTime)
	}
	return start, end, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrUniqueViolation)
	}
	return err
}
