package storage

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMapPgError_UniqueViolation(t *testing.T) {
	err := mapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "unavailable_dates_provider_date_key"})
	if !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	other := &pgconn.PgError{Code: "23503"}
	if err := mapPgError(other); errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("foreign key error must not map to unique violation")
	}
	if mapPgError(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestMapMongoError_DuplicateKey(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	if err := mapMongoError(dup); !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestOnlyDuplicateKeys(t *testing.T) {
	dupOnly := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Code: 11000}},
	}}
	if !onlyDuplicateKeys(dupOnly) {
		t.Fatalf("expected duplicate-only bulk error to be ignorable")
	}
	mixed := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Code: 11000}},
		{WriteError: mongo.WriteError{Code: 121}},
	}}
	if onlyDuplicateKeys(mixed) {
		t.Fatalf("mixed bulk error must not be ignored")
	}
	if onlyDuplicateKeys(errors.New("network")) {
		t.Fatalf("plain errors must not be ignored")
	}
}

func TestSlotMinutes(t *testing.T) {
	start, end, err := slotMinutes(WeeklySlot{StartTime: "09:30", EndTime: "12:00"})
	if err != nil || start != 570 || end != 720 {
		t.Fatalf("unexpected %d %d %v", start, end, err)
	}
	if _, _, err := slotMinutes(WeeklySlot{StartTime: "x", EndTime: "12:00"}); err == nil {
		t.Fatalf("expected error")
	}
}
