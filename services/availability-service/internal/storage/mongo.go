package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

// Mongo is a Store without transactions. Every write is idempotent by id or
// by (provider_id, date), so re-running a partially applied save converges.
type Mongo struct {
	client   *mongo.Client
	slots    *mongo.Collection
	dates    *mongo.Collection
	boarding *mongo.Collection
}

type slotDoc struct {
	ID          string `bson:"_id"`
	ProviderID  string `bson:"provider_id"`
	Weekday     int    `bson:"weekday"`
	StartMinute int    `bson:"start_minute"`
	EndMinute   int    `bson:"end_minute"`
}

type dateDoc struct {
	ID         string `bson:"_id,omitempty"`
	ProviderID string `bson:"provider_id"`
	Date       string `bson:"date"`
}

func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(database)
	m := &Mongo{
		client:   client,
		slots:    db.Collection("weekly_slots"),
		dates:    db.Collection("unavailable_dates"),
		boarding: db.Collection("boarding_dates"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) ReadyCheck(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.slots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "weekday", Value: 1}, {Key: "start_minute", Value: 1}},
	}); err != nil {
		return fmt.Errorf("weekly_slots index: %w", err)
	}
	unique := options.Index().SetUnique(true)
	for _, coll := range []*mongo.Collection{m.dates, m.boarding} {
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "date", Value: 1}},
			Options: unique,
		}); err != nil {
			return fmt.Errorf("%s index: %w", coll.Name(), err)
		}
	}
	return nil
}

func (m *Mongo) ListWeeklySlots(ctx context.Context, providerID string) ([]WeeklySlot, error) {
	return m.findSlots(ctx, bson.M{"provider_id": providerID})
}

func (m *Mongo) InsertWeeklySlot(ctx context.Context, providerID string, slot WeeklySlot) (string, error) {
	start, end, err := slotMinutes(slot)
	if err != nil {
		return "", err
	}
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	doc := slotDoc{ID: slot.ID, ProviderID: providerID, Weekday: slot.Weekday, StartMinute: start, EndMinute: end}
	_, err = m.slots.ReplaceOne(ctx,
		bson.M{"_id": slot.ID, "provider_id": providerID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return "", mapMongoError(err)
	}
	return slot.ID, nil
}

func (m *Mongo) DeleteWeeklySlot(ctx context.Context, id, providerID string) error {
	_, err := m.slots.DeleteOne(ctx, bson.M{"_id": id, "provider_id": providerID})
	return err
}

func (m *Mongo) ListUnavailableDates(ctx context.Context, providerID string) ([]string, error) {
	docs, err := m.findDates(ctx, m.dates, providerID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Date)
	}
	return out, nil
}

func (m *Mongo) InsertUnavailableDate(ctx context.Context, providerID, date string) error {
	_, err := m.dates.InsertOne(ctx, dateDoc{ID: uuid.NewString(), ProviderID: providerID, Date: date})
	return mapMongoError(err)
}

func (m *Mongo) DeleteUnavailableDate(ctx context.Context, providerID, date string) (int64, error) {
	res, err := m.dates.DeleteOne(ctx, bson.M{"provider_id": providerID, "date": date})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *Mongo) ListBoardingDates(ctx context.Context, providerID string) ([]BoardingDate, error) {
	docs, err := m.findDates(ctx, m.boarding, providerID)
	if err != nil {
		return nil, err
	}
	out := make([]BoardingDate, 0, len(docs))
	for _, d := range docs {
		out = append(out, BoardingDate{ID: d.ID, Date: d.Date})
	}
	return out, nil
}

func (m *Mongo) InsertBoardingDates(ctx context.Context, providerID string, dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	docs := make([]any, 0, len(dates))
	for _, d := range dates {
		docs = append(docs, dateDoc{ID: uuid.NewString(), ProviderID: providerID, Date: d})
	}
	_, err := m.boarding.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeys(err) {
		return err
	}
	return nil
}

func (m *Mongo) DeleteBoardingDates(ctx context.Context, providerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := m.boarding.DeleteMany(ctx, bson.M{"provider_id": providerID, "_id": bson.M{"$in": ids}})
	return err
}

func (m *Mongo) ResolveAvailabilityForDate(ctx context.Context, providerID, date string) ([]WeeklySlot, error) {
	day, err := schedule.WeekdayOf(date)
	if err != nil {
		return nil, err
	}
	n, err := m.dates.CountDocuments(ctx, bson.M{"provider_id": providerID, "date": date})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return []WeeklySlot{}, nil
	}
	return m.findSlots(ctx, bson.M{"provider_id": providerID, "weekday": int(day)})
}

func (m *Mongo) findSlots(ctx context.Context, filter bson.M) ([]WeeklySlot, error) {
	cur, err := m.slots.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "weekday", Value: 1}, {Key: "start_minute", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []slotDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]WeeklySlot, 0, len(docs))
	for _, d := range docs {
		out = append(out, WeeklySlot{
			ID:        d.ID,
			Weekday:   d.Weekday,
			StartTime: schedule.FormatClock(d.StartMinute),
			EndTime:   schedule.FormatClock(d.EndMinute),
		})
	}
	return out, nil
}

func (m *Mongo) findDates(ctx context.Context, coll *mongo.Collection, providerID string) ([]dateDoc, error) {
	cur, err := coll.Find(ctx, bson.M{"provider_id": providerID}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []dateDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func mapMongoError(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%v: %w", err, ErrUniqueViolation)
	}
	return err
}

func onlyDuplicateKeys(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
