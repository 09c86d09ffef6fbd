// Package availability coordinates reads and writes of a provider's
// availability against the backing store.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	otelx "github.com/md-rashed-zaman/sitteravail/libs/otel"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/storage"
)

const tracerName = "availability"

// Phase is the fetch state of one provider.
type Phase int

const (
	Idle Phase = iota
	Fetching
	Fetched
	Failed
)

func (p Phase) String() string {
	switch p {
	case Fetching:
		return "fetching"
	case Fetched:
		return "fetched"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

type Config struct {
	// Cooldown is how long a completed fetch is served without a new read.
	Cooldown time.Duration
	// SaveRate and SaveBurst bound saves per provider.
	SaveRate  rate.Limit
	SaveBurst int
	// Location is the provider's local time zone for date and instant queries.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		Cooldown:  2 * time.Second,
		SaveRate:  rate.Every(time.Second),
		SaveBurst: 3,
		Location:  time.UTC,
	}
}

type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

type providerState struct {
	phase       Phase
	lastQueried time.Time
	lastGood    schedule.WeekSchedule
	limiter     *rate.Limiter
	// version changes whenever a save replaces or drops the snapshot. A read
	// that began under an older version must not be cached.
	version uint64
}

// Coordinator is the only component that talks to the store. It keeps a
// per-provider snapshot of the last schedule read or written successfully.
type Coordinator struct {
	store  storage.Store
	rules  schedule.Rules
	logger *slog.Logger
	cfg    Config
	now    func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	providers map[string]*providerState
}

func New(store storage.Store, rules schedule.Rules, logger *slog.Logger, cfg Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.SaveRate <= 0 {
		cfg.SaveRate = def.SaveRate
	}
	if cfg.SaveBurst <= 0 {
		cfg.SaveBurst = def.SaveBurst
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	c := &Coordinator{
		store:     store,
		rules:     rules,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		providers: map[string]*providerState{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Rules() schedule.Rules { return c.rules }

func (c *Coordinator) Location() *time.Location { return c.cfg.Location }

// state must be called with c.mu held.
func (c *Coordinator) state(providerID string) *providerState {
	st, ok := c.providers[providerID]
	if !ok {
		st = &providerState{limiter: rate.NewLimiter(c.cfg.SaveRate, c.cfg.SaveBurst)}
		c.providers[providerID] = st
	}
	return st
}

// Phase reports the fetch state of providerID.
func (c *Coordinator) Phase(providerID string) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.providers[providerID]; ok {
		return st.phase
	}
	return Idle
}

// Fetch returns the provider's weekly schedule. A fetch completed within the
// cooldown is served from the snapshot and concurrent fetches share one read.
// On failure the schedule is empty, never nil, and the error is a
// *PersistenceError.
func (c *Coordinator) Fetch(ctx context.Context, providerID string) (schedule.WeekSchedule, error) {
	if providerID == "" {
		return schedule.EmptyWeek(), ErrProviderRequired
	}

	c.mu.Lock()
	st := c.state(providerID)
	if st.phase == Fetched && c.now().Sub(st.lastQueried) < c.cfg.Cooldown {
		ws := st.lastGood.Clone()
		c.mu.Unlock()
		c.logger.Debug("availability fetch served from snapshot", "provider_id", providerID)
		return ws, nil
	}
	c.mu.Unlock()

	v, err, shared := c.group.Do(providerID, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), providerID)
	})
	if shared {
		c.logger.Debug("availability fetch joined in-flight read", "provider_id", providerID)
	}
	if err != nil {
		return schedule.EmptyWeek(), err
	}
	return v.(schedule.WeekSchedule).Clone(), nil
}

func (c *Coordinator) load(ctx context.Context, providerID string) (ws schedule.WeekSchedule, err error) {
	ctx, span := otelx.StartSpan(ctx, tracerName, "availability.fetch", attribute.String("provider_id", providerID))
	defer func() { otelx.EndSpan(span, err) }()

	c.mu.Lock()
	st := c.state(providerID)
	began := st.version
	st.phase = Fetching
	st.lastQueried = c.now()
	c.mu.Unlock()

	ws, err = c.readWeek(ctx, c.store, providerID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if st.version != began {
		c.logger.Debug("discarding fetch overtaken by a save", "provider_id", providerID)
		if err != nil {
			return nil, persistence("fetch weekly slots", err)
		}
		return ws, nil
	}
	if err != nil {
		st.phase = Failed
		c.logger.Warn("availability fetch failed", "provider_id", providerID, "err", err)
		return nil, persistence("fetch weekly slots", err)
	}
	st.phase = Fetched
	st.lastGood = ws
	return ws, nil
}

func (c *Coordinator) readWeek(ctx context.Context, store storage.Store, providerID string) (schedule.WeekSchedule, error) {
	records, err := store.ListWeeklySlots(ctx, providerID)
	if err != nil {
		return nil, err
	}
	ws := schedule.EmptyWeek()
	for _, r := range records {
		day := schedule.Weekday(r.Weekday)
		if !day.Valid() {
			c.logger.Warn("skipping weekly slot with invalid weekday", "provider_id", providerID, "slot_id", r.ID, "weekday", r.Weekday)
			continue
		}
		ws[day] = append(ws[day], schedule.TimeSlot{ID: r.ID, Start: r.StartTime, End: r.EndTime})
	}
	for d, slots := range ws {
		ws[d] = schedule.SortSlots(slots)
	}
	return ws, nil
}

// SaveResult describes a save. Applied counts the writes that reached the
// store before the first failure, or all of them on success.
type SaveResult struct {
	Success  bool
	Applied  int
	Diff     schedule.WeekDiff
	Schedule schedule.WeekSchedule
	Err      error
}

// Save validates updated, diffs it against freshly read server state and
// writes only the difference. The snapshot is replaced only when every write
// succeeded. Stores that implement storage.Transactor apply the batch
// atomically; otherwise a failed save may leave earlier writes in place, and
// saving the same schedule again converges.
func (c *Coordinator) Save(ctx context.Context, providerID string, updated schedule.WeekSchedule) (SaveResult, error) {
	if providerID == "" {
		return SaveResult{Err: ErrProviderRequired}, ErrProviderRequired
	}

	c.mu.Lock()
	allowed := c.state(providerID).limiter.AllowN(c.now(), 1)
	c.mu.Unlock()
	if !allowed {
		return SaveResult{Err: ErrRateLimited}, ErrRateLimited
	}

	target := updated.WithIDs()
	if err := c.rules.ValidateWeek(target); err != nil {
		return SaveResult{Err: err}, err
	}

	ctx, span := otelx.StartSpan(ctx, tracerName, "availability.save", attribute.String("provider_id", providerID))
	res, err := c.save(context.WithoutCancel(ctx), providerID, target)
	otelx.EndSpan(span, err)
	return res, err
}

func (c *Coordinator) save(ctx context.Context, providerID string, target schedule.WeekSchedule) (SaveResult, error) {
	server, err := c.readWeek(ctx, c.store, providerID)
	if err != nil {
		err = persistence("fetch weekly slots before save", err)
		c.invalidate(providerID)
		return SaveResult{Err: err}, err
	}

	diff := schedule.Diff(server, target)
	ops := diff.Operations()
	res := SaveResult{Diff: diff}
	if len(ops) == 0 {
		c.remember(providerID, target)
		res.Success, res.Schedule = true, target.Clone()
		return res, nil
	}

	added, removed, modified, _ := diff.Counts()
	err = c.inTx(ctx, func(s storage.Store) error {
		res.Applied = 0
		for _, op := range ops {
			if err := applyOp(ctx, s, providerID, op); err != nil {
				return err
			}
			res.Applied++
		}
		return c.record(ctx, s, providerID, outbox.EventWeeklySaved, weeklySavedPayload{
			ProviderID: providerID,
			Added:      added,
			Removed:    removed,
			Modified:   modified,
			SavedAt:    c.now().UTC(),
		})
	})
	if err != nil {
		err = persistence("apply weekly slot changes", err)
		if _, ok := c.store.(storage.Transactor); ok {
			res.Applied = 0
		}
		c.invalidate(providerID)
		c.logger.Warn("availability save failed", "provider_id", providerID, "applied", res.Applied, "ops", len(ops), "err", err)
		res.Err = err
		return res, err
	}

	c.remember(providerID, target)
	c.logger.Info("availability saved", "provider_id", providerID,
		"added", added, "removed", removed, "modified", modified, "writes", len(ops))
	res.Success, res.Schedule = true, target.Clone()
	return res, nil
}

func applyOp(ctx context.Context, s storage.Store, providerID string, op schedule.Op) error {
	switch op.Kind {
	case schedule.OpDelete:
		if err := s.DeleteWeeklySlot(ctx, op.Slot.ID, providerID); err != nil {
			return fmt.Errorf("delete slot %s: %w", op.Slot.ID, err)
		}
	case schedule.OpInsert:
		_, err := s.InsertWeeklySlot(ctx, providerID, storage.WeeklySlot{
			ID:        op.Slot.ID,
			Weekday:   int(op.Weekday),
			StartTime: op.Slot.Start,
			EndTime:   op.Slot.End,
		})
		if err != nil {
			return fmt.Errorf("insert slot %s: %w", op.Slot.ID, err)
		}
	}
	return nil
}

type weeklySavedPayload struct {
	ProviderID string    `json:"provider_id"`
	Added      int       `json:"added"`
	Removed    int       `json:"removed"`
	Modified   int       `json:"modified"`
	SavedAt    time.Time `json:"saved_at"`
}

// inTx runs fn in a transaction when the store supports one.
func (c *Coordinator) inTx(ctx context.Context, fn func(storage.Store) error) error {
	if tx, ok := c.store.(storage.Transactor); ok {
		return tx.WithinTx(ctx, fn)
	}
	return fn(c.store)
}

// record writes an outbox event when the store can hold one.
func (c *Coordinator) record(ctx context.Context, s storage.Store, providerID, eventType string, payload any) error {
	rec, ok := s.(storage.EventRecorder)
	if !ok {
		return nil
	}
	evt, err := outbox.NewEvent(providerID, eventType, payload)
	if err != nil {
		return err
	}
	return rec.RecordEvent(ctx, evt)
}

func (c *Coordinator) remember(providerID string, ws schedule.WeekSchedule) {
	c.group.Forget(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(providerID)
	st.version++
	st.phase = Fetched
	st.lastGood = ws.Clone()
	st.lastQueried = c.now()
}

// invalidate drops the snapshot so the next fetch reads the store.
func (c *Coordinator) invalidate(providerID string) {
	c.group.Forget(providerID)
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(providerID)
	st.version++
	st.phase = Idle
	st.lastGood = nil
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
