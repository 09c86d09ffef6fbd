package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/sitteravail/libs/httpx"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/boarding"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/overrides"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

// Service is the part of *availability.Coordinator the HTTP layer uses.
type Service interface {
	Fetch(ctx context.Context, providerID string) (schedule.WeekSchedule, error)
	Save(ctx context.Context, providerID string, updated schedule.WeekSchedule) (availability.SaveResult, error)
	Overrides(ctx context.Context, providerID string) (*overrides.Store, error)
	AddOverride(ctx context.Context, providerID, date string) error
	RemoveOverride(ctx context.Context, providerID, date string) (int64, error)
	BoardingDates(ctx context.Context, providerID string) (*boarding.Calendar, error)
	SaveBoarding(ctx context.Context, providerID string, updated []string) (boarding.Delta, error)
	EffectiveSlots(ctx context.Context, providerID, date string) ([]schedule.TimeSlot, error)
	CheckConsistency(ctx context.Context, providerID, date string) (availability.Consistency, error)
	IsOpenAt(ctx context.Context, providerID string, t time.Time) (bool, error)
	StartTimes(ctx context.Context, providerID, date string, duration, step time.Duration) ([]time.Time, error)
	Occurrences(ctx context.Context, providerID, from, to string) ([]calendar.Occurrence, error)
	ExportICS(ctx context.Context, providerID, from, to string) (string, error)
}

type AvailabilityHandler struct {
	svc    Service
	logger *slog.Logger
}

func NewAvailabilityHandler(svc Service, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, logger: logger}
}

// Register mounts the availability routes on mux.
func (h *AvailabilityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/availability/weekly", h.Weekly)
	mux.HandleFunc("/api/v1/availability/overrides", h.Overrides)
	mux.HandleFunc("/api/v1/availability/boarding", h.Boarding)
	mux.HandleFunc("/api/v1/availability/effective", h.Effective)
	mux.HandleFunc("/api/v1/availability/open", h.Open)
	mux.HandleFunc("/api/v1/availability/start-times", h.StartTimes)
	mux.HandleFunc("/api/v1/availability/occurrences", h.Occurrences)
	mux.HandleFunc("/api/v1/availability/calendar.ics", h.CalendarICS)
}

func (h *AvailabilityHandler) providerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := httpx.ProviderIDFromRequest(r)
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing "+httpx.ProviderIDHeader)
		return "", false
	}
	return id, true
}

func (h *AvailabilityHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		// A failed fetch still carries an empty week.
		ws, err := h.svc.Fetch(r.Context(), providerID)
		if ws == nil {
			ws = schedule.EmptyWeek()
		}
		resp := weeklyResponse{ProviderID: providerID, Schedule: fromWeekSchedule(ws)}
		status := http.StatusOK
		if err != nil {
			status, resp.Error = h.errorStatus(w, r, err)
		}
		httpx.WriteJSON(w, status, resp)
	case http.MethodPut:
		var req weeklyRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		ws, err := toWeekSchedule(req.Schedule)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		res, err := h.svc.Save(r.Context(), providerID, ws)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		added, removed, modified, unchanged := res.Diff.Counts()
		httpx.WriteJSON(w, http.StatusOK, saveWeeklyResponse{
			ProviderID: providerID,
			Added:      added,
			Removed:    removed,
			Modified:   modified,
			Unchanged:  unchanged,
			Writes:     res.Applied,
			Schedule:   fromWeekSchedule(res.Schedule),
		})
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AvailabilityHandler) Overrides(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ov, err := h.svc.Overrides(r.Context(), providerID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, overridesResponse{ProviderID: providerID, Dates: ov.Dates()})
	case http.MethodPost:
		var req overrideRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		if err := h.svc.AddOverride(r.Context(), providerID, req.Date); err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]string{"provider_id": providerID, "date": req.Date})
	case http.MethodDelete:
		q := dateQuery{Date: r.URL.Query().Get("date")}
		if !validateQuery(w, q) {
			return
		}
		n, err := h.svc.RemoveOverride(r.Context(), providerID, q.Date)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"provider_id": providerID, "date": q.Date, "removed": n})
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AvailabilityHandler) Boarding(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cal, err := h.svc.BoardingDates(r.Context(), providerID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, boardingResponse{ProviderID: providerID, Dates: cal.Dates()})
	case http.MethodPut:
		var req boardingRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		delta, err := h.svc.SaveBoarding(r.Context(), providerID, req.Dates)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, boardingSaveResponse{
			ProviderID: providerID,
			Added:      sortedDates(delta.ToAdd),
			Removed:    sortedDates(delta.ToRemove),
		})
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AvailabilityHandler) Effective(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	q := dateQuery{Date: r.URL.Query().Get("date")}
	if !validateQuery(w, q) {
		return
	}

	resp := effectiveResponse{ProviderID: providerID, Date: q.Date}
	if r.URL.Query().Get("verify") == "1" {
		res, err := h.svc.CheckConsistency(r.Context(), providerID, q.Date)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.Slots = fromSlots(res.Local)
		resp.Consistent = &res.Consistent
	} else {
		slots, err := h.svc.EffectiveSlots(r.Context(), providerID, q.Date)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.Slots = fromSlots(slots)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) Open(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("at")
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "at must be RFC3339")
		return
	}
	open, err := h.svc.IsOpenAt(r.Context(), providerID, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, openResponse{ProviderID: providerID, At: raw, Open: open})
}

func (h *AvailabilityHandler) StartTimes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	values := r.URL.Query()
	q := startTimesQuery{Date: values.Get("date")}
	var err error
	if q.Duration, err = atoiOrZero(values.Get("duration_minutes")); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "duration_minutes must be an integer")
		return
	}
	if q.Step, err = atoiOrZero(values.Get("step_minutes")); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "step_minutes must be an integer")
		return
	}
	if !validateQuery(w, q) {
		return
	}
	if q.Step == 0 {
		q.Step = 15
	}

	starts, err := h.svc.StartTimes(r.Context(), providerID, q.Date,
		time.Duration(q.Duration)*time.Minute, time.Duration(q.Step)*time.Minute)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]string, 0, len(starts))
	for _, s := range starts {
		out = append(out, s.Format(time.RFC3339))
	}
	httpx.WriteJSON(w, http.StatusOK, startTimesResponse{ProviderID: providerID, Date: q.Date, Starts: out})
}

func (h *AvailabilityHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	q := rangeQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if !validateQuery(w, q) {
		return
	}
	occ, err := h.svc.Occurrences(r.Context(), providerID, q.From, q.To)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, occurrencesResponse{
		ProviderID:  providerID,
		From:        q.From,
		To:          q.To,
		Occurrences: fromOccurrences(occ),
	})
}

func (h *AvailabilityHandler) CalendarICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	q := rangeQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if !validateQuery(w, q) {
		return
	}
	body, err := h.svc.ExportICS(r.Context(), providerID, q.From, q.To)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="availability.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validateQuery(w http.ResponseWriter, q any) bool {
	if err := validate.Struct(q); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Namespace() + ": failed " + fe.Tag()
	}
	return err.Error()
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// writeError maps domain errors onto status codes.
func (h *AvailabilityHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := h.errorStatus(w, r, err)
	httpx.WriteError(w, status, msg)
}

// errorStatus maps err to a status code and client message. It sets any
// headers the status needs, so call it before writing the body.
func (h *AvailabilityHandler) errorStatus(w http.ResponseWriter, r *http.Request, err error) (int, string) {
	var (
		verr *schedule.ValidationError
		oerr *schedule.OverlapError
		derr *overrides.DuplicateOverrideError
		perr *availability.PersistenceError
	)
	switch {
	case errors.Is(err, availability.ErrProviderRequired),
		errors.As(err, &verr),
		errors.Is(err, schedule.ErrInvalidWeekday),
		errors.Is(err, schedule.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvalidRange):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &oerr), errors.As(err, &derr):
		return http.StatusConflict, err.Error()
	case errors.Is(err, availability.ErrRateLimited):
		w.Header().Set("Retry-After", "1")
		return http.StatusTooManyRequests, err.Error()
	case errors.As(err, &perr):
		h.logger.Error("availability storage error", "path", r.URL.Path, "provider_id", httpx.ProviderIDFromRequest(r), "err", err)
		return http.StatusBadGateway, "availability storage unavailable"
	default:
		h.logger.Error("availability request failed", "path", r.URL.Path, "err", err)
		return http.StatusInternalServerError, "internal error"
	}
}
