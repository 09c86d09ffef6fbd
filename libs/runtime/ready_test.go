package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestReadyz_ReportsFailingCheck(t *testing.T) {
	mux := NewBaseMuxWithReady(
		ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("dial failed") }},
	)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dial failed") {
		t.Fatalf("expected failure detail in body, got %s", rec.Body.String())
	}
}

func TestReadyz_NoChecks(t *testing.T) {
	mux := NewBaseMuxWithReady()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" {
		t.Fatalf("expected debug level")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Fatalf("expected info fallback")
	}
}

func TestShutdown_RunsAllInOrder(t *testing.T) {
	var order []string
	err := Shutdown(time.Second,
		func(context.Context) error { order = append(order, "http"); return errors.New("busy") },
		nil,
		func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Fatalf("expected deadline")
			}
			order = append(order, "otel")
			return nil
		},
	)
	if err == nil || err.Error() != "busy" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(order) != 2 || order[0] != "http" || order[1] != "otel" {
		t.Fatalf("unexpected order %v", order)
	}
}
