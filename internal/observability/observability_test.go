package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"wrapped deadlock", fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40P01"}), "deadlock"},
		{"other pg", &pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), "timeout"},
		{"connection", errors.New("failed to connect: connection refused"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDBErr(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestObserveDB_CountsErrorsButNotMisses(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("tasks.get_by_id", func() error { return errors.New("task not found") })
	_ = p.ObserveDB("tasks.get_by_id", func() error { return &pgconn.PgError{Code: "23505"} })
	_ = p.ObserveDB("tasks.get_by_id", func() error { return nil })

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("tasks.get_by_id", "unique_violation")); got != 1 {
		t.Fatalf("expected one unique violation, got %v", got)
	}
	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != 1 {
		t.Fatalf("expected a single error series, got %d", got)
	}
}

func TestObserveTransition(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveTransition("à faire", "terminé", "owner")
	p.ObserveTransition("terminé", "terminé", "patch")

	if got := testutil.ToFloat64(p.TaskTransitions.WithLabelValues("à faire", "terminé", "owner")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.CollectAndCount(p.TaskTransitions); got != 1 {
		t.Fatalf("self transitions must not be counted, got %d series", got)
	}

	var nilProm *Prom
	nilProm.ObserveTransition("a", "b", "owner")
	nilProm.ObserveAuthFailure("missing_token")
}

func TestNewLoggerTo_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "prod")

	log.Debug("hidden")
	log.Info("task validated", "task_id", 7)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "task validated" || rec["service"] != "taskhub" {
		t.Fatalf("unexpected record %v", rec)
	}
}
