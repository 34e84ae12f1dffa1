package sink

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"bqrelay/relay/config"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestInsertQuery(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{table: "events", want: `INSERT INTO "events" (insert_id, payload, received_at) VALUES ($1, $2::jsonb, NOW())`},
		{table: "analytics.events", want: `INSERT INTO "analytics"."events" (insert_id, payload, received_at) VALUES ($1, $2::jsonb, NOW())`},
	}
	for _, tt := range tests {
		if got := insertQuery(tt.table); got != tt.want {
			t.Errorf("insertQuery(%q) = %s, want %s", tt.table, got, tt.want)
		}
	}
}

func TestPostgresErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid json", err: &pgconn.PgError{Code: "22P02"}, want: http.StatusUnprocessableEntity},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: http.StatusUnprocessableEntity},
		{name: "undefined table", err: &pgconn.PgError{Code: "42P01"}, want: http.StatusBadRequest},
		{name: "network", err: errors.New("connection refused"), want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(postgresError(tt.err)); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPostgresIntegration(t *testing.T) {
	if os.Getenv("RUN_SINK_INTEGRATION_TESTS") != "1" || os.Getenv("POSTGRES_DSN") == "" {
		t.Skip("skipping postgres integration tests")
	}

	ctx := context.Background()
	s, err := NewPostgresSink(ctx, config.PostgresConfig{DSN: os.Getenv("POSTGRES_DSN"), Table: "events"})
	if err != nil {
		t.Fatalf("NewPostgresSink: %v", err)
	}
	defer s.Close()

	if err := s.Insert(ctx, map[string]any{"source": "integration-test"}); err != nil {
		t.Errorf("Insert returned error: %v", err)
	}
}
