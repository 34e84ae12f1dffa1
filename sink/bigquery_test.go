package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"

	"bqrelay/relay/config"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

type putterStub struct {
	src interface{}
	err error
}

func (p *putterStub) Put(_ context.Context, src interface{}) error {
	p.src = src
	return p.err
}

func newStubbedBigQuery(err error) (*BigQuerySink, *putterStub) {
	stub := &putterStub{err: err}
	n := 0
	return &BigQuerySink{
		inserter: stub,
		newID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}, stub
}

func TestBigQueryInsertBuildsSavers(t *testing.T) {
	s, stub := newStubbedBigQuery(nil)

	payload := []any{map[string]any{"a": json.Number("1")}, "loose"}
	if err := s.Insert(context.Background(), payload); err != nil {
		t.Fatalf("insert: %v", err)
	}

	savers, ok := stub.src.([]bigquery.ValueSaver)
	if !ok || len(savers) != 2 {
		t.Fatalf("expected 2 value savers, got %#v", stub.src)
	}

	row, id, err := savers[0].Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id != "id-1" {
		t.Errorf("unexpected insert id %q", id)
	}
	if row["a"] != json.Number("1") {
		t.Errorf("unexpected row %v", row)
	}

	row, _, _ = savers[1].Save()
	if row["value"] != "loose" {
		t.Errorf("scalar element should land in value column, got %v", row)
	}
}

func TestBigQueryErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		sameErr  bool
	}{
		{name: "api error keeps code", err: &googleapi.Error{Code: http.StatusForbidden, Message: "Access Denied"}, wantCode: http.StatusForbidden, sameErr: true},
		{name: "wrapped api error", err: fmt.Errorf("put: %w", &googleapi.Error{Code: http.StatusNotFound}), wantCode: http.StatusNotFound, sameErr: true},
		{name: "row errors", err: bigquery.PutMultiError{{InsertID: "x", RowIndex: 0}}, wantCode: http.StatusBadRequest},
		{name: "transport error", err: errors.New("connection reset"), wantCode: http.StatusBadRequest, sameErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStubbedBigQuery(tt.err)
			err := s.Insert(context.Background(), map[string]any{"a": 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := StatusCode(err); got != tt.wantCode {
				t.Errorf("StatusCode = %d, want %d", got, tt.wantCode)
			}
			if tt.sameErr && !errors.Is(err, tt.err) {
				t.Errorf("original error should stay reachable, got %v", err)
			}
		})
	}
}

func TestBigQueryIntegration(t *testing.T) {
	if os.Getenv("RUN_SINK_INTEGRATION_TESTS") != "1" {
		t.Skip("skipping BigQuery integration tests")
	}

	ctx := context.Background()
	s, err := NewBigQuerySink(ctx, config.BigQueryConfig{
		ProjectID:       os.Getenv("BIGQUERY_PROJECT_ID"),
		DatasetID:       os.Getenv("BIGQUERY_DATASET_ID"),
		TableID:         os.Getenv("BIGQUERY_TABLE_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	})
	if err != nil {
		t.Fatalf("NewBigQuerySink: %v", err)
	}
	defer s.Close()

	if err := s.Insert(ctx, map[string]any{"source": "integration-test"}); err != nil {
		t.Errorf("Insert returned error: %v", err)
	}
}
