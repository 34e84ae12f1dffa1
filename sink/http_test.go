package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bqrelay/relay/config"
)

func TestHTTPSinkForwardsRows(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTPSink(config.HTTPConfig{URL: srv.URL})
	defer s.Close()

	if err := s.Insert(context.Background(), []any{map[string]any{"a": "x"}, 3.0}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(got) != 2 || got[0]["a"] != "x" || got[1]["value"] != 3.0 {
		t.Errorf("unexpected rows %v", got)
	}
}

func TestHTTPSinkKeepsUpstreamStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantMsg string
	}{
		{name: "forbidden", status: http.StatusForbidden, body: "Access Denied for key abc", want: http.StatusForbidden, wantMsg: "Forbidden"},
		{name: "empty body", status: http.StatusServiceUnavailable, want: http.StatusServiceUnavailable, wantMsg: "Service Unavailable"},
		{name: "unknown status", status: 599, body: "internal", want: 599, wantMsg: "upstream rejected the insert"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := NewHTTPSink(config.HTTPConfig{URL: srv.URL})
			err := s.Insert(context.Background(), map[string]any{"a": 1.0})
			if StatusCode(err) != tt.want {
				t.Errorf("status = %d, want %d", StatusCode(err), tt.want)
			}
			if PublicMessage(err) != tt.wantMsg {
				t.Errorf("message = %q, want %q", PublicMessage(err), tt.wantMsg)
			}
			if tt.body != "" && !strings.Contains(err.Error(), tt.body) {
				t.Errorf("upstream body should be kept for the server log, got %v", err)
			}
		})
	}
}

func TestHTTPSinkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewHTTPSink(config.HTTPConfig{URL: url})
	err := s.Insert(context.Background(), map[string]any{"a": 1.0})
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("network errors without a code map to 400, got %d", StatusCode(err))
	}
}
