package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	c := New(Options{})
	if c.Timeout != 30*time.Second {
		t.Errorf("unexpected timeout %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", c.Transport)
	}
	if tr.MaxIdleConns != 100 || tr.MaxIdleConnsPerHost != 10 || tr.IdleConnTimeout != 90*time.Second {
		t.Errorf("unexpected pool settings %d/%d/%v", tr.MaxIdleConns, tr.MaxIdleConnsPerHost, tr.IdleConnTimeout)
	}
}

func TestRequestC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing default content type")
		}
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	body, code, err := RequestC(context.Background(), New(Options{MaxIdleConnsPerHost: 2}), http.MethodPost, srv.URL, strings.NewReader(`{"a":1}`), nil)
	if err != nil {
		t.Fatalf("RequestC: %v", err)
	}
	if code != http.StatusAccepted || string(body) != `{"a":1}` {
		t.Errorf("got %d %s", code, body)
	}
}

func TestRequestCCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := RequestC(ctx, nil, http.MethodGet, srv.URL, nil, nil); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
