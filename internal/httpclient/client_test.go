package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/place-info/internal/fault"
)

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "secret" {
			t.Errorf("expected header to be forwarded")
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), Settings{Name: "test"}, nil)
	body, err := c.Get(context.Background(), srv.URL, http.Header{"apikey": []string{"secret"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestGetClassifiesStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server error", http.StatusBadGateway, ErrServerError},
		{"client error", http.StatusUnauthorized, ErrUnexpectedStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := New(srv.Client(), Settings{Name: tc.name}, nil)
			_, err := c.Get(context.Background(), srv.URL, nil)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !fault.Is(err, fault.Network) {
				t.Fatalf("expected network fault, got %v", err)
			}
		})
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.Client(), Settings{Name: "flaky", MaxFailures: 2, OpenTimeout: time.Hour}, nil)
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), srv.URL, nil); !errors.Is(err, ErrServerError) {
			t.Fatalf("attempt %d: expected server error, got %v", i, err)
		}
	}

	_, err := c.Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected open breaker to short-circuit, server saw %d requests", hits.Load())
	}
}

func TestGetWithoutClient(t *testing.T) {
	var c *Client
	if _, err := c.Get(context.Background(), "http://example.invalid", nil); !errors.Is(err, errNoHTTPClient) {
		t.Fatalf("expected errNoHTTPClient, got %v", err)
	}
}
