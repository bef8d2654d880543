package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/place-info/internal/fault"
)

// maxBodyBytes caps provider responses; weather and fixer payloads are a few KB.
const maxBodyBytes = 4 << 20

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrServerError      = errors.New("server error")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrCircuitOpen      = errors.New("circuit breaker open")
	errNoHTTPClient     = errors.New("http client not configured")
)

// Settings configures the circuit breaker guarding one provider.
type Settings struct {
	Name string
	// MaxFailures consecutive failures open the breaker. 0 means 5.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
	// MaxHalfOpen bounds the requests let through while half-open. Batches
	// that fan out should set it to their width.
	MaxHalfOpen uint32
}

// Client issues GET requests through a circuit breaker. It never retries:
// the caller's schedule is the retry mechanism.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

func New(client *http.Client, s Settings, log *slog.Logger) *Client {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = time.Minute
	}
	if s.MaxHalfOpen == 0 {
		s.MaxHalfOpen = 1
	}
	if log == nil {
		log = slog.Default()
	}

	maxFailures := s.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxHalfOpen,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{http: client, breaker: cb, log: log}
}

// Get fetches rawURL and returns the body of a 2xx response. Every failure is
// a fault.Network error.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	const op = "httpclient.Get"

	if c == nil || c.http == nil {
		return nil, fault.New(fault.Network, op, errNoHTTPClient)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, fault.New(fault.Network, op, err)
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fault.New(fault.Network, op, fmt.Errorf("unexpected result type from circuit breaker"))
	}
	return body, nil
}
