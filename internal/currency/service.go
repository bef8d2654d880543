package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/place-info/internal/fault"
	"github.com/i474232898/place-info/internal/httpclient"
	"github.com/i474232898/place-info/internal/metrics"
)

// Service answers GET_CURRENCIES: it serves a fresh cached payload when one
// exists and otherwise calls the provider, persisting the response before
// handing it back.
type Service struct {
	client  *httpclient.Client
	cache   Cache
	ttl     time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a new Service. A nil cache disables caching.
func NewService(client *httpclient.Client, cache Cache, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		client:  client,
		cache:   cache,
		ttl:     ttl,
		log:     log.With("domain", "currency"),
		metrics: m,
		now:     time.Now,
	}
}

func (s *Service) Fetch(ctx context.Context, req Request) (Payload, error) {
	const op = "currency.Fetch"

	if req.Key == "" {
		return Payload{}, fault.New(fault.Configuration, op, errors.New("currency api key is not configured"))
	}

	if p, ok := s.fromCache(ctx, req.Base); ok {
		return p, nil
	}

	u, err := requestURL(req)
	if err != nil {
		return Payload{}, fault.New(fault.Configuration, op, err)
	}

	var header http.Header
	if req.KeyHeader != "" {
		header = http.Header{}
		header.Set(req.KeyHeader, req.Key)
	}

	body, err := s.client.Get(ctx, u, header)
	if err != nil {
		return Payload{}, err
	}

	p, err := decodePayload(body)
	if err != nil {
		return Payload{}, fault.New(fault.Network, op, err)
	}

	p.FetchedAt = s.now().UTC()

	if s.cache != nil {
		rec := Record{Timestamp: p.FetchedAt, Data: body}
		if err := s.cache.Store(ctx, rec); err != nil {
			s.log.Error("failed to write currency cache", "error", err)
		} else {
			s.log.Debug("currency cache written", "timestamp", rec.Timestamp)
		}
	}

	return p, nil
}

// fromCache returns the cached payload when it is fresh and quoted in base.
// Any problem with the cache degrades to a miss.
func (s *Service) fromCache(ctx context.Context, base string) (Payload, bool) {
	if s.cache == nil {
		return Payload{}, false
	}

	rec, err := s.cache.Load(ctx)
	switch {
	case errors.Is(err, ErrCacheMiss):
		s.log.Debug("currency cache miss")
		s.metrics.CacheLookup("miss")
		return Payload{}, false
	case err != nil:
		s.log.Warn("currency cache unreadable, fetching from provider", "error", err)
		s.metrics.CacheLookup("corrupt")
		return Payload{}, false
	}

	if !rec.Fresh(s.now(), s.ttl) {
		s.log.Debug("currency cache expired", "timestamp", rec.Timestamp, "ttl", s.ttl)
		s.metrics.CacheLookup("stale")
		return Payload{}, false
	}

	p, err := decodePayload(rec.Data)
	if err != nil {
		s.log.Warn("cached currency payload unusable, fetching from provider", "error", err)
		s.metrics.CacheLookup("corrupt")
		return Payload{}, false
	}
	if !strings.EqualFold(p.Base, base) {
		s.log.Debug("currency cache holds another base", "cached", p.Base, "wanted", base)
		s.metrics.CacheLookup("stale")
		return Payload{}, false
	}

	p.FetchedAt = rec.Timestamp.UTC()
	s.log.Debug("currency cache hit", "timestamp", rec.Timestamp)
	s.metrics.CacheLookup("hit")
	return p, true
}

// requestURL builds {api}?access_key={key}&base={base}, keeping any query the
// configured API URL already carries. The key is left out when it travels in a
// header.
func requestURL(req Request) (string, error) {
	u, err := url.Parse(req.API)
	if err != nil {
		return "", fmt.Errorf("invalid currency api url: %w", err)
	}
	q := u.Query()
	if req.KeyHeader == "" {
		q.Set("access_key", req.Key)
	}
	if req.Base != "" {
		q.Set("base", req.Base)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
