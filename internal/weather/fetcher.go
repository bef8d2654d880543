package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/place-info/internal/fault"
	"github.com/i474232898/place-info/internal/place"
)

// Fetcher issues one provider request per place with a weather station, in
// parallel, and only returns a batch when every request succeeded.
type Fetcher struct {
	provider Provider
	log      *slog.Logger
	now      func() time.Time
}

// NewFetcher creates a new Fetcher.
func NewFetcher(provider Provider, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		provider: provider,
		log:      log.With("domain", "weather"),
		now:      time.Now,
	}
}

// Fetch runs a full weather cycle. A single failed request discards the whole
// batch with a fault.PartialBatch error.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Batch, error) {
	const op = "weather.Fetch"

	if req.API.Key == "" {
		return Batch{}, fault.New(fault.Configuration, op, errors.New("weather api key is not configured"))
	}
	if f.provider == nil {
		return Batch{}, fault.New(fault.Configuration, op, errors.New("no weather provider configured"))
	}

	stations := place.WithWeather(req.Places)
	f.log.Debug("fetching weather", "provider", f.provider.Name(), "stations", len(stations))

	var (
		wg      sync.WaitGroup
		reports = make([]Report, len(stations))
		errs    = make([]error, len(stations))
	)

	for i, p := range stations {
		wg.Add(1)
		go func(i int, p place.Spec) {
			defer wg.Done()

			r, err := f.provider.Fetch(ctx, req.API, p)
			if err != nil {
				errs[i] = fmt.Errorf("%s (station %s): %w", p.Title, p.WeatherID, err)
				return
			}
			r.PlaceID = p.ID
			r.StationID = p.WeatherID
			reports[i] = r
		}(i, p)
	}

	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		return Batch{}, fault.New(fault.PartialBatch, op,
			fmt.Errorf("%d of %d requests failed: %w", failed, len(stations), errors.Join(errs...)))
	}

	return Batch{Places: reports, FetchedAt: f.now().UTC()}, nil
}
