package placeinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/i474232898/place-info/internal/config"
	"github.com/i474232898/place-info/internal/currency"
	"github.com/i474232898/place-info/internal/dispatcher"
	"github.com/i474232898/place-info/internal/fault"
	"github.com/i474232898/place-info/internal/httpclient"
	"github.com/i474232898/place-info/internal/metrics"
	"github.com/i474232898/place-info/internal/place"
	"github.com/i474232898/place-info/internal/render"
	"github.com/i474232898/place-info/internal/scheduler"
	"github.com/i474232898/place-info/internal/store"
	"github.com/i474232898/place-info/internal/weather"
	"github.com/i474232898/place-info/internal/weather/providers"
)

// Module owns the two fetch chains, the dispatcher merging their results and
// the render trigger. Everything it starts is stopped by Stop.
type Module struct {
	cfg     *config.AppConfig
	log     *slog.Logger
	metrics *metrics.Metrics

	state      *store.RenderState
	renderer   *render.Renderer
	dispatcher *dispatcher.Dispatcher

	weather    *weather.Fetcher
	currency   *currency.Service
	closeCache func() error

	mu         sync.Mutex
	schedulers []*scheduler.Scheduler
	started    bool
	stopped    bool
}

// New builds a Module from cfg. The context only bounds the connection to an
// external cache backend.
func New(ctx context.Context, cfg *config.AppConfig, log *slog.Logger, m *metrics.Metrics) (*Module, error) {
	if cfg == nil {
		return nil, fault.New(fault.Configuration, "placeinfo.New", errors.New("missing configuration"))
	}
	if log == nil {
		log = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	stations := len(place.WithWeather(cfg.Places))
	weatherClient := httpclient.New(httpClient, httpclient.Settings{
		Name:        "openweather",
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		OpenTimeout: cfg.BreakerOpenTimeout,
		MaxHalfOpen: uint32(max(stations, 1)),
	}, log)
	currencyClient := httpclient.New(httpClient, httpclient.Settings{
		Name:        "currency",
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, log)

	cache, closeCache, err := newCache(ctx, cfg.Currency)
	if err != nil {
		return nil, err
	}

	state := store.New()
	renderer := render.NewRenderer(cfg.Places, state, render.Options{
		TimeFormat:         cfg.Render.TimeFormat,
		Layout:             cfg.Render.Layout,
		ShowCustomHeader:   cfg.Render.ShowCustomHeader,
		ShowFlag:           cfg.Render.ShowFlag,
		WeatherUnits:       cfg.Weather.Units,
		WeatherPrecision:   cfg.Weather.Precision,
		CurrencyBase:       cfg.Currency.Base,
		CurrencyRelativeTo: cfg.Currency.RelativeTo,
	}, m)

	rates := currency.Options{
		Base:       cfg.Currency.Base,
		RelativeTo: cfg.Currency.RelativeTo,
		Reversed:   cfg.Currency.Reversed,
		Precision:  int32(cfg.Currency.Precision),
	}
	disp := dispatcher.New(state, cfg.Places, rates, func() { renderer.Render() }, log, m)

	return &Module{
		cfg:        cfg,
		log:        log.With("component", "placeinfo"),
		metrics:    m,
		state:      state,
		renderer:   renderer,
		dispatcher: disp,
		weather:    weather.NewFetcher(providers.NewOpenWeatherProvider(weatherClient), log),
		currency:   currency.NewService(currencyClient, cache, cfg.Currency.CacheTTL, log, m),
		closeCache: closeCache,
	}, nil
}

func newCache(ctx context.Context, cfg config.CurrencyConfig) (currency.Cache, func() error, error) {
	switch cfg.CacheBackend {
	case "redis":
		rc, err := currency.NewRedisCache(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, nil, fault.New(fault.Configuration, "placeinfo.newCache", err)
		}
		return rc, rc.Close, nil
	default:
		return currency.NewFileCache(cfg.CacheFile), func() error { return nil }, nil
	}
}

// Renderer exposes the view producer for the HTTP surface.
func (m *Module) Renderer() *render.Renderer { return m.renderer }

// State exposes the render state for the HTTP surface.
func (m *Module) State() *store.RenderState { return m.state }

// Places returns the configured places.
func (m *Module) Places() []place.Spec { return m.cfg.Places }

// Start arms a fetch chain for every domain with an API key and the render
// trigger. Domains without a key are marked disabled and never fetched.
// A stopped Module cannot be started again.
func (m *Module) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if m.stopped {
		return errors.New("start module: already stopped")
	}

	m.dispatcher.Start()

	var jobs []scheduler.Job
	if m.cfg.Weather.Key == "" {
		m.log.Warn("weather api key not configured, weather disabled")
		m.state.Disable(store.Weather)
	} else {
		jobs = append(jobs, scheduler.Job{
			Name:         "weather",
			InitialDelay: m.cfg.Weather.LoadDelay,
			Interval:     m.cfg.Weather.Interval,
			Run:          m.weatherCycle,
		})
	}
	if m.cfg.Currency.Key == "" {
		m.log.Warn("currency api key not configured, currency disabled")
		m.state.Disable(store.Currency)
	} else {
		jobs = append(jobs, scheduler.Job{
			Name:         "currency",
			InitialDelay: m.cfg.Currency.LoadDelay,
			Interval:     m.cfg.Currency.Interval,
			Run:          m.currencyCycle,
		})
	}

	m.schedulers = m.schedulers[:0]
	for _, job := range jobs {
		m.schedulers = append(m.schedulers, scheduler.New(job, m.log))
	}
	m.schedulers = append(m.schedulers, render.NewTrigger(m.renderer, m.cfg.Render.Interval, m.log))

	for _, s := range m.schedulers {
		if err := s.Start(); err != nil {
			m.stopLocked()
			m.stopped = true
			return fmt.Errorf("start module: %w", err)
		}
	}

	m.renderer.Render()
	m.started = true
	m.log.Info("module started", "places", len(m.cfg.Places), "chains", len(jobs))
	return nil
}

// Stop disarms every chain and the dispatcher. Fetches still in flight have
// their context cancelled and their results are dropped.
func (m *Module) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	m.stopLocked()
	m.started = false
	m.stopped = true
	m.log.Info("module stopped")
}

func (m *Module) stopLocked() {
	for _, s := range m.schedulers {
		s.Stop()
	}
	m.dispatcher.Stop()
	if err := m.closeCache(); err != nil {
		m.log.Warn("closing currency cache", "error", err)
	}
}

func (m *Module) weatherCycle(ctx context.Context) {
	start := time.Now()
	batch, err := m.weather.Fetch(ctx, weather.Request{
		API: weather.API{
			BaseURL:  m.cfg.Weather.API,
			Version:  m.cfg.Weather.Version,
			Endpoint: m.cfg.Weather.Endpoint,
			Key:      m.cfg.Weather.Key,
			Units:    m.cfg.Weather.Units,
		},
		Places: m.cfg.Places,
	})
	if err != nil {
		m.fetchFailed("weather", start, err)
		return
	}
	m.metrics.ObserveFetch("weather", "ok", time.Since(start))
	if ctx.Err() != nil {
		return
	}
	m.dispatcher.Deliver(dispatcher.Message{Kind: dispatcher.WeatherData, Weather: &batch})
}

func (m *Module) currencyCycle(ctx context.Context) {
	start := time.Now()
	payload, err := m.currency.Fetch(ctx, currency.Request{
		API:       m.cfg.Currency.API,
		Key:       m.cfg.Currency.Key,
		Base:      m.cfg.Currency.Base,
		KeyHeader: m.cfg.Currency.KeyHeader,
	})
	if err != nil {
		m.fetchFailed("currency", start, err)
		return
	}
	m.metrics.ObserveFetch("currency", "ok", time.Since(start))
	// A cache hit can complete after Stop cancelled the chain.
	if ctx.Err() != nil {
		return
	}
	m.dispatcher.Deliver(dispatcher.Message{Kind: dispatcher.CurrencyData, Currency: &payload})
}

// fetchFailed logs a failed cycle. No message is delivered, so the render
// state keeps its last good values until the next tick.
func (m *Module) fetchFailed(domain string, start time.Time, err error) {
	kind := fault.KindOf(err)
	m.metrics.ObserveFetch(domain, kind.String(), time.Since(start))
	if errors.Is(err, context.Canceled) {
		m.log.Debug("fetch cancelled", "domain", domain)
		return
	}
	m.log.Error("fetch failed", "domain", domain, "kind", kind.String(), "error", err)
}
