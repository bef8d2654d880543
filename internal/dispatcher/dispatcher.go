package dispatcher

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/place-info/internal/currency"
	"github.com/i474232898/place-info/internal/metrics"
	"github.com/i474232898/place-info/internal/place"
	"github.com/i474232898/place-info/internal/store"
	"github.com/i474232898/place-info/internal/weather"
)

// Kind names a message delivered by a fetch cycle.
type Kind string

const (
	WeatherData  Kind = "WEATHER_DATA"
	CurrencyData Kind = "CURRENCY_DATA"
)

const (
	StatusNoPayload = "Error: No payload"
	StatusMalformed = "Error: malformed payload"
)

// inboxSize leaves room for one in-flight message per domain.
const inboxSize = 2

// Message carries exactly one of Weather or Currency, matching Kind.
type Message struct {
	Kind     Kind
	Weather  *weather.Batch
	Currency *currency.Payload
}

// Dispatcher receives fetch results asynchronously and merges them into the
// render state, one message at a time.
type Dispatcher struct {
	state    *store.RenderState
	places   []place.Spec
	rates    currency.Options
	onUpdate func()
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	inbox    chan Message
	done     chan struct{}
	closed   atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Dispatcher. onUpdate runs after every applied message and may be nil.
func New(state *store.RenderState, places []place.Spec, rates currency.Options, onUpdate func(), log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if onUpdate == nil {
		onUpdate = func() {}
	}
	return &Dispatcher{
		state:    state,
		places:   places,
		rates:    rates,
		onUpdate: onUpdate,
		log:      log.With("component", "dispatcher"),
		metrics:  m,
		now:      time.Now,
		inbox:    make(chan Message, inboxSize),
		done:     make(chan struct{}),
	}
}

// Start launches the goroutine draining the inbox.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case msg := <-d.inbox:
				if d.closed.Load() {
					return
				}
				d.Apply(msg)
			case <-d.done:
				return
			}
		}
	}()
}

// Deliver hands msg to the dispatcher. After Stop it drops the message and
// returns false, so late completions of in-flight fetches are no-ops.
func (d *Dispatcher) Deliver(msg Message) bool {
	if d.closed.Load() {
		d.log.Debug("dropping message after shutdown", "kind", msg.Kind)
		d.metrics.Message(string(msg.Kind), "dropped")
		return false
	}
	select {
	case d.inbox <- msg:
		return true
	case <-d.done:
		d.metrics.Message(string(msg.Kind), "dropped")
		return false
	}
}

// Stop stops the inbox goroutine. Pending messages are discarded.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})
	d.wg.Wait()
}

// Apply merges msg into the render state and notifies the renderer.
func (d *Dispatcher) Apply(msg Message) {
	switch msg.Kind {
	case WeatherData:
		d.applyWeather(msg.Weather)
	case CurrencyData:
		d.applyCurrency(msg.Currency)
	default:
		d.log.Warn("ignoring unknown message", "kind", msg.Kind)
		d.metrics.Message(string(msg.Kind), "ignored")
		return
	}
	d.onUpdate()
}

func (d *Dispatcher) applyWeather(batch *weather.Batch) {
	if batch == nil || len(batch.Places) == 0 {
		d.state.SetStatus(store.Weather, StatusNoPayload)
		d.metrics.Message(string(WeatherData), "empty")
		return
	}

	values := make(map[string]weather.Report, len(batch.Places))
	for _, r := range batch.Places {
		if _, dup := values[r.PlaceID]; r.PlaceID == "" || dup {
			d.log.Warn("weather batch has reports without a distinct place id")
			d.state.SetStatus(store.Weather, StatusMalformed)
			d.metrics.Message(string(WeatherData), "malformed")
			return
		}
		values[r.PlaceID] = r
	}

	d.state.ReplaceWeather(values, d.now().UTC())
	d.metrics.Message(string(WeatherData), "applied")
}

func (d *Dispatcher) applyCurrency(p *currency.Payload) {
	if p == nil {
		d.state.SetStatus(store.Currency, StatusNoPayload)
		d.metrics.Message(string(CurrencyData), "empty")
		return
	}

	values, err := currency.Derive(*p, d.places, d.rates)
	if err != nil {
		d.log.Error("rejecting currency data", "error", err)
		d.state.SetStatus(store.Currency, currencyErrorStatus(err))
		d.metrics.Message(string(CurrencyData), "rejected")
		return
	}

	at := p.FetchedAt
	if at.IsZero() {
		at = d.now().UTC()
	}
	d.state.ReplaceCurrency(values, at)
	d.metrics.Message(string(CurrencyData), "applied")
}

func currencyErrorStatus(err error) string {
	switch {
	case errors.Is(err, currency.ErrBaseMismatch):
		return "error: " + currency.ErrBaseMismatch.Error()
	case errors.Is(err, currency.ErrRelativeMissing):
		return "error: " + currency.ErrRelativeMissing.Error()
	default:
		return "error: " + err.Error()
	}
}
