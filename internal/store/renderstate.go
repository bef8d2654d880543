package store

import (
	"maps"
	"sync"
	"time"

	"github.com/i474232898/place-info/internal/weather"
)

// Domain names one independently refreshed data source.
type Domain string

const (
	Weather  Domain = "weather"
	Currency Domain = "currency"
)

// Status strings shown by the renderer. Any other value is an error message.
const (
	StatusLoading  = "Loading"
	StatusLoaded   = "Loaded"
	StatusDisabled = "disabled (no API key)"
)

// WeatherState holds the last applied weather batch keyed by place ID.
type WeatherState struct {
	Status    string                    `json:"status"`
	Values    map[string]weather.Report `json:"values"`
	UpdatedAt time.Time                 `json:"updatedAt,omitempty"`
}

// CurrencyState holds display rates keyed by currency code.
type CurrencyState struct {
	Status    string            `json:"status"`
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// Snapshot is a copy of both domains, safe to read without locking.
type Snapshot struct {
	Weather  WeatherState  `json:"weather"`
	Currency CurrencyState `json:"currency"`
}

// Disabled reports whether d was switched off for lack of an API key.
func (s Snapshot) Disabled(d Domain) bool {
	switch d {
	case Weather:
		return s.Weather.Status == StatusDisabled
	case Currency:
		return s.Currency.Status == StatusDisabled
	}
	return false
}

// RenderState is the single place fetch results land in. The dispatcher is
// its only writer; renderers read copies through Snapshot.
type RenderState struct {
	mu       sync.RWMutex
	weather  WeatherState
	currency CurrencyState
}

// New returns a RenderState with both domains loading and no values.
func New() *RenderState {
	return &RenderState{
		weather:  WeatherState{Status: StatusLoading, Values: map[string]weather.Report{}},
		currency: CurrencyState{Status: StatusLoading, Values: map[string]string{}},
	}
}

// Disable fixes the domain's status to StatusDisabled.
func (s *RenderState) Disable(d Domain) {
	s.SetStatus(d, StatusDisabled)
}

// SetStatus changes a domain's status and leaves its values untouched.
func (s *RenderState) SetStatus(d Domain, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch d {
	case Weather:
		s.weather.Status = status
	case Currency:
		s.currency.Status = status
	}
}

// ReplaceWeather swaps in a whole new set of reports and marks weather loaded.
func (s *RenderState) ReplaceWeather(values map[string]weather.Report, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weather = WeatherState{Status: StatusLoaded, Values: maps.Clone(values), UpdatedAt: at}
}

// ReplaceCurrency swaps in a whole new set of rates and marks currency loaded.
func (s *RenderState) ReplaceCurrency(values map[string]string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currency = CurrencyState{Status: StatusLoaded, Values: maps.Clone(values), UpdatedAt: at}
}

// Snapshot returns a deep copy of the current state.
func (s *RenderState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := s.weather
	w.Values = maps.Clone(s.weather.Values)
	c := s.currency
	c.Values = maps.Clone(s.currency.Values)
	return Snapshot{Weather: w, Currency: c}
}
