package place

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// namespace seeds the deterministic IDs handed to places configured without one.
var namespace = uuid.MustParse("6f1c2b7e-3d4a-4c59-9a0e-8b2f5d7c1e43")

// Spec identifies one configured place. Both the weather and currency domains
// read the same list; it is never mutated after configuration is loaded.
type Spec struct {
	ID        string `json:"id,omitempty" validate:"omitempty,max=64"`
	Title     string `json:"title" validate:"required"`
	Timezone  string `json:"timezone,omitempty" validate:"omitempty,timezone"`
	WeatherID string `json:"weatherID,omitempty"`
	Currency  string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Flag      string `json:"flag,omitempty" validate:"omitempty,len=2,alpha"`
}

func (s Spec) HasWeather() bool {
	return s.WeatherID != ""
}

func (s Spec) HasCurrency() bool {
	return s.Currency != ""
}

// Location resolves the place's timezone, falling back to local time.
func (s Spec) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Normalize returns a copy of specs with currency codes upper-cased, flags
// lower-cased and a stable ID on every entry. Generated IDs depend only on
// position and title, so they survive restarts with the same configuration.
func Normalize(specs []Spec) []Spec {
	out := make([]Spec, len(specs))
	for i, s := range specs {
		s.Title = strings.TrimSpace(s.Title)
		s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
		s.Flag = strings.ToLower(strings.TrimSpace(s.Flag))
		if s.ID == "" {
			s.ID = uuid.NewSHA1(namespace, []byte(strconv.Itoa(i)+":"+s.Title)).String()
		}
		out[i] = s
	}
	return out
}

// Currencies lists the distinct currency codes referenced by specs, in order of first use.
func Currencies(specs []Spec) []string {
	seen := make(map[string]struct{}, len(specs))
	var codes []string
	for _, s := range specs {
		if !s.HasCurrency() {
			continue
		}
		if _, ok := seen[s.Currency]; ok {
			continue
		}
		seen[s.Currency] = struct{}{}
		codes = append(codes, s.Currency)
	}
	return codes
}

// WithWeather filters specs down to those with a weather-station id.
func WithWeather(specs []Spec) []Spec {
	var out []Spec
	for _, s := range specs {
		if s.HasWeather() {
			out = append(out, s)
		}
	}
	return out
}
