package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const placesJSON = `[
	{"title":"London","timezone":"Europe/London","weatherID":"2643743","currency":"gbp","flag":"gb"},
	{"id":"nyc","title":"New York","timezone":"America/New_York","weatherID":"5128581","currency":"USD","flag":"us"}
]`

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLACES", placesJSON)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Weather.API != "https://api.openweathermap.org/data" || cfg.Weather.Version != "2.5" || cfg.Weather.Endpoint != "weather" {
		t.Fatalf("unexpected weather defaults %+v", cfg.Weather)
	}
	if cfg.Weather.Interval != 10*time.Minute || cfg.Weather.LoadDelay != 0 {
		t.Fatalf("unexpected weather schedule %v/%v", cfg.Weather.Interval, cfg.Weather.LoadDelay)
	}
	if cfg.Currency.Base != "EUR" || cfg.Currency.RelativeTo != "EUR" || cfg.Currency.Precision != 3 {
		t.Fatalf("unexpected currency defaults %+v", cfg.Currency)
	}
	if cfg.Currency.Interval != 4*time.Hour || cfg.Currency.CacheTTL != 4*time.Hour {
		t.Fatalf("unexpected currency schedule %v/%v", cfg.Currency.Interval, cfg.Currency.CacheTTL)
	}
	if cfg.Render.Interval != time.Second || cfg.Render.Layout != "table" || !cfg.Render.ShowFlag {
		t.Fatalf("unexpected render defaults %+v", cfg.Render)
	}

	if len(cfg.Places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(cfg.Places))
	}
	if cfg.Places[0].Currency != "GBP" || cfg.Places[0].ID == "" {
		t.Fatalf("places not normalized: %+v", cfg.Places[0])
	}
	if cfg.Places[1].ID != "nyc" {
		t.Fatalf("explicit place id lost: %+v", cfg.Places[1])
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.json")
	if err := os.WriteFile(path, []byte(placesJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PLACES_FILE", path)
	t.Setenv("WEATHER_API_KEY", "w-key")
	t.Setenv("WEATHER_UNITS", "imperial")
	t.Setenv("WEATHER_LOAD_DELAY", "2s")
	t.Setenv("CURRENCY_API_KEY", "c-key")
	t.Setenv("CURRENCY_BASE", "usd")
	t.Setenv("CURRENCY_RELATIVE_TO", "")
	t.Setenv("CURRENCY_REVERSED", "true")
	t.Setenv("CACHE_TTL", "12h")
	t.Setenv("LAYOUT_STYLE", "list")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Weather.Key != "w-key" || cfg.Weather.Units != "imperial" || cfg.Weather.LoadDelay != 2*time.Second {
		t.Fatalf("weather overrides not applied: %+v", cfg.Weather)
	}
	if cfg.Currency.Key != "c-key" || cfg.Currency.Base != "USD" || !cfg.Currency.Reversed || cfg.Currency.CacheTTL != 12*time.Hour {
		t.Fatalf("currency overrides not applied: %+v", cfg.Currency)
	}
	if cfg.Currency.RelativeTo != "" {
		t.Fatalf("empty CURRENCY_RELATIVE_TO should disable the relative currency, got %q", cfg.Currency.RelativeTo)
	}
	if cfg.Render.Layout != "list" {
		t.Fatalf("layout override not applied")
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no places", map[string]string{}, "no places configured"},
		{"bad places json", map[string]string{"PLACES": `{"title":"x"}`}, "invalid places JSON"},
		{"missing title", map[string]string{"PLACES": `[{"currency":"GBP"}]`}, "Title"},
		{"bad timezone", map[string]string{"PLACES": `[{"title":"x","timezone":"Mars/Olympus"}]`}, "Timezone"},
		{"bad currency", map[string]string{"PLACES": `[{"title":"x","currency":"POUND"}]`}, "Currency"},
		{"bad units", map[string]string{"PLACES": `[{"title":"x"}]`, "WEATHER_UNITS": "kelvin"}, "Units"},
		{"bad duration", map[string]string{"PLACES": `[{"title":"x"}]`, "CURRENCY_INTERVAL": "often"}, "CURRENCY_INTERVAL"},
		{"zero ttl", map[string]string{"PLACES": `[{"title":"x"}]`, "CACHE_TTL": "0s"}, "CacheTTL"},
		{"redis without url", map[string]string{"PLACES": `[{"title":"x"}]`, "CURRENCY_CACHE_BACKEND": "redis"}, "RedisURL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PLACES", "")
			t.Setenv("PLACES_FILE", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRejectsDuplicatePlaceIDs(t *testing.T) {
	t.Setenv("PLACES_FILE", "")
	t.Setenv("PLACES", `[{"id":"x","title":"London","weatherID":"1"},{"id":"x","title":"Paris","weatherID":"2"}]`)

	_, err := Load()
	if err == nil {
		t.Fatalf("expected duplicate place ids to be rejected")
	}
	if !strings.Contains(err.Error(), `share id "x"`) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadAcceptsGeneratedIDsForSameTitle(t *testing.T) {
	t.Setenv("PLACES_FILE", "")
	t.Setenv("PLACES", `[{"title":"Springfield"},{"title":"Springfield"}]`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Places[0].ID == cfg.Places[1].ID {
		t.Fatalf("generated ids collide: %q", cfg.Places[0].ID)
	}
}
