package render

import (
	"strings"
	"testing"
	"time"

	"github.com/i474232898/place-info/internal/place"
	"github.com/i474232898/place-info/internal/store"
	"github.com/i474232898/place-info/internal/weather"
)

var renderNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func newTestRenderer(places []place.Spec, state *store.RenderState, opts Options) *Renderer {
	r := NewRenderer(places, state, opts, nil)
	r.now = func() time.Time { return renderNow }
	return r
}

func TestRenderPlaceholdersWhileLoading(t *testing.T) {
	places := place.Normalize([]place.Spec{
		{Title: "London", Timezone: "Europe/London", Currency: "GBP", WeatherID: "1", Flag: "gb"},
	})
	r := newTestRenderer(places, store.New(), Options{TimeFormat: "15:04", ShowFlag: true})

	v := r.Render()
	c, ok := v.Cell(places[0].ID)
	if !ok {
		t.Fatalf("cell missing for %s", places[0].ID)
	}
	if c.Title != "London" || c.Flag != "gb" || c.Time != "12:30" {
		t.Fatalf("unexpected cell header %+v", c)
	}
	if c.Currency == nil || c.Currency.Text != "Currency Loading" || !c.Currency.Dimmed {
		t.Fatalf("unexpected currency line %+v", c.Currency)
	}
	if c.Weather == nil || c.Weather.Text != "Weather Loading" || !c.Weather.Dimmed {
		t.Fatalf("unexpected weather line %+v", c.Weather)
	}
}

func TestRenderLoadedValues(t *testing.T) {
	places := place.Normalize([]place.Spec{
		{Title: "Tokyo", Timezone: "Asia/Tokyo", Currency: "JPY", WeatherID: "1850147"},
		{Title: "Nowhere"},
	})
	state := store.New()
	state.ReplaceCurrency(map[string]string{"JPY": "161.230"}, renderNow)
	state.ReplaceWeather(map[string]weather.Report{
		places[0].ID: {PlaceID: places[0].ID, Temperature: 54.46, Icon: "01n"},
	}, renderNow)

	r := newTestRenderer(places, state, Options{TimeFormat: "15:04", WeatherUnits: "imperial", WeatherPrecision: 1})
	v := r.Render()

	tokyo, _ := v.Cell(places[0].ID)
	if tokyo.Time != "21:30" {
		t.Fatalf("expected Tokyo time 21:30, got %s", tokyo.Time)
	}
	if tokyo.Currency.Text != "JPY: 161.230" || tokyo.Currency.Dimmed {
		t.Fatalf("unexpected currency line %+v", tokyo.Currency)
	}
	if tokyo.Weather.Text != "54.5°F" || tokyo.Weather.Icon != "wi weathericon wi-night-clear" {
		t.Fatalf("unexpected weather line %+v", tokyo.Weather)
	}

	nowhere, _ := v.Cell(places[1].ID)
	if nowhere.Currency != nil || nowhere.Weather != nil {
		t.Fatalf("place without currency or station must not show those lines: %+v", nowhere)
	}
}

func TestRenderTableRows(t *testing.T) {
	cases := []struct {
		places int
		rows   []int
	}{
		{1, []int{1}},
		{4, []int{2, 2}},
		{5, []int{3, 2}},
		{7, []int{4, 3}},
		{9, []int{3, 3, 3}},
		{10, []int{4, 4, 2}},
	}

	for _, tc := range cases {
		specs := make([]place.Spec, tc.places)
		for i := range specs {
			specs[i] = place.Spec{Title: strings.Repeat("x", i+1)}
		}
		r := newTestRenderer(place.Normalize(specs), store.New(), Options{Layout: LayoutTable})
		v := r.Render()

		if len(v.Rows) != len(tc.rows) {
			t.Fatalf("%d places: expected %d rows, got %d", tc.places, len(tc.rows), len(v.Rows))
		}
		for i, n := range tc.rows {
			if len(v.Rows[i]) != n {
				t.Fatalf("%d places: row %d has %d cells, want %d", tc.places, i, len(v.Rows[i]), n)
			}
		}
	}
}

func TestRenderListLayout(t *testing.T) {
	specs := place.Normalize([]place.Spec{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}})
	v := newTestRenderer(specs, store.New(), Options{Layout: LayoutList}).Render()
	if len(v.Rows) != 1 || len(v.Rows[0]) != 4 {
		t.Fatalf("expected a single row of 4, got %+v", v.Rows)
	}
}

func TestRenderHeader(t *testing.T) {
	places := place.Normalize([]place.Spec{{Title: "London", Currency: "GBP"}})

	state := store.New()
	state.Disable(store.Currency)
	v := newTestRenderer(places, state, Options{ShowCustomHeader: true, CurrencyBase: "EUR"}).Render()
	if len(v.Header) != 1 || v.Header[0] != "Currency data disabled (no API key)" {
		t.Fatalf("unexpected disabled header %v", v.Header)
	}

	state = store.New()
	state.ReplaceCurrency(map[string]string{"GBP": "0.850"}, renderNow)
	v = newTestRenderer(places, state, Options{ShowCustomHeader: true, CurrencyBase: "EUR", CurrencyRelativeTo: "USD"}).Render()
	if len(v.Header) != 2 || !strings.HasPrefix(v.Header[0], "Currency data last updated ") || v.Header[1] != "Currency relative to USD" {
		t.Fatalf("unexpected header %v", v.Header)
	}
}

func TestCurrentRendersOnFirstUse(t *testing.T) {
	places := place.Normalize([]place.Spec{{Title: "a"}})
	r := newTestRenderer(places, store.New(), Options{})
	if got := r.Current(); !got.RenderedAt.Equal(renderNow) || len(got.Rows) != 1 {
		t.Fatalf("unexpected view %+v", got)
	}
}

func TestTriggerRerenders(t *testing.T) {
	places := place.Normalize([]place.Spec{{Title: "a", Currency: "GBP"}})
	state := store.New()
	r := NewRenderer(places, state, Options{}, nil)

	trigger := NewTrigger(r, 20*time.Millisecond, nil)
	if err := trigger.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer trigger.Stop()

	state.ReplaceCurrency(map[string]string{"GBP": "0.850"}, time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, ok := r.Current().Cell(places[0].ID); ok && c.Currency != nil && c.Currency.Text == "GBP: 0.850" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("trigger never rendered the loaded value")
}
