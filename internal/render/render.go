package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/i474232898/place-info/internal/metrics"
	"github.com/i474232898/place-info/internal/place"
	"github.com/i474232898/place-info/internal/scheduler"
	"github.com/i474232898/place-info/internal/store"
	"github.com/i474232898/place-info/internal/weather"
)

const (
	LayoutTable = "table"
	LayoutList  = "list"
)

type Options struct {
	TimeFormat         string
	Layout             string
	ShowCustomHeader   bool
	ShowFlag           bool
	WeatherUnits       string
	WeatherPrecision   int
	CurrencyBase       string
	CurrencyRelativeTo string
}

// Line is one rendered data row of a place.
type Line struct {
	Text   string `json:"text"`
	Icon   string `json:"icon,omitempty"`
	Dimmed bool   `json:"dimmed,omitempty"`
}

// Cell is everything displayed for one place.
type Cell struct {
	PlaceID  string `json:"placeId"`
	Title    string `json:"title"`
	Flag     string `json:"flag,omitempty"`
	Time     string `json:"time"`
	Currency *Line  `json:"currency,omitempty"`
	Weather  *Line  `json:"weather,omitempty"`
}

// View is the output of one render pass.
type View struct {
	Header     []string  `json:"header,omitempty"`
	Layout     string    `json:"layout"`
	Rows       [][]Cell  `json:"rows"`
	RenderedAt time.Time `json:"renderedAt"`
}

// Cell finds the cell rendered for placeID.
func (v View) Cell(placeID string) (Cell, bool) {
	for _, row := range v.Rows {
		for _, c := range row {
			if c.PlaceID == placeID {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// Renderer turns the current render state into a View. Rendering has no side
// effects beyond replacing the last view, so it can run as often as needed.
type Renderer struct {
	places  []place.Spec
	state   *store.RenderState
	opts    Options
	metrics *metrics.Metrics
	now     func() time.Time

	current atomic.Pointer[View]
}

func NewRenderer(places []place.Spec, state *store.RenderState, opts Options, m *metrics.Metrics) *Renderer {
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04"
	}
	if opts.Layout == "" {
		opts.Layout = LayoutTable
	}
	return &Renderer{
		places:  places,
		state:   state,
		opts:    opts,
		metrics: m,
		now:     time.Now,
	}
}

// Render builds a fresh view and makes it the current one.
func (r *Renderer) Render() View {
	snap := r.state.Snapshot()
	now := r.now()

	cells := make([]Cell, 0, len(r.places))
	for _, p := range r.places {
		cells = append(cells, r.cell(p, snap, now))
	}

	v := View{
		Header:     r.header(snap),
		Layout:     r.opts.Layout,
		Rows:       r.rows(cells),
		RenderedAt: now,
	}
	r.current.Store(&v)
	r.metrics.Rendered()
	return v
}

// Current returns the last rendered view, rendering one if none exists yet.
func (r *Renderer) Current() View {
	if v := r.current.Load(); v != nil {
		return *v
	}
	return r.Render()
}

// NewTrigger returns a scheduler re-rendering every interval, independent of
// fetch completions.
func NewTrigger(r *Renderer, interval time.Duration, log *slog.Logger) *scheduler.Scheduler {
	return scheduler.New(scheduler.Job{
		Name:     "render",
		Interval: interval,
		Run:      func(_ context.Context) { r.Render() },
	}, log)
}

func (r *Renderer) header(snap store.Snapshot) []string {
	if !r.opts.ShowCustomHeader {
		return nil
	}
	if snap.Disabled(store.Currency) {
		return []string{"Currency data disabled (no API key)"}
	}

	var lines []string
	if !snap.Currency.UpdatedAt.IsZero() {
		lines = append(lines, "Currency data last updated "+snap.Currency.UpdatedAt.Local().Format("Jan 2 2006 15:04"))
	}
	rel := r.opts.CurrencyRelativeTo
	if rel == "" {
		rel = r.opts.CurrencyBase
	}
	return append(lines, "Currency relative to "+rel)
}

func (r *Renderer) cell(p place.Spec, snap store.Snapshot, now time.Time) Cell {
	c := Cell{
		PlaceID: p.ID,
		Title:   p.Title,
		Time:    now.In(p.Location()).Format(r.opts.TimeFormat),
	}
	if r.opts.ShowFlag {
		c.Flag = p.Flag
	}

	if p.HasCurrency() {
		if v, ok := snap.Currency.Values[p.Currency]; ok {
			c.Currency = &Line{Text: p.Currency + ": " + v}
		} else {
			c.Currency = &Line{Text: "Currency " + snap.Currency.Status, Dimmed: true}
		}
	}

	if p.HasWeather() {
		if rep, ok := snap.Weather.Values[p.ID]; ok {
			c.Weather = &Line{
				Text: fmt.Sprintf("%.*f°%s", r.opts.WeatherPrecision, rep.Temperature, r.unitSymbol()),
				Icon: "wi weathericon " + weather.IconClass(rep.Icon),
			}
		} else {
			c.Weather = &Line{Text: "Weather " + snap.Weather.Status, Dimmed: true}
		}
	}
	return c
}

func (r *Renderer) unitSymbol() string {
	if r.opts.WeatherUnits == "imperial" {
		return "F"
	}
	return "C"
}

func (r *Renderer) rows(cells []Cell) [][]Cell {
	if r.opts.Layout != LayoutTable {
		return [][]Cell{cells}
	}

	limit := dataLimit(len(cells))
	var rows [][]Cell
	for start := 0; start < len(cells); start += limit {
		end := min(start+limit, len(cells))
		rows = append(rows, cells[start:end])
	}
	return rows
}

// dataLimit is the number of places per table row.
func dataLimit(n int) int {
	switch {
	case n == 4:
		return 2
	case n == 7, n > 9:
		return 4
	default:
		return 3
	}
}
