package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue sums the counter samples of a gathered family whose labels match.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveFetch("currency", "ok", 20*time.Millisecond)
	m.ObserveFetch("currency", "ok", 10*time.Millisecond)
	m.CacheLookup("hit")
	m.Rendered()

	if got := counterValue(t, reg, "placeinfo_fetch_total", map[string]string{"domain": "currency", "result": "ok"}); got != 2 {
		t.Fatalf("expected 2 fetches, got %v", got)
	}
	if got := counterValue(t, reg, "placeinfo_currency_cache_lookups_total", map[string]string{"result": "hit"}); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
	if got := counterValue(t, reg, "placeinfo_render_total", nil); got != 1 {
		t.Fatalf("expected 1 render, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("weather", "error", time.Second)
	m.CacheLookup("miss")
	m.Message("WEATHER_DATA", "applied")
	m.Rendered()
	m.HTTPRequest("/", "GET", "200")
}
