package weather

import (
	"context"

	"github.com/i474232898/place-info/internal/place"
)

// Provider abstracts a weather data source queried one station at a time.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, api API, p place.Spec) (Report, error)
}
