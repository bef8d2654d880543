package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/place-info/internal/fault"
	"github.com/i474232898/place-info/internal/httpclient"
	"github.com/i474232898/place-info/internal/place"
	"github.com/i474232898/place-info/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name   string
	client *httpclient.Client
}

func NewOpenWeatherProvider(client *httpclient.Client) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:   "openweathermap",
		client: client,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type openWeatherPayload struct {
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
	Main *struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []openWeatherCondition `json:"weather"`
}

type openWeatherCondition struct {
	Main string `json:"main"`
	Icon string `json:"icon"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, api weather.API, pl place.Spec) (weather.Report, error) {
	const op = "openweather.Fetch"

	if pl.WeatherID == "" {
		return weather.Report{}, fault.New(fault.Configuration, op, fmt.Errorf("place %q has no weather station", pl.Title))
	}

	body, err := p.client.Get(ctx, requestURL(api, pl.WeatherID), nil)
	if err != nil {
		return weather.Report{}, err
	}

	var payload openWeatherPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.Report{}, fault.New(fault.Network, op, fmt.Errorf("decode response: %w", err))
	}
	if payload.Main == nil {
		return weather.Report{}, fault.New(fault.Network, op, errors.New("response has no main section"))
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	var icon string
	if len(payload.Weather) > 0 {
		icon = payload.Weather[0].Icon
	}

	return weather.Report{
		Name:        payload.Name,
		Temperature: payload.Main.Temp,
		Icon:        icon,
		Condition:   mapOpenWeatherCondition(payload.Weather),
		ObservedAt:  ts,
		Raw:         json.RawMessage(body),
	}, nil
}

// requestURL builds {base}/{version}/{endpoint}?id=..&units=..&appid=..
func requestURL(api weather.API, stationID string) string {
	values := url.Values{}
	values.Set("id", stationID)
	if api.Units != "" {
		values.Set("units", api.Units)
	}
	values.Set("appid", api.Key)

	return fmt.Sprintf("%s/%s/%s?%s",
		strings.TrimRight(api.BaseURL, "/"),
		strings.Trim(api.Version, "/"),
		strings.Trim(api.Endpoint, "/"),
		values.Encode(),
	)
}

func mapOpenWeatherCondition(items []openWeatherCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
