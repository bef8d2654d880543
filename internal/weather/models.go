package weather

import (
	"encoding/json"
	"time"

	"github.com/i474232898/place-info/internal/place"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// API holds the provider endpoint settings sent with every weather request.
type API struct {
	BaseURL  string
	Version  string
	Endpoint string
	Key      string
	Units    string
}

// Request is the GET_WEATHER message: the API settings plus the place list.
type Request struct {
	API    API
	Places []place.Spec
}

// Report is the observation for a single place. PlaceID ties it back to the
// configured place so consumers never rely on slice position.
type Report struct {
	PlaceID     string          `json:"placeId"`
	StationID   string          `json:"stationId"`
	Name        string          `json:"name,omitempty"`
	Temperature float64         `json:"temperature"`
	Icon        string          `json:"icon,omitempty"`
	Condition   Condition       `json:"condition"`
	ObservedAt  time.Time       `json:"observedAt"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Batch is the WEATHER_DATA message. Places follow request order.
type Batch struct {
	Places    []Report  `json:"places"`
	FetchedAt time.Time `json:"fetchedAt"`
}
