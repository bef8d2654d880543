package currency

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Request is the GET_CURRENCIES message.
type Request struct {
	API  string
	Key  string
	Base string
	// KeyHeader, when set, sends Key in this request header instead of the
	// access_key query parameter.
	KeyHeader string
}

// Payload is the CURRENCY_DATA message, decoded from the provider's
// fixer-style response.
type Payload struct {
	Success   *bool              `json:"success,omitempty"`
	Timestamp int64              `json:"timestamp,omitempty"`
	Date      string             `json:"date,omitempty"`
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Error     *APIError          `json:"error,omitempty"`

	// FetchedAt is when the payload left the provider: the cache record's
	// timestamp when served from cache.
	FetchedAt time.Time `json:"-"`
}

// APIError is the error object fixer-compatible providers return with HTTP 200.
type APIError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.Code, e.Type, e.Info)
	}
	return fmt.Sprintf("provider error %d (%s)", e.Code, e.Type)
}

// decodePayload parses a raw provider response and rejects error payloads and
// responses without a base or a rate table.
func decodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if p.Error != nil {
		return Payload{}, p.Error
	}
	if p.Success != nil && !*p.Success {
		return Payload{}, errors.New("provider reported failure")
	}
	if p.Base == "" || p.Rates == nil {
		return Payload{}, errors.New("payload has no base or rates")
	}
	return p, nil
}

// Record is the persisted cache entry: when the payload was fetched and the
// raw provider bytes.
type Record struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Fresh reports whether the record is younger than ttl at now. Records dated
// in the future are never fresh.
func (r Record) Fresh(now time.Time, ttl time.Duration) bool {
	age := now.Sub(r.Timestamp)
	return age >= 0 && age < ttl
}

// UnmarshalJSON accepts an RFC 3339 timestamp or unix milliseconds.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw struct {
		Timestamp json.RawMessage `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}
	r.Timestamp = ts
	r.Data = raw.Data
	return nil
}

func parseTimestamp(b json.RawMessage) (time.Time, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return time.Time{}, nil
	}
	if b[0] == '"' {
		var t time.Time
		if err := json.Unmarshal(b, &t); err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		return t, nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", b)
	}
	return time.UnixMilli(ms).UTC(), nil
}
