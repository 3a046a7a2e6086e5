package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationSpec is the user-supplied location of an alert: either a named
// place or a coordinate pair. Exactly one side of the union must be present.
type LocationSpec struct {
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// HasCity reports whether the spec names a place.
func (l LocationSpec) HasCity() bool {
	return l.City != ""
}

// HasCoordinates reports whether the spec carries a coordinate pair.
func (l LocationSpec) HasCoordinates() bool {
	return l.Coordinates != nil
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (l *LocationSpec) Scan(value interface{}) error {
	if value == nil {
		*l = LocationSpec{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("location spec: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, l)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (l LocationSpec) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Alert is the core domain entity: a user-owned threshold rule over a single
// weather variable at a single location.
//
// The rule fields (Location, Parameter, Condition, Threshold, ...) are owned
// by the CRUD surface. The evaluation fields (IsTriggered, LastChecked,
// LastValue, ResolvedLocation) are owned by the evaluation engine and are
// only ever written together as an AlertState set.
type Alert struct {
	ID          string            `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Location    LocationSpec      `json:"location" db:"location"`
	Parameter   Parameter         `json:"parameter" db:"parameter"`
	Condition   ConditionOperator `json:"condition" db:"condition"`
	Threshold   float64           `json:"threshold" db:"threshold"`
	Description string            `json:"description,omitempty" db:"description"`
	UserEmail   string            `json:"userEmail" db:"user_email"`

	// Evaluation state, mutated only by the engine.
	IsTriggered      bool       `json:"isTriggered" db:"is_triggered"`
	LastChecked      *time.Time `json:"lastChecked,omitempty" db:"last_checked"`
	LastValue        *float64   `json:"lastValue,omitempty" db:"last_value"`
	ResolvedLocation string     `json:"resolvedLocation,omitempty" db:"resolved_location"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// AlertState is the engine-owned evaluation state of an alert. The fields are
// persisted atomically as a set so a reader never observes a triggered flag
// without its supporting evidence.
type AlertState struct {
	IsTriggered      bool
	LastChecked      time.Time
	LastValue        *float64
	ResolvedLocation string
}

// LocationMeta is the location metadata returned by the weather provider
// alongside a reading.
type LocationMeta struct {
	Name    string  `json:"name,omitempty"`
	Type    string  `json:"type,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
}

// Reading is a single fetched weather snapshot for a location. It is
// immutable once fetched; a new tick produces a new Reading.
type Reading struct {
	Temperature   float64      `json:"temperature"`
	WindSpeed     float64      `json:"windSpeed"`
	Precipitation float64      `json:"precipitation"`
	Humidity      float64      `json:"humidity"`
	Timestamp     time.Time    `json:"timestamp"`
	Location      LocationMeta `json:"location"`
}

// CacheEntryStatus describes one cached reading for operational inspection.
type CacheEntryStatus struct {
	Key          string        `json:"location"`
	Age          time.Duration `json:"-"`
	TTLRemaining time.Duration `json:"-"`
	AgeSeconds   float64       `json:"ageSeconds"`
	TTLSeconds   float64       `json:"ttlRemainingSeconds"`
}

// FailedLocation describes the most recent fetch failure for a location key.
// Created or overwritten on fetch failure, cleared on the next success.
// Observability only; it never blocks retries.
type FailedLocation struct {
	Key    string    `json:"location"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}
