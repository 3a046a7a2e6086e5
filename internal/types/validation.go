package types

import (
	"fmt"
	"strings"
)

// Validation constraint constants.
const (
	MinLat        = -90.0
	MaxLat        = 90.0
	MinLon        = -180.0
	MaxLon        = 180.0
	MaxNameLength = 200
)

// ValidCoordinates reports whether the pair falls within valid ranges.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= MinLat && lat <= MaxLat && lon >= MinLon && lon <= MaxLon
}

// ValidateLocationSpec checks the union invariant and coordinate ranges.
// A spec carrying both a city and coordinates is accepted with coordinates
// taking precedence downstream; a spec carrying neither is rejected.
func ValidateLocationSpec(spec LocationSpec) error {
	if !spec.HasCity() && !spec.HasCoordinates() {
		return NewAppError(ErrCodeValidationInvalidLocation,
			"location must be specified with either coordinates or city", nil)
	}
	if spec.HasCoordinates() {
		c := spec.Coordinates
		if c.Lat < MinLat || c.Lat > MaxLat {
			return NewAppError(ErrCodeValidationInvalidLat,
				fmt.Sprintf("latitude %.4f must be between %.0f and %.0f", c.Lat, MinLat, MaxLat), nil)
		}
		if c.Lon < MinLon || c.Lon > MaxLon {
			return NewAppError(ErrCodeValidationInvalidLon,
				fmt.Sprintf("longitude %.4f must be between %.0f and %.0f", c.Lon, MinLon, MaxLon), nil)
		}
	}
	if spec.HasCity() && strings.TrimSpace(spec.City) == "" {
		return NewAppError(ErrCodeValidationInvalidLocation,
			"city name must be a non-empty string", nil)
	}
	return nil
}

// ValidateAlertRule checks the rule fields of an alert definition. Invalid
// rules are rejected at creation time so they never enter the evaluation
// loop in the first place.
func ValidateAlertRule(a *Alert) error {
	if strings.TrimSpace(a.Name) == "" {
		return NewAppError(ErrCodeValidationMissingField, "name is required", nil)
	}
	if len(a.Name) > MaxNameLength {
		return NewAppError(ErrCodeValidationMissingField,
			fmt.Sprintf("name must be at most %d characters", MaxNameLength), nil)
	}
	if err := ValidateLocationSpec(a.Location); err != nil {
		return err
	}
	if !a.Parameter.Valid() {
		return NewAppError(ErrCodeValidationInvalidParameter,
			fmt.Sprintf("unknown parameter %q", a.Parameter), nil)
	}
	if !a.Condition.Valid() {
		return NewAppError(ErrCodeValidationInvalidCondition,
			fmt.Sprintf("unknown condition %q", a.Condition), nil)
	}
	return nil
}
