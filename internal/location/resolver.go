// Package location normalizes alert location specifications into canonical
// keys and display names.
//
// A location key is the canonical string identifying a physical place for
// cache and grouping purposes: two alerts with equivalent specs must always
// yield the same key so they can share a single provider fetch per tick.
package location

import (
	"fmt"
	"strings"

	"weatherwatch/internal/types"
)

// coordPrecision is the rendering precision for coordinate keys. Four decimal
// places is roughly 11 meters, well below the resolution of any weather
// provider grid.
const coordPrecision = "%.4f,%.4f"

// Resolve derives the canonical location key from a spec. Coordinate pairs
// render as fixed-precision numbers; named places are case, whitespace, and
// punctuation normalized. Coordinates take precedence when both are present.
func Resolve(spec types.LocationSpec) (string, error) {
	if err := types.ValidateLocationSpec(spec); err != nil {
		return "", err
	}
	if spec.HasCoordinates() {
		return fmt.Sprintf(coordPrecision, spec.Coordinates.Lat, spec.Coordinates.Lon), nil
	}
	return NormalizeCity(spec.City), nil
}

// NormalizeCity canonicalizes a named place: lowercase, commas stripped to
// spaces, runs of whitespace collapsed. "New York, NY" and "new york  ny"
// resolve to the same key.
func NormalizeCity(city string) string {
	s := strings.ToLower(city)
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Join(strings.Fields(s), " ")
}

// KeyFor returns the grouping key for an alert. An alert that already carries
// a resolved display name from a prior successful fetch uses that string
// directly, which stabilizes grouping across ticks and avoids re-deriving
// from possibly ambiguous raw input. Otherwise the key is derived from the
// raw spec.
func KeyFor(alert *types.Alert) (string, error) {
	if alert.ResolvedLocation != "" {
		return alert.ResolvedLocation, nil
	}
	return Resolve(alert.Location)
}

// DisplayName builds the canonical human-readable name for a location after a
// successful fetch. It prefers the provider-returned name, suffixed with the
// country code when the provider classifies the place as a city. It falls
// back to formatted coordinates or the raw place string when the provider
// gives no metadata.
func DisplayName(meta types.LocationMeta, fallback types.LocationSpec) string {
	if meta.Name != "" {
		name := meta.Name
		if meta.Type == string(types.LocationTypeCity) && meta.Country != "" {
			name += ", " + meta.Country
		}
		return name
	}
	if fallback.HasCoordinates() {
		return fmt.Sprintf("%g, %g", fallback.Coordinates.Lat, fallback.Coordinates.Lon)
	}
	if fallback.HasCity() {
		return fallback.City
	}
	return "Unknown"
}
