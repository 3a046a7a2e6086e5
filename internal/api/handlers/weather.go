package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"weatherwatch/internal/core"
	"weatherwatch/internal/types"
)

// WeatherService provides current conditions for an ad-hoc location query.
// The concrete implementation shares its cache with the evaluation engine,
// so API queries and scheduled ticks never duplicate upstream calls for the
// same location inside one TTL window.
type WeatherService interface {
	Current(ctx context.Context, spec types.LocationSpec) (types.Reading, error)
}

// WeatherHandler serves on-demand weather lookups.
type WeatherHandler struct {
	weather WeatherService
	logger  *slog.Logger
}

func NewWeatherHandler(weather WeatherService, l *slog.Logger) *WeatherHandler {
	if l == nil {
		l = slog.Default()
	}
	return &WeatherHandler{weather: weather, logger: l}
}

// RegisterRoutes mounts weather routes on the provided chi.Router.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather", h.Current)
}

// Current handles GET /v1/weather?lat=..&lon=.. or GET /v1/weather?city=..
// Exactly one addressing form is required.
func (h *WeatherHandler) Current(w http.ResponseWriter, r *http.Request) {
	spec, err := parseLocationQuery(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	reading, err := h.weather.Current(r.Context(), spec)
	if err != nil {
		h.logger.WarnContext(r.Context(), "weather lookup failed",
			"city", spec.City, "error", err)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: reading})
}

// parseLocationQuery builds a LocationSpec from query parameters. Coordinate
// queries require both lat and lon; a city query must not carry coordinates.
func parseLocationQuery(r *http.Request) (types.LocationSpec, error) {
	q := r.URL.Query()
	latStr, lonStr, city := q.Get("lat"), q.Get("lon"), q.Get("city")

	if latStr != "" || lonStr != "" {
		if latStr == "" || lonStr == "" {
			return types.LocationSpec{}, types.NewAppError(types.ErrCodeValidationInvalidLocation,
				"lat and lon must be provided together", nil)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return types.LocationSpec{}, types.NewAppError(types.ErrCodeValidationInvalidLat,
				"lat must be a number", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return types.LocationSpec{}, types.NewAppError(types.ErrCodeValidationInvalidLon,
				"lon must be a number", err)
		}
		spec := types.LocationSpec{Coordinates: &types.Coordinates{Lat: lat, Lon: lon}}
		if err := types.ValidateLocationSpec(spec); err != nil {
			return types.LocationSpec{}, err
		}
		return spec, nil
	}

	spec := types.LocationSpec{City: city}
	if err := types.ValidateLocationSpec(spec); err != nil {
		return types.LocationSpec{}, err
	}
	return spec, nil
}
