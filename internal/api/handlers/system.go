package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"weatherwatch/internal/core"
	"weatherwatch/internal/types"
)

// CacheInspector exposes the reading cache for operational inspection and
// invalidation. Implemented by weather.Cache.
type CacheInspector interface {
	Status() []types.CacheEntryStatus
	Invalidate(key string)
	InvalidateAll()
	TTL() time.Duration
}

// FailureLister exposes the most recent fetch failure per location key.
// Implemented by weather.FailureLog.
type FailureLister interface {
	Snapshot() []types.FailedLocation
}

// SystemHandler serves operational endpoints: cache status, cache
// invalidation, and the failed location log.
type SystemHandler struct {
	cache    CacheInspector
	failures FailureLister
	logger   *slog.Logger
}

func NewSystemHandler(cache CacheInspector, failures FailureLister, l *slog.Logger) *SystemHandler {
	if l == nil {
		l = slog.Default()
	}
	return &SystemHandler{cache: cache, failures: failures, logger: l}
}

// RegisterRoutes mounts system routes on the provided chi.Router.
func (h *SystemHandler) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/cache", h.CacheStatus)
		r.Delete("/cache", h.InvalidateCache)
		r.Delete("/cache/{key}", h.InvalidateCacheKey)
		r.Get("/failures", h.Failures)
	})
}

type cacheStatusResponse struct {
	TTLSeconds float64                  `json:"ttlSeconds"`
	Entries    []types.CacheEntryStatus `json:"entries"`
}

// CacheStatus handles GET /v1/system/cache, listing live cache entries with
// their age and remaining TTL.
func (h *SystemHandler) CacheStatus(w http.ResponseWriter, r *http.Request) {
	entries := h.cache.Status()
	if entries == nil {
		entries = []types.CacheEntryStatus{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: cacheStatusResponse{
		TTLSeconds: h.cache.TTL().Seconds(),
		Entries:    entries,
	}})
}

// InvalidateCache handles DELETE /v1/system/cache, dropping every cached
// reading. The next tick refetches all locations.
func (h *SystemHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.cache.InvalidateAll()
	h.logger.InfoContext(r.Context(), "weather cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}

// InvalidateCacheKey handles DELETE /v1/system/cache/{key}. The key is the
// normalized location key as reported by the cache status endpoint; it may
// be URL-encoded (coordinate keys contain a comma).
func (h *SystemHandler) InvalidateCacheKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}

	h.cache.Invalidate(key)
	h.logger.InfoContext(r.Context(), "weather cache entry invalidated", "location", key)
	w.WriteHeader(http.StatusNoContent)
}

// Failures handles GET /v1/system/failures, listing the most recent fetch
// failure per location. Entries disappear once a fetch for that location
// succeeds again.
func (h *SystemHandler) Failures(w http.ResponseWriter, r *http.Request) {
	failed := h.failures.Snapshot()
	if failed == nil {
		failed = []types.FailedLocation{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: failed})
}
