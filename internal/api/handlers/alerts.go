// Package handlers contains the HTTP handler implementations for the
// weatherwatch API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"weatherwatch/internal/core"
	"weatherwatch/internal/db"
	"weatherwatch/internal/types"
)

// --- Service Interfaces ---
//
// Defined locally following the handler injection pattern: handlers depend
// on abstractions for testability rather than on concrete repositories.

// AlertRepo defines the data access contract for alert CRUD operations.
// Mirrors the concrete db.AlertRepository methods used by this handler.
type AlertRepo interface {
	Create(ctx context.Context, alert *types.Alert) (*types.Alert, error)
	ListAlerts(ctx context.Context) ([]*types.Alert, error)
	GetAlert(ctx context.Context, id string) (*types.Alert, error)
	Update(ctx context.Context, id string, params db.UpdateRuleParams) (*types.Alert, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// --- Request Models ---

// CreateAlertRequest is the request body for POST /v1/alerts. Evaluation
// state fields are never accepted from clients; they are owned by the
// engine.
type CreateAlertRequest struct {
	Name        string             `json:"name" validate:"required,max=100"`
	Location    types.LocationSpec `json:"location"`
	Parameter   string             `json:"parameter" validate:"required"`
	Condition   string             `json:"condition" validate:"required"`
	Threshold   *float64           `json:"threshold" validate:"required"`
	Description string             `json:"description,omitempty" validate:"max=500"`
	UserEmail   string             `json:"userEmail" validate:"required,email"`
}

// UpdateAlertRequest is the request body for PUT /v1/alerts/{id}. All
// fields are optional; absent fields keep their current values.
type UpdateAlertRequest struct {
	Name        *string             `json:"name,omitempty" validate:"omitempty,max=100"`
	Location    *types.LocationSpec `json:"location,omitempty"`
	Parameter   *string             `json:"parameter,omitempty"`
	Condition   *string             `json:"condition,omitempty"`
	Threshold   *float64            `json:"threshold,omitempty"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=500"`
	UserEmail   *string             `json:"userEmail,omitempty" validate:"omitempty,email"`
}

// --- Handler ---

// AlertHandler manages alert CRUD. Alert rules are validated synchronously
// at write time so invalid rules are rejected at the API boundary rather
// than surfacing later as evaluation failures.
type AlertHandler struct {
	repo      AlertRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewAlertHandler creates an AlertHandler with the provided dependencies.
func NewAlertHandler(repo AlertRepo, v *core.Validator, l *slog.Logger) *AlertHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AlertHandler{repo: repo, validator: v, logger: l}
}

// RegisterRoutes mounts alert routes on the provided chi.Router.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/alerts. The full rule (location union, parameter,
// operator, threshold) is validated before persistence.
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	alert := &types.Alert{
		Name:        req.Name,
		Location:    req.Location,
		Parameter:   types.Parameter(req.Parameter),
		Condition:   types.ConditionOperator(req.Condition),
		Threshold:   *req.Threshold,
		Description: req.Description,
		UserEmail:   req.UserEmail,
	}
	if err := types.ValidateAlertRule(alert); err != nil {
		core.Error(w, r, err)
		return
	}

	created, err := h.repo.Create(r.Context(), alert)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create alert", "error", err)
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "alert created",
		"alert_id", created.ID, "parameter", created.Parameter)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: created})
}

// List handles GET /v1/alerts, returning all alerts newest first.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.repo.ListAlerts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list alerts", "error", err)
		core.Error(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []*types.Alert{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: alerts})
}

// Get handles GET /v1/alerts/{id}.
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := h.repo.GetAlert(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get alert", "alert_id", id, "error", err)
		core.Error(w, r, err)
		return
	}
	if alert == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: alert})
}

// Update handles PUT /v1/alerts/{id}. Rule fields are merged onto the
// stored alert and the merged rule is validated before the partial update
// is applied. Changing the location clears the resolved location so the
// next evaluation re-derives the grouping key.
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAlertRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	existing, err := h.repo.GetAlert(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if existing == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil))
		return
	}

	merged := *existing
	params := db.UpdateRuleParams{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		UserEmail:   req.UserEmail,
		Threshold:   req.Threshold,
	}
	if req.Name != nil {
		merged.Name = *req.Name
	}
	if req.Location != nil {
		merged.Location = *req.Location
	}
	if req.Parameter != nil {
		p := types.Parameter(*req.Parameter)
		merged.Parameter = p
		params.Parameter = &p
	}
	if req.Condition != nil {
		c := types.ConditionOperator(*req.Condition)
		merged.Condition = c
		params.Condition = &c
	}
	if req.Threshold != nil {
		merged.Threshold = *req.Threshold
	}
	if req.UserEmail != nil {
		merged.UserEmail = *req.UserEmail
	}
	if err := types.ValidateAlertRule(&merged); err != nil {
		core.Error(w, r, err)
		return
	}

	updated, err := h.repo.Update(r.Context(), id, params)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to update alert", "alert_id", id, "error", err)
		core.Error(w, r, err)
		return
	}
	if updated == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil))
		return
	}

	h.logger.InfoContext(r.Context(), "alert updated", "alert_id", id)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: updated})
}

// Delete handles DELETE /v1/alerts/{id}.
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete alert", "alert_id", id, "error", err)
		core.Error(w, r, err)
		return
	}
	if !deleted {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil))
		return
	}

	h.logger.InfoContext(r.Context(), "alert deleted", "alert_id", id)
	w.WriteHeader(http.StatusNoContent)
}
