package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherwatch/internal/core"
	"weatherwatch/internal/db"
	"weatherwatch/internal/types"
)

// --- Mocks ---

type mockAlertRepo struct {
	createFn func(ctx context.Context, alert *types.Alert) (*types.Alert, error)
	listFn   func(ctx context.Context) ([]*types.Alert, error)
	getFn    func(ctx context.Context, id string) (*types.Alert, error)
	updateFn func(ctx context.Context, id string, params db.UpdateRuleParams) (*types.Alert, error)
	deleteFn func(ctx context.Context, id string) (bool, error)

	lastCreated *types.Alert
	lastParams  db.UpdateRuleParams
}

func (m *mockAlertRepo) Create(ctx context.Context, alert *types.Alert) (*types.Alert, error) {
	m.lastCreated = alert
	if m.createFn != nil {
		return m.createFn(ctx, alert)
	}
	out := *alert
	out.ID = "generated-id"
	return &out, nil
}

func (m *mockAlertRepo) ListAlerts(ctx context.Context) ([]*types.Alert, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockAlertRepo) GetAlert(ctx context.Context, id string) (*types.Alert, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAlertRepo) Update(ctx context.Context, id string, params db.UpdateRuleParams) (*types.Alert, error) {
	m.lastParams = params
	if m.updateFn != nil {
		return m.updateFn(ctx, id, params)
	}
	return &types.Alert{ID: id}, nil
}

func (m *mockAlertRepo) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

// --- Helpers ---

func newAlertRouter(repo AlertRepo) http.Handler {
	logger := slog.New(slog.DiscardHandler)
	handler := NewAlertHandler(repo, core.NewValidator(logger), logger)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func validCreateBody() map[string]any {
	return map[string]any{
		"name":      "Paris heat",
		"location":  map[string]any{"city": "Paris"},
		"parameter": "temperature",
		"condition": ">",
		"threshold": 30.0,
		"userEmail": "user@example.com",
	}
}

// --- Tests ---

func TestCreateAlert_Success(t *testing.T) {
	repo := &mockAlertRepo{}
	router := newAlertRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/alerts", validCreateBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, repo.lastCreated)
	assert.Equal(t, "Paris heat", repo.lastCreated.Name)
	assert.Equal(t, types.ParamTemperature, repo.lastCreated.Parameter)
	assert.Equal(t, types.OpGreaterThan, repo.lastCreated.Condition)
	assert.Equal(t, 30.0, repo.lastCreated.Threshold)
	// Engine-owned fields start zeroed regardless of input.
	assert.False(t, repo.lastCreated.IsTriggered)
	assert.Empty(t, repo.lastCreated.ResolvedLocation)

	var resp struct {
		Data types.Alert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generated-id", resp.Data.ID)
}

func TestCreateAlert_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(body map[string]any)
		wantCode string
	}{
		{
			"missing name",
			func(b map[string]any) { delete(b, "name") },
			"validation_missing_required_field",
		},
		{
			"missing threshold",
			func(b map[string]any) { delete(b, "threshold") },
			"validation_missing_required_field",
		},
		{
			"bad email",
			func(b map[string]any) { b["userEmail"] = "not-an-email" },
			"validation_missing_required_field",
		},
		{
			"unknown parameter",
			func(b map[string]any) { b["parameter"] = "pressure" },
			"validation_invalid_parameter",
		},
		{
			"unknown condition",
			func(b map[string]any) { b["condition"] = "!=" },
			"validation_invalid_condition",
		},
		{
			"empty location",
			func(b map[string]any) { b["location"] = map[string]any{} },
			"validation_invalid_location",
		},
		{
			"latitude out of range",
			func(b map[string]any) {
				b["location"] = map[string]any{"coordinates": map[string]any{"lat": 95.0, "lon": 0.0}}
			},
			"validation_invalid_latitude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAlertRepo{}
			router := newAlertRouter(repo)

			body := validCreateBody()
			tt.mutate(body)

			rec := doJSON(t, router, http.MethodPost, "/alerts", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
			assert.Nil(t, repo.lastCreated)
		})
	}
}

func TestCreateAlert_RejectsUnknownFields(t *testing.T) {
	router := newAlertRouter(&mockAlertRepo{})

	body := validCreateBody()
	body["isTriggered"] = true

	rec := doJSON(t, router, http.MethodPost, "/alerts", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_invalid_json", errorCode(t, rec))
}

func TestCreateAlert_MalformedJSON(t *testing.T) {
	router := newAlertRouter(&mockAlertRepo{})

	req := httptest.NewRequest(http.MethodPost, "/alerts", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_invalid_json", errorCode(t, rec))
}

func TestListAlerts_EmptyReturnsArray(t *testing.T) {
	router := newAlertRouter(&mockAlertRepo{})

	rec := doJSON(t, router, http.MethodGet, "/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": []}`, rec.Body.String())
}

func TestGetAlert_NotFound(t *testing.T) {
	router := newAlertRouter(&mockAlertRepo{})

	rec := doJSON(t, router, http.MethodGet, "/alerts/missing-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found_alert", errorCode(t, rec))
}

func TestGetAlert_Found(t *testing.T) {
	repo := &mockAlertRepo{getFn: func(ctx context.Context, id string) (*types.Alert, error) {
		return &types.Alert{ID: id, Name: "existing"}, nil
	}}
	router := newAlertRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/alerts/abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data types.Alert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.Data.ID)
}

func TestUpdateAlert_MergedRuleValidated(t *testing.T) {
	repo := &mockAlertRepo{getFn: func(ctx context.Context, id string) (*types.Alert, error) {
		return &types.Alert{
			ID:        id,
			Name:      "existing",
			Location:  types.LocationSpec{City: "Paris"},
			Parameter: types.ParamTemperature,
			Condition: types.OpGreaterThan,
			Threshold: 30,
		}, nil
	}}
	router := newAlertRouter(repo)

	// Valid partial update passes through.
	rec := doJSON(t, router, http.MethodPut, "/alerts/abc", map[string]any{"threshold": 25.0})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.lastParams.Threshold)
	assert.Equal(t, 25.0, *repo.lastParams.Threshold)

	// A patch producing an invalid rule is rejected before persistence.
	rec = doJSON(t, router, http.MethodPut, "/alerts/abc", map[string]any{"condition": "!="})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_invalid_condition", errorCode(t, rec))
}

func TestUpdateAlert_NotFound(t *testing.T) {
	router := newAlertRouter(&mockAlertRepo{})

	rec := doJSON(t, router, http.MethodPut, "/alerts/missing", map[string]any{"name": "renamed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found_alert", errorCode(t, rec))
}

func TestDeleteAlert(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		router := newAlertRouter(&mockAlertRepo{})
		rec := doJSON(t, router, http.MethodDelete, "/alerts/abc", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &mockAlertRepo{deleteFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil
		}}
		router := newAlertRouter(repo)
		rec := doJSON(t, router, http.MethodDelete, "/alerts/abc", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found_alert", errorCode(t, rec))
	})
}

func TestCreateAlert_RepoFailureMapsToStatus(t *testing.T) {
	repo := &mockAlertRepo{createFn: func(ctx context.Context, alert *types.Alert) (*types.Alert, error) {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "insert failed", nil)
	}}
	router := newAlertRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/alerts", validCreateBody())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_database_error", errorCode(t, rec))
}
