package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"weatherwatch/internal/types"
)

// AlertRepository provides data access for the alerts table. It implements
// types.AlertStore for the evaluation engine and the wider CRUD surface for
// the HTTP handlers.
//
// The evaluation state columns (is_triggered, last_checked, last_value,
// resolved_location) are written only by UpdateState, always as one atomic
// UPDATE; the rule columns are written only by Create/Update.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository backed by the given
// database connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

// alertColumns defines the standard set of columns selected for alert queries.
const alertColumns = `id, name, location, parameter, condition, threshold,
	description, user_email,
	is_triggered, last_checked, last_value, resolved_location,
	created_at, updated_at`

// scanAlert scans a single alert row. The columns must match the order
// defined in alertColumns.
func scanAlert(row pgx.Row) (*types.Alert, error) {
	var a types.Alert
	var (
		description      *string
		lastChecked      *time.Time
		lastValue        *float64
		resolvedLocation *string
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Location,
		&a.Parameter,
		&a.Condition,
		&a.Threshold,
		&description,
		&a.UserEmail,
		&a.IsTriggered,
		&lastChecked,
		&lastValue,
		&resolvedLocation,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		a.Description = *description
	}
	a.LastChecked = lastChecked
	a.LastValue = lastValue
	if resolvedLocation != nil {
		a.ResolvedLocation = *resolvedLocation
	}

	return &a, nil
}

// Create inserts a new alert record. The id is assigned here; evaluation
// state starts untriggered and unchecked.
func (r *AlertRepository) Create(ctx context.Context, alert *types.Alert) (*types.Alert, error) {
	id := alert.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO alerts (id, name, location, parameter, condition, threshold, description, user_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+alertColumns,
		id, alert.Name, alert.Location, alert.Parameter, alert.Condition,
		alert.Threshold, nullable(alert.Description), alert.UserEmail,
	)

	created, err := scanAlert(row)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "creating alert", err)
	}
	return created, nil
}

// ListAlerts returns every alert record, newest first.
func (r *AlertRepository) ListAlerts(ctx context.Context) ([]*types.Alert, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing alerts", err)
	}
	defer rows.Close()

	var alerts []*types.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning alert row", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating alert rows", err)
	}

	return alerts, nil
}

// GetAlert returns the alert with the given id, or nil if absent.
func (r *AlertRepository) GetAlert(ctx context.Context, id string) (*types.Alert, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE id = $1`, id)

	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "getting alert", err)
	}
	return a, nil
}

// UpdateRuleParams holds the client-updatable rule fields for a partial
// update. Nil fields are left unchanged. Evaluation state fields are engine
// owned and cannot be set through this path.
type UpdateRuleParams struct {
	Name        *string
	Location    *types.LocationSpec
	Parameter   *types.Parameter
	Condition   *types.ConditionOperator
	Threshold   *float64
	Description *string
	UserEmail   *string
}

// Update applies a partial update to the rule fields of an alert.
// Changing the location clears resolved_location so the next tick re-derives
// the grouping key from the new spec. Returns nil, nil if the alert does not
// exist.
func (r *AlertRepository) Update(ctx context.Context, id string, params UpdateRuleParams) (*types.Alert, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE alerts
		SET name = COALESCE($1, name),
		    location = COALESCE($2, location),
		    parameter = COALESCE($3, parameter),
		    condition = COALESCE($4, condition),
		    threshold = COALESCE($5, threshold),
		    description = COALESCE($6, description),
		    user_email = COALESCE($7, user_email),
		    resolved_location = CASE WHEN $2::jsonb IS NULL THEN resolved_location ELSE NULL END,
		    updated_at = now()
		WHERE id = $8
		RETURNING `+alertColumns,
		params.Name, params.Location, params.Parameter, params.Condition,
		params.Threshold, params.Description, params.UserEmail, id,
	)

	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "updating alert", err)
	}
	return a, nil
}

// UpdateAlertState writes the engine-owned evaluation fields as one atomic
// set. Returns nil, nil if the alert no longer exists (deleted mid-tick).
func (r *AlertRepository) UpdateAlertState(ctx context.Context, id string, state types.AlertState) (*types.Alert, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE alerts
		SET is_triggered = $1,
		    last_checked = $2,
		    last_value = $3,
		    resolved_location = $4,
		    updated_at = now()
		WHERE id = $5
		RETURNING `+alertColumns,
		state.IsTriggered, state.LastChecked, state.LastValue,
		nullable(state.ResolvedLocation), id,
	)

	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "updating alert state", err)
	}
	return a, nil
}

// Delete removes an alert. Returns false if no record matched.
func (r *AlertRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "deleting alert", err)
	}
	return tag.RowsAffected() > 0, nil
}

// nullable maps the empty string to a NULL parameter.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
