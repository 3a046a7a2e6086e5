package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAlert() *Alert {
	return &Alert{
		Name:      "High temp",
		Location:  LocationSpec{City: "Paris"},
		Parameter: ParamTemperature,
		Condition: OpGreaterThan,
		Threshold: 30,
		UserEmail: "user@example.com",
	}
}

func TestValidateLocationSpec(t *testing.T) {
	tests := []struct {
		name     string
		spec     LocationSpec
		wantCode ErrorCode
	}{
		{"city only", LocationSpec{City: "Paris"}, ""},
		{"coordinates only", LocationSpec{Coordinates: &Coordinates{Lat: 48.85, Lon: 2.35}}, ""},
		{"both forms accepted", LocationSpec{City: "Paris", Coordinates: &Coordinates{Lat: 48.85, Lon: 2.35}}, ""},
		{"neither form", LocationSpec{}, ErrCodeValidationInvalidLocation},
		{"blank city", LocationSpec{City: "   "}, ErrCodeValidationInvalidLocation},
		{"latitude too high", LocationSpec{Coordinates: &Coordinates{Lat: 91, Lon: 0}}, ErrCodeValidationInvalidLat},
		{"latitude too low", LocationSpec{Coordinates: &Coordinates{Lat: -90.01, Lon: 0}}, ErrCodeValidationInvalidLat},
		{"longitude too high", LocationSpec{Coordinates: &Coordinates{Lat: 0, Lon: 180.5}}, ErrCodeValidationInvalidLon},
		{"boundary coordinates", LocationSpec{Coordinates: &Coordinates{Lat: -90, Lon: 180}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocationSpec(tt.spec)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, CodeOf(err))
		})
	}
}

func TestValidateAlertRule(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateAlertRule(validAlert()))
	})

	t.Run("missing name", func(t *testing.T) {
		a := validAlert()
		a.Name = "  "
		err := ValidateAlertRule(a)
		require.Error(t, err)
		assert.Equal(t, ErrCodeValidationMissingField, CodeOf(err))
	})

	t.Run("unknown parameter", func(t *testing.T) {
		a := validAlert()
		a.Parameter = "pressure"
		err := ValidateAlertRule(a)
		require.Error(t, err)
		assert.Equal(t, ErrCodeValidationInvalidParameter, CodeOf(err))
	})

	t.Run("unknown condition", func(t *testing.T) {
		a := validAlert()
		a.Condition = "!="
		err := ValidateAlertRule(a)
		require.Error(t, err)
		assert.Equal(t, ErrCodeValidationInvalidCondition, CodeOf(err))
	})

	t.Run("bad location", func(t *testing.T) {
		a := validAlert()
		a.Location = LocationSpec{}
		err := ValidateAlertRule(a)
		require.Error(t, err)
		assert.Equal(t, ErrCodeValidationInvalidLocation, CodeOf(err))
	})
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidLocation, 400},
		{ErrCodeValidationMissingField, 400},
		{ErrCodeNotFoundAlert, 404},
		{ErrCodeUpstreamRateLimited, 429},
		{ErrCodeUpstreamLocationNotFound, 400},
		{ErrCodeUpstreamUnauthorized, 502},
		{ErrCodeUpstreamUnreachable, 502},
		{ErrCodeInternalDB, 500},
		{ErrorCode("something_else"), 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestErrorCodeRetryable(t *testing.T) {
	assert.True(t, ErrCodeUpstreamUnreachable.Retryable())
	assert.True(t, ErrCodeUpstreamRateLimited.Retryable())
	assert.False(t, ErrCodeValidationInvalidParameter.Retryable())
	assert.False(t, ErrCodeInternalDB.Retryable())
}

func TestAppError_UnwrapAndCodeOf(t *testing.T) {
	inner := NewAppError(ErrCodeUpstreamRateLimited, "slow down", nil)
	wrapped := NewAppError(ErrCodeInternalUnexpected, "outer", inner)

	// CodeOf surfaces the outermost AppError code.
	assert.Equal(t, ErrCodeInternalUnexpected, CodeOf(wrapped))
	assert.ErrorIs(t, wrapped, inner)
}
