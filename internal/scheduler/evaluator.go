// Package scheduler implements the alert evaluation engine: the pure
// condition evaluator, the per-tick orchestrator, and the interval ticker
// that drives it.
package scheduler

import (
	"fmt"
	"math"

	"weatherwatch/internal/types"
)

// EvaluateCondition reports whether value satisfies the condition against the
// threshold.
//
// The ordering operators are exact floating-point comparisons. Equality is
// floored: floor(value) == threshold, a deliberate tolerance policy so that a
// reading of 17.8 matches a threshold of 17 instead of an exact-equality trap
// that almost never fires on continuous measurements.
//
// An operator outside the enumerated set is a data error, not transient, and
// must not be retried.
func EvaluateCondition(value float64, op types.ConditionOperator, threshold float64) (bool, error) {
	switch op {
	case types.OpGreaterThan:
		return value > threshold, nil
	case types.OpLessThan:
		return value < threshold, nil
	case types.OpGreaterThanEq:
		return value >= threshold, nil
	case types.OpLessThanEq:
		return value <= threshold, nil
	case types.OpEqual:
		return math.Floor(value) == threshold, nil
	default:
		return false, types.NewAppError(types.ErrCodeValidationInvalidCondition,
			fmt.Sprintf("unknown condition %q", op), nil)
	}
}

// ParameterValue extracts the named parameter from a reading. An unknown
// parameter is a data error scoped to the alert that named it.
func ParameterValue(reading types.Reading, param types.Parameter) (float64, error) {
	switch param {
	case types.ParamTemperature:
		return reading.Temperature, nil
	case types.ParamWindSpeed:
		return reading.WindSpeed, nil
	case types.ParamPrecipitation:
		return reading.Precipitation, nil
	case types.ParamHumidity:
		return reading.Humidity, nil
	default:
		return 0, types.NewAppError(types.ErrCodeValidationInvalidParameter,
			fmt.Sprintf("parameter %q not present on weather reading", param), nil)
	}
}
