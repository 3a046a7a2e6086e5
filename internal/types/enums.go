package types

// Parameter identifies a weather variable an alert can watch.
type Parameter string

const (
	ParamTemperature   Parameter = "temperature"
	ParamWindSpeed     Parameter = "windSpeed"
	ParamPrecipitation Parameter = "precipitation"
	ParamHumidity      Parameter = "humidity"
)

// AllParameters is the complete set of watchable weather variables.
// Used by validators to check alert definitions at creation time.
var AllParameters = []Parameter{
	ParamTemperature,
	ParamWindSpeed,
	ParamPrecipitation,
	ParamHumidity,
}

// Valid reports whether p is a member of the parameter enumeration.
func (p Parameter) Valid() bool {
	switch p {
	case ParamTemperature, ParamWindSpeed, ParamPrecipitation, ParamHumidity:
		return true
	}
	return false
}

// ConditionOperator defines comparison operators for condition evaluation.
type ConditionOperator string

const (
	OpGreaterThan   ConditionOperator = ">"
	OpGreaterThanEq ConditionOperator = ">="
	OpLessThan      ConditionOperator = "<"
	OpLessThanEq    ConditionOperator = "<="
	// OpEqual uses floored equality: floor(value) == threshold. Exact
	// float equality almost never fires on continuous measurements.
	OpEqual ConditionOperator = "=="
)

// Valid reports whether op is a member of the operator enumeration.
func (op ConditionOperator) Valid() bool {
	switch op {
	case OpGreaterThan, OpGreaterThanEq, OpLessThan, OpLessThanEq, OpEqual:
		return true
	}
	return false
}

// LocationType classifies provider-returned location metadata.
// The provider reports "city" for named administrative places; the display
// name formatter appends the country code only for that type.
type LocationType string

const (
	LocationTypeCity LocationType = "city"
)
