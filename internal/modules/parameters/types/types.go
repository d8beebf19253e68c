package types

import "time"

// Values holds the four process parameters tracked for the production line.
// Units are whatever the line reports; nothing here checks ranges.
type Values struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Speed       float64 `json:"speed"`
}

// Reading is one stored row: a measured sample or a target setpoint.
type Reading struct {
	ID int64 `json:"id"`
	Values
	Timestamp time.Time `json:"timestamp"`
	IsTarget  bool      `json:"is_target"`
}

// NewReading is the insert payload. A zero Timestamp is filled by the store.
type NewReading struct {
	Values
	Timestamp time.Time
	IsTarget  bool
}

// Kind filters readings by their is_target flag.
type Kind int

const (
	KindAny Kind = iota
	KindMeasured
	KindTarget
)

func (k Kind) String() string {
	switch k {
	case KindMeasured:
		return "measured"
	case KindTarget:
		return "target"
	default:
		return "any"
	}
}

// Filter is the nullable is_target value used by store queries; nil matches both.
func (k Kind) Filter() *bool {
	switch k {
	case KindMeasured:
		v := false
		return &v
	case KindTarget:
		v := true
		return &v
	default:
		return nil
	}
}

// KindOf reports the kind of a stored or pending reading.
func KindOf(isTarget bool) Kind {
	if isTarget {
		return KindTarget
	}
	return KindMeasured
}

// Field names in their canonical order.
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldPressure    = "pressure"
	FieldSpeed       = "speed"
)

var Fields = []string{FieldTemperature, FieldHumidity, FieldPressure, FieldSpeed}

// Get returns the value of a canonical field; ok is false for unknown names.
func (v Values) Get(field string) (float64, bool) {
	switch field {
	case FieldTemperature:
		return v.Temperature, true
	case FieldHumidity:
		return v.Humidity, true
	case FieldPressure:
		return v.Pressure, true
	case FieldSpeed:
		return v.Speed, true
	}
	return 0, false
}

// Map applies f to every field.
func (v Values) Map(f func(field string, x float64) float64) Values {
	return Values{
		Temperature: f(FieldTemperature, v.Temperature),
		Humidity:    f(FieldHumidity, v.Humidity),
		Pressure:    f(FieldPressure, v.Pressure),
		Speed:       f(FieldSpeed, v.Speed),
	}
}

// FieldDeviation compares one parameter of the latest measurement to its target.
type FieldDeviation struct {
	Field          string  `json:"field"`
	Measured       float64 `json:"measured"`
	Target         float64 `json:"target"`
	Relative       float64 `json:"relative"`
	OutOfTolerance bool    `json:"out_of_tolerance"`
}

// DeviationReport is the latest measured reading checked against the target.
type DeviationReport struct {
	Measured       Reading          `json:"measured"`
	Target         Reading          `json:"target"`
	Tolerance      float64          `json:"tolerance"`
	Fields         []FieldDeviation `json:"fields"`
	OutOfTolerance bool             `json:"out_of_tolerance"`
}

// Series is a history window reshaped into parallel arrays, oldest first.
type Series struct {
	Timestamps   []time.Time `json:"timestamps"`
	Temperatures []float64   `json:"temperatures"`
	Humidities   []float64   `json:"humidities"`
	Pressures    []float64   `json:"pressures"`
	Speeds       []float64   `json:"speeds"`
}

// Overview backs the dashboard page.
type Overview struct {
	Latest        *Reading
	Target        *Reading
	Deviation     *DeviationReport
	MeasuredCount int
}
