package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"prodline-server/internal/modules/parameters/types"
)

// FieldMixingSpeed is accepted on input as another name for speed.
const FieldMixingSpeed = "mixing_speed"

const (
	msgRequired = "This field is required."
	msgNumber   = "A valid number is required."
	msgBoolean  = "Must be a valid boolean."
)

// CreateInput is a decoded JSON object. Decode with json.Decoder.UseNumber so
// numbers arrive as json.Number; plain float64 and numeric strings are accepted too.
type CreateInput map[string]any

// parse converts the input into an insert payload or reports every bad field.
func (in CreateInput) parse() (types.NewReading, error) {
	verr := &ValidationError{}
	var out types.NewReading

	raw := func(field string) (any, bool) {
		v, ok := in[field]
		if (!ok || v == nil) && field == types.FieldSpeed {
			v, ok = in[FieldMixingSpeed]
		}
		return v, ok && v != nil
	}

	vals := make(map[string]float64, len(types.Fields))
	for _, field := range types.Fields {
		v, ok := raw(field)
		if !ok {
			verr.add(field, msgRequired)
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			verr.add(field, msgNumber)
			continue
		}
		vals[field] = f
	}

	if v, ok := in["is_target"]; ok && v != nil {
		b, ok := toBool(v)
		if !ok {
			verr.add("is_target", msgBoolean)
		}
		out.IsTarget = b
	}

	if v, ok := in["timestamp"]; ok && v != nil {
		s, _ := v.(string)
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			verr.add("timestamp", "Datetime has wrong format. Use RFC3339.")
		}
		out.Timestamp = ts
	}

	if !verr.empty() {
		return types.NewReading{}, verr
	}

	out.Values = types.Values{
		Temperature: vals[types.FieldTemperature],
		Humidity:    vals[types.FieldHumidity],
		Pressure:    vals[types.FieldPressure],
		Speed:       vals[types.FieldSpeed],
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		var err error
		if f, err = t.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off", "":
			return false, true
		}
	case json.Number:
		switch t.String() {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	}
	return false, false
}
