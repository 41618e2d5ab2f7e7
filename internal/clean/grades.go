package clean

import (
	"encoding/json"
	"strings"
)

// GradeResult is the outcome of parsing the enrollment grades sub-object,
// decided once at the boundary. Downstream code only reads values through
// Get and never re-inspects the raw payload.
type GradeResult struct {
	parsed bool
	values map[string]float64
}

// Empty is the result for absent or unparseable grade payloads.
func EmptyGrades() GradeResult {
	return GradeResult{}
}

// Get returns the numeric value for key, or nil when the payload was empty
// or the component missing/non-numeric.
func (r GradeResult) Get(key string) *float64 {
	if !r.parsed {
		return nil
	}
	v, ok := r.values[key]
	if !ok {
		return nil
	}
	return &v
}

// ParseGrades accepts the grades field as a native JSON object or as a
// string holding an object literal. Anything else yields Empty.
func ParseGrades(raw json.RawMessage) GradeResult {
	if len(raw) == 0 {
		return EmptyGrades()
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return fromMap(obj)
	}

	// Some exports double-encode the object as a string, occasionally with
	// single quotes and None instead of JSON null.
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return EmptyGrades()
	}

	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return fromMap(obj)
	}

	normalized := strings.NewReplacer("'", `"`, "None", "null").Replace(s)
	if err := json.Unmarshal([]byte(normalized), &obj); err == nil {
		return fromMap(obj)
	}

	return EmptyGrades()
}

func fromMap(obj map[string]interface{}) GradeResult {
	values := make(map[string]float64, len(obj))
	for key, v := range obj {
		if f, ok := v.(float64); ok {
			values[key] = f
		}
	}
	return GradeResult{parsed: true, values: values}
}
