package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/sparkify/internal/shared"
)

// FieldError reports a record field that is missing or cannot be coerced to its column type.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: field %q %s", shared.ErrMalformedRecord, e.Field, e.Reason)
}

// Unwrap lets errors.Is match [shared.ErrMalformedRecord].
func (e *FieldError) Unwrap() error {
	return shared.ErrMalformedRecord
}

// fields is one decoded JSON object with typed accessors.
type fields map[string]any

// decodeFields decodes a single JSON object, keeping numbers as [json.Number] so that coercion happens per field.
func decodeFields(line []byte) (fields, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON object: %v", shared.ErrMalformedRecord, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", shared.ErrMalformedRecord)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", shared.ErrMalformedRecord)
	}
	return fields(raw), nil
}

func (f fields) lookup(name string) (any, bool) {
	v, ok := f[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String coerces a required field to text. Numbers keep their literal form.
func (f fields) String(name string) (string, error) {
	v, ok := f.lookup(name)
	if !ok {
		return "", &FieldError{Field: name, Reason: "is missing"}
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", &FieldError{Field: name, Reason: fmt.Sprintf("has non-scalar type %T", v)}
	}
}

// OptionalString is like String but yields "" for missing or null fields.
func (f fields) OptionalString(name string) (string, error) {
	if _, ok := f.lookup(name); !ok {
		return "", nil
	}
	return f.String(name)
}

// Int64 coerces a required field to an integer. Integral floats and numeric strings are accepted.
func (f fields) Int64(name string) (int64, error) {
	v, ok := f.lookup(name)
	if !ok {
		return 0, &FieldError{Field: name, Reason: "is missing"}
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return 0, &FieldError{Field: name, Reason: fmt.Sprintf("has type %T, want integer", v)}
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}

	fl, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return 0, &FieldError{Field: name, Reason: fmt.Sprintf("value %q is not an integer", text)}
	}
	if fl != math.Trunc(fl) || fl > math.MaxInt64 || fl < math.MinInt64 {
		return 0, &FieldError{Field: name, Reason: fmt.Sprintf("value %q is not integral", text)}
	}
	return int64(fl), nil
}

// Int coerces a required field to an int.
func (f fields) Int(name string) (int, error) {
	n, err := f.Int64(name)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, &FieldError{Field: name, Reason: fmt.Sprintf("value %d overflows int", n)}
	}
	return int(n), nil
}

// Float coerces a required field to a float64.
func (f fields) Float(name string) (float64, error) {
	p, err := f.OptionalFloat(name)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, &FieldError{Field: name, Reason: "is missing"}
	}
	return *p, nil
}

// OptionalFloat coerces a nullable field; missing, null, and blank values become nil.
func (f fields) OptionalFloat(name string) (*float64, error) {
	v, ok := f.lookup(name)
	if !ok {
		return nil, nil
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
		if text == "" {
			return nil, nil
		}
	default:
		return nil, &FieldError{Field: name, Reason: fmt.Sprintf("has type %T, want number", v)}
	}

	fl, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(fl, 0) {
		return nil, &FieldError{Field: name, Reason: fmt.Sprintf("value %q is not a number", text)}
	}
	if math.IsNaN(fl) {
		return nil, nil
	}
	return &fl, nil
}
