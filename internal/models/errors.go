package models

import (
	"fmt"
	"strconv"
)

// MalformedPayloadError reports a venue record that could not be mapped to its
// entity. Entity is the decoder name, Field the missing or invalid field.
type MalformedPayloadError struct {
	Entity string
	Field  string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: missing or invalid field %q", e.Entity, e.Field)
}

func malformed(entity, field string) error {
	return &MalformedPayloadError{Entity: entity, Field: field}
}

// Binance sends most numeric fields as JSON strings, a few as numbers.
// The helpers below accept either form.

func stringField(m map[string]any, entity, key string) (string, error) {
	v, ok := m[key].(string)
	if !ok {
		return "", malformed(entity, key)
	}
	return v, nil
}

func floatField(m map[string]any, entity, key string) (float64, error) {
	switch v := m[key].(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, malformed(entity, key)
		}
		return f, nil
	case float64:
		return v, nil
	}
	return 0, malformed(entity, key)
}

func intField(m map[string]any, entity, key string) (int64, error) {
	switch v := m[key].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, malformed(entity, key)
		}
		return n, nil
	case float64:
		return int64(v), nil
	}
	return 0, malformed(entity, key)
}

func boolField(m map[string]any, entity, key string) (bool, error) {
	switch v := m[key].(type) {
	case bool:
		return v, nil
	case string:
		// positionRisk reports marginType as "isolated"/"cross" strings elsewhere,
		// but plain boolean fields also arrive as "true"/"false".
		if v == "true" {
			return true, nil
		}
		if v == "false" {
			return false, nil
		}
	}
	return false, malformed(entity, key)
}

func stringSlice(m map[string]any, entity, key string) ([]string, error) {
	raw, ok := m[key].([]any)
	if !ok {
		return nil, malformed(entity, key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, malformed(entity, key)
		}
		out = append(out, s)
	}
	return out, nil
}
