package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Type names of variable values.
const (
	TypeBoolean   = "boolean"
	TypeDouble    = "double"
	TypeInteger   = "integer"
	TypeJson      = "json"
	TypeNull      = "null"
	TypeString    = "string"
	TypeTimestamp = "timestamp"
)

// NormalizeValue converts a value into one of the supported representations: nil, string, bool, int64, float64,
// time.Time or a JSON compatible value (map[string]any, []any), whose numbers are normalized as well.
func NormalizeValue(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case time.Time:
		return v.UTC(), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value of type %T: %v", v, err)
	}
	return unmarshalJson(b)
}

// EncodeValue normalizes and encodes a value for storage.
func EncodeValue(v any) (string, string, error) {
	v, err := NormalizeValue(v)
	if err != nil {
		return "", "", err
	}

	var typeName string
	switch v := v.(type) {
	case nil:
		return TypeNull, "", nil
	case string:
		return TypeString, v, nil
	case bool:
		typeName = TypeBoolean
	case int64:
		typeName = TypeInteger
	case float64:
		typeName = TypeDouble
	case time.Time:
		return TypeTimestamp, v.Format(time.RFC3339Nano), nil
	default:
		typeName = TypeJson
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal value: %v", err)
	}
	return typeName, string(b), nil
}

// DecodeValue decodes a stored value.
func DecodeValue(typeName string, value string) (any, error) {
	switch typeName {
	case TypeNull:
		return nil, nil
	case TypeString:
		return value, nil
	case TypeTimestamp:
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %v", err)
		}
		return t.UTC(), nil
	case TypeBoolean, TypeInteger, TypeDouble, TypeJson:
		v, err := unmarshalJson([]byte(value))
		if err != nil {
			return nil, err
		}
		if typeName == TypeDouble {
			if i, ok := v.(int64); ok {
				return float64(i), nil
			}
		}
		return v, nil
	default:
		return nil, fmt.Errorf("type %s is not supported", typeName)
	}
}

type encodedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// EncodeValues encodes a map of values as JSON, preserving the type of each value.
func EncodeValues(values map[string]any) (string, error) {
	encoded := make(map[string]encodedValue, len(values))
	for name, v := range values {
		typeName, value, err := EncodeValue(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode value %s: %v", name, err)
		}
		encoded[name] = encodedValue{Type: typeName, Value: value}
	}

	b, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to marshal values: %v", err)
	}
	return string(b), nil
}

func DecodeValues(s string) (map[string]any, error) {
	var encoded map[string]encodedValue
	if err := json.Unmarshal([]byte(s), &encoded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal values: %v", err)
	}

	values := make(map[string]any, len(encoded))
	for name, e := range encoded {
		v, err := DecodeValue(e.Type, e.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode value %s: %v", name, err)
		}
		values[name] = v
	}
	return values, nil
}

func unmarshalJson(b []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()

	var v any
	if err := decoder.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %v", err)
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = normalizeNumbers(v[i])
		}
		return v
	case map[string]any:
		for key := range v {
			v[key] = normalizeNumbers(v[key])
		}
		return v
	default:
		return v
	}
}
