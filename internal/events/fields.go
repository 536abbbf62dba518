package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	errMissing   = errors.New("missing")
	errWrongType = errors.New("wrong type")
)

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string { return fmt.Sprintf("field %s: %v", e.field, e.err) }

func (e *fieldError) Unwrap() error { return e.err }

func missing(field string) error { return &fieldError{field: field, err: errMissing} }

func wrongType(field, want string) error {
	return &fieldError{field: field, err: fmt.Errorf("%w: want %s", errWrongType, want)}
}

func requiredString(obj map[string]interface{}, key string) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", missing(key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", wrongType(key, "string")
	}
	return value, nil
}

// optionalString returns def when the key is absent or not a string.
func optionalString(obj map[string]interface{}, key, def string) string {
	if value, ok := obj[key].(string); ok {
		return value
	}
	return def
}

func optionalBool(obj map[string]interface{}, key string, def bool) bool {
	if value, ok := obj[key].(bool); ok {
		return value
	}
	return def
}

func requiredUint64(obj map[string]interface{}, key string) (uint64, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return 0, missing(key)
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, wrongType(key, "unsigned integer")
	}
	value, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return 0, wrongType(key, "unsigned integer")
	}
	return value, nil
}

func requiredStrings(obj map[string]interface{}, key string) ([]string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, missing(key)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, wrongType(key, "array")
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		value, ok := item.(string)
		if !ok {
			return nil, wrongType(fmt.Sprintf("%s[%d]", key, i), "string")
		}
		out = append(out, value)
	}
	return out, nil
}

// dataRecords returns the objects of the payload's data array.
func dataRecords(payload map[string]interface{}) ([]map[string]interface{}, error) {
	raw, ok := payload["data"]
	if !ok || raw == nil {
		return nil, missing("data")
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, wrongType("data", "array")
	}
	records := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			return nil, wrongType(fmt.Sprintf("data[%d]", i), "object")
		}
		records = append(records, record)
	}
	return records, nil
}

func paramsObject(payload map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := payload["params"]
	if !ok || raw == nil {
		return nil, missing("params")
	}
	params, ok := raw.(map[string]interface{})
	if !ok {
		return nil, wrongType("params", "object")
	}
	return params, nil
}

// fields collects required string fields, stopping at the first failure.
type fields struct {
	obj map[string]interface{}
	err error
}

func (f *fields) str(key string) string {
	if f.err != nil {
		return ""
	}
	value, err := requiredString(f.obj, key)
	if err != nil {
		f.err = err
	}
	return value
}

func (f *fields) u64(key string) uint64 {
	if f.err != nil {
		return 0
	}
	value, err := requiredUint64(f.obj, key)
	if err != nil {
		f.err = err
	}
	return value
}

func (f *fields) strs(key string) []string {
	if f.err != nil {
		return nil
	}
	value, err := requiredStrings(f.obj, key)
	if err != nil {
		f.err = err
	}
	return value
}

// nested prefixes the field name of a fieldError with its enclosing path.
func nested(prefix string, err error) error {
	var fieldErr *fieldError
	if errors.As(err, &fieldErr) {
		return &fieldError{field: prefix + "." + fieldErr.field, err: fieldErr.err}
	}
	return err
}
