package logging

import (
	"time"

	"go.uber.org/zap"
)

// Field is one typed key-value pair on a log entry.  Sites construct fields
// through the helpers below rather than variadic interface{} arguments, which
// keeps call sites greppable and lets the zap backend pick typed encoders.
type Field struct {
	Key   string
	Value interface{}
}

// String builds a string field.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Strings builds a string-slice field.
func Strings(key string, val []string) Field { return Field{Key: key, Value: val} }

// Int builds an int field.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 builds an int64 field.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 builds a float64 field.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool builds a bool field.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Duration builds a time.Duration field.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Any builds a field from an arbitrary value.  Prefer the typed helpers;
// unknown types go through reflection in the encoder.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Err builds a field holding err under the fixed key "error".  A nil error
// is recorded as the literal string "<nil>" so the key is always present.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// zap converts the field to its zap counterpart, choosing a typed encoder
// for the value kinds the helpers above produce.
func (f Field) zap() zap.Field {
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case []string:
		return zap.Strings(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case float64:
		return zap.Float64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case error:
		return zap.NamedError(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}

// zfields converts a field slice for handoff to zap.
func zfields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = f.zap()
	}
	return out
}
