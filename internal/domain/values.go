package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Разные драйверы хранилища возвращают значения колонок в разных типах
// (pgx: int64/time.Time/[]byte, badger: json.Number/string). Хелперы ниже
// приводят их к типам домена.

// AsInt64 приводит значение колонки к int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// AsString приводит значение колонки к строке.
func AsString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}

// AsBool приводит значение колонки к bool.
func AsBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int64:
		return b != 0, true
	case int:
		return b != 0, true
	case json.Number:
		i, err := b.Int64()
		return i != 0, err == nil
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	default:
		return false, false
	}
}

// AsTime приводит значение колонки к time.Time.
func AsTime(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case time.Time:
		return ts, !ts.IsZero()
	case *time.Time:
		if ts == nil {
			return time.Time{}, false
		}
		return *ts, !ts.IsZero()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		return parsed, err == nil
	case []byte:
		parsed, err := time.Parse(time.RFC3339Nano, string(ts))
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}
