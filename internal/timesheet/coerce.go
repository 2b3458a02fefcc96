package timesheet

import (
	"strconv"
	"strings"
)

// The webhook sender is not strict about types: numeric fields show up as
// strings or floats, booleans as "1"/"yes"/"true", ids occasionally as
// floats. These helpers absorb that at the ingestion boundary; anything that
// cannot be coerced is treated as absent, never as an error.

func asInt(v any) *int {
	switch t := v.(type) {
	case int:
		return &t
	case int64:
		n := int(t)
		return &n
	case float64:
		n := int(t)
		return &n
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n := int(f)
			return &n
		}
	}
	return nil
}

func asInt64(v any) *int64 {
	if n := asInt(v); n != nil {
		u := int64(*n)
		return &u
	}
	return nil
}

func asBool(v any) *bool {
	switch t := v.(type) {
	case bool:
		return &t
	case float64:
		b := t != 0
		return &b
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			b := true
			return &b
		case "false", "0", "no":
			b := false
			return &b
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Ids arrive as JSON numbers; render whole values without the decimal point.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
