package ops

import (
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/narrsvc/internal/errors"
)

// Params is a loosely typed request record, as decoded from JSON arguments
// or assembled by the CLI. Numbers may arrive as int, int64 or float64.
type Params map[string]any

// fieldErrors accumulates validation failures so every bad field is reported at once.
type fieldErrors []errors.FieldError

func (fe *fieldErrors) add(field, format string, args ...any) {
	*fe = append(*fe, errors.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return errors.NewInvalidFields(fe)
}

// flag reads a 0/1 option. Booleans are accepted too. Absent or null yields def.
func (p Params) flag(key string, def bool, fe *fieldErrors) bool {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def
	}
	switch v := raw.(type) {
	case bool:
		return v
	default:
		if n, ok := asInt(raw); ok && (n == 0 || n == 1) {
			return n == 1
		}
	}
	fe.add(key, "Parameter '%s' must be 0 or 1, not '%v'", key, raw)
	return def
}

// intList reads a list of integers. present is false when the key is absent or null.
func (p Params) intList(key string, fe *fieldErrors) (list []int64, present bool) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, false
	}
	bad := func() ([]int64, bool) {
		fe.add(key, "Parameter '%s' must be a list of integers if present", key)
		return nil, true
	}
	switch v := raw.(type) {
	case []int64:
		return v, true
	case []int:
		out := make([]int64, 0, len(v))
		for _, n := range v {
			out = append(out, int64(n))
		}
		return out, true
	case []any:
		out := make([]int64, 0, len(v))
		for _, elem := range v {
			n, ok := asInt(elem)
			if !ok {
				return bad()
			}
			out = append(out, n)
		}
		return out, true
	}
	return bad()
}

// stringList reads a list of strings. present is false when the key is absent or null.
func (p Params) stringList(key string, fe *fieldErrors) (list []string, present bool) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, false
	}
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				fe.add(key, "Parameter '%s' must be a list of strings if present", key)
				return nil, true
			}
			out = append(out, s)
		}
		return out, true
	}
	fe.add(key, "Parameter '%s' must be a list of strings if present", key)
	return nil, true
}

// positiveInt reads a strictly positive integer, defaulting when absent.
func (p Params) positiveInt(key string, def int, fe *fieldErrors) int {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def
	}
	n, ok := asInt(raw)
	if !ok || n <= 0 || n > math.MaxInt32 {
		fe.add(key, "Parameter '%s' must be a positive integer, not '%v'", key, raw)
		return def
	}
	return int(n)
}

// str reads a string option, lower-cased and trimmed.
func (p Params) str(key string) (string, bool) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return fmt.Sprint(raw), false
	}
	return strings.ToLower(strings.TrimSpace(s)), true
}

// asInt converts integral numbers of any common Go/JSON representation.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
