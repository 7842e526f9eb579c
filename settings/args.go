package settings

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/filestorage"
)

// Args holds the settings of one handler or filter. Values come either
// from a document (already typed) or from flat string settings, which are
// decoded as YAML scalars or flow sequences: "5" is an int, "true" a bool,
// "['jpg', 'png']" a list and "'6'" the string "6".
//
// Every getter records the name it was asked for. Setup uses that record to
// reject settings nobody read and to suggest the closest known name.
type Args struct {
	values map[string]any
	asked  map[string]struct{}
	key    string
}

// NewArgs returns Args for the settings at key (e.g. "store.handler").
func NewArgs(key string, values map[string]any) *Args {
	if values == nil {
		values = map[string]any{}
	}
	return &Args{key: key, values: values, asked: map[string]struct{}{}}
}

// Key is the settings key the arguments belong to.
func (a *Args) Key() string { return a.key }

// Has reports whether name is set.
func (a *Args) Has(name string) bool {
	a.asked[name] = struct{}{}
	_, ok := a.values[name]
	return ok
}

// Unused returns the names that are set but were never read, sorted.
func (a *Args) Unused() []string {
	var unused []string
	for name := range a.values {
		if _, ok := a.asked[name]; !ok {
			unused = append(unused, name)
		}
	}
	slices.Sort(unused)
	return unused
}

// Known returns every name a getter asked for, sorted.
func (a *Args) Known() []string {
	return slices.Sorted(maps.Keys(a.asked))
}

func (a *Args) lookup(name string) (any, bool) {
	a.asked[name] = struct{}{}
	v, ok := a.values[name]
	return v, ok
}

func (a *Args) errorf(name, format string, args ...any) error {
	return filestorage.NewConfigError(filestorage.ErrInvalidValue,
		"Bad value for %s.%s: %s", a.key, name, fmt.Sprintf(format, args...))
}

// Missing returns the error for a required setting that is absent.
func (a *Args) Missing(name string) error {
	return filestorage.NewConfigError(filestorage.ErrInvalidValue,
		"Missing setting %s.%s", a.key, name)
}

// String returns the named setting, or def when unset. Scalars of other
// types are formatted.
func (a *Args) String(name, def string) (string, error) {
	v, ok := a.lookup(name)
	if !ok || v == nil {
		return def, nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(v), nil
	}
	return "", a.errorf(name, "expected a string, got %v", v)
}

// RequireString is String for settings without a default.
func (a *Args) RequireString(name string) (string, error) {
	if !a.Has(name) {
		return "", a.Missing(name)
	}
	s, err := a.String(name, "")
	if err == nil && s == "" {
		return "", a.errorf(name, "must not be empty")
	}
	return s, err
}

// Bool returns the named setting, or def when unset.
func (a *Args) Bool(name string, def bool) (bool, error) {
	v, ok := a.lookup(name)
	if !ok || v == nil {
		return def, nil
	}
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, a.errorf(name, "expected a boolean, got %q", v)
		}
		return b, nil
	}
	return false, a.errorf(name, "expected a boolean, got %v", v)
}

// Int64 returns the named setting, or def when unset.
func (a *Args) Int64(name string, def int64) (int64, error) {
	v, ok := a.lookup(name)
	if !ok || v == nil {
		return def, nil
	}
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, a.errorf(name, "%d is out of range", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, a.errorf(name, "expected an integer, got %v", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, a.errorf(name, "expected an integer, got %q", v)
		}
		return n, nil
	}
	return 0, a.errorf(name, "expected an integer, got %v", v)
}

// Int returns the named setting, or def when unset.
func (a *Args) Int(name string, def int) (int, error) {
	n, err := a.Int64(name, int64(def))
	if err != nil {
		return 0, err
	}
	if n < math.MinInt || n > math.MaxInt {
		return 0, a.errorf(name, "%d is out of range", n)
	}
	return int(n), nil
}

// Duration returns the named setting, or def when unset. Integers are
// seconds; strings use time.ParseDuration syntax ("1m30s").
func (a *Args) Duration(name string, def time.Duration) (time.Duration, error) {
	v, ok := a.lookup(name)
	if !ok || v == nil {
		return def, nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return 0, a.errorf(name, "expected a duration, got %q", s)
	}
	n, err := a.Int64(name, 0)
	if err != nil {
		return 0, a.errorf(name, "expected a duration, got %v", v)
	}
	return time.Duration(n) * time.Second, nil
}

// Strings returns the named list setting, or nil when unset. A single
// scalar is a one-element list.
func (a *Args) Strings(name string) ([]string, error) {
	v, ok := a.lookup(name)
	if !ok || v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case []string:
		return slices.Clone(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch item := item.(type) {
			case string:
				out = append(out, item)
			case int, int64, uint64, float64, bool:
				out = append(out, fmt.Sprint(item))
			default:
				return nil, a.errorf(name, "expected a list of strings, got %v", item)
			}
		}
		return out, nil
	case string, int, int64, uint64, float64, bool:
		return []string{fmt.Sprint(v)}, nil
	}
	return nil, a.errorf(name, "expected a list, got %v", v)
}

// decodeFlatValue turns a flat string setting into a typed value.
func decodeFlatValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return unquote(raw)
	}
	switch v := v.(type) {
	case nil:
		return raw
	case map[string]any:
		return raw
	default:
		return v
	}
}

// unquote removes matching surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
