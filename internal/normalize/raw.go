// Package normalize collapses the backend's drifting payload shapes into the
// canonical entities in package models.
//
// Every normalizer is total: it never fails and never leaves a field unset.
// For each canonical field a fixed, ordered list of source paths is tried and
// the first present-and-non-empty source wins. A source is present when it
// exists, is not null, is a scalar, and (for strings) is not blank. Numbers
// always go through a finite parse with 0 as the fallback.
//
// Raw is the only type that sees backend JSON; everything downstream works on
// models.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Raw is an undecoded backend payload.
type Raw struct {
	res gjson.Result
}

// Parse wraps a JSON document. Invalid JSON yields an empty Raw, which
// normalizes to defaults.
func Parse(body []byte) Raw {
	if !gjson.ValidBytes(body) {
		return Raw{}
	}
	return Raw{res: gjson.ParseBytes(body)}
}

// ParseString is Parse for string input.
func ParseString(body string) Raw {
	return Parse([]byte(body))
}

// Unwrap accepts either `{"data": payload}` or `payload` and returns payload.
func Unwrap(r Raw) Raw {
	if !r.res.IsObject() {
		return r
	}
	data := r.res.Get("data")
	if data.IsObject() || data.IsArray() {
		return Raw{res: data}
	}
	return r
}

// Get returns the value at a gjson path.
func (r Raw) Get(path string) Raw {
	return Raw{res: r.res.Get(path)}
}

// Exists reports whether the payload holds any value.
func (r Raw) Exists() bool {
	return r.res.Exists() && r.res.Type != gjson.Null
}

// IsObject reports whether the payload is a JSON object.
func (r Raw) IsObject() bool {
	return r.res.IsObject()
}

// IsArray reports whether the payload is a JSON array.
func (r Raw) IsArray() bool {
	return r.res.IsArray()
}

// JSON returns the raw JSON text, or "" for an empty Raw.
func (r Raw) JSON() string {
	return r.res.Raw
}

// first returns the first present scalar among paths.
func (r Raw) first(paths []string) (gjson.Result, bool) {
	for _, p := range paths {
		v := r.res.Get(p)
		if present(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func present(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.String:
		return strings.TrimSpace(v.Str) != ""
	case gjson.Number, gjson.True, gjson.False:
		return true
	default:
		// objects and arrays are not scalar sources; gjson reports them as JSON
		return false
	}
}

// String returns the first present source among paths as trimmed text.
func (r Raw) String(paths ...string) (string, bool) {
	v, ok := r.first(paths)
	if !ok {
		return "", false
	}
	if v.Type == gjson.Number {
		return v.Raw, true
	}
	return strings.TrimSpace(v.String()), true
}

// StringOr is String with a default.
func (r Raw) StringOr(def string, paths ...string) string {
	if s, ok := r.String(paths...); ok {
		return s
	}
	return def
}

// Float returns the first present source among paths as a finite number.
// A winning source that is not numeric yields 0; it does not fall through.
func (r Raw) Float(paths ...string) float64 {
	v, ok := r.first(paths)
	if !ok {
		return 0
	}
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	return finite(f)
}

// Int is Float truncated toward zero.
func (r Raw) Int(paths ...string) int {
	f := r.Float(paths...)
	if f > maxExactInt || f < -maxExactInt {
		return 0
	}
	return int(f)
}

const maxExactInt = 1 << 53

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// List returns the elements of the first array found. The payload itself is
// checked first, then each key in order. Absent or non-array sources yield an
// empty, non-nil slice.
func (r Raw) List(keys ...string) []Raw {
	arr := gjson.Result{}
	if r.res.IsArray() {
		arr = r.res
	} else {
		for _, k := range keys {
			if v := r.res.Get(k); v.IsArray() {
				arr = v
				break
			}
		}
	}
	items := arr.Array()
	out := make([]Raw, 0, len(items))
	for _, it := range items {
		out = append(out, Raw{res: it})
	}
	return out
}

// joinName composes a display name from first/last name sources.
func joinName(r Raw, firstPaths, lastPaths []string) string {
	first, _ := r.String(firstPaths...)
	last, _ := r.String(lastPaths...)
	return strings.TrimSpace(first + " " + last)
}
