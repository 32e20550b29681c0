package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tidwall/gjson"
)

// Value is a loosely typed JSON scalar. Agents report the same field as a
// number on one host and as a string on another, so leaves keep both forms
// and never fail to decode.
type Value struct {
	text  string
	num   float64
	isNum bool
	set   bool
}

// UnmarshalJSON accepts strings, numbers and booleans. Null, objects and
// arrays leave the value unset.
func (v *Value) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	*v = Value{}
	switch r.Type {
	case gjson.String:
		v.text, v.set = r.Str, true
	case gjson.Number:
		v.text, v.num, v.isNum, v.set = r.Raw, r.Num, true, true
	case gjson.True, gjson.False:
		v.text, v.set = r.Raw, true
	}
	return nil
}

// Text builds a set string value.
func Text(s string) Value { return Value{text: s, set: true} }

// Number builds a set numeric value.
func Number(f float64) Value {
	return Value{text: strconv.FormatFloat(f, 'f', -1, 64), num: f, isNum: true, set: true}
}

func (v Value) IsSet() bool { return v.set }

func (v Value) String() string { return v.text }

// Or returns the text form, or def when the value is unset or empty.
func (v Value) Or(def string) string {
	if !v.set || v.text == "" {
		return def
	}
	return v.text
}

// Truthy mirrors how the agent tooling treats optional fields: unset, empty,
// zero and false all count as missing.
func (v Value) Truthy() bool {
	switch {
	case !v.set:
		return false
	case v.isNum:
		return v.num != 0
	default:
		return v.text != "" && v.text != "false"
	}
}

// Float returns the numeric form. Strings are parsed after trimming spaces and
// a trailing percent sign.
func (v Value) Float() (float64, bool) {
	if !v.set {
		return 0, false
	}
	if v.isNum {
		return v.num, true
	}
	s := strings.TrimSuffix(strings.TrimSpace(v.text), "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses a leading integer the way "45%" or "45.7" read as 45.
func (v Value) Int() (int, bool) {
	if !v.set {
		return 0, false
	}
	if v.isNum {
		return clampInt(v.num), true
	}
	s := strings.TrimLeftFunc(v.text, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return clampInt(float64(n)), true
}

// clampInt truncates f toward zero and pins it to the int32 range, which is
// far beyond any percentage or size the dashboard shows.
func clampInt(f float64) int {
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return int(f)
	}
}

// A bare date reads as UTC midnight; a date-time without an offset reads as
// local time.
var (
	zonedLayouts = []string{time.RFC3339Nano, "2006-01-02"}
	localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"}
)

// maxEpochMillis bounds numeric timestamps to ±100,000,000 days around the
// epoch, the range of an ECMAScript Date.
const maxEpochMillis = 8.64e15

// Time parses ISO-8601 strings and epoch-millisecond numbers. Anything else
// reports false.
func (v Value) Time() (time.Time, bool) {
	if !v.set {
		return time.Time{}, false
	}
	if v.isNum {
		if math.Abs(v.num) > maxEpochMillis {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v.num)), true
	}
	s := strings.TrimSpace(v.text)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders t the way receipt timestamps appear on the wire.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
