// Package fieldtype validates and normalizes custom field values.
//
// Every value is stored as text. Normalize produces that text from a raw
// submitted value; Decode turns stored text back into a typed value using the
// same kind.
package fieldtype

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"institution-manager/types"
)

type Kind string

const (
	Text     Kind = "text"
	Select   Kind = "select"
	Boolean  Kind = "boolean"
	Number   Kind = "number"
	DateTime Kind = "datetime"
	Date     Kind = "date"
	Time     Kind = "time"
	Space    Kind = "space"
)

var kinds = map[Kind]bool{
	Text: true, Select: true, Boolean: true, Number: true,
	DateTime: true, Date: true, Time: true, Space: true,
}

func (k Kind) IsValid() bool {
	return kinds[k]
}

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{Text, Select, Boolean, Number, DateTime, Date, Time, Space}
}

// SpaceExists reports whether a space with the given id exists.
type SpaceExists func(id uint) (bool, error)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04:05"
	microFraction  = ".000000"
	offsetLayout   = "-07:00"
	naiveDateTime  = dateLayout + "T" + clockLayout
	spaceSeparated = dateLayout + " " + clockLayout
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	naiveDateTime + ".999999999",
	naiveDateTime,
	dateLayout + "T15:04",
	dateLayout + "T15:04" + offsetLayout,
	dateLayout + "T15:04Z07:00",
	spaceSeparated + "Z07:00",
	spaceSeparated,
	dateLayout + " 15:04",
	dateLayout,
}

var trueWords = map[string]bool{"true": true, "1": true, "yes": true, "y": true}
var falseWords = map[string]bool{"false": true, "0": true, "no": true, "n": true}

// Normalize validates raw against kind and returns the canonical stored text.
// A nil result means the value is stored as NULL.
func Normalize(kind Kind, options []string, raw interface{}, spaceExists SpaceExists) (*string, error) {
	raw = unwrap(raw)

	switch kind {
	case Text, "":
		if raw == nil {
			return nil, nil
		}
		s := render(raw)
		return &s, nil

	case Select:
		if options != nil {
			s, ok := raw.(string)
			if !ok || !contains(options, s) {
				return nil, invalid("value is not one of the allowed options")
			}
			return &s, nil
		}
		if raw == nil {
			return nil, nil
		}
		s := render(raw)
		return &s, nil

	case Boolean:
		var b bool
		switch v := raw.(type) {
		case bool:
			b = v
		case string:
			word := strings.ToLower(strings.TrimSpace(v))
			switch {
			case trueWords[word]:
				b = true
			case falseWords[word]:
				b = false
			default:
				return nil, invalid("invalid boolean value %q", v)
			}
		default:
			return nil, invalid("invalid boolean value")
		}
		s := strconv.FormatBool(b)
		return &s, nil

	case Number:
		var s string
		switch v := raw.(type) {
		case json.Number:
			s = v.String()
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			s = strconv.Itoa(v)
		case int64:
			s = strconv.FormatInt(v, 10)
		default:
			return nil, invalid("invalid numeric value")
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil, invalid("invalid numeric value %q", s)
		}
		return &s, nil

	case DateTime:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid("invalid datetime; expected ISO format")
		}
		t, aware, err := parseDateTime(s)
		if err != nil {
			return nil, invalid("invalid datetime %q; expected ISO format", s)
		}
		out := formatDateTime(t, aware)
		return &out, nil

	case Date:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid("invalid date; expected YYYY-MM-DD")
		}
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, invalid("invalid date %q; expected YYYY-MM-DD", s)
		}
		out := d.Format(dateLayout)
		return &out, nil

	case Time:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid("invalid time; expected HH:MM[:SS]")
		}
		t, err := parseClock(s)
		if err != nil {
			return nil, invalid("invalid time %q; expected HH:MM[:SS]", s)
		}
		out := formatClock(t)
		return &out, nil

	case Space:
		id, ok := integral(raw)
		if !ok || id <= 0 {
			return nil, invalid("invalid space id")
		}
		if spaceExists == nil {
			return nil, invalid("invalid space id %d", id)
		}
		exists, err := spaceExists(uint(id))
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, invalid("space %d does not exist", id)
		}
		out := strconv.FormatInt(id, 10)
		return &out, nil
	}

	return nil, invalid("unsupported field type %q", kind)
}

// Decode re-parses stored text into a typed value for responses.
func Decode(kind Kind, stored *string) interface{} {
	if stored == nil {
		return nil
	}
	s := *stored
	switch kind {
	case Boolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case Number:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case Space:
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return id
		}
	}
	return s
}

func invalid(format string, args ...interface{}) error {
	return types.NewError(types.ErrInvalidValue, format, args...)
}

// unwrap turns a raw JSON fragment into a plain Go value, keeping numbers as json.Number.
func unwrap(raw interface{}) interface{} {
	msg, ok := raw.(json.RawMessage)
	if !ok {
		return raw
	}
	if len(msg) == 0 {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(string(msg)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return string(msg)
	}
	return v
}

func render(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func integral(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if id, err := t.Int64(); err == nil {
			return id, true
		}
		return 0, false
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return id, err == nil
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	}
	return 0, false
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func parseDateTime(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		aware := strings.Contains(layout, "Z07") || strings.Contains(layout, "-07")
		return t, aware, nil
	}
	return time.Time{}, false, &time.ParseError{Value: s, Message: ": not an ISO datetime"}
}

func formatDateTime(t time.Time, aware bool) string {
	layout := naiveDateTime
	if t.Nanosecond()/1000 != 0 {
		layout += microFraction
	}
	if aware {
		layout += offsetLayout
	}
	return t.Format(layout)
}

func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(clockLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("15:04", s)
}

func formatClock(t time.Time) string {
	if t.Nanosecond()/1000 != 0 {
		return t.Format(clockLayout + microFraction)
	}
	return t.Format(clockLayout)
}
