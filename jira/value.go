package jira

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValueType classifies an attribute's declared value type in the remote
// schema. The remote service knows more kinds than these; anything we can't
// map is treated as text, which round-trips losslessly.
type ValueType string

const (
	TypeText      ValueType = "text"
	TypeNumber    ValueType = "number"
	TypeDate      ValueType = "date"
	TypeDateTime  ValueType = "datetime"
	TypeBool      ValueType = "boolean"
	TypeStatus    ValueType = "status"
	TypeUser      ValueType = "user"
	TypeReference ValueType = "reference"
)

// DateLayout is the canonical wire representation of date attributes.
const DateLayout = "2006-01-02"

// Value is a single typed attribute value. Exactly one of the typed fields
// is meaningful, selected by Type. A zero Value is null.
type Value struct {
	Type   ValueType
	Text   string
	Number decimal.Decimal
	Date   time.Time
	Elems  []Value // set for multi-valued attributes; Type describes the elements

	present bool
}

// Null returns the null value, distinct from an empty string.
func Null() Value { return Value{} }

// TextValue constructs a text value. This also covers status, user and
// reference values, whose human form is the referenced name.
func TextValue(s string) Value {
	return Value{Type: TypeText, Text: s, present: true}
}

// NumberValue constructs a numeric value.
func NumberValue(d decimal.Decimal) Value {
	return Value{Type: TypeNumber, Number: d, present: true}
}

// DateValue constructs a date value, truncated to the day.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{Type: TypeDate, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), present: true}
}

// ListValue constructs a multi-valued attribute value.
func ListValue(elems []Value) Value {
	t := TypeText
	if len(elems) > 0 {
		t = elems[0].Type
	}
	return Value{Type: t, Elems: elems, present: true}
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return !v.present }

// IsList reports whether the value holds multiple elements.
func (v Value) IsList() bool { return v.Elems != nil }

// Raw returns the canonical wire string for the value. Lists return their
// first element's raw form; callers that need every element should range
// over Elems.
func (v Value) Raw() string {
	if !v.present {
		return ""
	}
	if v.Elems != nil {
		if len(v.Elems) == 0 {
			return ""
		}
		return v.Elems[0].Raw()
	}
	switch v.Type {
	case TypeNumber:
		return v.Number.String()
	case TypeDate:
		return v.Date.Format(DateLayout)
	case TypeDateTime:
		return v.Date.Format(time.RFC3339)
	default:
		return v.Text
	}
}

// String returns the human display form of the value.
func (v Value) String() string {
	if !v.present {
		return ""
	}
	if v.Elems != nil {
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.String()
		}
		return strings.Join(parts, ", ")
	}
	return v.Raw()
}

// Equal reports whether two values are equivalent. Numbers compare by
// numeric value (so "450.0" equals "450.00"), dates by day, everything
// else by exact text.
func (v Value) Equal(o Value) bool {
	if v.present != o.present {
		return false
	}
	if !v.present {
		return true
	}
	if (v.Elems != nil) != (o.Elems != nil) {
		return false
	}
	if v.Elems != nil {
		if len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	}
	if v.Type == TypeNumber && o.Type == TypeNumber {
		return v.Number.Equal(o.Number)
	}
	if (v.Type == TypeDate || v.Type == TypeDateTime) && (o.Type == TypeDate || o.Type == TypeDateTime) {
		return v.Date.Equal(o.Date)
	}
	return v.Raw() == o.Raw()
}

// AsNumber attempts a numeric view of the value, parsing text forms that
// use a comma decimal separator or carry a trailing euro sign.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	if !v.present {
		return decimal.Decimal{}, false
	}
	if v.Elems != nil {
		if len(v.Elems) == 0 {
			return decimal.Decimal{}, false
		}
		return v.Elems[0].AsNumber()
	}
	if v.Type == TypeNumber {
		return v.Number, true
	}
	return parseNumber(v.Text)
}

// AsDate attempts a date view of the value.
func (v Value) AsDate() (time.Time, bool) {
	if !v.present {
		return time.Time{}, false
	}
	if v.Elems != nil {
		if len(v.Elems) == 0 {
			return time.Time{}, false
		}
		return v.Elems[0].AsDate()
	}
	if v.Type == TypeDate || v.Type == TypeDateTime {
		return v.Date, true
	}
	return parseDate(v.Text)
}

// parseNumber parses currency-ish numeric strings: "1.250,50 €" and
// "1250.50" both resolve to 1250.50.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	if s == "" {
		return decimal.Decimal{}, false
	}
	if strings.Contains(s, ",") {
		// European format: dot is a thousands separator, comma the decimal point
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseDate accepts the canonical date layout plus RFC 3339 timestamps,
// which the remote service uses for datetime attributes.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
