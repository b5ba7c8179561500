package jira

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1250.50", "1250.5", true},
		{"1.250,50 €", "1250.5", true},
		{"450,00€", "450", true},
		{"  300 ", "300", true},
		{"0", "0", true},
		{"", "", false},
		{"€", "", false},
		{"not a number", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestParseDateAcceptsDateAndTimestamp(t *testing.T) {
	d, ok := parseDate("2023-06-15")
	require.True(t, ok)
	assert.Equal(t, 2023, d.Year())
	assert.Equal(t, time.June, d.Month())

	ts, ok := parseDate("2023-06-15T10:30:00Z")
	require.True(t, ok)
	assert.Equal(t, 15, ts.Day())

	_, ok = parseDate("15/06/2023")
	assert.False(t, ok)
}

func TestValueEqualSemantics(t *testing.T) {
	n1 := NumberValue(decimal.RequireFromString("450.0"))
	n2 := NumberValue(decimal.RequireFromString("450.00"))
	assert.True(t, n1.Equal(n2), "numbers compare by value, not representation")

	d1 := DateValue(time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC))
	d2 := DateValue(time.Date(2023, 6, 15, 14, 45, 0, 0, time.UTC))
	assert.True(t, d1.Equal(d2), "dates compare by day")

	assert.True(t, Null().Equal(Null()))
	assert.False(t, Null().Equal(TextValue("")), "null and empty text are distinct")
	assert.False(t, TextValue("a").Equal(TextValue("b")))

	l1 := ListValue([]Value{TextValue("a"), TextValue("b")})
	l2 := ListValue([]Value{TextValue("a"), TextValue("b")})
	l3 := ListValue([]Value{TextValue("a")})
	assert.True(t, l1.Equal(l2))
	assert.False(t, l1.Equal(l3))
}

func TestValueRawAndString(t *testing.T) {
	assert.Equal(t, "450.5", NumberValue(decimal.RequireFromString("450.50")).Raw())
	assert.Equal(t, "2023-06-15", DateValue(time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)).Raw())
	assert.Equal(t, "", Null().Raw())

	l := ListValue([]Value{TextValue("a"), TextValue("b")})
	assert.Equal(t, "a, b", l.String())
	assert.Equal(t, "a", l.Raw())
}

func TestValueAsNumberCoercesText(t *testing.T) {
	v := TextValue("1.250,50 €")
	n, ok := v.AsNumber()
	require.True(t, ok)
	assert.Equal(t, "1250.5", n.String())

	_, ok = TextValue("n/a").AsNumber()
	assert.False(t, ok)

	_, ok = Null().AsNumber()
	assert.False(t, ok)
}
