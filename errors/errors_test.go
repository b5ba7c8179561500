package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelClassification(t *testing.T) {
	err := Wrap(ErrSchema, "attribute 'Purchase Date' not found")

	assert.True(t, IsSchemaError(err))
	assert.False(t, IsAuthError(err))
	assert.False(t, IsNotFoundError(err))
}

func TestWrappingPreservesSentinel(t *testing.T) {
	inner := NewInvalidUpdateError("attribute %q not found in schema", "Colour")
	outer := Wrap(inner, "updating asset 1337")

	assert.True(t, IsInvalidUpdateError(outer))
	assert.Contains(t, outer.Error(), "Colour")
	assert.Contains(t, outer.Error(), "updating asset 1337")
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"network", Wrap(ErrNetwork, "dial tcp: timeout"), true},
		{"rate limited", WithStack(ErrRateLimited), true},
		{"auth", Wrap(ErrAuth, "401"), false},
		{"not found", Wrap(ErrAssetNotFound, "object 9"), false},
		{"invalid query", ErrInvalidQuery, false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}
