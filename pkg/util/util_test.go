package util

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDestinationPriority(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"P1", "5"},
		{"P2", "4"},
		{"P5", "1"},
		{"P6", "6"},
		{"P0", "6"},
		{"P7", "5"},
		{"high", "6"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToDestinationPriority(tt.in))
		})
	}
}

func TestToSourcePriority(t *testing.T) {
	assert.Equal(t, "", ToSourcePriority(""))
	assert.Equal(t, "P2", ToSourcePriority("4"))
	assert.Equal(t, "P6", ToSourcePriority("6"))
	assert.Equal(t, "P6", ToSourcePriority("0"))
	assert.Equal(t, "P5", ToSourcePriority("-5"))
}

func TestPriorityRoundTrip(t *testing.T) {
	for p := 1; p <= 6; p++ {
		native := "P" + strconv.Itoa(p)
		assert.Equal(t, native, ToSourcePriority(ToDestinationPriority(native)), "round trip of %s", native)
	}

	// The scale wraps at zero: P0 and P6 share a destination value.
	assert.Equal(t, "P6", ToSourcePriority(ToDestinationPriority("P0")))
}

func TestParsePercent(t *testing.T) {
	assert.InDelta(t, 0.4, ParsePercent("40"), 1e-9)
	assert.InDelta(t, 1.0, ParsePercent("100%"), 1e-9)
	assert.Equal(t, 0.0, ParsePercent("n/a"))
}

func TestSecondsToHours(t *testing.T) {
	h, err := SecondsToHours("7200")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 2, *h)

	h, err = SecondsToHours("5399")
	require.NoError(t, err)
	assert.Equal(t, 1, *h)

	h, err = SecondsToHours("")
	require.NoError(t, err)
	assert.Nil(t, h)

	_, err = SecondsToHours("two hours")
	assert.Error(t, err)
}
