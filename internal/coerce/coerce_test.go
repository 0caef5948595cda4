package coerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	v, err := Float("13.649")
	require.NoError(t, err)
	assert.Equal(t, 13.649, v)

	v, err = Float(" 380.0 ")
	require.NoError(t, err)
	assert.Equal(t, 380.0, v)

	for _, raw := range []string{"", "abc", "12.3V", "1.2.3"} {
		_, err := Float(raw)
		assert.ErrorIs(t, err, ErrMalformedValue, "Float(%q)", raw)
	}
}

func TestInt(t *testing.T) {
	v, err := Int("-1")
	require.NoError(t, err)
	assert.Equal(t, -1, v)

	for _, raw := range []string{"", "1.5", "seven"} {
		_, err := Int(raw)
		assert.ErrorIs(t, err, ErrMalformedValue, "Int(%q)", raw)
	}
}

func TestBool(t *testing.T) {
	trues := []string{"y", "Yes", "t", "TRUE", "on", "1", "-1"}
	for _, raw := range trues {
		v, err := Bool(raw)
		require.NoError(t, err, "Bool(%q)", raw)
		assert.True(t, v, "Bool(%q)", raw)
	}
	falses := []string{"n", "No", "f", "FALSE", "off", "0"}
	for _, raw := range falses {
		v, err := Bool(raw)
		require.NoError(t, err, "Bool(%q)", raw)
		assert.False(t, v, "Bool(%q)", raw)
	}
	_, err := Bool("maybe")
	assert.ErrorIs(t, err, ErrMalformedValue)
}

func TestDurationNormalization(t *testing.T) {
	min12, err := Duration("12min")
	require.NoError(t, err)
	sec720, err := Duration("720sec")
	require.NoError(t, err)
	assert.Equal(t, min12, sec720)
	assert.Equal(t, 12*time.Minute, min12)

	ms, err := Duration("500ms")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, ms)

	// A bare magnitude is in minutes.
	bare, err := Duration("13.561")
	require.NoError(t, err)
	assert.InDelta(t, 13.561, bare.Minutes(), 1e-9)

	halfSec, err := Duration("0.5sec")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, halfSec)
}

func TestDurationErrors(t *testing.T) {
	_, err := Duration("-1sec")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Duration("5fortnights")
	assert.ErrorIs(t, err, ErrUnknownUnit)

	for _, raw := range []string{"", "min", "twelve min"} {
		_, err = Duration(raw)
		assert.ErrorIs(t, err, ErrMalformedValue, "Duration(%q)", raw)
	}
}

func TestTimestamp(t *testing.T) {
	want := time.Date(2020, 7, 8, 14, 5, 43, 0, time.FixedZone("", 60*60))

	for _, raw := range []string{
		"2020-07-08T14:05:43+01:00",
		"2020-07-08T14:05:43+0100",
	} {
		ts, err := Timestamp(raw)
		require.NoError(t, err, "Timestamp(%q)", raw)
		assert.True(t, ts.Equal(want), "Timestamp(%q) = %v", raw, ts)
	}

	// Not-yet-acquired jobs have an empty timestamp.
	ts, err := Timestamp("")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Unix(0, 0)))

	_, err = Timestamp("08/07/2020 14:05")
	assert.ErrorIs(t, err, ErrMalformedValue)
}
