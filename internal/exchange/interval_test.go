package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1m", time.Minute},
		{"3m", 3 * time.Minute},
		{"4H", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterval(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "m", "0m", "-1h", "5x", "abc"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func TestIntervalMinutes(t *testing.T) {
	for in, want := range map[string]string{"5m": "5", "1h": "60", "4h": "240", "1d": "1440", "15": "15"} {
		got, err := IntervalMinutes(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestCloseTimeFor(t *testing.T) {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, open.Add(3*time.Minute-time.Millisecond), CloseTimeFor(open, 3*time.Minute))
}
