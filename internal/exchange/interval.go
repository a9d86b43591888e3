package exchange

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseInterval converts interval strings like "3m", "1h", "1d" or "1w" to a duration
func ParseInterval(interval string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(interval))
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}

	switch s[len(s)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid interval unit in %q", interval)
	}
}

// IntervalMinutes converts an interval to its length in minutes, "5m" -> "5", "1h" -> "60".
// A bare number is returned unchanged.
func IntervalMinutes(interval string) (string, error) {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval, nil
	}
	d, err := ParseInterval(interval)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(d / time.Minute)), nil
}

// CloseTimeFor returns the close time of a candle opened at openTime, one
// millisecond before the next candle opens
func CloseTimeFor(openTime time.Time, interval time.Duration) time.Time {
	return openTime.Add(interval - time.Millisecond)
}
