package models

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var timeWindowRe = regexp.MustCompile(`^(\d+)([smhd])$`)

// Máximo que entra en un time.Duration (~292 años).
const maxWindowSeconds = math.MaxInt64 / int64(time.Second)

var windowUnits = map[string]int64{"s": 1, "m": 60, "h": 3600, "d": 86400}

// TimeWindowToSeconds convierte ventanas como "1s", "5m", "1h" o "1d" a segundos.
// También acepta la sintaxis de time.ParseDuration ("1m30s").
func TimeWindowToSeconds(window string) (int, error) {
	if window == "" {
		return 0, nil
	}

	if m := timeWindowRe.FindStringSubmatch(window); m != nil {
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time window value %q: %w", m[1], err)
		}

		unit := windowUnits[m[2]]
		if value > maxWindowSeconds/unit {
			return 0, fmt.Errorf("time window %s is too large", window)
		}
		return int(value * unit), nil
	}

	if d, err := time.ParseDuration(window); err == nil && d >= 0 {
		return int(d / time.Second), nil
	}

	return 0, fmt.Errorf("invalid time window format: %s. Use format like '1s', '1m', '1h', '1d'", window)
}

// TimeWindow es la versión time.Duration de TimeWindowToSeconds.
func TimeWindow(window string) (time.Duration, error) {
	seconds, err := TimeWindowToSeconds(window)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
