package point

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimeParam accepts unix seconds or RFC3339 and returns unix seconds.
// An empty value yields def.
func ParseTimeParam(value string, def int64) (int64, error) {
	if value == "" {
		return def, nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return secs, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected unix seconds or RFC3339", value)
	}
	return t.Unix(), nil
}

// ParseRange reads an inclusive [start, end] window, defaulting to everything
// up to now.
func ParseRange(startRaw, endRaw string) (int64, int64, error) {
	start, err := ParseTimeParam(startRaw, 0)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimeParam(endRaw, time.Now().Unix())
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("end_at must not be before start_at")
	}
	return start, end, nil
}
