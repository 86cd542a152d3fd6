package utils

import (
	"fmt"
	"time"
)

// KMATimeLayout is the yyyyMMddHHmm layout used by KMA request parameters.
const KMATimeLayout = "200601021504"

// Seoul is Asia/Seoul, falling back to a fixed +09:00 zone when tzdata is unavailable.
var Seoul = loadSeoul()

func loadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// FormatKMATime renders t in Seoul local time as yyyyMMddHHmm.
func FormatKMATime(t time.Time) string {
	return t.In(Seoul).Format(KMATimeLayout)
}

// ParseKMATime parses a yyyyMMddHHmm string in Seoul local time.
func ParseKMATime(tm string) (time.Time, error) {
	t, err := time.ParseInLocation(KMATimeLayout, tm, Seoul)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid KMA time %q: %w", tm, err)
	}
	return t, nil
}

// ParseLocalDateTime accepts RFC3339 instants or offset-less ISO datetimes,
// the latter interpreted in Seoul local time.
func ParseLocalDateTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, Seoul); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", value)
}
