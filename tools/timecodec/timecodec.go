package timecodec

import (
	"fmt"
	"time"
)

// layout is RFC3339 without fractional seconds. It accepts the canonical
// trailing Z as well as an explicit numeric offset, which Parse then
// restricts to +00:00.
const layout = "2006-01-02T15:04:05Z07:00"

// Now returns the current UTC instant truncated to whole seconds.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Format renders t as the canonical form YYYY-MM-DDTHH:MM:SSZ. The output
// always carries the literal Z marker, never +00:00 and never fractional
// seconds, so lexical order of formatted values matches chronological order.
func Format(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(layout)
}

// Parse decodes a canonical timestamp. Accepted inputs are the canonical
// Z form and the equivalent +00:00 form; a missing offset, a non-UTC
// offset, fractional seconds or any other malformation is an error.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	// time.Parse tolerates a fractional-second field the layout never
	// names; the canonical form is whole seconds only.
	if t.Nanosecond() != 0 {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: fractional seconds", s)
	}
	if _, offset := t.Zone(); offset != 0 {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: offset is not UTC", s)
	}
	return t.UTC(), nil
}
