package domain

import "time"

// StampLayout is the persisted timestamp format (year-month-day_hour:minute).
const StampLayout = "2006-01-02_15:04"

func FormatStamp(t time.Time) string {
	return t.Format(StampLayout)
}

// ParseStamp parses a persisted timestamp in the local time zone.
func ParseStamp(s string) (time.Time, error) {
	return time.ParseInLocation(StampLayout, s, time.Local)
}

// FormatStampPtr returns nil for a nil time.
func FormatStampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatStamp(*t)
	return &s
}

// ParseStampPtr returns nil for a nil or empty string.
func ParseStampPtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := ParseStamp(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
