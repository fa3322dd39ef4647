package store

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for release timestamps stored as text.
var releaseTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// releaseTime scans release timestamps from drivers that return either
// time.Time, text, or unix seconds.
type releaseTime struct {
	Time time.Time
}

func (t *releaseTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported release timestamp type %T", src)
	}
}

func (t *releaseTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range releaseTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse release timestamp %q", s)
}
