package reconmem

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timeLayout sorts lexically, so filters like `last_seen > '2024-01-01'` work on the stored text.
const timeLayout = "2006-01-02 15:04:05.999999999"

// Time is a UTC timestamp stored as text.
type Time struct {
	time.Time
}

// At wraps t, normalised to UTC.
func At(t time.Time) Time {
	return Time{Time: t.UTC()}
}

// TimeRef is At returning a pointer, handy for optional fields.
func TimeRef(t time.Time) *Time {
	v := At(t)
	return &v
}

func (t Time) Value() (driver.Value, error) {
	return t.UTC().Format(timeLayout), nil
}

func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Time", src)
	}
}

func (t *Time) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse time %q", s)
}
