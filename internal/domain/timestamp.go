package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cli2468/Vision-sub000/internal/calendar"
)

// Timestamp is a time.Time that tolerates bad persisted values: anything it
// cannot read decodes as the zero time instead of failing the whole record.
type Timestamp struct {
	time.Time
	// dateOnly marks a value read from a bare "2006-01-02" string. Its
	// calendar day holds; the zone is settled by Anchor.
	dateOnly bool
}

func At(t time.Time) Timestamp { return Timestamp{Time: t} }

var epoch = time.Unix(0, 0)

// OrEpoch maps an unreadable timestamp to the Unix epoch so it sorts and
// filters as the earliest possible date.
func (t Timestamp) OrEpoch() time.Time {
	if t.IsZero() {
		return epoch
	}
	return t.Time
}

// Anchor puts a date-only value at midnight of the same calendar day in
// loc. Full timestamps are returned unchanged.
func (t Timestamp) Anchor(loc *time.Location) Timestamp {
	if !t.dateOnly || t.IsZero() || loc == nil {
		return t
	}
	y, m, d := t.Date()
	return Timestamp{Time: time.Date(y, m, d, 0, 0, 0, 0, loc)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		// epoch milliseconds
		if ms, err := strconv.ParseFloat(string(data), 64); err == nil && ms > 0 {
			t.Time = time.UnixMilli(int64(ms))
		}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if parsed, err := calendar.ParseLocal(raw, time.Local); err == nil {
		t.Time = parsed
		t.dateOnly = calendar.IsDateOnly(raw)
	}
	return nil
}
