// Package wire holds the JSON shapes exchanged with the chat backend and
// their conversion to store types.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// secondsCutoff separates epoch seconds from epoch millis. 1e11 seconds is
// in the year 5138; 1e11 millis is in 1973.
const secondsCutoff = 1e11

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// Timestamp is an instant in epoch milliseconds. It decodes from a JSON
// number (seconds or millis), a numeric or date string, or a wrapped
// {"$date": ...} value.
type Timestamp int64

// Time converts to time.Time.
func (t Timestamp) Time() time.Time { return time.UnixMilli(int64(t)) }

// MarshalJSON always writes epoch millis.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(t), 10), nil
}

// UnmarshalJSON normalizes every accepted encoding to epoch millis.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	ms, err := parseTimestamp(b)
	if err != nil {
		return err
	}
	*t = Timestamp(ms)
	return nil
}

func parseTimestamp(b []byte) (int64, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		return parseTimestampString(s)
	case '{':
		var wrapped struct {
			Date       json.RawMessage `json:"$date"`
			NumberLong *string         `json:"$numberLong"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return 0, err
		}
		switch {
		case wrapped.NumberLong != nil:
			return parseTimestampString(*wrapped.NumberLong)
		case wrapped.Date != nil:
			return parseTimestamp(wrapped.Date)
		}
		return 0, fmt.Errorf("timestamp object %s has no $date", b)
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return 0, fmt.Errorf("timestamp %s: %w", b, err)
		}
		return fromEpoch(f)
	}
}

func parseTimestampString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized timestamp %q", s)
}

func fromEpoch(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("timestamp %v out of range", f)
	}
	if f < secondsCutoff {
		f *= 1000
	}
	return int64(f), nil
}
