package sr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicksPerSecond is the resolution of a Timestamp: one tick is 10us.
const TicksPerSecond = 100000

// Timestamp is a logical clock value used for last-writer-wins
// reconciliation of shard range records across replicas. It is
// serialized in a fixed-width sortable form, e.g. "0000001525.34509".
type Timestamp int64

func Now() Timestamp {
	return TimestampFromTime(time.Now())
}

func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMicro() / 10)
}

func (t Timestamp) Time() time.Time {
	return time.UnixMicro(int64(t) * 10)
}

func (t Timestamp) IsZero() bool {
	return t == 0
}

func (t Timestamp) After(other Timestamp) bool {
	return t > other
}

func (t Timestamp) Before(other Timestamp) bool {
	return t < other
}

// String renders the fixed-width sortable form: ten integer second
// digits, a dot and five fractional digits.
func (t Timestamp) String() string {
	return fmt.Sprintf("%010d.%05d", int64(t)/TicksPerSecond, int64(t)%TicksPerSecond)
}

func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return 0, nil
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	secs, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed timestamp %q: %v", s, err)
	}
	var ticks int64
	if fracPart != "" {
		// pad or truncate to tick resolution
		for len(fracPart) < 5 {
			fracPart += "0"
		}
		ticks, err = strconv.ParseInt(fracPart[:5], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed timestamp %q: %v", s, err)
		}
	}
	return Timestamp(secs*TicksPerSecond + ticks), nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*t = 0
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
