package sr_test

import (
	"testing"
	"time"

	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/stretchr/testify/assert"
)

func TestTimestampFormat(t *testing.T) {
	assert := assert.New(t)

	for _, c := range []struct {
		ticks    int64
		expected string
	}{
		{0, "0000000000.00000"},
		{1525*sr.TicksPerSecond + 34509, "0000001525.34509"},
		{1525345093*sr.TicksPerSecond + 22908, "1525345093.22908"},
	} {
		assert.Equal(c.expected, sr.Timestamp(c.ticks).String())
	}
}

func TestTimestampParseRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, s := range []string{
		"0000000000.00000",
		"0000001525.34509",
		"1525345093.22908",
	} {
		ts, err := sr.ParseTimestamp(s)
		assert.NoError(err)
		assert.Equal(s, ts.String())
	}

	_, err := sr.ParseTimestamp("not-a-timestamp")
	assert.Error(err)
}

func TestTimestampOrdering(t *testing.T) {
	assert := assert.New(t)

	earlier := sr.TimestampFromTime(time.Unix(1525345093, 0))
	later := sr.TimestampFromTime(time.Unix(1525345093, 230000000))

	assert.True(later.After(earlier))
	assert.True(earlier.Before(later))
	assert.False(earlier.After(earlier))
	assert.True(sr.Timestamp(0).IsZero())
	assert.False(later.IsZero())
}

func TestTimestampJSON(t *testing.T) {
	assert := assert.New(t)

	ts := sr.Timestamp(1525345093 * sr.TicksPerSecond)
	data, err := ts.MarshalJSON()
	assert.NoError(err)
	assert.Equal(`"1525345093.00000"`, string(data))

	var parsed sr.Timestamp
	assert.NoError(parsed.UnmarshalJSON(data))
	assert.Equal(ts, parsed)
}
