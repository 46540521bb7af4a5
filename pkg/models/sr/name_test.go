package sr_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/stretchr/testify/assert"
)

func TestMakeName(t *testing.T) {
	assert := assert.New(t)

	ts := sr.Timestamp(1525*sr.TicksPerSecond + 34509)
	name := sr.MakeName(".shards_acct", "cont", "cont", ts, 3)

	assert.True(strings.HasPrefix(name, ".shards_acct/cont-"))
	assert.True(strings.HasSuffix(name, fmt.Sprintf("-%s-3", ts)))

	// the hash is derived from the parent container, so two parents
	// under the same root get distinct shard names
	other := sr.MakeName(".shards_acct", "cont", "other", ts, 3)
	assert.NotEqual(name, other)

	// and the derivation is stable
	assert.Equal(name, sr.MakeName(".shards_acct", "cont", "cont", ts, 3))
}

func TestShardsAccount(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(".shards_acct", sr.ShardsAccount(".shards_", "acct"))
	assert.True(sr.IsShardAccount(".shards_", ".shards_acct"))
	assert.False(sr.IsShardAccount(".shards_", "acct"))
}
