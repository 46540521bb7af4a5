package sr

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// DefaultShardsPrefix is prepended to the root account to form the
// account that holds shard containers.
const DefaultShardsPrefix = ".shards_"

// MakeName derives the name of a shard container from the root
// container path, the parent container, the timestamp of the split
// generation and the range index. The parent digest keeps names of
// shards found for different parents from colliding.
func MakeName(shardsAccount, rootContainer, parentContainer string, ts Timestamp, index int) string {
	h1, h2 := murmur3.Sum128([]byte(parentContainer))
	return fmt.Sprintf("%s/%s-%016x%016x-%s-%d",
		shardsAccount, rootContainer, h1, h2, ts, index)
}

// ShardsAccount returns the account in which shard containers of the
// given root account live.
func ShardsAccount(prefix, rootAccount string) string {
	return prefix + rootAccount
}

// IsShardAccount reports whether the account name carries the shards
// prefix, i.e. the container is itself a shard of some root container.
func IsShardAccount(prefix, account string) bool {
	return strings.HasPrefix(account, prefix)
}
