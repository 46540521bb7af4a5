package sharding

import (
	"fmt"
	"strings"

	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
)

// CheckRanges collects every way in which the candidate ranges fail to
// exactly cover the own range's namespace: empty list, outer bound
// mismatches and gaps or overlaps between adjacent ranges. All
// violations are reported together so an operator sees the full
// picture in one pass.
func CheckRanges(own *sr.ShardRange, ranges []*sr.ShardRange) []string {
	var reasons []string
	reason := func(x, y string) {
		if x != y {
			reasons = append(reasons, fmt.Sprintf("%q != %q", x, y))
		}
	}

	if len(ranges) == 0 {
		reasons = append(reasons, "no shard ranges")
		return reasons
	}
	reason(own.Lower, ranges[0].Lower)
	reason(own.Upper, ranges[len(ranges)-1].Upper)
	for i := 0; i+1 < len(ranges); i++ {
		reason(ranges[i].Upper, ranges[i+1].Lower)
	}
	return reasons
}

// ValidateRanges is CheckRanges folded into a consistency error. It
// must pass before new ranges are persisted and before sharding is
// enabled.
func ValidateRanges(own *sr.ShardRange, ranges []*sr.ShardRange) error {
	if reasons := CheckRanges(own, ranges); len(reasons) > 0 {
		return shrderror.Newf(shrderror.SHRD_CONSISTENCY,
			"invalid shard ranges: %s", strings.Join(reasons, "; "))
	}
	return nil
}

// FindOverlapping returns groups of ranges whose namespaces intersect.
// The input must be ordered by lower bound. Ranges mid-shrink are
// expected to overlap their acceptor and should be filtered out by the
// caller before the scan.
func FindOverlapping(ranges []*sr.ShardRange) [][]*sr.ShardRange {
	var groups [][]*sr.ShardRange
	var group []*sr.ShardRange
	maxUpper := ""
	for _, rng := range ranges {
		if len(group) > 0 && (maxUpper == "" || rng.Lower < maxUpper) {
			group = append(group, rng)
		} else {
			if len(group) > 1 {
				groups = append(groups, group)
			}
			group = []*sr.ShardRange{rng}
		}
		if len(group) == 1 || sr.UpperBefore(maxUpper, rng.Upper) {
			maxUpper = rng.Upper
		}
	}
	if len(group) > 1 {
		groups = append(groups, group)
	}
	return groups
}
