package sharding_test

import (
	"testing"

	"github.com/shard-ranges/shrd/pkg/models/shrderror"
	"github.com/shard-ranges/shrd/pkg/models/sr"
	"github.com/shard-ranges/shrd/pkg/sharding"
	"github.com/stretchr/testify/assert"
)

func mkRange(name, lower, upper string) *sr.ShardRange {
	return &sr.ShardRange{Name: name, Lower: lower, Upper: upper}
}

func TestCheckRanges(t *testing.T) {
	own := mkRange("a/c", "", "")

	for _, tt := range []struct {
		name    string
		ranges  []*sr.ShardRange
		reasons []string
	}{
		{
			name:    "empty",
			ranges:  nil,
			reasons: []string{"no shard ranges"},
		},
		{
			name: "exact cover",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", "m"),
				mkRange("s1", "m", ""),
			},
			reasons: nil,
		},
		{
			name: "first lower does not reach own lower",
			ranges: []*sr.ShardRange{
				mkRange("s0", "b", "m"),
				mkRange("s1", "m", ""),
			},
			reasons: []string{`"" != "b"`},
		},
		{
			name: "last upper does not reach own upper",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", "m"),
				mkRange("s1", "m", "x"),
			},
			reasons: []string{`"" != "x"`},
		},
		{
			name: "gap between adjacent ranges",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", "f"),
				mkRange("s1", "m", ""),
			},
			reasons: []string{`"f" != "m"`},
		},
		{
			name: "all violations reported together",
			ranges: []*sr.ShardRange{
				mkRange("s0", "b", "f"),
				mkRange("s1", "m", "x"),
			},
			reasons: []string{`"" != "b"`, `"" != "x"`, `"f" != "m"`},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reasons, sharding.CheckRanges(own, tt.ranges))
		})
	}
}

func TestValidateRangesError(t *testing.T) {
	assert := assert.New(t)

	own := mkRange("a/c", "", "")
	err := sharding.ValidateRanges(own, nil)
	assert.Error(err)
	assert.Equal(shrderror.SHRD_CONSISTENCY, shrderror.CodeOf(err))
	assert.Contains(err.Error(), "no shard ranges")

	err = sharding.ValidateRanges(own, []*sr.ShardRange{
		mkRange("s0", "", "m"),
		mkRange("s1", "m", ""),
	})
	assert.NoError(err)
}

func TestFindOverlapping(t *testing.T) {
	for _, tt := range []struct {
		name   string
		ranges []*sr.ShardRange
		groups [][]string
	}{
		{
			name: "contiguous cover has no overlaps",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", "f"),
				mkRange("s1", "f", "m"),
				mkRange("s2", "m", ""),
			},
			groups: nil,
		},
		{
			name: "pair overlap",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", "m"),
				mkRange("s1", "f", ""),
			},
			groups: [][]string{{"s0", "s1"}},
		},
		{
			name: "contained range overlaps its container",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", ""),
				mkRange("s1", "f", "m"),
			},
			groups: [][]string{{"s0", "s1"}},
		},
		{
			name: "two separate groups",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", "f"),
				mkRange("s1", "c", "f"),
				mkRange("s2", "f", "m"),
				mkRange("s3", "m", ""),
				mkRange("s4", "t", ""),
			},
			groups: [][]string{{"s0", "s1"}, {"s3", "s4"}},
		},
		{
			name: "gap is not an overlap",
			ranges: []*sr.ShardRange{
				mkRange("s0", "", "f"),
				mkRange("s1", "m", ""),
			},
			groups: nil,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			found := sharding.FindOverlapping(tt.ranges)
			var names [][]string
			for _, group := range found {
				var g []string
				for _, rng := range group {
					g = append(g, rng.Name)
				}
				names = append(names, g)
			}
			assert.Equal(t, tt.groups, names)
		})
	}
}
