package mape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPortRanges(t *testing.T) {
	ranges := defaultPortRanges(0x05)
	require.Len(t, ranges, 15)
	for i, r := range ranges {
		require.Equal(t, uint16(15), r.End-r.Start)
		require.GreaterOrEqual(t, r.Start, uint16(0x1000))
		require.Equal(t, uint16(i+1)<<12|0x50, r.Start)
		if i > 0 {
			require.Greater(t, r.Start, ranges[i-1].End)
		}
	}

	// PSID 0 still stays clear of the well-known block.
	require.Equal(t, PortRange{0x1000, 0x100f}, defaultPortRanges(0)[0])
	// Highest PSID must not run into the next 4096-port block.
	require.Equal(t, PortRange{0x1ff0, 0x1fff}, defaultPortRanges(0xff)[0])
}

func TestExcludePort(t *testing.T) {
	p := &Params{PortRanges: defaultPortRanges(0x05)}

	// Start of the first range shrinks it, no split.
	require.Nil(t, p.ExcludePort(4176))
	require.Equal(t, PortRange{4177, 4191}, p.PortRanges[0])
	require.Len(t, p.PortRanges, 15)

	// Interior port splits the range in place.
	require.Nil(t, p.ExcludePort(4184))
	require.Equal(t, PortRange{4177, 4183}, p.PortRanges[0])
	require.Equal(t, PortRange{4185, 4191}, p.PortRanges[1])
	require.Equal(t, PortRange{8272, 8287}, p.PortRanges[2])
	require.Len(t, p.PortRanges, 16)

	// Excluding the same port again is an error and changes nothing.
	before := append([]PortRange{}, p.PortRanges...)
	require.ErrorIs(t, p.ExcludePort(4184), ErrPortNotInRange)
	require.Equal(t, before, p.PortRanges)

	// End of a range.
	require.Nil(t, p.ExcludePort(4191))
	require.Equal(t, PortRange{4185, 4190}, p.PortRanges[1])

	// Never in any range.
	require.ErrorIs(t, p.ExcludePort(100), ErrPortNotInRange)
	require.ErrorIs(t, p.ExcludePort(0x1000), ErrPortNotInRange)
}

func TestExcludePortSplitReconstructs(t *testing.T) {
	ranges := defaultPortRanges(0x05)
	orig := ranges[3]
	port := orig.Start + 7

	out, changed := excludePort(ranges, port)
	require.True(t, changed)
	require.Len(t, out, 16)
	left, right := out[3], out[4]
	require.Equal(t, orig.Start, left.Start)
	require.Equal(t, port-1, left.End)
	require.Equal(t, port+1, right.Start)
	require.Equal(t, orig.End, right.End)
}

func TestExcludePortCollapse(t *testing.T) {
	// A width-1 range disappears entirely.
	out, changed := excludePort([]PortRange{{10, 10}, {20, 21}}, 10)
	require.True(t, changed)
	require.Equal(t, []PortRange{{20, 21}}, out)

	// Chipping away at a 2-wide range degenerates it, then removes it.
	out, changed = excludePort(out, 20)
	require.True(t, changed)
	require.Equal(t, []PortRange{{21, 21}}, out)
	out, changed = excludePort(out, 21)
	require.True(t, changed)
	require.Empty(t, out)

	_, changed = excludePort(out, 21)
	require.False(t, changed)
}
