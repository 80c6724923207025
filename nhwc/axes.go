// Package nhwc translates graph nodes expressed in channel-first layouts
// (NCW, NCHW, NCDHW) into GoMLX ops arranged channel-last (NWC, NHWC,
// NDHWC), compensating the systematic layout difference between the two
// conventions: axis indices of reductions are remapped, constants stored in
// channel-first parameter order are permuted, and pooling paddings are
// recomputed with shape-aware arithmetic.
package nhwc

import (
	"github.com/gomlx/exceptions"
)

// ConvertAxis maps an axis index given in channel-first convention to the
// corresponding axis in channel-last convention, for a tensor of the given
// rank: NCW→NWC, NCHW→NHWC, NCDHW→NDHWC.
//
// Negative axes index from the end, Python style. For rank <= 2 there is no
// layout difference and the normalized axis is returned unchanged.
//
// It panics when the normalized axis is outside [0, rank).
func ConvertAxis(axis, rank int) int {
	converted := axis
	if converted < 0 {
		converted += rank
	}
	if converted < 0 || converted >= rank {
		exceptions.Panicf("ConvertAxis: axis %d is out of range for rank %d", axis, rank)
	}
	if rank <= 2 {
		return converted
	}
	// Channel-first → channel-last remap: the last source axis (the one the
	// channel axis was moved to) goes to position 1, the interior axes shift
	// down by one. E.g. rank 4: [0, 3, 1, 2].
	table := channelsLastPermutation(rank)
	return table[converted]
}

// ConvertAxes maps every axis of a (possibly multi-axis) reduction list with
// ConvertAxis, preserving the input order.
func ConvertAxes(axes []int, rank int) []int {
	converted := make([]int, len(axes))
	for ii, axis := range axes {
		converted[ii] = ConvertAxis(axis, rank)
	}
	return converted
}

// channelsLastPermutation builds the axis table [0, rank-1, 1, 2, ..., rank-2]
// used by ConvertAxis for ranks above 2.
func channelsLastPermutation(rank int) []int {
	table := make([]int, 0, rank)
	table = append(table, 0, rank-1)
	for axis := 1; axis < rank-1; axis++ {
		table = append(table, axis)
	}
	return table
}

// constantPermutation builds the axis permutation applied to materialized
// constants of rank above 2: [0, 2, 3, ..., rank-1, 1]. It is the opposite
// direction from ConvertAxis because constants (e.g. convolution weights)
// are stored in the source framework's channel-first parameter layout, and
// the channel axis must move to the last position.
func constantPermutation(rank int) []int {
	perm := make([]int, 0, rank)
	perm = append(perm, 0)
	for axis := 2; axis < rank; axis++ {
		perm = append(perm, axis)
	}
	perm = append(perm, 1)
	return perm
}
