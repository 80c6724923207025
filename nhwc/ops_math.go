package nhwc

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

// translateArgMax translates an ArgMax node through the max-reduction argmax
// construction, with the axis remapped to channel-last convention.
//
// Indices come out as int64 unless the converter's ArgMaxIndicesFloat32 knob
// asks for float32 (for targets without int64 support). The internal
// arithmetic always runs in float32.
func (c *Converter) translateArgMax(node *ir.Node) *Node {
	if node.BoolAttrOr("select_last_index", false) {
		exceptions.Panicf("%s: support for attribute 'select_last_index' is not yet implemented", node)
	}
	if c.ArgMaxIndicesInt64 && c.ArgMaxIndicesFloat32 {
		exceptions.Panicf("at most one of ArgMaxIndicesInt64 and ArgMaxIndicesFloat32 may be set")
	}
	operand := node.Inputs[0]
	axis := node.IntAttrOr("axis", 0)
	axis = ConvertAxis(axis, operand.Rank())
	keepDims := node.BoolAttrOr("keepdims", true)

	x := c.inputNode(operand)
	castFloat32 := c.ArgMaxIndicesFloat32
	castInt64 := c.ArgMaxIndicesInt64 || !castFloat32
	return AlternativeArgMax(x, axis, dtypes.Float32, keepDims, c.ArgMaxEpsilon, castInt64, castFloat32)
}
