package nhwc

import (
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

// ResolveOperand performs the constant-or-variable resolution step for one
// node input.
//
// Constants are returned materialized, with their axes already permuted to
// channel-last storage when rank > 2 (see constantPermutation); rank <= 2
// constants are returned as-is. Variables are returned unchanged: the caller
// must look them up in the bookkeeping map by name to obtain the node
// computing them.
//
// Exactly one of the two results is non-nil.
func ResolveOperand(backend backends.Backend, operand *ir.Operand) (*tensors.Tensor, *ir.Operand) {
	if !operand.IsConstant() {
		return nil, operand
	}
	value := operand.Value()
	if value.Rank() <= 2 {
		return value, nil
	}
	perm := constantPermutation(value.Rank())
	permuted := MustExecOnce(backend, func(x *Node) *Node {
		return TransposeAllAxes(x, perm...)
	}, value)
	permuted.ToLocal()
	return permuted, nil
}
