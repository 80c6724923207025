package nhwc

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

func TestResolveOperandVariable(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	operand := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, -1, 3, 3, 8))
	value, variable := ResolveOperand(backend, operand)
	require.Nil(t, value)
	assert.Same(t, operand, variable)
}

func TestResolveOperandLowRankConstant(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// Rank <= 2 constants keep their storage order.
	tensor := tensors.FromValue([][]float32{{1, 2}, {3, 4}})
	value, variable := ResolveOperand(backend, ir.NewConstant("w", tensor))
	require.Nil(t, variable)
	assert.Same(t, tensor, value)

	scalar := tensors.FromValue(float32(7))
	value, _ = ResolveOperand(backend, ir.NewConstant("s", scalar))
	assert.Same(t, scalar, value)
}

func TestResolveOperandPermutesConstant(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// A rank-4 constant stored channel-first [batch, channel, h, w] comes
	// back with the channel axis last: out[b,h,w,c] = in[b,c,h,w].
	tensor := tensors.FromFlatDataAndDimensions(
		[]float32{0, 1, 2, 3, 4, 5, 6, 7}, 1, 2, 2, 2)
	value, variable := ResolveOperand(backend, ir.NewConstant("w", tensor))
	require.Nil(t, variable)
	assert.Equal(t, []int{1, 2, 2, 2}, value.Shape().Dimensions)
	assert.Equal(t,
		[][][][]float32{{
			{{0, 4}, {1, 5}},
			{{2, 6}, {3, 7}},
		}},
		value.Value())

	// Rank 3: [batch, channel, w] -> [batch, w, channel].
	tensor = tensors.FromFlatDataAndDimensions(
		[]float32{0, 1, 2, 3, 4, 5}, 1, 2, 3)
	value, _ = ResolveOperand(backend, ir.NewConstant("w3", tensor))
	assert.Equal(t, []int{1, 3, 2}, value.Shape().Dimensions)
	assert.Equal(t,
		[][][]float32{{
			{0, 3}, {1, 4}, {2, 5},
		}},
		value.Value())
}
