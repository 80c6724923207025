package nhwc

import (
	"testing"

	_ "github.com/gomlx/gomlx/backends/simplego"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

func TestConverterBookkeeping(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "bookkeeping")
	c := NewConverter(backend, g)

	in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 2, 2))
	x := Const(g, [][]float32{{1, 2}, {3, 4}})
	c.BindInput(in, x)

	out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 2, 2))
	c.Translate(&ir.Node{
		Op:      "Identity",
		Name:    "id0",
		Inputs:  []*ir.Operand{in},
		Outputs: []*ir.Operand{out},
	})

	rec := c.Record("y")
	require.NotNil(t, rec)
	assert.Equal(t, "Identity", rec.OpType)
	assert.Equal(t, []int{2, 2}, rec.Shape.Dimensions)
	assert.Same(t, rec.Node, c.Output("y"))

	inputRec := c.Record("x")
	require.NotNil(t, inputRec)
	assert.Equal(t, "Input", inputRec.OpType)

	assert.Nil(t, c.Record("never-translated"))
	require.Panics(t, func() { c.Output("never-translated") })
}

func TestConverterDuplicateOutputPanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "duplicates")
	c := NewConverter(backend, g)

	in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 2))
	c.BindInput(in, Const(g, []float32{1, 2}))

	out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 2))
	node := &ir.Node{
		Op:      "Identity",
		Name:    "id0",
		Inputs:  []*ir.Operand{in},
		Outputs: []*ir.Operand{out},
	}
	c.Translate(node)
	require.Panics(t, func() { c.Translate(node) })

	// Rebinding an input name is the same violation.
	require.Panics(t, func() { c.BindInput(in, Const(g, []float32{3, 4})) })
}

func TestConverterUnsupportedOpPanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "unsupported")
	c := NewConverter(backend, g)

	in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 2))
	c.BindInput(in, Const(g, []float32{1, 2}))
	out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 2))

	require.Panics(t, func() {
		c.Translate(&ir.Node{
			Op:      "Conv",
			Name:    "conv0",
			Inputs:  []*ir.Operand{in},
			Outputs: []*ir.Operand{out},
		})
	})
}

func TestConverterMissingInputPanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "missing-input")
	c := NewConverter(backend, g)

	in := ir.NewVariable("never-bound", ir.MakeDynamicShape(dtypes.Float32, 2))
	out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 2))
	require.Panics(t, func() {
		c.Translate(&ir.Node{
			Op:      "Identity",
			Name:    "id0",
			Inputs:  []*ir.Operand{in},
			Outputs: []*ir.Operand{out},
		})
	})
}

func TestBindInputRejectsConstant(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "bind-constant")
	c := NewConverter(backend, g)

	operand := ir.NewConstant("w", tensors.FromValue([]float32{1}))
	require.Panics(t, func() { c.BindInput(operand, Const(g, []float32{1})) })
}
