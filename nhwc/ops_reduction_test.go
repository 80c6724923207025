package nhwc

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

// reduceNode builds a reduction node from a variable input to a single
// output, with the given attributes.
func reduceNode(op string, input, output *ir.Operand, attrs ...ir.Attribute) *ir.Node {
	return &ir.Node{
		Op:      op,
		Name:    op + "_test",
		Inputs:  []*ir.Operand{input},
		Outputs: []*ir.Operand{output},
		Attrs:   attrs,
	}
}

func TestTranslateReduceMin(t *testing.T) {
	// Rank-4 input, channel-first axes=[-1]: the last channel-first axis is
	// the rightmost spatial one, which lives at position 2 of the
	// channel-last value.
	graphtest.RunTestGraphFn(t, "ReduceMin-rank4-last-axis-keepdims", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][][][]float32{{
			{{1, 2}, {3, 4}},
			{{8, 6}, {7, 5}},
		}})
		in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 1, 2, 2, 2))
		out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 1, 2, 1, 2))

		c := NewConverter(g.Backend(), g)
		c.BindInput(in, x)
		c.Translate(reduceNode("ReduceMin", in, out,
			ir.IntsAttr("axes", -1),
			ir.IntAttr("keepdims", 1)))

		inputs = []*Node{x}
		outputs = []*Node{c.Output("y")}
		return
	}, []any{
		[][][][]float32{{
			{{1, 2}},
			{{7, 5}},
		}},
	}, -1)

	// Multi-axis reduction over both spatial axes (channel-first axes 2 and
	// 3 remap to channel-last 1 and 2), keepdims on: per-channel minimum over
	// the whole spatial extent.
	graphtest.RunTestGraphFn(t, "ReduceMin-rank4-multi-axis-keepdims", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][][][]float32{{
			{{1, 8}, {5, 6}},
			{{7, 2}, {3, 4}},
		}})
		in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 1, 2, 2, 2))
		out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 1, 1, 1, 2))

		c := NewConverter(g.Backend(), g)
		c.BindInput(in, x)
		c.Translate(reduceNode("ReduceMin", in, out,
			ir.IntsAttr("axes", 2, 3),
			ir.IntAttr("keepdims", 1)))

		inputs = []*Node{x}
		outputs = []*Node{c.Output("y")}
		return
	}, []any{
		[][][][]float32{{{{1, 2}}}},
	}, -1)

	// Same axes with keepdims off: the axes are applied one at a time, as
	// converted, without re-normalizing against the squeezed intermediate.
	// After the first reduction removes axis 1, converted axis 2 lands on the
	// channel axis of the intermediate. This pins the literal sequential
	// behavior.
	graphtest.RunTestGraphFn(t, "ReduceMin-rank4-multi-axis-sequential", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][][][]float32{{
			{{1, 8}, {5, 6}},
			{{7, 2}, {3, 4}},
		}})
		in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 1, 2, 2, 2))
		out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 1, 2))

		c := NewConverter(g.Backend(), g)
		c.BindInput(in, x)
		c.Translate(reduceNode("ReduceMin", in, out,
			ir.IntsAttr("axes", 2, 3),
			ir.IntAttr("keepdims", 0)))

		inputs = []*Node{x}
		outputs = []*Node{c.Output("y")}
		return
	}, []any{
		[][]float32{{1, 3}},
	}, -1)

	// Default attributes: axes=[-1], keepdims=true.
	graphtest.RunTestGraphFn(t, "ReduceMin-defaults", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float32{{3, 1}, {2, 4}})
		in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 2, 2))
		out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 2, 1))

		c := NewConverter(g.Backend(), g)
		c.BindInput(in, x)
		c.Translate(reduceNode("ReduceMin", in, out))

		inputs = []*Node{x}
		outputs = []*Node{c.Output("y")}
		return
	}, []any{
		[][]float32{{1}, {2}},
	}, -1)
}

func TestTranslateReduceOps(t *testing.T) {
	// One graph exercising the whole family on the same rank-2 input (no
	// layout remap at rank 2), keepdims off.
	graphtest.RunTestGraphFn(t, "Reduce-family-rank2", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float32{{1, 2}, {3, 4}})
		in := ir.NewVariable("x", ir.MakeDynamicShape(dtypes.Float32, 2, 2))

		c := NewConverter(g.Backend(), g)
		c.BindInput(in, x)
		for _, op := range []string{"ReduceMax", "ReduceSum", "ReduceProd", "ReduceMean"} {
			out := ir.NewVariable(op+"_out", ir.MakeDynamicShape(dtypes.Float32, 2))
			c.Translate(reduceNode(op, in, out,
				ir.IntsAttr("axes", 0),
				ir.IntAttr("keepdims", 0)))
		}

		inputs = []*Node{x}
		outputs = []*Node{
			c.Output("ReduceMax_out"),
			c.Output("ReduceSum_out"),
			c.Output("ReduceProd_out"),
			c.Output("ReduceMean_out"),
		}
		return
	}, []any{
		[]float32{3, 4},
		[]float32{4, 6},
		[]float32{3, 8},
		[]float32{2, 3},
	}, -1)
}

func TestTranslateReduceConstantInput(t *testing.T) {
	// Constant operands are materialized and embedded; at rank 2 they keep
	// their storage order.
	graphtest.RunTestGraphFn(t, "ReduceMin-constant-input", func(g *Graph) (inputs, outputs []*Node) {
		in := ir.NewConstant("w", tensors.FromValue([][]float32{{5, 1}, {2, 8}}))
		out := ir.NewVariable("y", ir.MakeDynamicShape(dtypes.Float32, 2))

		c := NewConverter(g.Backend(), g)
		c.Translate(reduceNode("ReduceMin", in, out,
			ir.IntsAttr("axes", 1),
			ir.IntAttr("keepdims", 0)))

		outputs = []*Node{c.Output("y")}
		return
	}, []any{
		[]float32{1, 2},
	}, -1)
}
