// Package ir defines the in-memory graph representation consumed by the
// layout-converting translators: operator nodes with typed attributes, and
// operands that are either materialized constants or symbolic variables.
//
// The representation mirrors the subset of an ONNX graph the translators
// need, after graph-level parsing (which is out of scope here) has resolved
// initializers and shapes.
package ir

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// Node is one operator instance of the source graph: an operator kind, a
// typed attribute list and ordered input/output operand references.
// Nodes are immutable once built.
type Node struct {
	// Op is the operator kind, e.g. "ReduceMin" or "MaxPool".
	Op string

	// Name uniquely identifies the node within the graph.
	Name string

	Inputs  []*Operand
	Outputs []*Operand

	Attrs []Attribute
}

// String implements fmt.Stringer, and is used on error messages.
func (n *Node) String() string {
	inputs := make([]string, len(n.Inputs))
	for ii, input := range n.Inputs {
		inputs[ii] = input.Name()
	}
	outputs := make([]string, len(n.Outputs))
	for ii, output := range n.Outputs {
		outputs[ii] = output.Name()
	}
	return fmt.Sprintf("%s(name=%q, inputs=%q, outputs=%q)", n.Op, n.Name, inputs, outputs)
}

// OperandKind distinguishes the two variants of Operand.
type OperandKind int

const (
	// KindConstant marks an operand with a materialized value.
	KindConstant OperandKind = iota

	// KindVariable marks a named symbolic reference to the output of
	// another node, bound to a value only during execution.
	KindVariable
)

// String implements fmt.Stringer.
func (k OperandKind) String() string {
	switch k {
	case KindConstant:
		return "Constant"
	case KindVariable:
		return "Variable"
	}
	return fmt.Sprintf("OperandKind(%d)", int(k))
}

// Operand is a closed two-variant union: a Constant carrying an
// N-dimensional value, or a Variable carrying only name, shape and dtype.
// Variables are uniquely named within the graph; the name is the join key
// into the translation pass' bookkeeping map.
type Operand struct {
	kind  OperandKind
	name  string
	value *tensors.Tensor
	shape DynamicShape
}

// NewConstant creates a constant operand from a materialized tensor.
func NewConstant(name string, value *tensors.Tensor) *Operand {
	if value == nil {
		exceptions.Panicf("ir.NewConstant(%q): nil tensor", name)
	}
	return &Operand{
		kind:  KindConstant,
		name:  name,
		value: value,
		shape: DynamicShapeFromConcrete(value.Shape().DType, value.Shape().Dimensions),
	}
}

// NewVariable creates a symbolic operand. Dimensions of shape may be -1 for
// values whose extent is only known at execution time.
func NewVariable(name string, shape DynamicShape) *Operand {
	return &Operand{kind: KindVariable, name: name, shape: shape}
}

// Kind returns which variant this operand is.
func (o *Operand) Kind() OperandKind { return o.kind }

// IsConstant reports whether the operand carries a materialized value.
func (o *Operand) IsConstant() bool { return o.kind == KindConstant }

// Name returns the operand's graph-unique name.
func (o *Operand) Name() string { return o.name }

// Value returns the materialized tensor of a constant operand.
// It panics when called on a variable.
func (o *Operand) Value() *tensors.Tensor {
	if o.kind != KindConstant {
		exceptions.Panicf("ir.Operand %q is a %s, it has no materialized value", o.name, o.kind)
	}
	return o.value
}

// Shape returns the operand's (possibly partially known) shape.
// Constant shapes are always fully defined.
func (o *Operand) Shape() DynamicShape { return o.shape }

// DType returns the operand's element type.
func (o *Operand) DType() dtypes.DType { return o.shape.DType }

// Rank returns the operand's number of axes.
func (o *Operand) Rank() int { return o.shape.Rank() }

// String implements fmt.Stringer.
func (o *Operand) String() string {
	return fmt.Sprintf("%s(%q, %s)", o.kind, o.name, o.shape)
}

// DynamicShape is a shape for which some of the axes may have unknown
// dimensions, denoted as -1. It is the conversion-time view of a tensor
// shape: fully defined shapes take the eager arithmetic paths, partially
// defined ones the deferred (symbolic) paths.
type DynamicShape struct {
	dtypes.DType
	Dimensions []int
}

// MakeDynamicShape builds a DynamicShape from the dtype and dimensions;
// use -1 for dimensions unknown until execution.
func MakeDynamicShape(dtype dtypes.DType, dimensions ...int) DynamicShape {
	return DynamicShape{DType: dtype, Dimensions: dimensions}
}

// DynamicShapeFromConcrete builds a fully-defined DynamicShape.
// It panics if any dimension is negative.
func DynamicShapeFromConcrete(dtype dtypes.DType, dimensions []int) DynamicShape {
	for axis, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("concrete shape with negative dimension %d for axis #%d", dim, axis)
		}
	}
	return DynamicShape{DType: dtype, Dimensions: dimensions}
}

// Rank returns the DynamicShape's rank.
func (s DynamicShape) Rank() int { return len(s.Dimensions) }

// IsFullyDefined reports whether every dimension is known.
func (s DynamicShape) IsFullyDefined() bool {
	for _, dim := range s.Dimensions {
		if dim < 0 {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (s DynamicShape) String() string {
	if len(s.Dimensions) == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, len(s.Dimensions))
	for ii, dim := range s.Dimensions {
		if dim < 0 {
			parts[ii] = "?"
		} else {
			parts[ii] = fmt.Sprintf("%d", dim)
		}
	}
	return fmt.Sprintf("(%s) [%s]", s.DType, strings.Join(parts, ", "))
}
