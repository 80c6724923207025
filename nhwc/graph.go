package nhwc

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"k8s.io/klog/v2"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

// LayerRecord is the bookkeeping entry kept per translated value: the source
// operation that produced it, the declared result shape and dtype, and the
// GoMLX node computing it.
type LayerRecord struct {
	OpType string
	Shape  ir.DynamicShape
	Node   *Node
}

// Converter translates channel-first source nodes into channel-last GoMLX
// ops on a single graph. Inputs are bound with BindInput, nodes are
// translated in topological order with Translate, and results are read back
// with Output.
//
// As in GoMLX graph building (symbolic) functions, it panics (throws
// exceptions) in case of errors.
type Converter struct {
	backend backends.Backend
	g       *Graph
	records map[string]*LayerRecord

	// ArgMaxIndicesInt64 / ArgMaxIndicesFloat32 force the final dtype of
	// translated ArgMax nodes; at most one should be set.
	ArgMaxIndicesInt64   bool
	ArgMaxIndicesFloat32 bool

	// ArgMaxEpsilon is the tolerance of the max-reduction argmax for floating
	// inputs. Zero means the default, 1e-6.
	ArgMaxEpsilon float64
}

// NewConverter creates a Converter building onto the given graph. The
// backend is used to evaluate constant sub-expressions (constant layout
// permutations, deferred padding amounts) outside the graph being built.
func NewConverter(backend backends.Backend, g *Graph) *Converter {
	return &Converter{
		backend: backend,
		g:       g,
		records: make(map[string]*LayerRecord),
	}
}

// Graph returns the graph being built.
func (c *Converter) Graph() *Graph { return c.g }

// BindInput registers the graph node feeding a variable operand, typically a
// graph parameter. It panics if the operand is a constant or the name is
// already bound.
func (c *Converter) BindInput(operand *ir.Operand, node *Node) {
	if operand.IsConstant() {
		exceptions.Panicf("BindInput: operand %q is a constant, not a graph input", operand.Name())
	}
	c.registerOutput(operand.Name(), "Input", operand.Shape(), node)
}

// Output returns the node computing the named value. It panics when the name
// was never translated.
func (c *Converter) Output(name string) *Node {
	return c.record(name).Node
}

// Record returns the full bookkeeping entry for the named value, or nil when
// the name was never translated.
func (c *Converter) Record(name string) *LayerRecord {
	return c.records[name]
}

// Translate translates the given nodes, in order. Callers must present nodes
// topologically sorted: every variable input must be either bound with
// BindInput or the output of an earlier node.
func (c *Converter) Translate(nodes ...*ir.Node) {
	for _, node := range nodes {
		c.translateNode(node)
	}
}

// translateNode dispatches one node to its op translator and registers the
// result under the node's output name.
func (c *Converter) translateNode(node *ir.Node) {
	if klog.V(1).Enabled() {
		klog.Infof("translating %s", node)
	}
	var result *Node
	switch node.Op {
	case "ReduceMin":
		result = c.translateReduce(node, ReduceMin)
	case "ReduceMax":
		result = c.translateReduce(node, ReduceMax)
	case "ReduceSum":
		result = c.translateReduce(node, ReduceSum)
	case "ReduceProd":
		result = c.translateReduce(node, ReduceMultiply)
	case "ReduceMean":
		result = c.translateReduce(node, ReduceMean)
	case "MaxPool":
		result = c.translateMaxPool(node)
	case "AveragePool":
		result = c.translateAveragePool(node)
	case "ArgMax":
		result = c.translateArgMax(node)
	case "Asin":
		result = AlternativeAsin(c.inputNode(node.Inputs[0]))
	case "Acos":
		result = AlternativeAcos(c.inputNode(node.Inputs[0]))
	case "Identity":
		result = Identity(c.inputNode(node.Inputs[0]))
	default:
		exceptions.Panicf("unsupported operation %q in node %s", node.Op, node)
	}
	output := node.Outputs[0]
	c.registerOutput(output.Name(), node.Op, output.Shape(), result)
}

// registerOutput records the node computing a named value. Each name is
// registered exactly once: a second registration means the source graph has
// duplicate output names and the translation must not silently overwrite.
func (c *Converter) registerOutput(name, opType string, shape ir.DynamicShape, node *Node) {
	if _, found := c.records[name]; found {
		exceptions.Panicf("output %q registered twice (second time by a %s operation)", name, opType)
	}
	c.records[name] = &LayerRecord{
		OpType: opType,
		Shape:  shape,
		Node:   node,
	}
}

// record is the panicking lookup used during translation, where a missing
// name means the caller broke the topological-order contract.
func (c *Converter) record(name string) *LayerRecord {
	rec, found := c.records[name]
	if !found {
		exceptions.Panicf("value %q has not been translated: inputs must be bound with BindInput and nodes translated in topological order", name)
	}
	return rec
}

// inputNode resolves one operand to the graph node feeding the op being
// translated: constants are materialized (layout-permuted when rank > 2) and
// embedded in the graph, variables are looked up in the bookkeeping map.
func (c *Converter) inputNode(operand *ir.Operand) *Node {
	value, variable := ResolveOperand(c.backend, operand)
	if variable != nil {
		return c.record(variable.Name()).Node
	}
	return Const(c.g, value)
}

// tensorToInts converts elements of the tensor to a slice of ints.
func tensorToInts(t *tensors.Tensor) []int {
	res := make([]int, t.Size())
	intType := reflect.TypeOf(int(0))
	t.ConstFlatData(func(flat any) {
		valueOf := reflect.ValueOf(flat)
		for ii := range valueOf.Len() {
			elemV := valueOf.Index(ii)
			res[ii] = elemV.Convert(intType).Interface().(int)
		}
	})
	return res
}
