package nhwc

import (
	"math"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gopjrt/dtypes"
	"k8s.io/klog/v2"
)

// This file implements the pooling padding arithmetic: the same algorithm is
// written once against the padArithmetic table and instantiated for an eager
// backend (spatial shape known at conversion time) and a symbolic backend
// (spatial shape only available as a graph value). Both backends produce
// bit-identical integer results for identical concrete inputs.

// PadMode is the padding specification of a pooling node: either an explicit
// per-axis begin/end list or a symmetric auto-padding mode string.
type PadMode struct {
	explicit []int
	auto     string
}

// ExplicitPads builds a PadMode from an explicit padding list in
// [begin_0...begin_n-1, end_0...end_n-1] order (the source convention).
func ExplicitPads(pads []int) PadMode {
	return PadMode{explicit: pads}
}

// AutoPad builds a PadMode from a symmetric mode string, e.g. "SAME_UPPER",
// "SAME_LOWER" or "VALID".
func AutoPad(mode string) PadMode {
	return PadMode{auto: mode}
}

// IsExplicit reports whether the mode carries an explicit padding list.
func (m PadMode) IsExplicit() bool { return m.explicit != nil }

// isSame reports whether the mode is one of the symmetric "same_*" modes.
func (m PadMode) isSame() bool {
	return !m.IsExplicit() && strings.HasPrefix(strings.ToLower(m.auto), "same")
}

// isNone reports whether the mode specifies no padding at all: an all-zero
// explicit list or the literal "VALID" mode.
func (m PadMode) isNone() bool {
	if m.IsExplicit() {
		for _, pad := range m.explicit {
			if pad != 0 {
				return false
			}
		}
		return true
	}
	return m.auto == "VALID"
}

// SpatialShape is the spatial extent of the pooled input: either a concrete
// list of dimensions, or a deferred rank-1 integer graph value for shapes
// only known at run time.
type SpatialShape struct {
	known    []int
	deferred *Node
}

// KnownSpatialShape builds a concrete spatial shape.
func KnownSpatialShape(dimensions ...int) SpatialShape {
	return SpatialShape{known: dimensions}
}

// DeferredSpatialShape builds a deferred spatial shape from a rank-1 integer
// node holding the per-axis extents.
func DeferredSpatialShape(dimensions *Node) SpatialShape {
	if dimensions.Rank() != 1 || !dimensions.DType().IsInt() {
		exceptions.Panicf("DeferredSpatialShape: want a rank-1 integer node, got %s", dimensions.Shape())
	}
	return SpatialShape{deferred: dimensions}
}

// IsKnown reports whether the spatial shape is concrete.
func (s SpatialShape) IsKnown() bool { return s.known != nil }

// Pads holds computed paddings laid out as [begin_0, end_0, begin_1, end_1,
// ...], either as static ints (eager backend) or as a rank-1 int64 graph
// value (symbolic backend).
type Pads struct {
	static   []int
	symbolic *Node
}

// IsStatic reports whether the pads were computed eagerly.
func (p Pads) IsStatic() bool { return p.static != nil }

// Static returns the eagerly computed pads. It panics on symbolic pads.
func (p Pads) Static() []int {
	if !p.IsStatic() {
		exceptions.Panicf("Pads.Static() called on symbolic pads")
	}
	return p.static
}

// Symbolic returns the pads as a rank-1 int64 graph value. It panics on
// static pads.
func (p Pads) Symbolic() *Node {
	if p.symbolic == nil {
		exceptions.Panicf("Pads.Symbolic() called on static pads")
	}
	return p.symbolic
}

// allZero reports whether the static pads are a no-op. It panics on symbolic
// pads, whose values are not known until they are materialized.
func (p Pads) allZero() bool {
	if !p.IsStatic() {
		exceptions.Panicf("Pads.allZero() called on symbolic pads")
	}
	for _, pad := range p.static {
		if pad != 0 {
			return false
		}
	}
	return true
}

// padArithmetic is the abstract operation table the padding algorithm is
// written against: the max/ceil/floor/cast-to-int ops plus the elementary
// arithmetic Go cannot overload. T is float64 for the eager backend and
// *Node for the symbolic one.
type padArithmetic[T any] interface {
	FromInt(value int) T
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T
	Div(a, b T) T
	Max(a, b T) T
	Ceil(a T) T
	Floor(a T) T
	// CastInt truncates towards zero, the semantics of an int64 cast.
	CastInt(a T) T
}

// eagerPadOps computes over float64: every quantity involved is a small
// non-negative integer, exactly representable, so division followed by
// ceil/floor/trunc reproduces the integer results exactly.
type eagerPadOps struct{}

func (eagerPadOps) FromInt(value int) float64 { return float64(value) }
func (eagerPadOps) Add(a, b float64) float64  { return a + b }
func (eagerPadOps) Sub(a, b float64) float64  { return a - b }
func (eagerPadOps) Mul(a, b float64) float64  { return a * b }
func (eagerPadOps) Div(a, b float64) float64  { return a / b }
func (eagerPadOps) Max(a, b float64) float64  { return math.Max(a, b) }
func (eagerPadOps) Ceil(a float64) float64    { return math.Ceil(a) }
func (eagerPadOps) Floor(a float64) float64   { return math.Floor(a) }
func (eagerPadOps) CastInt(a float64) float64 { return math.Trunc(a) }

// graphPadOps computes over graph nodes, all carried as Float64 scalars so
// division keeps the reference true-division semantics; CastInt round-trips
// through Int64 to truncate.
type graphPadOps struct {
	g *Graph
}

func (ops graphPadOps) FromInt(value int) *Node {
	return Scalar(ops.g, dtypes.Float64, value)
}
func (ops graphPadOps) Add(a, b *Node) *Node { return Add(a, b) }
func (ops graphPadOps) Sub(a, b *Node) *Node { return Sub(a, b) }
func (ops graphPadOps) Mul(a, b *Node) *Node { return Mul(a, b) }
func (ops graphPadOps) Div(a, b *Node) *Node { return Div(a, b) }
func (ops graphPadOps) Max(a, b *Node) *Node { return Max(a, b) }
func (ops graphPadOps) Ceil(a *Node) *Node   { return Ceil(a) }
func (ops graphPadOps) Floor(a *Node) *Node  { return Floor(a) }
func (ops graphPadOps) CastInt(a *Node) *Node {
	return ConvertDType(ConvertDType(a, dtypes.Int64), dtypes.Float64)
}

// calcPadsExplicit re-lays an explicit [b..., e...] padding list into the
// interleaved [b0, e0, b1, e1, ...] output order.
func calcPadsExplicit[T any](ops padArithmetic[T], explicit []int, spatialSize int) []T {
	pads := make([]T, 0, 2*spatialSize)
	for i := range spatialSize {
		pads = append(pads, ops.FromInt(explicit[i]), ops.FromInt(explicit[i+spatialSize]))
	}
	return pads
}

// calcPadsSamePooling computes the symmetric "same_*" paddings: output
// spatial size is ceil(in/stride) per axis, and the total padding needed to
// reach it is split between begin and end. "same_lower" rounds the begin
// half up (extra padding lands at the beginning), every other mode rounds it
// down. The rounding split must be preserved exactly: swapping it silently
// moves the extra padding to the other side of center.
func calcPadsSamePooling[T any](ops padArithmetic[T], inShape []T,
	kernelShape, strides, dilations []int, mode string) []T {
	spatialSize := len(kernelShape)
	pads := make([]T, 2*spatialSize)
	sameLower := strings.ToLower(mode) == "same_lower"
	for i := range spatialSize {
		inSize := inShape[i]
		filterSize := (kernelShape[i]-1)*dilations[i] + 1

		outSize := ops.CastInt(ops.Ceil(ops.Div(inSize, ops.FromInt(strides[i]))))
		padAlongAxis := ops.Max(
			ops.Sub(ops.Add(ops.Mul(ops.Sub(outSize, ops.FromInt(1)), ops.FromInt(strides[i])), ops.FromInt(filterSize)), inSize),
			ops.FromInt(0))

		padOp := ops.Floor
		if sameLower {
			padOp = ops.Ceil
		}
		padBegin := ops.CastInt(padOp(ops.Div(padAlongAxis, ops.FromInt(2))))
		padAlongAxis = ops.CastInt(padAlongAxis)
		padEnd := ops.Sub(padAlongAxis, padBegin)

		pads[i*2] = padBegin
		pads[i*2+1] = padEnd
	}
	return pads
}

// calcPadsCeilMode computes the extra padding required when the source uses
// ceil rounding for the pooling output size while the target truncates: per
// axis, (ceil(out) - floor(out)) * stride added to the end only.
func calcPadsCeilMode[T any](ops padArithmetic[T], inShape []T,
	kernelShape, strides, dilations []int) []T {
	spatialSize := len(kernelShape)
	pads := make([]T, 0, 2*spatialSize)
	for i := range spatialSize {
		dimSize := inShape[i]
		filterSize := (kernelShape[i]-1)*dilations[i] + 1
		outSize := ops.Div(ops.Sub(dimSize, ops.FromInt(filterSize)), ops.FromInt(strides[i]))
		padSize := ops.CastInt(ops.Sub(ops.Ceil(outSize), ops.Floor(outSize)))
		pads = append(pads, ops.FromInt(0), ops.Mul(padSize, ops.FromInt(strides[i])))
	}
	return pads
}

// calcPads is the shared padding algorithm: zero-init, add explicit or
// same-mode pads, then the ceil-mode end adjustment when the mode is not
// "same_*" (same-mode output sizes are already stride-aligned, making the
// adjustment a no-op).
//
// An auto-pad string that is neither "same_*" nor "VALID" leaves the pads at
// zero. That silent fall-through reproduces the reference behavior and is a
// documented limitation.
func calcPads[T any](ops padArithmetic[T], inShape []T,
	kernelShape, strides, dilations []int, mode PadMode, ceilMode bool) []T {
	spatialSize := len(kernelShape)
	pads := make([]T, 2*spatialSize)
	for i := range pads {
		pads[i] = ops.FromInt(0)
	}

	if mode.IsExplicit() {
		explicit := calcPadsExplicit(ops, mode.explicit, spatialSize)
		for i := range pads {
			pads[i] = ops.Add(pads[i], explicit[i])
		}
	} else if mode.isSame() {
		same := calcPadsSamePooling(ops, inShape, kernelShape, strides, dilations, mode.auto)
		for i := range pads {
			pads[i] = ops.Add(pads[i], same[i])
		}
	} else if mode.auto != "VALID" {
		klog.Warningf("unrecognized padding mode %q: no padding will be applied", mode.auto)
	}

	if ceilMode && !mode.isSame() {
		// Effective shape after the pads accumulated so far.
		effectiveShape := make([]T, spatialSize)
		for i := range spatialSize {
			effectiveShape[i] = ops.Add(inShape[i], ops.Add(pads[i*2], pads[i*2+1]))
		}
		ceilPads := calcPadsCeilMode(ops, effectiveShape, kernelShape, strides, dilations)
		for i := range pads {
			pads[i] = ops.Add(pads[i], ceilPads[i])
		}
	}
	return pads
}

// validatePoolArgs checks the spatial-size invariant: kernel, strides,
// dilations and any explicit padding list must all agree on the number of
// spatial axes. A mismatch is a precondition failure.
func validatePoolArgs(kernelShape, strides, dilations []int, mode PadMode) {
	spatialSize := len(kernelShape)
	if len(strides) != spatialSize || len(dilations) != spatialSize {
		exceptions.Panicf("pooling parameters disagree on the number of spatial axes: kernel=%d, strides=%d, dilations=%d",
			spatialSize, len(strides), len(dilations))
	}
	if mode.IsExplicit() && len(mode.explicit) != 2*spatialSize {
		exceptions.Panicf("explicit padding needs %d values (2 per spatial axis), got %d",
			2*spatialSize, len(mode.explicit))
	}
}

// CalcPadsPooling computes per-axis begin/end padding for a pooling
// operation, returned interleaved as [begin_0, end_0, begin_1, end_1, ...].
//
// When the spatial shape is known the computation runs eagerly and the
// result is static; otherwise the same algorithm is built from graph ops
// over the deferred shape vector and the result is a rank-1 int64 node.
func CalcPadsPooling(kernelShape, strides, dilations []int, mode PadMode,
	inSpatialShape SpatialShape, ceilMode bool) Pads {
	validatePoolArgs(kernelShape, strides, dilations, mode)
	spatialSize := len(kernelShape)

	if inSpatialShape.IsKnown() {
		if len(inSpatialShape.known) != spatialSize {
			exceptions.Panicf("spatial shape has %d axes, pooling parameters have %d",
				len(inSpatialShape.known), spatialSize)
		}
		ops := eagerPadOps{}
		inShape := make([]float64, spatialSize)
		for i, dim := range inSpatialShape.known {
			inShape[i] = float64(dim)
		}
		pads := calcPads[float64](ops, inShape, kernelShape, strides, dilations, mode, ceilMode)
		static := make([]int, len(pads))
		for i, pad := range pads {
			static[i] = int(pad)
		}
		return Pads{static: static}
	}

	shapeVec := inSpatialShape.deferred
	if shapeVec.Shape().Dim(0) != spatialSize {
		exceptions.Panicf("deferred spatial shape has %d axes, pooling parameters have %d",
			shapeVec.Shape().Dim(0), spatialSize)
	}
	g := shapeVec.Graph()
	ops := graphPadOps{g: g}
	inShape := make([]*Node, spatialSize)
	for i := range spatialSize {
		dim := Squeeze(Slice(shapeVec, AxisElem(i)), 0)
		inShape[i] = ConvertDType(dim, dtypes.Float64)
	}
	pads := calcPads[*Node](ops, inShape, kernelShape, strides, dilations, mode, ceilMode)
	return Pads{symbolic: ConvertDType(Stack(pads, 0), dtypes.Int64)}
}

// materializePads evaluates the symbolic padding sub-expression for the
// given concrete extents. The target pad op only takes static amounts, so
// the deferred path follows the same materialize-constant-expression route
// used for any value the target needs static.
func materializePads(backend backends.Backend, spatialDims []int,
	kernelShape, strides, dilations []int, mode PadMode, ceilMode bool) []int {
	dims := make([]int64, len(spatialDims))
	for i, dim := range spatialDims {
		dims[i] = int64(dim)
	}
	result := MustExecOnce(backend, func(g *Graph) *Node {
		shapeVec := Const(g, dims)
		return CalcPadsPooling(kernelShape, strides, dilations, mode, DeferredSpatialShape(shapeVec), ceilMode).Symbolic()
	})
	defer result.FinalizeAll()
	return tensorToInts(result)
}

// PadInput pads a channel-last pooling input (batch, spatial..., channel)
// according to the pooling parameters, filling with padConstant.
//
// No pad op is emitted when none is needed: ceil-mode off with an all-zero
// explicit list or "VALID" mode short-circuits before computing anything,
// and a known-shape computation that yields all zeros returns the input
// unchanged as well.
func PadInput(backend backends.Backend, x *Node, knownShape bool,
	kernelShape, strides, dilations []int, mode PadMode, ceilMode bool,
	padConstant *Node) *Node {
	validatePoolArgs(kernelShape, strides, dilations, mode)
	spatialSize := len(kernelShape)
	if !ceilMode && mode.isNone() {
		return x
	}

	if x.Rank() != spatialSize+2 {
		exceptions.Panicf("pooling input must be rank %d (batch, %d spatial axes, channel), got %s",
			spatialSize+2, spatialSize, x.Shape())
	}
	spatialDims := x.Shape().Dimensions[1 : 1+spatialSize]

	var pads []int
	if knownShape {
		computed := CalcPadsPooling(kernelShape, strides, dilations, mode,
			KnownSpatialShape(spatialDims...), ceilMode)
		if computed.allZero() {
			return x
		}
		pads = computed.Static()
	} else {
		pads = materializePads(backend, spatialDims, kernelShape, strides, dilations, mode, ceilMode)
	}

	// No padding on the batch and channel axes.
	paddings := make([]backends.PadAxis, x.Rank())
	for i := range spatialSize {
		paddings[1+i] = backends.PadAxis{Start: pads[i*2], End: pads[i*2+1]}
	}
	return Pad(x, padConstant, paddings...)
}
