package nhwc

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

// piApprox is the π literal the trigonometric approximations were calibrated
// against. Do not "fix" it to math.Pi: the polynomial coefficients below
// compensate each other at this precision.
const piApprox = 3.14159265358979

// AlternativeArgMax builds an argmax out of max-reductions and arithmetic,
// for targets whose op set has no native argmax.
//
// The index is recovered by masking a descending ramp [n, n-1, ..., 1] to the
// positions holding the axis maximum and max-reducing the masked ramp: the
// largest surviving ramp value belongs to the earliest maximum, so ties
// resolve to the lowest index, matching native argmax.
//
// For floating inputs, "holding the maximum" means within epsilon of it
// (default 1e-6): values closer to the maximum than epsilon are counted as
// maxima. Integer inputs use exact equality and ignore epsilon. Other input
// dtypes panic.
//
// The arithmetic runs in outputType; castInt64/castFloat32 convert the final
// result on top of that (at most one should be set).
func AlternativeArgMax(x *Node, axis int, outputType dtypes.DType, keepDims bool,
	epsilon float64, castInt64, castFloat32 bool) *Node {
	g := x.Graph()
	safeAxis := axis
	if safeAxis < 0 {
		safeAxis += x.Rank()
	}
	if safeAxis < 0 || safeAxis >= x.Rank() {
		exceptions.Panicf("AlternativeArgMax: axis %d is out of range for rank %d", axis, x.Rank())
	}
	reductionSize := x.Shape().Dim(safeAxis)
	axisMax := ReduceAndKeep(x, ReduceMax, safeAxis)
	zeroIfMax := Sub(axisMax, x)

	eps := epsilon
	if eps == 0 {
		eps = 1e-6
	}

	var zeroIfMaxElseOne *Node
	dtype := x.DType()
	switch {
	case dtype.IsFloat():
		zeroIfMaxElseEps := Min(Scalar(g, dtype, eps), zeroIfMax)
		zeroIfMaxElseOne = Mul(zeroIfMaxElseEps, Scalar(g, dtype, 1/eps))
	case dtype.IsInt():
		zeroIfMaxElseOne = Min(ScalarOne(g, dtype), zeroIfMax)
	default:
		exceptions.Panicf("AlternativeArgMax: input dtype %s is neither float nor int", dtype)
	}

	zeroIfMaxElseOne = ConvertDType(zeroIfMaxElseOne, outputType)
	oneIfMaxElseZero := Sub(ScalarOne(g, outputType), zeroIfMaxElseOne)

	// Descending ramp n..1 along the reduced axis, broadcast to the full
	// shape so the mask multiplication is element-wise.
	iota := Iota(g, shapes.Make(outputType, oneIfMaxElseZero.Shape().Dimensions...), safeAxis)
	revIndex := Sub(Scalar(g, outputType, reductionSize), iota)

	revIndexIfMaxElseZero := Mul(oneIfMaxElseZero, revIndex)
	var reverseArgMax *Node
	if keepDims {
		reverseArgMax = ReduceAndKeep(revIndexIfMaxElseZero, ReduceMax, safeAxis)
	} else {
		reverseArgMax = ReduceMax(revIndexIfMaxElseZero, safeAxis)
	}
	result := Sub(Scalar(g, outputType, reductionSize), reverseArgMax)

	if castInt64 {
		return ConvertDType(result, dtypes.Int64)
	}
	if castFloat32 {
		return ConvertDType(result, dtypes.Float32)
	}
	return result
}

// asinAcosPolynomial evaluates the shared degree-3 polynomial of the
// arcsine/arccosine approximations (Abramowitz & Stegun 4.4.45) over |x|.
func asinAcosPolynomial(xAbs *Node) *Node {
	g := xAbs.Graph()
	dtype := xAbs.DType()
	y := Scalar(g, dtype, -0.0187293)
	y = Mul(y, xAbs)
	y = Add(y, Scalar(g, dtype, 0.0742610))
	y = Mul(y, xAbs)
	y = Sub(y, Scalar(g, dtype, 0.2121144))
	y = Mul(y, xAbs)
	y = Add(y, Scalar(g, dtype, 1.5707288))
	return y
}

// negMask returns 1 where x is strictly negative and 0 elsewhere, in x's
// dtype. Zero maps to 0, so the sign-based reflection below leaves x=0 exact.
func negMask(x *Node) *Node {
	g := x.Graph()
	return ConvertDType(LessThan(x, ScalarZero(g, x.DType())), x.DType())
}

// AlternativeAsin builds a polynomial arcsine approximation, for targets
// whose op set has no native asin. Accurate to roughly 1e-4 over [-1, 1];
// exact at x=0. Negative inputs are handled by the odd-function identity
// asin(-x) = -asin(x).
func AlternativeAsin(x *Node) *Node {
	g := x.Graph()
	dtype := x.DType()
	if !dtype.IsFloat() {
		exceptions.Panicf("AlternativeAsin: input must be floating point, got %s", dtype)
	}
	xAbs := Abs(x)
	neg := negMask(x)
	y := asinAcosPolynomial(xAbs)
	y = Sub(
		Scalar(g, dtype, piApprox*0.5),
		Mul(Sqrt(Sub(ScalarOne(g, dtype), xAbs)), y))
	return Sub(y, Mul(Mul(Scalar(g, dtype, 2), neg), y))
}

// AlternativeAcos builds a polynomial arccosine approximation, for targets
// whose op set has no native acos. Accurate to roughly 1e-4 over [-1, 1].
// Negative inputs are handled by the identity acos(-x) = π - acos(x).
func AlternativeAcos(x *Node) *Node {
	g := x.Graph()
	dtype := x.DType()
	if !dtype.IsFloat() {
		exceptions.Panicf("AlternativeAcos: input must be floating point, got %s", dtype)
	}
	xAbs := Abs(x)
	neg := negMask(x)
	y := asinAcosPolynomial(xAbs)
	y = Mul(y, Sqrt(Sub(ScalarOne(g, dtype), xAbs)))
	y = Mul(y, Sub(ScalarOne(g, dtype), Mul(Scalar(g, dtype, 2), neg)))
	return Add(Mul(neg, Scalar(g, dtype, piApprox)), y)
}
