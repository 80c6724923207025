package nhwc

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	timage "github.com/gomlx/gomlx/pkg/core/tensors/images"

	"github.com/gomlx/onnx-nhwc/internal/ir"
)

// poolAttrs holds the pooling attributes shared by MaxPool and AveragePool.
type poolAttrs struct {
	kernelShape []int
	strides     []int
	dilations   []int
	mode        PadMode
	ceilMode    bool
}

func onesSlice(n int) []int {
	ones := make([]int, n)
	for i := range ones {
		ones[i] = 1
	}
	return ones
}

// poolAttrsFromNode parses the pooling attributes. "kernel_shape" is
// required; strides and dilations default to 1 per spatial axis. Padding
// comes from "pads" (explicit, [begin..., end...] order) or "auto_pad", not
// both.
func poolAttrsFromNode(node *ir.Node) poolAttrs {
	kernelShape := node.IntsAttrOr("kernel_shape", nil)
	if kernelShape == nil {
		exceptions.Panicf("%s: attribute 'kernel_shape' is required", node)
	}
	spatialSize := len(kernelShape)

	pads := node.IntsAttrOr("pads", nil)
	autoPad := node.StringAttrOr("auto_pad", "NOTSET")
	if pads != nil && autoPad != "NOTSET" {
		exceptions.Panicf("%s: attributes 'pads' and 'auto_pad' (%s) cannot be used together", node, autoPad)
	}
	var mode PadMode
	if autoPad == "NOTSET" {
		if pads == nil {
			pads = make([]int, 2*spatialSize)
		}
		mode = ExplicitPads(pads)
	} else {
		mode = AutoPad(autoPad)
	}

	return poolAttrs{
		kernelShape: kernelShape,
		strides:     node.IntsAttrOr("strides", onesSlice(spatialSize)),
		dilations:   node.IntsAttrOr("dilations", onesSlice(spatialSize)),
		mode:        mode,
		ceilMode:    node.BoolAttrOr("ceil_mode", false),
	}
}

// assertPoolDilations rejects dilated pooling windows: the dilations still
// participate in the padding arithmetic, but the pooling op itself only
// supports dense windows.
func assertPoolDilations(node *ir.Node, dilations []int) {
	for _, d := range dilations {
		if d != 1 {
			exceptions.Panicf("%s: support for attribute 'dilations' is not yet implemented", node)
		}
	}
}

// translateMaxPool translates a MaxPool node on a channel-last input.
//
// Any padding (explicit, auto-pad or the ceil-mode end adjustment) is
// applied to the input up front, filled with -inf so padded cells never win
// the max, and the pooling itself runs without padding.
func (c *Converter) translateMaxPool(node *ir.Node) *Node {
	if node.IntAttrOr("storage_order", 0) != 0 {
		exceptions.Panicf("%s: support for attribute 'storage_order' is not yet implemented", node)
	}
	attrs := poolAttrsFromNode(node)
	x := c.inputNode(node.Inputs[0])

	if attrs.ceilMode || !attrs.mode.isNone() {
		if !x.DType().IsFloat() {
			exceptions.Panicf("%s: padding a non-float input is not yet implemented (dtype %s)", node, x.DType())
		}
		negInf := Infinity(c.g, x.DType(), -1)
		knownShape := node.Inputs[0].Shape().IsFullyDefined()
		x = PadInput(c.backend, x, knownShape,
			attrs.kernelShape, attrs.strides, attrs.dilations, attrs.mode, attrs.ceilMode, negInf)
	}
	assertPoolDilations(node, attrs.dilations)

	pool := MaxPool(x).ChannelsAxis(timage.ChannelsLast).
		WindowPerAxis(attrs.kernelShape...).
		StridePerAxis(attrs.strides...).
		NoPadding()
	return pool.Done()
}

// translateAveragePool translates an AveragePool node on a channel-last
// input.
//
// The two count_include_pad settings take different routes: with it set, the
// input is zero-padded up front so the padded cells land in every window's
// denominator; without it, the padding amounts are handed to MeanPool
// directly, whose mean excludes padded cells.
func (c *Converter) translateAveragePool(node *ir.Node) *Node {
	attrs := poolAttrsFromNode(node)
	assertPoolDilations(node, attrs.dilations)
	countIncludePad := node.BoolAttrOr("count_include_pad", false)
	x := c.inputNode(node.Inputs[0])

	if countIncludePad {
		knownShape := node.Inputs[0].Shape().IsFullyDefined()
		padded := PadInput(c.backend, x, knownShape,
			attrs.kernelShape, attrs.strides, attrs.dilations, attrs.mode, attrs.ceilMode,
			ScalarZero(c.g, x.DType()))
		return MeanPool(padded).ChannelsAxis(timage.ChannelsLast).
			WindowPerAxis(attrs.kernelShape...).
			StridePerAxis(attrs.strides...).
			NoPadding().
			Done()
	}

	pool := MeanPool(x).ChannelsAxis(timage.ChannelsLast).
		WindowPerAxis(attrs.kernelShape...).
		StridePerAxis(attrs.strides...)
	spatialSize := len(attrs.kernelShape)
	spatialDims := x.Shape().Dimensions[1 : 1+spatialSize]
	pads := CalcPadsPooling(attrs.kernelShape, attrs.strides, attrs.dilations, attrs.mode,
		KnownSpatialShape(spatialDims...), attrs.ceilMode)
	if pads.allZero() {
		return pool.NoPadding().Done()
	}
	paddings := make([][2]int, spatialSize)
	for i := range spatialSize {
		paddings[i] = [2]int{pads.Static()[i*2], pads.Static()[i*2+1]}
	}
	return pool.PaddingPerDim(paddings).Done()
}
