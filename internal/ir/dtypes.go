package ir

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// ONNX wire-format element type codes (TensorProto.DataType).
const (
	ONNXUndefined  = 0
	ONNXFloat      = 1
	ONNXUint8      = 2
	ONNXInt8       = 3
	ONNXUint16     = 4
	ONNXInt16      = 5
	ONNXInt32      = 6
	ONNXInt64      = 7
	ONNXString     = 8
	ONNXBool       = 9
	ONNXFloat16    = 10
	ONNXDouble     = 11
	ONNXUint32     = 12
	ONNXUint64     = 13
	ONNXComplex64  = 14
	ONNXComplex128 = 15
	ONNXBFloat16   = 16
)

// DTypeForONNX converts an ONNX wire element-type code to a GoMLX data type.
func DTypeForONNX(onnxDType int32) (dtypes.DType, error) {
	switch onnxDType {
	case ONNXFloat:
		return dtypes.Float32, nil
	case ONNXDouble:
		return dtypes.Float64, nil
	case ONNXFloat16:
		return dtypes.Float16, nil
	case ONNXBFloat16:
		return dtypes.BFloat16, nil
	case ONNXInt32:
		return dtypes.Int32, nil
	case ONNXInt64:
		return dtypes.Int64, nil
	case ONNXUint8:
		return dtypes.Uint8, nil
	case ONNXInt8:
		return dtypes.Int8, nil
	case ONNXInt16:
		return dtypes.Int16, nil
	case ONNXUint16:
		return dtypes.Uint16, nil
	case ONNXUint32:
		return dtypes.Uint32, nil
	case ONNXUint64:
		return dtypes.Uint64, nil
	case ONNXBool:
		return dtypes.Bool, nil
	case ONNXComplex64:
		return dtypes.Complex64, nil
	case ONNXComplex128:
		return dtypes.Complex128, nil
	default:
		return dtypes.InvalidDType, errors.Errorf("unsupported/unknown ONNX data type %v", onnxDType)
	}
}

// VariableFromONNX creates a variable operand from ONNX-style metadata:
// a wire element-type code and dimensions where -1 (or any negative value)
// marks a dynamic dimension.
func VariableFromONNX(name string, onnxDType int32, dimensions []int) (*Operand, error) {
	dtype, err := DTypeForONNX(onnxDType)
	if err != nil {
		return nil, errors.WithMessagef(err, "while building variable %q", name)
	}
	return NewVariable(name, MakeDynamicShape(dtype, dimensions...)), nil
}
