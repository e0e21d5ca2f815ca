package mathops

import (
	"errors"
	"fmt"

	"github.com/voxmath/VoxMath-Engine/dataset"
)

// ErrBitwiseFloat is returned when a bitwise operation is applied to
// float operands.
var ErrBitwiseFloat = errors.New("bitwise operation requires integer operands")

// CmpOp identifies an elementwise comparison.
type CmpOp int

const (
	Lt CmpOp = iota
	Gt
	Le
	Ge
	Eq
	Ne
)

func (op CmpOp) String() string {
	switch op {
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	case Eq:
		return "=="
	case Ne:
		return "!="
	default:
		return "unknown"
	}
}

// Compare applies an elementwise comparison, yielding a bool dataset
// (or bool scalar for scalar operands). Integer operands are compared
// exactly, otherwise values are compared as float64.
func Compare(op CmpOp, x1, x2 dataset.Value) (dataset.Value, error) {
	n, shape, err := dataset.Broadcast(x1, x2)
	if err != nil {
		return dataset.Value{}, err
	}

	exact := dataset.PromoteDType(x1, x2) == dataset.Int64
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		var lt, eq bool
		if exact {
			a, b := x1.IntAt(i), x2.IntAt(i)
			lt, eq = a < b, a == b
		} else {
			a, b := x1.FloatAt(i), x2.FloatAt(i)
			lt, eq = a < b, a == b
		}
		switch op {
		case Lt:
			out[i] = lt
		case Gt:
			out[i] = !lt && !eq
		case Le:
			out[i] = lt || eq
		case Ge:
			out[i] = !lt
		case Eq:
			out[i] = eq
		case Ne:
			out[i] = !eq
		}
	}
	return boolResult(shape, out)
}

// BitwiseOp identifies an elementwise bitwise operation.
type BitwiseOp int

const (
	BitAnd BitwiseOp = iota
	BitOr
	BitXor
)

func (op BitwiseOp) String() string {
	switch op {
	case BitAnd:
		return "&"
	case BitOr:
		return "|"
	case BitXor:
		return "^"
	default:
		return "unknown"
	}
}

// Bitwise applies an elementwise bitwise operation to integer or bool
// operands. Float operands are rejected.
func Bitwise(op BitwiseOp, x1, x2 dataset.Value) (dataset.Value, error) {
	if x1.DType() == dataset.Float64 || x2.DType() == dataset.Float64 {
		return dataset.Value{}, fmt.Errorf("%w: %s", ErrBitwiseFloat, op)
	}
	n, shape, err := dataset.Broadcast(x1, x2)
	if err != nil {
		return dataset.Value{}, err
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		a, b := x1.IntAt(i), x2.IntAt(i)
		switch op {
		case BitAnd:
			out[i] = a & b
		case BitOr:
			out[i] = a | b
		case BitXor:
			out[i] = a ^ b
		}
	}
	return intResult(shape, out)
}

// BitNot applies the elementwise bitwise complement to an integer or
// bool operand.
func BitNot(x dataset.Value) (dataset.Value, error) {
	if x.DType() == dataset.Float64 {
		return dataset.Value{}, fmt.Errorf("%w: ~", ErrBitwiseFloat)
	}
	if x.IsScalar() {
		return dataset.Int(^x.IntAt(0)), nil
	}
	ds := x.Dataset()
	out := make([]int64, ds.Len())
	for i := range out {
		out[i] = ^ds.IntAt(i)
	}
	return intResult(ds.Shape(), out)
}
