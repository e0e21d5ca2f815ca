// Package mathops implements elementwise arithmetic and logical
// operations on image and volume datasets. Operations accept two data
// set arrays, two constants, or an array and a constant.
package mathops

import (
	"errors"
	"fmt"
	"math"

	"github.com/voxmath/VoxMath-Engine/dataset"
)

// Common errors for math operations
var (
	ErrUnknownOp    = errors.New("unknown operation")
	ErrDivideByZero = errors.New("operation would divide by zero; reevaluate the denominator")
	ErrArity        = errors.New("wrong number of operands for operation")
)

// ArithmeticOp identifies a basic arithmetic operation.
type ArithmeticOp int

const (
	Add ArithmeticOp = iota
	Subtract
	Multiply
	Divide
)

func (op ArithmeticOp) String() string {
	switch op {
	case Add:
		return "addition"
	case Subtract:
		return "subtraction"
	case Multiply:
		return "multiplication"
	case Divide:
		return "division"
	default:
		return "unknown"
	}
}

// ParseArithmeticOp parses an operation name. Both the long form
// ("addition") and the short form ("add") are accepted.
func ParseArithmeticOp(name string) (ArithmeticOp, error) {
	switch name {
	case "add", "addition":
		return Add, nil
	case "subtract", "subtraction":
		return Subtract, nil
	case "multiply", "multiplication":
		return Multiply, nil
	case "divide", "division":
		return Divide, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOp, name)
	}
}

// Arithmetic applies a basic arithmetic operation elementwise to two
// operands. Integer operands produce an integer result except for
// division, which always produces float64. Division is rejected up
// front if the denominator is zero or contains a zero element.
func Arithmetic(op ArithmeticOp, x1, x2 dataset.Value) (dataset.Value, error) {
	if op == Divide && x2.HasZero() {
		return dataset.Value{}, ErrDivideByZero
	}

	n, shape, err := dataset.Broadcast(x1, x2)
	if err != nil {
		return dataset.Value{}, err
	}

	outType := dataset.PromoteDType(x1, x2)
	if op == Divide {
		outType = dataset.Float64
	}

	if outType == dataset.Int64 {
		out := make([]int64, n)
		for i := 0; i < n; i++ {
			a, b := x1.IntAt(i), x2.IntAt(i)
			switch op {
			case Add:
				out[i] = a + b
			case Subtract:
				out[i] = a - b
			case Multiply:
				out[i] = a * b
			}
		}
		return intResult(shape, out)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b := x1.FloatAt(i), x2.FloatAt(i)
		switch op {
		case Add:
			out[i] = a + b
		case Subtract:
			out[i] = a - b
		case Multiply:
			out[i] = a * b
		case Divide:
			out[i] = a / b
		}
	}
	return floatResult(shape, out)
}

// ArithmeticByName applies an arithmetic operation given by name.
func ArithmeticByName(name string, x1, x2 dataset.Value) (dataset.Value, error) {
	op, err := ParseArithmeticOp(name)
	if err != nil {
		return dataset.Value{}, err
	}
	return Arithmetic(op, x1, x2)
}

func intResult(shape []int, data []int64) (dataset.Value, error) {
	if shape == nil {
		return dataset.Int(data[0]), nil
	}
	ds, err := dataset.NewInt64(shape, data)
	if err != nil {
		return dataset.Value{}, err
	}
	return dataset.FromDataset(ds), nil
}

func floatResult(shape []int, data []float64) (dataset.Value, error) {
	if shape == nil {
		return dataset.Float(data[0]), nil
	}
	ds, err := dataset.NewFloat64(shape, data)
	if err != nil {
		return dataset.Value{}, err
	}
	return dataset.FromDataset(ds), nil
}

func boolResult(shape []int, data []bool) (dataset.Value, error) {
	if shape == nil {
		return dataset.BoolScalar(data[0]), nil
	}
	ds, err := dataset.NewBool(shape, data)
	if err != nil {
		return dataset.Value{}, err
	}
	return dataset.FromDataset(ds), nil
}

// FloorDiv computes elementwise floor division, rejecting zero
// denominators. Integer operands yield int64, otherwise float64.
func FloorDiv(x1, x2 dataset.Value) (dataset.Value, error) {
	if x2.HasZero() {
		return dataset.Value{}, ErrDivideByZero
	}
	n, shape, err := dataset.Broadcast(x1, x2)
	if err != nil {
		return dataset.Value{}, err
	}
	if dataset.PromoteDType(x1, x2) == dataset.Int64 {
		out := make([]int64, n)
		for i := 0; i < n; i++ {
			out[i] = floorDivInt(x1.IntAt(i), x2.IntAt(i))
		}
		return intResult(shape, out)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Floor(x1.FloatAt(i) / x2.FloatAt(i))
	}
	return floatResult(shape, out)
}

// Mod computes the elementwise modulus with the sign of the divisor,
// rejecting zero denominators.
func Mod(x1, x2 dataset.Value) (dataset.Value, error) {
	if x2.HasZero() {
		return dataset.Value{}, ErrDivideByZero
	}
	n, shape, err := dataset.Broadcast(x1, x2)
	if err != nil {
		return dataset.Value{}, err
	}
	if dataset.PromoteDType(x1, x2) == dataset.Int64 {
		out := make([]int64, n)
		for i := 0; i < n; i++ {
			out[i] = modInt(x1.IntAt(i), x2.IntAt(i))
		}
		return intResult(shape, out)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = modFloat(x1.FloatAt(i), x2.FloatAt(i))
	}
	return floatResult(shape, out)
}

// Pow computes elementwise exponentiation. Integer base and
// non-negative integer exponent yield int64, otherwise float64.
func Pow(x1, x2 dataset.Value) (dataset.Value, error) {
	n, shape, err := dataset.Broadcast(x1, x2)
	if err != nil {
		return dataset.Value{}, err
	}
	if dataset.PromoteDType(x1, x2) == dataset.Int64 && !hasNegative(x2, n) {
		out := make([]int64, n)
		for i := 0; i < n; i++ {
			out[i] = powInt(x1.IntAt(i), x2.IntAt(i))
		}
		return intResult(shape, out)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Pow(x1.FloatAt(i), x2.FloatAt(i))
	}
	return floatResult(shape, out)
}

func hasNegative(v dataset.Value, n int) bool {
	for i := 0; i < n; i++ {
		if v.IntAt(i) < 0 {
			return true
		}
	}
	return false
}

// floorDivInt matches floor semantics for negative operands
// (-7 // 2 == -4), unlike Go's truncating integer division.
func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// modInt returns the remainder with the sign of the divisor.
func modInt(a, b int64) int64 {
	r := a % b
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}

// modFloat returns the remainder with the sign of the divisor.
func modFloat(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && ((r < 0) != (b < 0)) {
		r += b
	}
	return r
}

func powInt(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
