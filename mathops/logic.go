package mathops

import (
	"fmt"

	"github.com/voxmath/VoxMath-Engine/dataset"
)

// LogicOp identifies an elementwise logical operation.
type LogicOp int

const (
	And LogicOp = iota
	Or
	Not
	Xor
	Nand
	Nor
	// LogicalSub keeps elements of x1 that are not in x2: x1 AND NOT x2.
	LogicalSub
)

func (op LogicOp) String() string {
	switch op {
	case And:
		return "and"
	case Or:
		return "or"
	case Not:
		return "not"
	case Xor:
		return "xor"
	case Nand:
		return "nand"
	case Nor:
		return "nor"
	case LogicalSub:
		return "subtract"
	default:
		return "unknown"
	}
}

// Arity returns the number of operands the operation requires.
func (op LogicOp) Arity() int {
	if op == Not {
		return 1
	}
	return 2
}

// ParseLogicOp parses a logical operation name.
func ParseLogicOp(name string) (LogicOp, error) {
	switch name {
	case "and":
		return And, nil
	case "or":
		return Or, nil
	case "not":
		return Not, nil
	case "xor":
		return Xor, nil
	case "nand":
		return Nand, nil
	case "nor":
		return Nor, nil
	case "sub", "subtract":
		return LogicalSub, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOp, name)
	}
}

// Logic applies an elementwise logical operation. Element truthiness
// is nonzero. 'not' takes one operand, all other operations take two.
// The result is a bool dataset, or a bool scalar for scalar operands.
func Logic(op LogicOp, operands ...dataset.Value) (dataset.Value, error) {
	if len(operands) != op.Arity() {
		return dataset.Value{}, fmt.Errorf("%w: %s takes %d, got %d",
			ErrArity, op, op.Arity(), len(operands))
	}

	if op == Not {
		x := operands[0]
		if x.IsScalar() {
			return dataset.BoolScalar(!x.TruthAt(0)), nil
		}
		ds := x.Dataset()
		out := make([]bool, ds.Len())
		for i := range out {
			out[i] = !ds.TruthAt(i)
		}
		return boolResult(ds.Shape(), out)
	}

	x1, x2 := operands[0], operands[1]
	n, shape, err := dataset.Broadcast(x1, x2)
	if err != nil {
		return dataset.Value{}, err
	}

	out := make([]bool, n)
	for i := 0; i < n; i++ {
		a, b := x1.TruthAt(i), x2.TruthAt(i)
		switch op {
		case And:
			out[i] = a && b
		case Or:
			out[i] = a || b
		case Xor:
			out[i] = a != b
		case Nand:
			out[i] = !(a && b)
		case Nor:
			out[i] = !(a || b)
		case LogicalSub:
			out[i] = a && !b
		}
	}
	return boolResult(shape, out)
}

// LogicByName applies a logical operation given by name.
func LogicByName(name string, operands ...dataset.Value) (dataset.Value, error) {
	op, err := ParseLogicOp(name)
	if err != nil {
		return dataset.Value{}, err
	}
	return Logic(op, operands...)
}
