package expr

import (
	"fmt"

	"github.com/voxmath/VoxMath-Engine/dataset"
	"github.com/voxmath/VoxMath-Engine/mathops"
)

// inputNames are the variables an expression may reference, in
// binding order. A and B are conventionally required by callers;
// C through H are optional.
var inputNames = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// Expression is a parsed expression ready for evaluation.
type Expression struct {
	src  string
	root node
	vars []string
}

// String returns the source text of the expression.
func (e *Expression) String() string { return e.src }

// Vars returns the variable names the expression references, in
// first-use order.
func (e *Expression) Vars() []string {
	return append([]string(nil), e.vars...)
}

// Bind assigns values to the expression inputs A through H in order.
func Bind(values ...dataset.Value) (map[string]dataset.Value, error) {
	if len(values) > len(inputNames) {
		return nil, ErrTooManyInputs
	}
	vars := make(map[string]dataset.Value, len(values))
	for i, v := range values {
		vars[inputNames[i]] = v
	}
	return vars, nil
}

// Evaluate parses and evaluates an expression against the given
// variable bindings.
func Evaluate(expression string, vars map[string]dataset.Value) (dataset.Value, error) {
	parsed, err := Parse(expression)
	if err != nil {
		return dataset.Value{}, err
	}
	return parsed.Evaluate(vars)
}

// Evaluate evaluates the expression against the given bindings.
// Unbound variable references are an error.
func (e *Expression) Evaluate(vars map[string]dataset.Value) (dataset.Value, error) {
	return eval(e.root, vars)
}

func eval(n node, vars map[string]dataset.Value) (dataset.Value, error) {
	switch v := n.(type) {
	case numberNode:
		if v.isInt {
			return dataset.Int(v.i), nil
		}
		return dataset.Float(v.f), nil

	case varNode:
		val, ok := vars[v.name]
		if !ok {
			return dataset.Value{}, fmt.Errorf("%w: %s", ErrUnboundVar, v.name)
		}
		return val, nil

	case unaryNode:
		x, err := eval(v.x, vars)
		if err != nil {
			return dataset.Value{}, err
		}
		switch v.op {
		case "-":
			return mathops.Arithmetic(mathops.Subtract, dataset.Int(0), x)
		case "~":
			return mathops.BitNot(x)
		}
		return dataset.Value{}, fmt.Errorf("%w: unary %q", ErrSyntax, v.op)

	case binaryNode:
		l, err := eval(v.l, vars)
		if err != nil {
			return dataset.Value{}, err
		}
		r, err := eval(v.r, vars)
		if err != nil {
			return dataset.Value{}, err
		}
		return apply(v.op, l, r)
	}
	return dataset.Value{}, fmt.Errorf("%w: unknown node", ErrSyntax)
}

func apply(op string, l, r dataset.Value) (dataset.Value, error) {
	switch op {
	case "+":
		return mathops.Arithmetic(mathops.Add, l, r)
	case "-":
		return mathops.Arithmetic(mathops.Subtract, l, r)
	case "*":
		return mathops.Arithmetic(mathops.Multiply, l, r)
	case "/":
		return mathops.Arithmetic(mathops.Divide, l, r)
	case "//":
		return mathops.FloorDiv(l, r)
	case "%":
		return mathops.Mod(l, r)
	case "**":
		return mathops.Pow(l, r)
	case "<":
		return mathops.Compare(mathops.Lt, l, r)
	case ">":
		return mathops.Compare(mathops.Gt, l, r)
	case "<=":
		return mathops.Compare(mathops.Le, l, r)
	case ">=":
		return mathops.Compare(mathops.Ge, l, r)
	case "==":
		return mathops.Compare(mathops.Eq, l, r)
	case "!=":
		return mathops.Compare(mathops.Ne, l, r)
	case "&":
		return mathops.Bitwise(mathops.BitAnd, l, r)
	case "|":
		return mathops.Bitwise(mathops.BitOr, l, r)
	case "^":
		return mathops.Bitwise(mathops.BitXor, l, r)
	}
	return dataset.Value{}, fmt.Errorf("%w: operator %q", ErrSyntax, op)
}
