package modules

import (
	"fmt"

	"github.com/voxmath/VoxMath-Engine/dataset"
	"github.com/voxmath/VoxMath-Engine/expr"
	"github.com/voxmath/VoxMath-Engine/mathops"
)

// asValue converts a port payload into an operand. Ports carry
// dataset.Value directly, a *dataset.Dataset, or a bare Go scalar.
func asValue(raw interface{}) (dataset.Value, error) {
	switch v := raw.(type) {
	case dataset.Value:
		return v, nil
	case *dataset.Dataset:
		return dataset.FromDataset(v), nil
	case float64:
		return dataset.Float(v), nil
	case int64:
		return dataset.Int(v), nil
	case int:
		return dataset.Int(int64(v)), nil
	case bool:
		return dataset.BoolScalar(v), nil
	default:
		return dataset.Value{}, fmt.Errorf("%w: %T is not a dataset or scalar", ErrBadInputType, raw)
	}
}

// arithmeticModule applies basic image or object arithmetic: the
// addition, subtraction, multiplication or division of two data set
// arrays, two constants, or an array and a constant.
type arithmeticModule struct{}

func (arithmeticModule) Name() string      { return "arithmetic" }
func (arithmeticModule) Namespace() string { return "imgproc" }
func (arithmeticModule) Doc() string {
	return "Basic image or object arithmetic for two arrays or constants"
}

func (arithmeticModule) InputPorts() []Port {
	return []Port{
		{Name: "operation", Label: "arithmetic operation to apply", Type: TypeString,
			Enum: []string{"addition", "subtraction", "multiplication", "division"}},
		{Name: "x1", Label: "first input data set or constant", Type: TypeVariant},
		{Name: "x2", Label: "second input data set or constant", Type: TypeVariant},
	}
}

func (arithmeticModule) OutputPorts() []Port {
	return []Port{{Name: "output", Type: TypeVariant}}
}

func (m arithmeticModule) Compute(inputs map[string]interface{}) (map[string]interface{}, error) {
	if err := validateInputs(m, inputs); err != nil {
		return nil, err
	}
	x1, err := asValue(inputs["x1"])
	if err != nil {
		return nil, err
	}
	x2, err := asValue(inputs["x2"])
	if err != nil {
		return nil, err
	}
	out, err := mathops.ArithmeticByName(inputs["operation"].(string), x1, x2)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": out}, nil
}

// logicModule performs elementwise logical operations used for data
// comparison, material isolation, noise removal and mask work.
type logicModule struct{}

func (logicModule) Name() string      { return "logical" }
func (logicModule) Namespace() string { return "imgproc" }
func (logicModule) Doc() string {
	return "Elementwise logical operations on image data"
}

func (logicModule) InputPorts() []Port {
	return []Port{
		{Name: "operation", Label: "logical operation to apply", Type: TypeString,
			Enum: []string{"and", "or", "not", "xor", "nand", "nor", "subtract"}},
		{Name: "x1", Label: "first input data set", Type: TypeVariant},
		{Name: "x2", Label: "second input data set", Type: TypeVariant, Optional: true},
	}
}

func (logicModule) OutputPorts() []Port {
	return []Port{{Name: "output", Type: TypeVariant}}
}

func (m logicModule) Compute(inputs map[string]interface{}) (map[string]interface{}, error) {
	if err := validateInputs(m, inputs); err != nil {
		return nil, err
	}
	op, err := mathops.ParseLogicOp(inputs["operation"].(string))
	if err != nil {
		return nil, err
	}
	x1, err := asValue(inputs["x1"])
	if err != nil {
		return nil, err
	}
	operands := []dataset.Value{x1}
	if op.Arity() == 2 {
		raw, ok := inputs["x2"]
		if !ok {
			return nil, fmt.Errorf("%w: imgproc.logical port \"x2\"", ErrMissingInput)
		}
		x2, err := asValue(raw)
		if err != nil {
			return nil, err
		}
		operands = append(operands, x2)
	}
	out, err := mathops.Logic(op, operands...)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": out}, nil
}

// expressionModule evaluates a user-supplied arithmetic expression
// over up to eight inputs A through H. C through H are optional.
type expressionModule struct{}

func (expressionModule) Name() string      { return "arithmetic_expression" }
func (expressionModule) Namespace() string { return "imgproc" }
func (expressionModule) Doc() string {
	return "Custom arithmetic expression over up to 8 arrays or constants"
}

func (expressionModule) InputPorts() []Port {
	ports := []Port{
		{Name: "expression", Label: "expression over inputs A through H", Type: TypeString},
		{Name: "A", Type: TypeVariant},
		{Name: "B", Type: TypeVariant},
	}
	for _, name := range []string{"C", "D", "E", "F", "G", "H"} {
		ports = append(ports, Port{Name: name, Type: TypeVariant, Optional: true})
	}
	return ports
}

func (expressionModule) OutputPorts() []Port {
	return []Port{{Name: "output", Type: TypeVariant}}
}

func (m expressionModule) Compute(inputs map[string]interface{}) (map[string]interface{}, error) {
	if err := validateInputs(m, inputs); err != nil {
		return nil, err
	}
	exprStr, ok := inputs["expression"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: port %q expects a string", ErrBadInputType, "expression")
	}
	vars := make(map[string]dataset.Value)
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		raw, ok := inputs[name]
		if !ok {
			continue
		}
		v, err := asValue(raw)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", name, err)
		}
		vars[name] = v
	}
	out, err := expr.Evaluate(exprStr, vars)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": out}, nil
}

// builtinWrapped returns the wrapped-function builtins keyed by
// namespace/name.
func builtinWrapped() ([]Module, error) {
	normalize, err := WrapFunction(FuncSpec{
		Name:      "normalize",
		Namespace: "imgproc",
		Doc:       "Flat- and dark-field correction of raw detector data",
		Inputs: []PortDecl{
			{Name: "data", Label: "raw detector data", Type: "ndarray or float"},
			{Name: "white", Label: "white field reference", Type: "ndarray or float"},
			{Name: "dark", Label: "dark field reference", Type: "ndarray or float"},
		},
		Outputs: []PortDecl{{Name: "normalized", Type: "ndarray"}},
	}, mathops.Normalize)
	if err != nil {
		return nil, err
	}

	aggregate, err := WrapFunction(FuncSpec{
		Name:      "aggregate",
		Namespace: "fitting",
		Doc:       "Combine 1+ models into an aggregate model",
		Inputs: []PortDecl{
			{Name: "models", Label: "models to aggregate", Type: "list of array"},
		},
		Outputs: []PortDecl{{Name: "aggregated", Type: "ndarray"}},
	}, mathops.Aggregate)
	if err != nil {
		return nil, err
	}

	return []Module{normalize, aggregate}, nil
}

// builtins returns every module this package ships.
func builtins() ([]Module, error) {
	wrapped, err := builtinWrapped()
	if err != nil {
		return nil, err
	}
	all := []Module{arithmeticModule{}, logicModule{}, expressionModule{}}
	return append(all, wrapped...), nil
}
