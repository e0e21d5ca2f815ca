package modules

import (
	"fmt"
	"reflect"

	"github.com/voxmath/VoxMath-Engine/dataset"
)

// PortDecl declares one port of a function being wrapped. Type is a
// docstring-style type string, parsed with ParsePortSpec.
type PortDecl struct {
	Name  string `yaml:"name"`
	Label string `yaml:"label,omitempty"`
	Type  string `yaml:"type"`
}

// FuncSpec declares how a plain Go function maps onto a module.
type FuncSpec struct {
	Name      string     `yaml:"name"`
	Namespace string     `yaml:"namespace"`
	Doc       string     `yaml:"doc,omitempty"`
	Inputs    []PortDecl `yaml:"inputs"`
	Outputs   []PortDecl `yaml:"outputs"`
}

// wrappedModule is a Module produced by WrapFunction.
type wrappedModule struct {
	spec    FuncSpec
	inputs  []Port
	outputs []Port
	fn      reflect.Value
	// hasErr marks a trailing error return, which is not a port.
	hasErr bool
}

var (
	errType   = reflect.TypeOf((*error)(nil)).Elem()
	valueType = reflect.TypeOf(dataset.Value{})
)

// WrapFunction wraps a plain Go function into a Module. Input ports
// map positionally onto the function parameters and output ports onto
// its results; a trailing error result is reported as a compute
// failure rather than a port. Optional input ports are passed as zero
// values when absent.
func WrapFunction(spec FuncSpec, fn interface{}) (Module, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s.%s is not a function",
			ErrAutowrap, spec.Namespace, spec.Name)
	}
	t := v.Type()
	if t.IsVariadic() {
		// Variadic functions take their trailing inputs as a List port.
		if len(spec.Inputs) != t.NumIn() {
			return nil, fmt.Errorf("%w: %s.%s: %d input ports for variadic function with %d parameters",
				ErrAutowrap, spec.Namespace, spec.Name, len(spec.Inputs), t.NumIn())
		}
	} else if len(spec.Inputs) != t.NumIn() {
		return nil, fmt.Errorf("%w: %s.%s: %d input ports for function with %d parameters",
			ErrAutowrap, spec.Namespace, spec.Name, len(spec.Inputs), t.NumIn())
	}

	numOut := t.NumOut()
	hasErr := numOut > 0 && t.Out(numOut-1) == errType
	if hasErr {
		numOut--
	}
	if len(spec.Outputs) != numOut {
		return nil, fmt.Errorf("%w: %s.%s: %d output ports for function with %d results",
			ErrAutowrap, spec.Namespace, spec.Name, len(spec.Outputs), numOut)
	}

	m := &wrappedModule{spec: spec, fn: v, hasErr: hasErr}

	seen := map[string]bool{}
	for i, decl := range spec.Inputs {
		port, err := declToPort(decl)
		if err != nil {
			return nil, err
		}
		if seen[port.Name] {
			return nil, fmt.Errorf("%w: duplicate port %q", ErrAutowrap, port.Name)
		}
		seen[port.Name] = true

		paramType := t.In(i)
		if t.IsVariadic() && i == t.NumIn()-1 {
			paramType = paramType.Elem()
			if port.Type != TypeList {
				return nil, fmt.Errorf("%w: variadic parameter %q needs a list port, got %s",
					ErrAutowrap, port.Name, port.Type)
			}
		} else if err := checkPortKind(port, paramType); err != nil {
			return nil, err
		}
		m.inputs = append(m.inputs, port)
	}

	for i, decl := range spec.Outputs {
		port, err := declToPort(decl)
		if err != nil {
			return nil, err
		}
		if err := checkPortKind(port, t.Out(i)); err != nil {
			return nil, err
		}
		m.outputs = append(m.outputs, port)
	}

	return m, nil
}

func declToPort(decl PortDecl) (Port, error) {
	spec, err := ParsePortSpec(decl.Type)
	if err != nil {
		return Port{}, fmt.Errorf("port %q: %w", decl.Name, err)
	}
	port := Port{
		Name:     decl.Name,
		Label:    decl.Label,
		Type:     spec.Type,
		Optional: spec.Optional,
		Enum:     spec.Enum,
	}
	if err := checkPort(port); err != nil {
		return Port{}, err
	}
	return port, nil
}

// checkPortKind verifies a declared port type is compatible with the
// Go type it maps to.
func checkPortKind(port Port, t reflect.Type) error {
	ok := false
	switch port.Type {
	case TypeVariant:
		ok = t == valueType || t.Kind() == reflect.Interface
	case TypeList:
		ok = t.Kind() == reflect.Slice
	case TypeString, TypeFile:
		ok = t.Kind() == reflect.String
	case TypeBoolean:
		ok = t.Kind() == reflect.Bool
	case TypeFloat:
		ok = t.Kind() == reflect.Float64
	case TypeInteger:
		ok = t.Kind() == reflect.Int || t.Kind() == reflect.Int64
	case TypeDictionary:
		ok = t.Kind() == reflect.Map
	}
	if !ok {
		return fmt.Errorf("%w: port %q declared %s but function uses %s",
			ErrAutowrap, port.Name, port.Type, t)
	}
	return nil
}

func (m *wrappedModule) Name() string        { return m.spec.Name }
func (m *wrappedModule) Namespace() string   { return m.spec.Namespace }
func (m *wrappedModule) Doc() string         { return m.spec.Doc }
func (m *wrappedModule) InputPorts() []Port  { return m.inputs }
func (m *wrappedModule) OutputPorts() []Port { return m.outputs }

func (m *wrappedModule) Compute(inputs map[string]interface{}) (map[string]interface{}, error) {
	if err := validateInputs(m, inputs); err != nil {
		return nil, err
	}

	t := m.fn.Type()
	args := make([]reflect.Value, 0, t.NumIn())
	for i, port := range m.inputs {
		paramType := t.In(i)
		variadic := t.IsVariadic() && i == t.NumIn()-1

		raw, ok := inputs[port.Name]
		if !ok {
			if variadic {
				break
			}
			args = append(args, reflect.Zero(paramType))
			continue
		}

		if variadic {
			rv := reflect.ValueOf(raw)
			if rv.Kind() != reflect.Slice {
				return nil, fmt.Errorf("%w: port %q expects a list", ErrBadInputType, port.Name)
			}
			for j := 0; j < rv.Len(); j++ {
				arg, err := coerceArg(rv.Index(j).Interface(), paramType.Elem(), port)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			continue
		}

		arg, err := coerceArg(raw, paramType, port)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	results := m.fn.Call(args)

	if m.hasErr {
		last := results[len(results)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		results = results[:len(results)-1]
	}

	outputs := make(map[string]interface{}, len(results))
	for i, port := range m.outputs {
		outputs[port.Name] = results[i].Interface()
	}
	return outputs, nil
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func coerceArg(raw interface{}, want reflect.Type, port Port) (reflect.Value, error) {
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() {
		return reflect.Zero(want), nil
	}
	if rv.Type().AssignableTo(want) {
		return rv, nil
	}
	if isNumericKind(rv.Kind()) && isNumericKind(want.Kind()) && rv.Type().ConvertibleTo(want) {
		return rv.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: port %q got %T", ErrBadInputType, port.Name, raw)
}
