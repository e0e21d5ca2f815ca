// Package modules provides the workflow-module layer: named,
// namespaced processing steps with typed input and output ports, a
// registry, and automatic wrapping of plain Go functions into modules.
package modules

import (
	"errors"
	"fmt"
	"strconv"
)

// Common errors for module handling
var (
	ErrAutowrap     = errors.New("autowrapping error")
	ErrReservedPort = errors.New("port name is reserved")
	ErrDuplicate    = errors.New("module already registered")
	ErrNotFound     = errors.New("module not found")
	ErrMissingInput = errors.New("required input port has no value")
	ErrBadEnumValue = errors.New("input value is not one of the enumerated options")
	ErrBadInputType = errors.New("input value has the wrong type for its port")
)

// reservedPortNames may not be used as port names; the hosting tool
// claims them.
var reservedPortNames = map[string]bool{
	"domain": true,
	"window": true,
}

// PortType is the signature a port carries values under.
type PortType string

const (
	TypeVariant    PortType = "basic:Variant"
	TypeList       PortType = "basic:List"
	TypeString     PortType = "basic:String"
	TypeBoolean    PortType = "basic:Boolean"
	TypeFloat      PortType = "basic:Float"
	TypeInteger    PortType = "basic:Integer"
	TypeDictionary PortType = "basic:Dictionary"
	TypeFile       PortType = "basic:File"
)

// Port describes one input or output of a module.
type Port struct {
	Name     string
	Label    string
	Type     PortType
	Optional bool
	// Enum lists the allowed values when the port is an enumerated
	// option set; empty otherwise.
	Enum []string
}

// checkPort validates a port declaration.
func checkPort(p Port) error {
	if p.Name == "" {
		return fmt.Errorf("%w: port with empty name", ErrAutowrap)
	}
	if reservedPortNames[p.Name] {
		return fmt.Errorf("%w: %q", ErrReservedPort, p.Name)
	}
	return nil
}

// Module is a named, user-invokable processing step.
type Module interface {
	// Name is the module name unique within its namespace.
	Name() string
	// Namespace groups related modules (e.g. "imgproc", "fitting").
	Namespace() string
	// Doc is a one-line description shown to users.
	Doc() string
	InputPorts() []Port
	OutputPorts() []Port
	// Compute runs the module. Inputs and outputs are keyed by port
	// name; optional ports may be absent from the input map.
	Compute(inputs map[string]interface{}) (map[string]interface{}, error)
}

// validateInputs checks required ports and enum membership before a
// module computes.
func validateInputs(m Module, inputs map[string]interface{}) error {
	for _, p := range m.InputPorts() {
		v, ok := inputs[p.Name]
		if !ok {
			if p.Optional {
				continue
			}
			return fmt.Errorf("%w: %s.%s port %q", ErrMissingInput,
				m.Namespace(), m.Name(), p.Name)
		}
		if len(p.Enum) > 0 {
			s, err := enumOption(p, v)
			if err != nil {
				return err
			}
			found := false
			for _, opt := range p.Enum {
				if s == opt {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("%w: port %q got %q, options are %v",
					ErrBadEnumValue, p.Name, s, p.Enum)
			}
		}
	}
	return nil
}

// enumOption renders an enum-port value as the option string it is
// compared under. String enums take strings, integer enums take
// integers.
func enumOption(p Port, v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		if p.Type == TypeString {
			return val, nil
		}
	case int:
		if p.Type == TypeInteger {
			return strconv.Itoa(val), nil
		}
	case int64:
		if p.Type == TypeInteger {
			return strconv.FormatInt(val, 10), nil
		}
	}
	return "", fmt.Errorf("%w: port %q expects a %s option, got %T",
		ErrBadInputType, p.Name, p.Type, v)
}
