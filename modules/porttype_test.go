package modules

import (
	"errors"
	"reflect"
	"testing"
)

// Docstring type spellings collected from real scientific library
// documentation, paired with the port type each should normalize to.
func TestParsePortSpecTypes(t *testing.T) {
	cases := []struct {
		in   string
		want PortType
	}{
		{"any", TypeVariant},
		{"object", TypeVariant},
		{"array", TypeVariant},
		{"array-like", TypeVariant},
		{"array_like", TypeVariant},
		{"ndarray", TypeVariant},
		{"np.ndarray", TypeVariant},
		{"numpy.ndarray", TypeVariant},
		{"2D array", TypeVariant},
		{"MxN array", TypeVariant},
		{"(N, M, P) array", TypeVariant},
		{"matrix", TypeVariant},
		{"np.matrix", TypeVariant},
		{"(N, M) matrix", TypeVariant},
		{"list", TypeList},
		{"list-like", TypeList},
		{"tuple", TypeList},
		{"1-D sequence", TypeList},
		{"sequence", TypeList},
		{"dtype", TypeString},
		{"np.dtype", TypeString},
		{"data type code", TypeString},
		{"dtype specifier", TypeString},
		{"bool", TypeBoolean},
		{"boolean", TypeBoolean},
		{"file", TypeFile},
		{"filename", TypeFile},
		{"file handle object", TypeFile},
		{"scalar", TypeFloat},
		{"number", TypeFloat},
		{"float", TypeFloat},
		{"float64", TypeFloat},
		{"np.float64", TypeFloat},
		{"double", TypeFloat},
		{"single", TypeFloat},
		{"int", TypeInteger},
		{"InTeGeR", TypeInteger},
		{"uint8", TypeInteger},
		{"np.uint8", TypeInteger},
		{"integer value", TypeInteger},
		{"complex", TypeVariant},
		{"dict", TypeDictionary},
		{"dictionary", TypeDictionary},
		{"str", TypeString},
		{"string", TypeString},
		{"str-like", TypeString},
		{"callable f(x)", TypeVariant},
		{"function", TypeVariant},
	}
	for _, tc := range cases {
		spec, err := ParsePortSpec(tc.in)
		if err != nil {
			t.Errorf("ParsePortSpec(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if spec.Type != tc.want {
			t.Errorf("ParsePortSpec(%q) = %s, want %s", tc.in, spec.Type, tc.want)
		}
		if spec.Optional {
			t.Errorf("ParsePortSpec(%q) reported optional", tc.in)
		}
	}
}

// Alternative spellings like "float or int" resolve by precedence:
// container types win over element types, element types in a fixed
// order after that.
func TestParsePortSpecAlternatives(t *testing.T) {
	cases := []struct {
		in   string
		want PortType
	}{
		{"float or int", TypeFloat},
		{"int or float", TypeFloat},
		{"scalar or tuple of scalars", TypeList},
		{"list of int", TypeList},
		{"tuple of floats", TypeList},
		{"sequence of arrays", TypeList},
		{"ndarray or float", TypeVariant},
		{"int or [int, int] or array-like", TypeVariant},
		{"str or callable", TypeString},
	}
	for _, tc := range cases {
		spec, err := ParsePortSpec(tc.in)
		if err != nil {
			t.Errorf("ParsePortSpec(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if spec.Type != tc.want {
			t.Errorf("ParsePortSpec(%q) = %s, want %s", tc.in, spec.Type, tc.want)
		}
	}
}

func TestParsePortSpecOptional(t *testing.T) {
	for _, in := range []string{
		"array, optional",
		"array (optional)",
		"float, optional",
		"int, optional.",
	} {
		spec, err := ParsePortSpec(in)
		if err != nil {
			t.Fatalf("ParsePortSpec(%q): %v", in, err)
		}
		if !spec.Optional {
			t.Errorf("ParsePortSpec(%q): optional not detected", in)
		}
	}

	spec, err := ParsePortSpec("array")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Optional {
		t.Error(`ParsePortSpec("array") reported optional`)
	}
}

func TestParsePortSpecEnum(t *testing.T) {
	spec, err := ParsePortSpec("{'gridrec', 'fbp', 'art'}")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Type != TypeString {
		t.Errorf("string enum port type = %s, want %s", spec.Type, TypeString)
	}
	if want := []string{"gridrec", "fbp", "art"}; !reflect.DeepEqual(spec.Enum, want) {
		t.Errorf("enum options = %v, want %v", spec.Enum, want)
	}

	spec, err = ParsePortSpec("{1, 2, 4}")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Type != TypeInteger {
		t.Errorf("int enum port type = %s, want %s", spec.Type, TypeInteger)
	}

	spec, err = ParsePortSpec("{'mean', 'median'}, optional")
	if err != nil {
		t.Fatal(err)
	}
	if !spec.Optional {
		t.Error("optional enum not detected")
	}
	if len(spec.Enum) != 2 {
		t.Errorf("enum options = %v, want 2 entries", spec.Enum)
	}
}

func TestParsePortSpecEnumRejected(t *testing.T) {
	for _, in := range []string{
		"{1, 'one'}",
		"{0.5, 1.5}",
	} {
		if _, err := ParsePortSpec(in); !errors.Is(err, ErrAutowrap) {
			t.Errorf("ParsePortSpec(%q): err = %v, want ErrAutowrap", in, err)
		}
	}
}

func TestParsePortSpecUnknown(t *testing.T) {
	for _, in := range []string{
		"aardvark",
		"",
		"dict of str",
	} {
		if _, err := ParsePortSpec(in); !errors.Is(err, ErrAutowrap) {
			t.Errorf("ParsePortSpec(%q): err = %v, want ErrAutowrap", in, err)
		}
	}
}
