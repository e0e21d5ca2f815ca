package modules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Docstring-style type spellings, matched case-insensitively. The
// patterns accept the loose vocabulary found in scientific library
// documentation ("array-like", "ndarray", "sequence of floats", ...).
var typePatterns = map[string]*regexp.Regexp{
	"object":   regexp.MustCompile(`(?i)^(any|object)$`),
	"array":    regexp.MustCompile(`(?i)^.*(((np|numpy)\.)?(nd)?array(_|-| |s)?(like)?)`),
	"matrix":   regexp.MustCompile(`(?i)^(\(([A-Z0-9.]+,? *)+\))? *((np|numpy)\.)?matrix(_|-| )?(like)?$`),
	"list":     regexp.MustCompile(`(?i)^list(-|_| )?(like)?`),
	"tuple":    regexp.MustCompile(`(?i)tuple(-|_| )?(like)?`),
	"seq":      regexp.MustCompile(`(?i)sequence(-|_| )?(like)?`),
	"dtype":    regexp.MustCompile(`(?i)^((np|numpy)[. ])?d(ata)?[- _]?type[-_ ]?(like|code|specifier)?`),
	"bool":     regexp.MustCompile(`(?i)^bool(ean)?$`),
	"file":     regexp.MustCompile(`(?i)^file(name)?([ -_]*(like|handle|object))*$`),
	"scalar":   regexp.MustCompile(`(?i)^(scalar|number)`),
	"float":    regexp.MustCompile(`(?i)^((np|numpy)\.)?(float(16|32|64|128)?|double|single)`),
	"int":      regexp.MustCompile(`(?i)^((np|numpy)\.)?u?int(eger)?(8|16|32|64)?( value|s)?$`),
	"complex":  regexp.MustCompile(`(?i)^complex$`),
	"dict":     regexp.MustCompile(`(?i)^dict(ionary)?$`),
	"str":      regexp.MustCompile(`(?i)^str(ing)?([-]?like)?`),
	"callable": regexp.MustCompile(`(?i)^(func(tion)?|callable)`),
}

// typePrecedence resolves ambiguous "X or Y" spellings: the earlier
// entry wins.
var typePrecedence = []string{
	"list", "tuple", "seq", "dict", "array", "matrix", "dtype", "str",
	"scalar", "complex", "float", "int", "bool", "file", "callable", "object",
}

// portTypeFor maps a normalized type name to the port signature it is
// carried under.
var portTypeFor = map[string]PortType{
	"object":   TypeVariant,
	"array":    TypeVariant,
	"matrix":   TypeVariant,
	"list":     TypeList,
	"tuple":    TypeList,
	"seq":      TypeList,
	"dtype":    TypeString,
	"bool":     TypeBoolean,
	"file":     TypeFile,
	"scalar":   TypeFloat,
	"float":    TypeFloat,
	"int":      TypeInteger,
	"complex":  TypeVariant,
	"dict":     TypeDictionary,
	"str":      TypeString,
	"callable": TypeVariant,
}

var (
	enumRe     = regexp.MustCompile(`\{(.*)\}`)
	optionalRe = regexp.MustCompile(`(.*?),? *(\(?optional\)?)`)
	orRe       = regexp.MustCompile(`\bor\b`)
	ofRe       = regexp.MustCompile(`\bof\b`)
	commaRe    = regexp.MustCompile(`, ?`)
)

// PortSpec is the parsed form of a docstring-style type string.
type PortSpec struct {
	Type     PortType
	Optional bool
	Enum     []string
}

// ParsePortSpec parses a docstring-style type string, e.g.
// "ndarray", "float, optional", "{'gridrec', 'fbp'}", "list of int".
func ParsePortSpec(typeStr string) (PortSpec, error) {
	typeStr, optional := splitOptional(typeStr)

	enumValues, enumType, isEnum, err := parseEnum(typeStr)
	if err != nil {
		return PortSpec{}, err
	}
	if isEnum {
		return PortSpec{Type: portTypeFor[enumType], Optional: optional, Enum: enumValues}, nil
	}

	name := normalizeType(typeStr)
	if name == "" {
		return PortSpec{}, fmt.Errorf("%w: cannot normalize type %q", ErrAutowrap, typeStr)
	}
	return PortSpec{Type: portTypeFor[name], Optional: optional}, nil
}

// splitOptional strips a trailing optional marker from the type
// string and reports whether it was present.
func splitOptional(typeStr string) (string, bool) {
	typeStr = strings.Trim(typeStr, " .")
	m := optionalRe.FindStringSubmatch(typeStr)
	if m == nil {
		return typeStr, false
	}
	return strings.Trim(m[1], " ."), true
}

// parseEnum detects an enumerated option set like {'gridrec', 'fbp'}.
// Options must be homogeneous and discrete (int or string).
func parseEnum(typeStr string) (values []string, typeName string, ok bool, err error) {
	m := enumRe.FindStringSubmatch(typeStr)
	if m == nil {
		return nil, "", false, nil
	}
	parts := strings.Split(m[1], ",")
	values = make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.Trim(p, `'" `))
	}

	typeName = guessEnumValType(values[0])
	for _, v := range values[1:] {
		if guessEnumValType(v) != typeName {
			return nil, "", false, fmt.Errorf(
				"%w: mixed-type enum %q", ErrAutowrap, typeStr)
		}
	}
	if typeName != "int" && typeName != "str" {
		return nil, "", false, fmt.Errorf(
			"%w: enum %q is not discrete", ErrAutowrap, typeStr)
	}
	return values, typeName, true, nil
}

// guessEnumValType guesses the type of one enum option: int, then
// float, then string.
func guessEnumValType(s string) string {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return "int"
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return "float"
	}
	return "str"
}

// normalizeType reduces a free-form type string to one normalized
// type name, or "" when nothing matches.
func normalizeType(typeStr string) string {
	typeStr = strings.Trim(typeStr, " .!?-_\t`")

	if loc := orRe.FindStringIndex(typeStr); loc != nil {
		left := normalizeType(typeStr[:loc[0]])
		right := normalizeType(typeStr[loc[1]:])
		return pickByPrecedence(left, right)
	}

	if loc := ofRe.FindStringIndex(typeStr); loc != nil {
		// "list of int" keeps the container type
		left := normalizeType(typeStr[:loc[0]])
		switch left {
		case "list", "tuple", "seq", "array", "matrix":
			return left
		}
		return ""
	}

	for _, name := range typePrecedence {
		if typePatterns[name].MatchString(typeStr) {
			return name
		}
	}

	if loc := commaRe.FindStringIndex(typeStr); loc != nil {
		left := normalizeType(typeStr[:loc[0]])
		right := normalizeType(typeStr[loc[1]:])
		return pickByPrecedence(left, right)
	}

	return ""
}

func pickByPrecedence(left, right string) string {
	if left == "" {
		return right
	}
	if right == "" {
		return left
	}
	for _, name := range typePrecedence {
		if name == left || name == right {
			return name
		}
	}
	return ""
}
