package modules

import (
	_ "embed"
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v2"
)

//go:embed modules.yaml
var defaultImportList []byte

// ImportList describes which modules each namespace should expose.
type ImportList struct {
	Namespaces map[string][]string `yaml:"namespaces"`
}

// LoadImportList reads an import list from a YAML file. An empty path
// loads the default list shipped with the package.
func LoadImportList(path string) (*ImportList, error) {
	data := defaultImportList
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read import list: %w", err)
		}
	}

	var list ImportList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse import list: %w", err)
	}
	if len(list.Namespaces) == 0 {
		return nil, fmt.Errorf("import list declares no namespaces")
	}
	return &list, nil
}

// NewDefaultRegistry builds a Registry containing the built-in
// modules selected by the import list. A nil list selects everything
// the default list names.
func NewDefaultRegistry(list *ImportList) (*Registry, error) {
	if list == nil {
		var err error
		list, err = LoadImportList("")
		if err != nil {
			return nil, err
		}
	}

	available, err := builtins()
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]Module, len(available))
	for _, m := range available {
		byKey[m.Namespace()+"."+m.Name()] = m
	}

	reg := NewRegistry()
	for ns, names := range list.Namespaces {
		for _, name := range names {
			m, ok := byKey[ns+"."+name]
			if !ok {
				return nil, fmt.Errorf("%w: import list names %s.%s", ErrNotFound, ns, name)
			}
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}
