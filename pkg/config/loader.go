package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// templateFile is the on-disk YAML shape for operator-supplied template
// extensions: a flat list under a single top-level key.
type templateFile struct {
	Templates []*AgentTemplate `yaml:"templates"`
}

// LoadTemplateRegistry builds a TemplateRegistry from the built-in seed set,
// optionally extended by operator-supplied YAML files at paths. The registry
// is seeded at startup (spec §4.1); operator files may override a built-in
// template_id or add new ones, and nothing is ever removed.
func LoadTemplateRegistry(paths ...string) (*TemplateRegistry, error) {
	reg := NewTemplateRegistry(BuiltinTemplates())

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, NewLoadError(path, err)
		}

		expanded := ExpandEnv(string(raw))

		var file templateFile
		if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
			return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}
		for _, t := range file.Templates {
			if t.TemplateID == "" {
				return nil, NewLoadError(path, fmt.Errorf("%w: template_id", ErrMissingRequiredField))
			}
			reg.Register(t)
		}
	}

	return reg, nil
}
