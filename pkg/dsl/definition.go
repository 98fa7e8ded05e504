package dsl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is a complete tree document.
type Definition struct {
	Name string  `json:"name" yaml:"name"`
	Root NodeDef `json:"root" yaml:"root"`
}

// NodeDef describes one node and, recursively, its children.
type NodeDef struct {
	// Type selects the node kind: a composite, a decorator, "action" or "condition".
	Type string `json:"type" yaml:"type"`
	// Name overrides the default node name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Action is the registered action of an "action" leaf.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
	// Condition is the registered condition of a "condition" leaf or guard.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	// Expr is an inline boolean expression for a "condition" leaf or guard.
	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`
	// Not negates a condition.
	Not bool `json:"not,omitempty" yaml:"not,omitempty"`
	// Params configures decorators and registered leaves.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	// When is the guard of if, if_not and case decorators.
	When *NodeDef `json:"when,omitempty" yaml:"when,omitempty"`
	// Child is the wrapped node of a decorator.
	Child *NodeDef `json:"child,omitempty" yaml:"child,omitempty"`
	// Children are the nodes of a composite.
	Children []NodeDef `json:"children,omitempty" yaml:"children,omitempty"`
}

// Parse decodes a definition. format is "json" or "yaml"; anything else is
// treated as YAML.
func Parse(data []byte, format string) (*Definition, error) {
	var def Definition
	if strings.EqualFold(format, "json") {
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse json definition: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse yaml definition: %w", err)
		}
	}
	if def.Root.Type == "" {
		return nil, fmt.Errorf("definition %q has no root node", def.Name)
	}
	return &def, nil
}

// LoadFile reads a definition from disk, choosing the decoder by extension.
// A definition without a name is named after the file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	def, err := Parse(data, strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return def, nil
}
