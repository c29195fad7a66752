// Package template loads service templates: named stage lists that are
// copied onto an order when it is created.
package template

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type StageTemplate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type ServiceTemplate struct {
	ID     string          `yaml:"id"`
	Name   string          `yaml:"name"`
	Stages []StageTemplate `yaml:"stages"`
}

func (t ServiceTemplate) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template: id is required")
	}
	if len(t.Stages) == 0 {
		return fmt.Errorf("template %s: at least one stage is required", t.ID)
	}
	for i, s := range t.Stages {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("template %s stage[%d]: name is required", t.ID, i)
		}
	}
	return nil
}

type Registry struct {
	byID  map[string]ServiceTemplate
	order []string
}

type document struct {
	Templates []ServiceTemplate `yaml:"templates"`
}

// Parse decodes a YAML document with a top-level `templates` list.
func Parse(data []byte) (*Registry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("template: payload is empty")
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("template: decode: %w", err)
	}

	r := &Registry{byID: make(map[string]ServiceTemplate, len(doc.Templates))}
	for i, t := range doc.Templates {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("templates[%d]: %w", i, err)
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("template: duplicate id %s", t.ID)
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		r.byID[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r, nil
}

func LoadFile(path string) (*Registry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", path, err)
	}
	r, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("template: %s: %w", path, err)
	}
	return r, nil
}

func (r *Registry) Lookup(id string) (ServiceTemplate, bool) {
	if r == nil {
		return ServiceTemplate{}, false
	}
	t, ok := r.byID[id]
	return t, ok
}

// All returns the templates in file order.
func (r *Registry) All() []ServiceTemplate {
	if r == nil {
		return nil
	}
	out := make([]ServiceTemplate, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
