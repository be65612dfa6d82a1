package admin

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type yamlSite struct {
	Models []yamlModel `yaml:"models"`
}

type yamlModel struct {
	Model       string         `yaml:"model"`
	ListDisplay []string       `yaml:"list_display"`
	ListFilter  []string       `yaml:"list_filter"`
	Fields      []yamlRow      `yaml:"fields"`
	Fieldsets   []yamlFieldset `yaml:"fieldsets"`
	Inlines     []yamlInline   `yaml:"inlines"`
}

type yamlFieldset struct {
	Name   string    `yaml:"name"`
	Fields []yamlRow `yaml:"fields"`
}

type yamlInline struct {
	Model string `yaml:"model"`
	FK    string `yaml:"fk"`
	Style string `yaml:"style"`
	Extra int    `yaml:"extra"`
}

// yamlRow is a form row: a single field name or a list of names shown side by side.
type yamlRow []string

func (r *yamlRow) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*r = yamlRow{n.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := n.Decode(&names); err != nil {
			return err
		}
		*r = names
		return nil
	}
	return fmt.Errorf("line %d: a form row is a field name or a list of field names", n.Line)
}

// Load builds a frozen Site from a YAML admin document.
func Load(data []byte) (*Site, error) {
	var doc yamlSite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse admin config: %w", err)
	}

	site := NewSite()
	for _, m := range doc.Models {
		ma, err := toModelAdmin(m)
		if err != nil {
			return nil, err
		}
		if err := site.Register(ma); err != nil {
			return nil, err
		}
	}
	site.Freeze()
	return site, nil
}

// Default returns the built-in catalog admin site.
func Default() (*Site, error) {
	return Load(catalogYAML)
}

func toModelAdmin(m yamlModel) (ModelAdmin, error) {
	if m.Model == "" {
		return ModelAdmin{}, fmt.Errorf("admin config: model entry without a name")
	}
	if len(m.Fields) > 0 && len(m.Fieldsets) > 0 {
		return ModelAdmin{}, fmt.Errorf("admin config %s: fields and fieldsets are mutually exclusive", m.Model)
	}

	ma := ModelAdmin{
		Model:       m.Model,
		ListDisplay: m.ListDisplay,
		ListFilter:  m.ListFilter,
	}
	if len(m.Fields) > 0 {
		ma.Fieldsets = []Fieldset{{Rows: rows(m.Fields)}}
	}
	for _, fs := range m.Fieldsets {
		ma.Fieldsets = append(ma.Fieldsets, Fieldset{Name: fs.Name, Rows: rows(fs.Fields)})
	}
	for _, in := range m.Inlines {
		style := InlineStyle(in.Style)
		if style == "" {
			style = Stacked
		}
		ma.Inlines = append(ma.Inlines, Inline{Model: in.Model, FK: in.FK, Style: style, Extra: in.Extra})
	}
	return ma, nil
}

func rows(in []yamlRow) [][]string {
	out := make([][]string, 0, len(in))
	for _, r := range in {
		out = append(out, []string(r))
	}
	return out
}
