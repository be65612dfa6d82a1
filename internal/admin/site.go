package admin

import (
	"errors"
	"fmt"
	"sync"

	"catalog/internal/models"
)

var (
	ErrAlreadyRegistered = errors.New("model already registered")
	ErrNotRegistered     = errors.New("model not registered")
	ErrSiteFrozen        = errors.New("admin site is frozen")
)

// StrColumn is the list column that shows a record's string representation.
const StrColumn = "__str__"

type InlineStyle string

const (
	Stacked InlineStyle = "stacked"
	Tabular InlineStyle = "tabular"
)

// Fieldset groups form rows under an optional heading. Each row holds the
// names of the fields rendered side by side.
type Fieldset struct {
	Name string
	Rows [][]string
}

// Inline embeds the children of a model in its parent's change form.
type Inline struct {
	Model string
	FK    string
	Style InlineStyle
	Extra int
}

// ModelAdmin is the admin configuration of one model.
type ModelAdmin struct {
	Model       string
	ListDisplay []string
	ListFilter  []string
	Fieldsets   []Fieldset
	Inlines     []Inline

	schema models.Schema
}

func (ma *ModelAdmin) Schema() models.Schema { return ma.schema }

// Columns returns the list columns, defaulting to the string representation.
func (ma *ModelAdmin) Columns() []string {
	if len(ma.ListDisplay) == 0 {
		return []string{StrColumn}
	}
	return ma.ListDisplay
}

// Layout returns the form fieldsets, defaulting to one unlabeled fieldset with
// every editable field on its own row.
func (ma *ModelAdmin) Layout() []Fieldset {
	if len(ma.Fieldsets) > 0 {
		return ma.Fieldsets
	}
	fs := Fieldset{}
	for _, f := range ma.schema.Editable() {
		fs.Rows = append(fs.Rows, []string{f.Name})
	}
	return []Fieldset{fs}
}

// Computed is a list column derived from a record rather than read from a field.
type Computed struct {
	Label string
	Func  func(models.Record) string
}

// computed lists the derived columns available to list_display, keyed by model then name.
var computed = map[string]map[string]Computed{
	models.ModelBook: {
		"display_genre": {
			Label: models.DisplayGenreLabel,
			Func: func(r models.Record) string {
				b, _ := r.(*models.Book)
				return models.DisplayGenre(b)
			},
		},
	},
}

func lookupComputed(model, name string) (Computed, bool) {
	c, ok := computed[model][name]
	return c, ok
}

// Site is the registry of model admins. It is built once at startup and
// frozen; after that it is read-only and safe for concurrent use.
type Site struct {
	mu     sync.RWMutex
	frozen bool
	order  []string
	admins map[string]*ModelAdmin
}

func NewSite() *Site {
	return &Site{admins: make(map[string]*ModelAdmin)}
}

// Register adds ma to the site after checking it against the model's schema.
func (s *Site) Register(ma ModelAdmin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return fmt.Errorf("register %s: %w", ma.Model, ErrSiteFrozen)
	}
	if _, ok := s.admins[ma.Model]; ok {
		return fmt.Errorf("register %s: %w", ma.Model, ErrAlreadyRegistered)
	}
	schema, ok := models.SchemaFor(ma.Model)
	if !ok {
		return fmt.Errorf("register %s: unknown model", ma.Model)
	}
	ma.schema = schema
	ma.Inlines = append([]Inline(nil), ma.Inlines...)
	if err := ma.check(); err != nil {
		return fmt.Errorf("register %s: %w", ma.Model, err)
	}
	s.admins[ma.Model] = &ma
	s.order = append(s.order, ma.Model)
	return nil
}

// Freeze stops further registration.
func (s *Site) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

func (s *Site) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

func (s *Site) Lookup(model string) (*ModelAdmin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ma, ok := s.admins[model]
	if !ok {
		return nil, fmt.Errorf("%s: %w", model, ErrNotRegistered)
	}
	return ma, nil
}

// Models returns the registered admins in registration order.
func (s *Site) Models() []*ModelAdmin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ModelAdmin, 0, len(s.order))
	for _, m := range s.order {
		out = append(out, s.admins[m])
	}
	return out
}

func (ma *ModelAdmin) check() error {
	for _, col := range ma.ListDisplay {
		if col == StrColumn {
			continue
		}
		if _, ok := lookupComputed(ma.Model, col); ok {
			continue
		}
		if _, ok := ma.schema.Field(col); !ok {
			return fmt.Errorf("list_display: unknown field %q", col)
		}
	}
	for _, name := range ma.ListFilter {
		f, ok := ma.schema.Field(name)
		if !ok {
			return fmt.Errorf("list_filter: unknown field %q", name)
		}
		if f.Kind != models.KindChoice && f.Kind != models.KindDate {
			return fmt.Errorf("list_filter: field %q of kind %s cannot be filtered", name, f.Kind)
		}
	}

	seen := make(map[string]bool)
	for _, fs := range ma.Fieldsets {
		for _, row := range fs.Rows {
			if len(row) == 0 {
				return fmt.Errorf("fieldset %q: empty row", fs.Name)
			}
			for _, name := range row {
				if _, ok := ma.schema.Field(name); !ok {
					return fmt.Errorf("fieldset %q: unknown field %q", fs.Name, name)
				}
				if seen[name] {
					return fmt.Errorf("fieldset %q: field %q appears more than once", fs.Name, name)
				}
				seen[name] = true
			}
		}
	}

	for i := range ma.Inlines {
		in := &ma.Inlines[i]
		child, ok := models.SchemaFor(in.Model)
		if !ok {
			return fmt.Errorf("inline: unknown model %q", in.Model)
		}
		fk, ok := child.RelationTo(ma.Model)
		if !ok {
			return fmt.Errorf("inline %s: no foreign key to %s", in.Model, ma.Model)
		}
		if in.FK == "" {
			in.FK = fk.Name
		} else if in.FK != fk.Name {
			return fmt.Errorf("inline %s: field %q is not a foreign key to %s", in.Model, in.FK, ma.Model)
		}
		if in.Style != Stacked && in.Style != Tabular {
			return fmt.Errorf("inline %s: unknown style %q", in.Model, in.Style)
		}
		if in.Extra < 0 {
			return fmt.Errorf("inline %s: negative extra", in.Model)
		}
	}
	return nil
}
