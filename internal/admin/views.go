package admin

import (
	"fmt"
	"strings"
	"time"

	"catalog/internal/models"
	"catalog/internal/services"
)

const (
	// EmptyValue is shown in list cells whose value is null.
	EmptyValue = "-"
	dateLayout = "2006-01-02"
	urlPrefix  = "/admin/catalog/"
)

// ─── List view ────────────────────────────────────────────────────────────────

type Column struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type Row struct {
	Key     string   `json:"key"`
	Str     string   `json:"str"`
	URL     string   `json:"url"`
	SiteURL string   `json:"site_url,omitempty"`
	Cells   []string `json:"cells"`
}

type FilterChoice struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type Filter struct {
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Selected string         `json:"selected"`
	Choices  []FilterChoice `json:"choices"`
}

type PageInfo struct {
	Number   int   `json:"number"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	NumPages int   `json:"num_pages"`
}

type ListView struct {
	Model         string   `json:"model"`
	VerboseName   string   `json:"verbose_name"`
	VerbosePlural string   `json:"verbose_name_plural"`
	AddURL        string   `json:"add_url"`
	Columns       []Column `json:"columns"`
	Rows          []Row    `json:"rows"`
	Filters       []Filter `json:"filters,omitempty"`
	Page          PageInfo `json:"page"`
}

// ListParams describes the page of records handed to BuildListView.
type ListParams struct {
	Page     int
	PerPage  int
	Total    int64
	Selected map[string]string // filter name -> selected value
}

// BuildListView renders records as the list screen of ma.
func BuildListView(ma *ModelAdmin, records []models.Record, p ListParams) ListView {
	schema := ma.Schema()
	view := ListView{
		Model:         ma.Model,
		VerboseName:   schema.VerboseName,
		VerbosePlural: schema.VerbosePlural,
		AddURL:        urlPrefix + ma.Model + "/add/",
		Rows:          make([]Row, 0, len(records)),
		Page:          pageInfo(p),
	}

	cols := ma.Columns()
	for _, name := range cols {
		view.Columns = append(view.Columns, Column{Name: name, Label: columnLabel(ma, name)})
	}

	for _, rec := range records {
		row := Row{
			Key:   rec.Key(),
			Str:   rec.String(),
			URL:   ChangeURL(ma.Model, rec.Key()),
			Cells: make([]string, 0, len(cols)),
		}
		if u, ok := rec.(interface{ AbsoluteURL() string }); ok {
			row.SiteURL = u.AbsoluteURL()
		}
		for _, name := range cols {
			row.Cells = append(row.Cells, cellValue(ma, rec, name))
		}
		view.Rows = append(view.Rows, row)
	}

	for _, name := range ma.ListFilter {
		f, _ := schema.Field(name)
		view.Filters = append(view.Filters, buildFilter(f, p.Selected[name]))
	}
	return view
}

// ChangeURL is the admin path of one record's change form.
func ChangeURL(model, key string) string {
	return urlPrefix + model + "/" + key + "/"
}

func pageInfo(p ListParams) PageInfo {
	info := PageInfo{Number: p.Page, PerPage: p.PerPage, Total: p.Total, NumPages: 1}
	if info.Number < 1 {
		info.Number = 1
	}
	if p.PerPage > 0 && p.Total > 0 {
		info.NumPages = int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
	}
	return info
}

func columnLabel(ma *ModelAdmin, name string) string {
	if name == StrColumn {
		return ma.Schema().VerboseName
	}
	if c, ok := lookupComputed(ma.Model, name); ok {
		return c.Label
	}
	if f, ok := ma.Schema().Field(name); ok {
		return f.Label
	}
	return models.Humanize(name)
}

func cellValue(ma *ModelAdmin, rec models.Record, name string) string {
	if name == StrColumn {
		return rec.String()
	}
	if c, ok := lookupComputed(ma.Model, name); ok {
		return c.Func(rec)
	}
	f, _ := ma.Schema().Field(name)
	return displayValue(f, rec.Value(name))
}

// displayValue formats a field value for a list cell.
func displayValue(f models.Field, v any) string {
	if v == nil {
		return EmptyValue
	}
	if f.Kind == models.KindChoice {
		code := fmt.Sprint(v)
		for _, c := range f.Choices {
			if c.Value == code {
				return c.Label
			}
		}
		return EmptyValue
	}
	switch x := v.(type) {
	case time.Time:
		return x.Format(dateLayout)
	case []models.Record:
		if len(x) == 0 {
			return EmptyValue
		}
		names := make([]string, 0, len(x))
		for _, r := range x {
			names = append(names, r.String())
		}
		return strings.Join(names, ", ")
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func buildFilter(f models.Field, selected string) Filter {
	flt := Filter{Name: f.Name, Label: f.Label, Selected: selected}
	add := func(value, label string) {
		flt.Choices = append(flt.Choices, FilterChoice{Value: value, Label: label, Selected: value == selected})
	}
	switch f.Kind {
	case models.KindChoice:
		add("", "All")
		for _, c := range f.Choices {
			add(c.Value, c.Label)
		}
	case models.KindDate:
		for _, r := range services.DueBackRanges {
			add(string(r.Value), r.Label)
		}
	}
	return flt
}

// ─── Change form ──────────────────────────────────────────────────────────────

type FormField struct {
	models.Field
	Value any `json:"value"`
}

type FormFieldset struct {
	Name string        `json:"name,omitempty"`
	Rows [][]FormField `json:"rows"`
}

type InlineRow struct {
	Key    string         `json:"key"`
	Str    string         `json:"str"`
	Values map[string]any `json:"values"`
}

type InlineGroup struct {
	Model         string         `json:"model"`
	VerbosePlural string         `json:"verbose_name_plural"`
	Prefix        string         `json:"prefix"`
	Style         InlineStyle    `json:"style"`
	Extra         int            `json:"extra"`
	Fields        []models.Field `json:"fields"`
	Rows          []InlineRow    `json:"rows"`
}

type ChangeForm struct {
	Model       string         `json:"model"`
	VerboseName string         `json:"verbose_name"`
	Add         bool           `json:"add"`
	Key         string         `json:"key,omitempty"`
	Str         string         `json:"str,omitempty"`
	ViewOnSite  string         `json:"view_on_site,omitempty"`
	Fieldsets   []FormFieldset `json:"fieldsets"`
	Inlines     []InlineGroup  `json:"inlines,omitempty"`
}

// InlinePrefix is the request key under which an inline's rows are submitted.
func InlinePrefix(model string) string {
	return model + "_set"
}

// BuildChangeForm renders the change form of rec, or the add form when rec is nil.
// children holds the existing inline rows keyed by child model.
func BuildChangeForm(ma *ModelAdmin, rec models.Record, children map[string][]models.Record) ChangeForm {
	schema := ma.Schema()
	form := ChangeForm{
		Model:       ma.Model,
		VerboseName: schema.VerboseName,
		Add:         rec == nil,
	}
	if rec != nil {
		form.Key = rec.Key()
		form.Str = rec.String()
		if u, ok := rec.(interface{ AbsoluteURL() string }); ok {
			form.ViewOnSite = u.AbsoluteURL()
		}
	}

	for _, fs := range ma.Layout() {
		out := FormFieldset{Name: fs.Name}
		for _, names := range fs.Rows {
			row := make([]FormField, 0, len(names))
			for _, name := range names {
				f, _ := schema.Field(name)
				ff := FormField{Field: f}
				if rec != nil {
					ff.Value = formValue(rec.Value(name))
				}
				row = append(row, ff)
			}
			out.Rows = append(out.Rows, row)
		}
		form.Fieldsets = append(form.Fieldsets, out)
	}

	for _, in := range ma.Inlines {
		child, _ := models.SchemaFor(in.Model)
		group := InlineGroup{
			Model:         in.Model,
			VerbosePlural: child.VerbosePlural,
			Prefix:        InlinePrefix(in.Model),
			Style:         in.Style,
			Extra:         in.Extra,
			Rows:          []InlineRow{},
		}
		for _, f := range child.Editable() {
			if f.Name != in.FK {
				group.Fields = append(group.Fields, f)
			}
		}
		for _, c := range children[in.Model] {
			r := InlineRow{Key: c.Key(), Str: c.String(), Values: make(map[string]any, len(group.Fields))}
			for _, f := range group.Fields {
				r.Values[f.Name] = formValue(c.Value(f.Name))
			}
			group.Rows = append(group.Rows, r)
		}
		form.Inlines = append(form.Inlines, group)
	}
	return form
}

// formValue converts a field value to what a form input holds: related
// records become their keys, dates their ISO form.
func formValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(dateLayout)
	case []models.Record:
		keys := make([]string, 0, len(x))
		for _, r := range x {
			keys = append(keys, r.Key())
		}
		return keys
	case models.Record:
		return x.Key()
	case models.LoanStatus:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return v
}
