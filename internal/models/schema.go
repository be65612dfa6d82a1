package models

import "strings"

// Field length limits shared by the schema table, the migration and form validation.
const (
	MaxNameLength    = 100
	MaxTitleLength   = 200
	MaxSummaryLength = 1000
	ISBNLength       = 13
	MaxImprintLength = 200
)

// Model names used as keys throughout the admin.
const (
	ModelGenre        = "genre"
	ModelLanguage     = "language"
	ModelAuthor       = "author"
	ModelBook         = "book"
	ModelBookInstance = "bookinstance"
)

type FieldKind string

const (
	KindChar   FieldKind = "char"
	KindText   FieldKind = "text"
	KindDate   FieldKind = "date"
	KindFK     FieldKind = "fk"
	KindM2M    FieldKind = "m2m"
	KindChoice FieldKind = "choice"
	KindUUID   FieldKind = "uuid"
)

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one editable or displayable column of a model.
type Field struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Kind      FieldKind `json:"kind"`
	MaxLength int       `json:"max_length,omitempty"`
	Required  bool      `json:"required"`
	Related   string    `json:"related,omitempty"`
	Choices   []Choice  `json:"choices,omitempty"`
	HelpText  string    `json:"help_text,omitempty"`
	ReadOnly  bool      `json:"read_only,omitempty"`
}

type Schema struct {
	Model         string
	VerboseName   string
	VerbosePlural string
	Fields        []Field
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Editable returns the fields an operator may change, in declaration order.
func (s Schema) Editable() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.ReadOnly {
			out = append(out, f)
		}
	}
	return out
}

// RelationTo returns the foreign-key field of s pointing at model, if any.
func (s Schema) RelationTo(model string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Kind == KindFK && f.Related == model {
			return f, true
		}
	}
	return Field{}, false
}

// Humanize turns a field name into a default label: "date_of_birth" -> "Date of birth".
func Humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func loanStatusChoices() []Choice {
	out := make([]Choice, 0, len(LoanStatuses))
	for _, s := range LoanStatuses {
		out = append(out, Choice{Value: string(s), Label: s.Label()})
	}
	return out
}

var (
	GenreSchema = Schema{
		Model:         ModelGenre,
		VerboseName:   "genre",
		VerbosePlural: "genres",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindChar, MaxLength: MaxNameLength, Required: true, HelpText: "Enter a book genre"},
		},
	}

	LanguageSchema = Schema{
		Model:         ModelLanguage,
		VerboseName:   "language",
		VerbosePlural: "languages",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindChar, MaxLength: MaxNameLength, Required: true, HelpText: "Enter a language the book was written in"},
		},
	}

	AuthorSchema = Schema{
		Model:         ModelAuthor,
		VerboseName:   "author",
		VerbosePlural: "authors",
		Fields: []Field{
			{Name: "first_name", Label: "First name", Kind: KindChar, MaxLength: MaxNameLength, Required: true},
			{Name: "last_name", Label: "Last name", Kind: KindChar, MaxLength: MaxNameLength, Required: true},
			{Name: "date_of_birth", Label: "Date of birth", Kind: KindDate},
			{Name: "date_of_death", Label: "Died", Kind: KindDate},
		},
	}

	BookSchema = Schema{
		Model:         ModelBook,
		VerboseName:   "book",
		VerbosePlural: "books",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindChar, MaxLength: MaxTitleLength, Required: true},
			{Name: "author", Label: "Author", Kind: KindFK, Related: ModelAuthor, Required: true},
			{Name: "summary", Label: "Summary", Kind: KindText, MaxLength: MaxSummaryLength, Required: true, HelpText: "Enter a brief description of the book"},
			{Name: "isbn", Label: "ISBN", Kind: KindChar, MaxLength: ISBNLength, Required: true, HelpText: "13 Character ISBN number"},
			{Name: "genre", Label: "Genre", Kind: KindM2M, Related: ModelGenre, Required: true, HelpText: "Select a genre for this book"},
			{Name: "language", Label: "Language", Kind: KindFK, Related: ModelLanguage, Required: true},
		},
	}

	BookInstanceSchema = Schema{
		Model:         ModelBookInstance,
		VerboseName:   "book instance",
		VerbosePlural: "book instances",
		Fields: []Field{
			{Name: "id", Label: "Id", Kind: KindUUID, ReadOnly: true, HelpText: "Unique ID for this particular book across whole library"},
			{Name: "book", Label: "Book", Kind: KindFK, Related: ModelBook, Required: true},
			{Name: "imprint", Label: "Imprint", Kind: KindChar, MaxLength: MaxImprintLength, Required: true},
			{Name: "due_back", Label: "Due back", Kind: KindDate},
			{Name: "status", Label: "Status", Kind: KindChoice, MaxLength: 1, Choices: loanStatusChoices(), HelpText: "Book availability"},
		},
	}
)

// Schemas returns the schema of every catalog model in registration order.
func Schemas() []Schema {
	return []Schema{GenreSchema, LanguageSchema, AuthorSchema, BookSchema, BookInstanceSchema}
}

// SchemaFor returns the schema registered for model.
func SchemaFor(model string) (Schema, bool) {
	for _, s := range Schemas() {
		if s.Model == model {
			return s, true
		}
	}
	return Schema{}, false
}
