package services

import (
	"time"

	"github.com/google/uuid"

	"catalog/internal/models"
)

type GenreInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type LanguageInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// FormErrors on the inputs below holds the errors found while decoding the
// submitted form; they are reported together with the field validation.

type AuthorInput struct {
	FirstName   string     `json:"first_name" validate:"required,max=100"`
	LastName    string     `json:"last_name" validate:"required,max=100"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	DateOfDeath *time.Time `json:"date_of_death"`

	FormErrors *ValidationError `json:"-" validate:"-"`
}

// BookInput carries the editable fields of a Book. The references are required
// on the form even though the columns are nullable.
type BookInput struct {
	Title      string  `json:"title" validate:"required,max=200"`
	AuthorID   *int64  `json:"author" validate:"required"`
	Summary    string  `json:"summary" validate:"required,max=1000"`
	ISBN       string  `json:"isbn" validate:"required,max=13"`
	GenreIDs   []int64 `json:"genre" validate:"min=1"`
	LanguageID *int64  `json:"language" validate:"required"`

	FormErrors *ValidationError `json:"-" validate:"-"`
}

type BookInstanceInput struct {
	BookID  *int64            `json:"book" validate:"required"`
	Imprint string            `json:"imprint" validate:"required,max=200"`
	DueBack *time.Time        `json:"due_back"`
	Status  models.LoanStatus `json:"status" validate:"omitempty,oneof=m o a r"`

	FormErrors *ValidationError `json:"-" validate:"-"`
}

// BookInline is one row of the books embedded in an author's form.
// A zero ID creates a book; Delete removes the addressed book.
type BookInline struct {
	ID     int64
	Delete bool
	BookInput
}

// BookInstanceInline is one row of the copies embedded in a book's form.
// A nil ID creates a copy; Delete removes the addressed copy.
type BookInstanceInline struct {
	ID     uuid.UUID
	Delete bool
	BookInstanceInput
}

func (in GenreInput) apply(g *models.Genre) {
	g.Name = in.Name
}

func (in LanguageInput) apply(l *models.Language) {
	l.Name = in.Name
}

func (in AuthorInput) apply(a *models.Author) {
	a.FirstName = in.FirstName
	a.LastName = in.LastName
	a.DateOfBirth = in.DateOfBirth
	a.DateOfDeath = in.DateOfDeath
}

func (in BookInput) apply(b *models.Book) {
	b.Title = in.Title
	b.AuthorID = in.AuthorID
	b.Summary = in.Summary
	b.ISBN = in.ISBN
	b.LanguageID = in.LanguageID
}

func (in BookInstanceInput) apply(bi *models.BookInstance) {
	bi.BookID = in.BookID
	bi.Imprint = in.Imprint
	bi.DueBack = in.DueBack
	bi.Status = in.Status
	if bi.Status == "" {
		bi.Status = models.LoanStatusMaintenance
	}
}
