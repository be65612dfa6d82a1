package handlers

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"catalog/internal/models"
	"catalog/internal/services"
)

const dateLayout = "2006-01-02"

// Request bodies mirror the change form: dates are "YYYY-MM-DD" strings,
// references are primary keys, and inline rows sit under their prefix.

type authorForm struct {
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	DateOfBirth string           `json:"date_of_birth"`
	DateOfDeath string           `json:"date_of_death"`
	BookSet     []bookInlineForm `json:"book_set"`
}

type bookForm struct {
	Title           string               `json:"title"`
	Author          *int64               `json:"author"`
	Summary         string               `json:"summary"`
	ISBN            string               `json:"isbn"`
	Genre           []int64              `json:"genre"`
	Language        *int64               `json:"language"`
	BookInstanceSet []instanceInlineForm `json:"bookinstance_set"`
}

type bookInlineForm struct {
	ID       int64   `json:"id"`
	Delete   bool    `json:"DELETE"`
	Title    string  `json:"title"`
	Summary  string  `json:"summary"`
	ISBN     string  `json:"isbn"`
	Genre    []int64 `json:"genre"`
	Language *int64  `json:"language"`
}

type instanceForm struct {
	Book    *int64 `json:"book"`
	Imprint string `json:"imprint"`
	DueBack string `json:"due_back"`
	Status  string `json:"status"`
}

type instanceInlineForm struct {
	ID      string `json:"id"`
	Delete  bool   `json:"DELETE"`
	Imprint string `json:"imprint"`
	DueBack string `json:"due_back"`
	Status  string `json:"status"`
}

func (f authorForm) input() (services.AuthorInput, []services.BookInline) {
	verr := &services.ValidationError{}
	in := services.AuthorInput{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		DateOfBirth: parseDate(verr, "date_of_birth", f.DateOfBirth),
		DateOfDeath: parseDate(verr, "date_of_death", f.DateOfDeath),
	}
	books := make([]services.BookInline, 0, len(f.BookSet))
	for _, row := range f.BookSet {
		books = append(books, services.BookInline{
			ID:     row.ID,
			Delete: row.Delete,
			BookInput: services.BookInput{
				Title:      row.Title,
				Summary:    row.Summary,
				ISBN:       row.ISBN,
				GenreIDs:   row.Genre,
				LanguageID: row.Language,
			},
		})
	}
	in.FormErrors = formErrors(verr)
	return in, books
}

func (f bookForm) input() (services.BookInput, []services.BookInstanceInline) {
	verr := &services.ValidationError{}
	in := services.BookInput{
		Title:      f.Title,
		AuthorID:   f.Author,
		Summary:    f.Summary,
		ISBN:       f.ISBN,
		GenreIDs:   f.Genre,
		LanguageID: f.Language,
	}
	copies := make([]services.BookInstanceInline, 0, len(f.BookInstanceSet))
	for i, row := range f.BookInstanceSet {
		prefix := services.BookInstanceSetPrefix + "." + strconv.Itoa(i) + "."
		var id uuid.UUID
		if row.ID != "" {
			parsed, err := uuid.Parse(row.ID)
			if err != nil {
				verr.Add(prefix+"id", "“"+row.ID+"” is not a valid UUID.")
				continue
			}
			id = parsed
		}
		copies = append(copies, services.BookInstanceInline{
			ID:     id,
			Delete: row.Delete,
			BookInstanceInput: services.BookInstanceInput{
				Imprint: row.Imprint,
				DueBack: parseDate(verr, prefix+"due_back", row.DueBack),
				Status:  models.LoanStatus(row.Status),
			},
		})
	}
	in.FormErrors = formErrors(verr)
	return in, copies
}

func (f instanceForm) input() services.BookInstanceInput {
	verr := &services.ValidationError{}
	in := services.BookInstanceInput{
		BookID:  f.Book,
		Imprint: f.Imprint,
		DueBack: parseDate(verr, "due_back", f.DueBack),
		Status:  models.LoanStatus(f.Status),
	}
	in.FormErrors = formErrors(verr)
	return in
}

func formErrors(verr *services.ValidationError) *services.ValidationError {
	if verr.Empty() {
		return nil
	}
	return verr
}

// parseDate reads an optional date, recording a field error when it is malformed.
func parseDate(verr *services.ValidationError, field, s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		verr.InvalidDate(field)
		return nil
	}
	return &t
}
