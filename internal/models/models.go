package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoanStatus string

const (
	LoanStatusMaintenance LoanStatus = "m"
	LoanStatusOnLoan      LoanStatus = "o"
	LoanStatusAvailable   LoanStatus = "a"
	LoanStatusReserved    LoanStatus = "r"
)

// LoanStatuses lists the status codes in display order.
var LoanStatuses = []LoanStatus{
	LoanStatusMaintenance,
	LoanStatusOnLoan,
	LoanStatusAvailable,
	LoanStatusReserved,
}

var loanStatusLabels = map[LoanStatus]string{
	LoanStatusMaintenance: "Maintenance",
	LoanStatusOnLoan:      "On loan",
	LoanStatusAvailable:   "Available",
	LoanStatusReserved:    "Reserved",
}

// Label returns the human-readable name of the status, or the raw code when unknown.
func (s LoanStatus) Label() string {
	if l, ok := loanStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s LoanStatus) Valid() bool {
	_, ok := loanStatusLabels[s]
	return ok
}

// Record is implemented by every catalog entity.
type Record interface {
	fmt.Stringer
	// Key is the primary key rendered as a string.
	Key() string
	// Value returns the current value of a schema field, or nil when unset.
	Value(field string) any
}

type Genre struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
}

type Language struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
}

type Author struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName   string     `gorm:"size:100;not null" json:"first_name"`
	LastName    string     `gorm:"size:100;not null" json:"last_name"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth"`
	DateOfDeath *time.Time `gorm:"type:date" json:"date_of_death"`
}

// Book is a title, not a physical copy.
type Book struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	AuthorID   *int64    `gorm:"index" json:"author_id"`
	Author     *Author   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"author,omitempty"`
	Summary    string    `gorm:"type:text;not null" json:"summary"`
	ISBN       string    `gorm:"column:isbn;size:13;not null" json:"isbn"`
	Genres     []Genre   `gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;" json:"genre"`
	LanguageID *int64    `gorm:"index" json:"language_id"`
	Language   *Language `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"language,omitempty"`
}

// BookInstance is one physical, loanable copy of a Book.
type BookInstance struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookID  *int64     `gorm:"index" json:"book_id"`
	Book    *Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"book,omitempty"`
	Imprint string     `gorm:"size:200;not null" json:"imprint"`
	DueBack *time.Time `gorm:"type:date;index" json:"due_back"`
	Status  LoanStatus `gorm:"size:1;not null;default:m" json:"status"`
}

// BeforeCreate assigns a fresh identifier and the default status.
func (bi *BookInstance) BeforeCreate(_ *gorm.DB) error {
	if bi.ID == uuid.Nil {
		bi.ID = uuid.New()
	}
	if bi.Status == "" {
		bi.Status = LoanStatusMaintenance
	}
	return nil
}

func (g *Genre) String() string { return g.Name }
func (l *Language) String() string { return l.Name }
func (b *Book) String() string { return b.Title }

func (a *Author) String() string {
	return fmt.Sprintf("%s %s", a.LastName, a.FirstName)
}

func (bi *BookInstance) String() string {
	title := "-"
	if bi.Book != nil {
		title = bi.Book.Title
	}
	return fmt.Sprintf("%s (%s)", bi.ID, title)
}

func (g *Genre) Key() string { return strconv.FormatInt(g.ID, 10) }
func (l *Language) Key() string { return strconv.FormatInt(l.ID, 10) }
func (a *Author) Key() string { return strconv.FormatInt(a.ID, 10) }
func (b *Book) Key() string { return strconv.FormatInt(b.ID, 10) }
func (bi *BookInstance) Key() string { return bi.ID.String() }

// AbsoluteURL is the canonical path of the book's detail page.
func (b *Book) AbsoluteURL() string {
	return "/catalog/book/" + b.Key()
}

// AbsoluteURL is the canonical path of the author's detail page.
func (a *Author) AbsoluteURL() string {
	return "/catalog/author/" + a.Key()
}

func (g *Genre) Value(field string) any {
	switch field {
	case "id":
		return g.ID
	case "name":
		return g.Name
	}
	return nil
}

func (l *Language) Value(field string) any {
	switch field {
	case "id":
		return l.ID
	case "name":
		return l.Name
	}
	return nil
}

func (a *Author) Value(field string) any {
	switch field {
	case "id":
		return a.ID
	case "first_name":
		return a.FirstName
	case "last_name":
		return a.LastName
	case "date_of_birth":
		return date(a.DateOfBirth)
	case "date_of_death":
		return date(a.DateOfDeath)
	}
	return nil
}

func (b *Book) Value(field string) any {
	switch field {
	case "id":
		return b.ID
	case "title":
		return b.Title
	case "author":
		if b.Author == nil {
			return nil
		}
		return b.Author
	case "summary":
		return b.Summary
	case "isbn":
		return b.ISBN
	case "genre":
		out := make([]Record, 0, len(b.Genres))
		for i := range b.Genres {
			out = append(out, &b.Genres[i])
		}
		return out
	case "language":
		if b.Language == nil {
			return nil
		}
		return b.Language
	}
	return nil
}

func (bi *BookInstance) Value(field string) any {
	switch field {
	case "id":
		return bi.ID
	case "book":
		if bi.Book == nil {
			return nil
		}
		return bi.Book
	case "imprint":
		return bi.Imprint
	case "due_back":
		return date(bi.DueBack)
	case "status":
		return bi.Status
	}
	return nil
}

func date(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
