package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"catalog/internal/models"
)

// Page selects a 1-based page of a list. A zero Size returns every row.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Size <= 0 || p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

type Result[T any] struct {
	Items []T
	Total int64
	Page  Page
}

type BookFilter struct {
	AuthorID   *int64
	LanguageID *int64
	Page       Page
}

type BookInstanceFilter struct {
	BookID  *int64
	Status  *models.LoanStatus
	DueBack DueBackRange
	Page    Page
}

// DueBackRange is a coarse date filter over BookInstance.due_back.
type DueBackRange string

const (
	DueBackAll       DueBackRange = ""
	DueBackToday     DueBackRange = "today"
	DueBackPast7Days DueBackRange = "past_7_days"
	DueBackThisMonth DueBackRange = "this_month"
	DueBackThisYear  DueBackRange = "this_year"
	DueBackNone      DueBackRange = "none"
	DueBackAny       DueBackRange = "any"
)

// DueBackRanges lists the filter values in display order, with their labels.
var DueBackRanges = []struct {
	Value DueBackRange
	Label string
}{
	{DueBackAll, "Any date"},
	{DueBackToday, "Today"},
	{DueBackPast7Days, "Past 7 days"},
	{DueBackThisMonth, "This month"},
	{DueBackThisYear, "This year"},
	{DueBackNone, "No date"},
	{DueBackAny, "Has date"},
}

func ParseDueBackRange(s string) (DueBackRange, error) {
	for _, r := range DueBackRanges {
		if string(r.Value) == s {
			return r.Value, nil
		}
	}
	return "", fmt.Errorf("%w: due_back=%q", ErrInvalidFilter, s)
}

func ParseLoanStatus(s string) (models.LoanStatus, error) {
	st := models.LoanStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: status=%q", ErrInvalidFilter, s)
	}
	return st, nil
}

// dueBackBounds returns the half-open date interval [from, to) covered by r,
// relative to the UTC calendar day of now.
func dueBackBounds(r DueBackRange, now time.Time) (from, to time.Time, ok bool) {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	switch r {
	case DueBackToday:
		return today, tomorrow, true
	case DueBackPast7Days:
		return today.AddDate(0, 0, -7), tomorrow, true
	case DueBackThisMonth:
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, 0), true
	case DueBackThisYear:
		first := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

func dueBackScope(r DueBackRange, now time.Time) func(*gorm.DB) *gorm.DB {
	switch r {
	case DueBackAll:
		return nil
	case DueBackNone:
		return func(db *gorm.DB) *gorm.DB { return db.Where("due_back IS NULL") }
	case DueBackAny:
		return func(db *gorm.DB) *gorm.DB { return db.Where("due_back IS NOT NULL") }
	}
	from, to, ok := dueBackBounds(r, now)
	if !ok {
		return nil
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("due_back >= ? AND due_back < ?", from, to)
	}
}
