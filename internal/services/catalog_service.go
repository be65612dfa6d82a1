package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"catalog/internal/models"
	"catalog/internal/repositories"
)

// Inline form prefixes, matching the request keys of the parent forms.
const (
	BookSetPrefix         = "book_set"
	BookInstanceSetPrefix = "bookinstance_set"
)

// ─── Service Interface ────────────────────────────────────────────────────────

// CatalogService defines the operations the admin performs on catalog records.
type CatalogService interface {
	ListGenres(ctx context.Context, page Page) (*Result[models.Genre], error)
	GetGenre(ctx context.Context, id int64) (*models.Genre, error)
	CreateGenre(ctx context.Context, in GenreInput) (*models.Genre, error)
	UpdateGenre(ctx context.Context, id int64, in GenreInput) (*models.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error

	ListLanguages(ctx context.Context, page Page) (*Result[models.Language], error)
	GetLanguage(ctx context.Context, id int64) (*models.Language, error)
	CreateLanguage(ctx context.Context, in LanguageInput) (*models.Language, error)
	UpdateLanguage(ctx context.Context, id int64, in LanguageInput) (*models.Language, error)
	DeleteLanguage(ctx context.Context, id int64) error

	ListAuthors(ctx context.Context, page Page) (*Result[models.Author], error)
	GetAuthor(ctx context.Context, id int64) (*models.Author, error)
	CreateAuthor(ctx context.Context, in AuthorInput, books []BookInline) (*models.Author, error)
	UpdateAuthor(ctx context.Context, id int64, in AuthorInput, books []BookInline) (*models.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error

	ListBooks(ctx context.Context, f BookFilter) (*Result[models.Book], error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	CreateBook(ctx context.Context, in BookInput, copies []BookInstanceInline) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput, copies []BookInstanceInline) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	ListBookInstances(ctx context.Context, f BookInstanceFilter) (*Result[models.BookInstance], error)
	GetBookInstance(ctx context.Context, id uuid.UUID) (*models.BookInstance, error)
	CreateBookInstance(ctx context.Context, in BookInstanceInput) (*models.BookInstance, error)
	UpdateBookInstance(ctx context.Context, id uuid.UUID, in BookInstanceInput) (*models.BookInstance, error)
	DeleteBookInstance(ctx context.Context, id uuid.UUID) error
}

// ─── Implementation ───────────────────────────────────────────────────────────

type catalogService struct {
	db           *gorm.DB
	genreRepo    repositories.GenreRepository
	languageRepo repositories.LanguageRepository
	authorRepo   repositories.AuthorRepository
	bookRepo     repositories.BookRepository
	instanceRepo repositories.BookInstanceRepository
	validate     *validator.Validate
	now          func() time.Time
}

// NewCatalogService wires up all dependencies and returns a CatalogService.
func NewCatalogService(
	db *gorm.DB,
	genreRepo repositories.GenreRepository,
	languageRepo repositories.LanguageRepository,
	authorRepo repositories.AuthorRepository,
	bookRepo repositories.BookRepository,
	instanceRepo repositories.BookInstanceRepository,
) CatalogService {
	return &catalogService{
		db:           db,
		genreRepo:    genreRepo,
		languageRepo: languageRepo,
		authorRepo:   authorRepo,
		bookRepo:     bookRepo,
		instanceRepo: instanceRepo,
		validate:     newValidator(),
		now:          time.Now,
	}
}

func (s *catalogService) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// ─── Genres ───────────────────────────────────────────────────────────────────

func (s *catalogService) ListGenres(ctx context.Context, page Page) (*Result[models.Genre], error) {
	items, total, err := s.genreRepo.List(s.conn(ctx), repositories.Query{Limit: page.Size, Offset: page.offset()})
	if err != nil {
		return nil, err
	}
	return &Result[models.Genre]{Items: items, Total: total, Page: page}, nil
}

func (s *catalogService) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	g, err := s.genreRepo.GetByID(s.conn(ctx), id)
	if err != nil {
		return nil, notFound(err, "genre", id)
	}
	return g, nil
}

func (s *catalogService) CreateGenre(ctx context.Context, in GenreInput) (*models.Genre, error) {
	verr := &ValidationError{}
	check(s.validate, in, "", verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	g := &models.Genre{}
	in.apply(g)
	if err := s.genreRepo.Create(s.conn(ctx), g); err != nil {
		log.Printf("[ERROR] CreateGenre: %v", err)
		return nil, err
	}
	log.Printf("[INFO] CreateGenre: created genre %q (id=%d)", g.Name, g.ID)
	return g, nil
}

func (s *catalogService) UpdateGenre(ctx context.Context, id int64, in GenreInput) (*models.Genre, error) {
	verr := &ValidationError{}
	check(s.validate, in, "", verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	g, err := s.GetGenre(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(g)
	if err := s.genreRepo.Update(s.conn(ctx), g); err != nil {
		log.Printf("[ERROR] UpdateGenre: genre %d: %v", id, err)
		return nil, err
	}
	log.Printf("[INFO] UpdateGenre: updated genre %d", id)
	return g, nil
}

// DeleteGenre removes the genre and its links to books; the books remain.
func (s *catalogService) DeleteGenre(ctx context.Context, id int64) error {
	if err := s.genreRepo.Delete(s.conn(ctx), id); err != nil {
		return notFound(err, "genre", id)
	}
	log.Printf("[INFO] DeleteGenre: deleted genre %d", id)
	return nil
}

// ─── Languages ────────────────────────────────────────────────────────────────

func (s *catalogService) ListLanguages(ctx context.Context, page Page) (*Result[models.Language], error) {
	items, total, err := s.languageRepo.List(s.conn(ctx), repositories.Query{Limit: page.Size, Offset: page.offset()})
	if err != nil {
		return nil, err
	}
	return &Result[models.Language]{Items: items, Total: total, Page: page}, nil
}

func (s *catalogService) GetLanguage(ctx context.Context, id int64) (*models.Language, error) {
	l, err := s.languageRepo.GetByID(s.conn(ctx), id)
	if err != nil {
		return nil, notFound(err, "language", id)
	}
	return l, nil
}

func (s *catalogService) CreateLanguage(ctx context.Context, in LanguageInput) (*models.Language, error) {
	verr := &ValidationError{}
	check(s.validate, in, "", verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	l := &models.Language{}
	in.apply(l)
	if err := s.languageRepo.Create(s.conn(ctx), l); err != nil {
		log.Printf("[ERROR] CreateLanguage: %v", err)
		return nil, err
	}
	log.Printf("[INFO] CreateLanguage: created language %q (id=%d)", l.Name, l.ID)
	return l, nil
}

func (s *catalogService) UpdateLanguage(ctx context.Context, id int64, in LanguageInput) (*models.Language, error) {
	verr := &ValidationError{}
	check(s.validate, in, "", verr)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	l, err := s.GetLanguage(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(l)
	if err := s.languageRepo.Update(s.conn(ctx), l); err != nil {
		log.Printf("[ERROR] UpdateLanguage: language %d: %v", id, err)
		return nil, err
	}
	log.Printf("[INFO] UpdateLanguage: updated language %d", id)
	return l, nil
}

// DeleteLanguage removes the language; books written in it keep existing with no language.
func (s *catalogService) DeleteLanguage(ctx context.Context, id int64) error {
	if err := s.languageRepo.Delete(s.conn(ctx), id); err != nil {
		return notFound(err, "language", id)
	}
	log.Printf("[INFO] DeleteLanguage: deleted language %d", id)
	return nil
}

// ─── Authors ──────────────────────────────────────────────────────────────────

func (s *catalogService) ListAuthors(ctx context.Context, page Page) (*Result[models.Author], error) {
	items, total, err := s.authorRepo.List(s.conn(ctx), repositories.Query{Limit: page.Size, Offset: page.offset()})
	if err != nil {
		return nil, err
	}
	return &Result[models.Author]{Items: items, Total: total, Page: page}, nil
}

func (s *catalogService) GetAuthor(ctx context.Context, id int64) (*models.Author, error) {
	a, err := s.authorRepo.GetByID(s.conn(ctx), id)
	if err != nil {
		return nil, notFound(err, "author", id)
	}
	return a, nil
}

// CreateAuthor creates the author and its inline books in a single transaction.
func (s *catalogService) CreateAuthor(ctx context.Context, in AuthorInput, books []BookInline) (*models.Author, error) {
	return s.saveAuthor(ctx, nil, in, books)
}

// UpdateAuthor updates the author and applies its inline book rows in a single transaction.
func (s *catalogService) UpdateAuthor(ctx context.Context, id int64, in AuthorInput, books []BookInline) (*models.Author, error) {
	a, err := s.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveAuthor(ctx, a, in, books)
}

func (s *catalogService) saveAuthor(ctx context.Context, existing *models.Author, in AuthorInput, books []BookInline) (*models.Author, error) {
	verr := &ValidationError{}
	verr.Merge(in.FormErrors)
	check(s.validate, in, "", verr)

	var parentID int64
	if existing != nil {
		parentID = existing.ID
	}
	rows, err := s.prepareBookInlines(ctx, parentID, books, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	author := existing
	if author == nil {
		author = &models.Author{}
	}
	in.apply(author)

	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if existing == nil {
			if err := s.authorRepo.Create(tx, author); err != nil {
				return err
			}
		} else if err := s.authorRepo.Update(tx, author); err != nil {
			return err
		}
		for _, row := range rows {
			if err := s.applyBookInline(tx, author.ID, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] saveAuthor: transaction failed for author %q: %v", author.String(), err)
		return nil, err
	}
	log.Printf("[INFO] saveAuthor: saved author %q (id=%d) with %d inline book rows", author.String(), author.ID, len(rows))
	return author, nil
}

// DeleteAuthor removes the author; the author's books remain with no author.
func (s *catalogService) DeleteAuthor(ctx context.Context, id int64) error {
	if err := s.authorRepo.Delete(s.conn(ctx), id); err != nil {
		return notFound(err, "author", id)
	}
	log.Printf("[INFO] DeleteAuthor: deleted author %d", id)
	return nil
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (s *catalogService) ListBooks(ctx context.Context, f BookFilter) (*Result[models.Book], error) {
	q := repositories.Query{Where: map[string]any{}, Limit: f.Page.Size, Offset: f.Page.offset()}
	if f.AuthorID != nil {
		q.Where["author_id"] = *f.AuthorID
	}
	if f.LanguageID != nil {
		q.Where["language_id"] = *f.LanguageID
	}
	items, total, err := s.bookRepo.List(s.conn(ctx), q)
	if err != nil {
		return nil, err
	}
	return &Result[models.Book]{Items: items, Total: total, Page: f.Page}, nil
}

func (s *catalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	b, err := s.bookRepo.GetByID(s.conn(ctx), id)
	if err != nil {
		return nil, notFound(err, "book", id)
	}
	return b, nil
}

// CreateBook creates the book and its inline copies in a single transaction.
func (s *catalogService) CreateBook(ctx context.Context, in BookInput, copies []BookInstanceInline) (*models.Book, error) {
	return s.saveBook(ctx, nil, in, copies)
}

// UpdateBook updates the book, its genres and its inline copies in a single transaction.
func (s *catalogService) UpdateBook(ctx context.Context, id int64, in BookInput, copies []BookInstanceInline) (*models.Book, error) {
	b, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveBook(ctx, b, in, copies)
}

func (s *catalogService) saveBook(ctx context.Context, existing *models.Book, in BookInput, copies []BookInstanceInline) (*models.Book, error) {
	verr := &ValidationError{}
	verr.Merge(in.FormErrors)
	genres, err := s.checkBook(ctx, in, "", false, verr)
	if err != nil {
		return nil, err
	}

	var parentID int64
	if existing != nil {
		parentID = existing.ID
	}
	rows, err := s.prepareInstanceInlines(ctx, parentID, copies, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	book := existing
	if book == nil {
		book = &models.Book{}
	}
	in.apply(book)

	err = s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if existing == nil {
			book.Genres = genres
			if err := s.bookRepo.Create(tx, book); err != nil {
				return err
			}
		} else {
			if err := s.bookRepo.Update(tx, book); err != nil {
				return err
			}
			if err := s.bookRepo.ReplaceGenres(tx, book, genres); err != nil {
				return err
			}
		}
		for _, row := range rows {
			if err := s.applyInstanceInline(tx, book.ID, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] saveBook: transaction failed for book %q: %v", book.Title, err)
		return nil, err
	}
	log.Printf("[INFO] saveBook: saved book %q (id=%d) with %d inline copy rows", book.Title, book.ID, len(rows))
	return s.GetBook(ctx, book.ID)
}

// DeleteBook removes the book and its genre links; its copies remain with no book.
func (s *catalogService) DeleteBook(ctx context.Context, id int64) error {
	if err := s.bookRepo.Delete(s.conn(ctx), id); err != nil {
		return notFound(err, "book", id)
	}
	log.Printf("[INFO] DeleteBook: deleted book %d", id)
	return nil
}

// checkBook validates in and resolves its references, recording failures under prefix.
// An inline row takes its author from the parent form, so the author is not looked up.
// It returns the selected genres in id order.
func (s *catalogService) checkBook(ctx context.Context, in BookInput, prefix string, inline bool, verr *ValidationError) ([]models.Genre, error) {
	check(s.validate, in, prefix, verr)

	switch {
	case in.AuthorID == nil || inline:
	case *in.AuthorID < 1:
		verr.Add(prefix+"author", msgInvalidChoice)
	default:
		if _, err := s.authorRepo.GetByID(s.conn(ctx), *in.AuthorID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			verr.Add(prefix+"author", msgInvalidChoice)
		}
	}
	if in.LanguageID != nil {
		if _, err := s.languageRepo.GetByID(s.conn(ctx), *in.LanguageID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			verr.Add(prefix+"language", msgInvalidChoice)
		}
	}
	if len(in.GenreIDs) == 0 {
		return nil, nil
	}
	genres, err := s.genreRepo.GetByIDs(s.conn(ctx), in.GenreIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[int64]bool, len(genres))
	for _, g := range genres {
		found[g.ID] = true
	}
	for _, id := range in.GenreIDs {
		if !found[id] {
			verr.Add(prefix+"genre", fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", id))
		}
	}
	return genres, nil
}

type bookRow struct {
	BookInline
	genres []models.Genre
}

func (s *catalogService) prepareBookInlines(ctx context.Context, authorID int64, books []BookInline, verr *ValidationError) ([]bookRow, error) {
	rows := make([]bookRow, 0, len(books))
	for i, b := range books {
		prefix := BookSetPrefix + "." + strconv.Itoa(i) + "."
		if b.ID != 0 {
			existing, err := s.bookRepo.GetByID(s.conn(ctx), b.ID)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, err
				}
				verr.Add(prefix+"id", msgInvalidChoice)
				continue
			}
			if existing.AuthorID == nil || *existing.AuthorID != authorID {
				verr.Add(prefix+"id", msgNotChild)
				continue
			}
		}
		if b.Delete {
			if b.ID == 0 {
				continue
			}
			rows = append(rows, bookRow{BookInline: b})
			continue
		}
		// The parent supplies the author; a placeholder satisfies the required rule.
		placeholder := authorID
		b.AuthorID = &placeholder
		genres, err := s.checkBook(ctx, b.BookInput, prefix, true, verr)
		if err != nil {
			return nil, err
		}
		rows = append(rows, bookRow{BookInline: b, genres: genres})
	}
	return rows, nil
}

func (s *catalogService) applyBookInline(tx *gorm.DB, authorID int64, row bookRow) error {
	if row.Delete {
		return s.bookRepo.Delete(tx, row.ID)
	}
	row.AuthorID = &authorID
	if row.ID == 0 {
		book := &models.Book{Genres: row.genres}
		row.apply(book)
		return s.bookRepo.Create(tx, book)
	}
	book := &models.Book{ID: row.ID}
	row.apply(book)
	if err := s.bookRepo.Update(tx, book); err != nil {
		return err
	}
	return s.bookRepo.ReplaceGenres(tx, book, row.genres)
}

// ─── Book instances ───────────────────────────────────────────────────────────

// ListBookInstances returns copies ordered by due_back ascending; copies with no
// due date come last.
func (s *catalogService) ListBookInstances(ctx context.Context, f BookInstanceFilter) (*Result[models.BookInstance], error) {
	q := repositories.Query{Where: map[string]any{}, Limit: f.Page.Size, Offset: f.Page.offset()}
	if f.BookID != nil {
		q.Where["book_id"] = *f.BookID
	}
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, fmt.Errorf("%w: status=%q", ErrInvalidFilter, *f.Status)
		}
		q.Where["status"] = string(*f.Status)
	}
	if f.DueBack != DueBackAll {
		if _, err := ParseDueBackRange(string(f.DueBack)); err != nil {
			return nil, err
		}
		q.Scopes = append(q.Scopes, dueBackScope(f.DueBack, s.now()))
	}
	items, total, err := s.instanceRepo.List(s.conn(ctx), q)
	if err != nil {
		return nil, err
	}
	return &Result[models.BookInstance]{Items: items, Total: total, Page: f.Page}, nil
}

func (s *catalogService) GetBookInstance(ctx context.Context, id uuid.UUID) (*models.BookInstance, error) {
	bi, err := s.instanceRepo.GetByID(s.conn(ctx), id)
	if err != nil {
		return nil, notFound(err, "book instance", id)
	}
	return bi, nil
}

func (s *catalogService) CreateBookInstance(ctx context.Context, in BookInstanceInput) (*models.BookInstance, error) {
	verr := &ValidationError{}
	verr.Merge(in.FormErrors)
	if err := s.checkInstance(ctx, in, "", verr); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	bi := &models.BookInstance{}
	in.apply(bi)
	if err := s.instanceRepo.Create(s.conn(ctx), bi); err != nil {
		log.Printf("[ERROR] CreateBookInstance: %v", err)
		return nil, err
	}
	log.Printf("[INFO] CreateBookInstance: created copy %s (status=%s)", bi.ID, bi.Status)
	return s.GetBookInstance(ctx, bi.ID)
}

func (s *catalogService) UpdateBookInstance(ctx context.Context, id uuid.UUID, in BookInstanceInput) (*models.BookInstance, error) {
	verr := &ValidationError{}
	verr.Merge(in.FormErrors)
	if err := s.checkInstance(ctx, in, "", verr); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	bi, err := s.GetBookInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(bi)
	bi.Book = nil
	if err := s.instanceRepo.Update(s.conn(ctx), bi); err != nil {
		log.Printf("[ERROR] UpdateBookInstance: copy %s: %v", id, err)
		return nil, err
	}
	log.Printf("[INFO] UpdateBookInstance: updated copy %s (status=%s)", id, bi.Status)
	return s.GetBookInstance(ctx, id)
}

func (s *catalogService) DeleteBookInstance(ctx context.Context, id uuid.UUID) error {
	if err := s.instanceRepo.Delete(s.conn(ctx), id); err != nil {
		return notFound(err, "book instance", id)
	}
	log.Printf("[INFO] DeleteBookInstance: deleted copy %s", id)
	return nil
}

func (s *catalogService) checkInstance(ctx context.Context, in BookInstanceInput, prefix string, verr *ValidationError) error {
	check(s.validate, in, prefix, verr)
	if in.BookID == nil {
		return nil
	}
	if *in.BookID < 1 {
		verr.Add(prefix+"book", msgInvalidChoice)
		return nil
	}
	if _, err := s.bookRepo.GetByID(s.conn(ctx), *in.BookID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		verr.Add(prefix+"book", msgInvalidChoice)
	}
	return nil
}

func (s *catalogService) prepareInstanceInlines(ctx context.Context, bookID int64, copies []BookInstanceInline, verr *ValidationError) ([]BookInstanceInline, error) {
	rows := make([]BookInstanceInline, 0, len(copies))
	for i, c := range copies {
		prefix := BookInstanceSetPrefix + "." + strconv.Itoa(i) + "."
		if c.ID != uuid.Nil {
			existing, err := s.instanceRepo.GetByID(s.conn(ctx), c.ID)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, err
				}
				verr.Add(prefix+"id", msgInvalidChoice)
				continue
			}
			if existing.BookID == nil || *existing.BookID != bookID {
				verr.Add(prefix+"id", msgNotChild)
				continue
			}
		}
		if c.Delete {
			if c.ID != uuid.Nil {
				rows = append(rows, c)
			}
			continue
		}
		placeholder := bookID
		c.BookID = &placeholder
		check(s.validate, c.BookInstanceInput, prefix, verr)
		rows = append(rows, c)
	}
	return rows, nil
}

func (s *catalogService) applyInstanceInline(tx *gorm.DB, bookID int64, row BookInstanceInline) error {
	if row.Delete {
		return s.instanceRepo.Delete(tx, row.ID)
	}
	row.BookID = &bookID
	bi := &models.BookInstance{ID: row.ID}
	row.apply(bi)
	if row.ID == uuid.Nil {
		return s.instanceRepo.Create(tx, bi)
	}
	return s.instanceRepo.Update(tx, bi)
}
