package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog/internal/models"
)

// ErrUnknownColumn is returned when a Query filters on a column the repository does not expose.
var ErrUnknownColumn = errors.New("unknown filter column")

// Query narrows a List call. Where keys are column names; a nil value matches NULL.
type Query struct {
	Where  map[string]any
	Scopes []func(*gorm.DB) *gorm.DB
	Limit  int
	Offset int
}

type GenreRepository interface {
	Create(db *gorm.DB, genre *models.Genre) error
	GetByID(db *gorm.DB, id int64) (*models.Genre, error)
	GetByIDs(db *gorm.DB, ids []int64) ([]models.Genre, error)
	List(db *gorm.DB, q Query) ([]models.Genre, int64, error)
	Update(db *gorm.DB, genre *models.Genre) error
	Delete(db *gorm.DB, id int64) error
}

type LanguageRepository interface {
	Create(db *gorm.DB, language *models.Language) error
	GetByID(db *gorm.DB, id int64) (*models.Language, error)
	List(db *gorm.DB, q Query) ([]models.Language, int64, error)
	Update(db *gorm.DB, language *models.Language) error
	Delete(db *gorm.DB, id int64) error
}

type AuthorRepository interface {
	Create(db *gorm.DB, author *models.Author) error
	GetByID(db *gorm.DB, id int64) (*models.Author, error)
	List(db *gorm.DB, q Query) ([]models.Author, int64, error)
	Update(db *gorm.DB, author *models.Author) error
	Delete(db *gorm.DB, id int64) error
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id int64) (*models.Book, error)
	List(db *gorm.DB, q Query) ([]models.Book, int64, error)
	Update(db *gorm.DB, book *models.Book) error
	ReplaceGenres(db *gorm.DB, book *models.Book, genres []models.Genre) error
	Delete(db *gorm.DB, id int64) error
}

type BookInstanceRepository interface {
	Create(db *gorm.DB, instance *models.BookInstance) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.BookInstance, error)
	List(db *gorm.DB, q Query) ([]models.BookInstance, int64, error)
	Update(db *gorm.DB, instance *models.BookInstance) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

// store implements the CRUD surface shared by every catalog table.
type store[T any, K comparable] struct {
	db      *gorm.DB
	name    string
	columns []string // filterable columns
	updates []string // columns written by Update
	omit    []string // associations skipped by Create
	order   string
	preload func(*gorm.DB) *gorm.DB
}

func (r *store[T, K]) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *store[T, K]) reads(db *gorm.DB) *gorm.DB {
	db = r.conn(db)
	if r.preload != nil {
		db = r.preload(db)
	}
	return db
}

func (r *store[T, K]) Create(db *gorm.DB, v *T) error {
	tx := r.conn(db)
	if len(r.omit) > 0 {
		tx = tx.Omit(r.omit...)
	}
	if err := tx.Create(v).Error; err != nil {
		return fmt.Errorf("create %s: %w", r.name, err)
	}
	return nil
}

func (r *store[T, K]) GetByID(db *gorm.DB, id K) (*T, error) {
	var v T
	if err := r.reads(db).First(&v, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get %s %v: %w", r.name, id, err)
	}
	return &v, nil
}

func (r *store[T, K]) GetByIDs(db *gorm.DB, ids []K) ([]T, error) {
	var list []T
	if len(ids) == 0 {
		return list, nil
	}
	if err := r.reads(db).Where("id IN ?", ids).Order("id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get %s by ids: %w", r.name, err)
	}
	return list, nil
}

func (r *store[T, K]) List(db *gorm.DB, q Query) ([]T, int64, error) {
	filtered := r.conn(db).Model(new(T))
	for col, val := range q.Where {
		if !r.filterable(col) {
			return nil, 0, fmt.Errorf("list %s: %w: %s", r.name, ErrUnknownColumn, col)
		}
		filtered = filtered.Where(clause.Eq{Column: clause.Column{Name: col}, Value: val})
	}
	filtered = filtered.Scopes(q.Scopes...)

	var total int64
	if err := filtered.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.name, err)
	}

	page := filtered.Session(&gorm.Session{})
	if r.preload != nil {
		page = r.preload(page)
	}
	if r.order != "" {
		page = page.Order(r.order)
	}
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	if q.Offset > 0 {
		page = page.Offset(q.Offset)
	}

	var list []T
	if err := page.Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.name, err)
	}
	return list, total, nil
}

func (r *store[T, K]) Update(db *gorm.DB, v *T) error {
	if err := r.conn(db).Model(v).Select(r.updates).Updates(v).Error; err != nil {
		return fmt.Errorf("update %s: %w", r.name, err)
	}
	return nil
}

// Delete removes one row. Referencing rows are cleared by the ON DELETE SET NULL
// constraints of the schema, join rows by ON DELETE CASCADE.
func (r *store[T, K]) Delete(db *gorm.DB, id K) error {
	res := r.conn(db).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete %s %v: %w", r.name, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete %s %v: %w", r.name, id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *store[T, K]) filterable(col string) bool {
	for _, c := range r.columns {
		if c == col {
			return true
		}
	}
	return false
}

// concrete implementations

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &store[models.Genre, int64]{
		db:      db,
		name:    "genre",
		columns: []string{"id", "name"},
		updates: []string{"name"},
		order:   "id",
	}
}

func NewLanguageRepository(db *gorm.DB) LanguageRepository {
	return &store[models.Language, int64]{
		db:      db,
		name:    "language",
		columns: []string{"id", "name"},
		updates: []string{"name"},
		order:   "id",
	}
}

func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &store[models.Author, int64]{
		db:      db,
		name:    "author",
		columns: []string{"id", "first_name", "last_name", "date_of_birth", "date_of_death"},
		updates: []string{"first_name", "last_name", "date_of_birth", "date_of_death"},
		order:   "id",
	}
}

type bookRepository struct {
	*store[models.Book, int64]
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{store: &store[models.Book, int64]{
		db:      db,
		name:    "book",
		columns: []string{"id", "title", "author_id", "isbn", "language_id"},
		updates: []string{"title", "author_id", "summary", "isbn", "language_id"},
		// Genres are linked through the join table only; the genre rows already exist.
		omit:    []string{"Author", "Language", "Genres.*"},
		order:   "id",
		preload: preloadBook,
	}}
}

func (r *bookRepository) ReplaceGenres(db *gorm.DB, book *models.Book, genres []models.Genre) error {
	if err := r.conn(db).Model(book).Omit("Genres.*").Association("Genres").Replace(genres); err != nil {
		return fmt.Errorf("replace genres of book %d: %w", book.ID, err)
	}
	book.Genres = genres
	return nil
}

func NewBookInstanceRepository(db *gorm.DB) BookInstanceRepository {
	return &store[models.BookInstance, uuid.UUID]{
		db:      db,
		name:    "book instance",
		columns: []string{"id", "book_id", "status", "due_back"},
		updates: []string{"book_id", "imprint", "due_back", "status"},
		omit:    []string{"Book"},
		// Instances without a due date sort after every dated one.
		order:   "due_back ASC NULLS LAST, id ASC",
		preload: func(db *gorm.DB) *gorm.DB {
			return db.Preload("Book")
		},
	}
}

func preloadBook(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Language").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("genres.id")
		})
}
