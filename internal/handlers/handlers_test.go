package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog/internal/admin"
	"catalog/internal/models"
	"catalog/internal/services"
)

// MockCatalogService mocks the CatalogService interface
type MockCatalogService struct {
	mock.Mock
}

func result[T any](args mock.Arguments) (*services.Result[T], error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Result[T]), args.Error(1)
}

func record[T any](args mock.Arguments) (*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockCatalogService) ListGenres(ctx context.Context, page services.Page) (*services.Result[models.Genre], error) {
	return result[models.Genre](m.Called(ctx, page))
}
func (m *MockCatalogService) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	return record[models.Genre](m.Called(ctx, id))
}
func (m *MockCatalogService) CreateGenre(ctx context.Context, in services.GenreInput) (*models.Genre, error) {
	return record[models.Genre](m.Called(ctx, in))
}
func (m *MockCatalogService) UpdateGenre(ctx context.Context, id int64, in services.GenreInput) (*models.Genre, error) {
	return record[models.Genre](m.Called(ctx, id, in))
}
func (m *MockCatalogService) DeleteGenre(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListLanguages(ctx context.Context, page services.Page) (*services.Result[models.Language], error) {
	return result[models.Language](m.Called(ctx, page))
}
func (m *MockCatalogService) GetLanguage(ctx context.Context, id int64) (*models.Language, error) {
	return record[models.Language](m.Called(ctx, id))
}
func (m *MockCatalogService) CreateLanguage(ctx context.Context, in services.LanguageInput) (*models.Language, error) {
	return record[models.Language](m.Called(ctx, in))
}
func (m *MockCatalogService) UpdateLanguage(ctx context.Context, id int64, in services.LanguageInput) (*models.Language, error) {
	return record[models.Language](m.Called(ctx, id, in))
}
func (m *MockCatalogService) DeleteLanguage(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListAuthors(ctx context.Context, page services.Page) (*services.Result[models.Author], error) {
	return result[models.Author](m.Called(ctx, page))
}
func (m *MockCatalogService) GetAuthor(ctx context.Context, id int64) (*models.Author, error) {
	return record[models.Author](m.Called(ctx, id))
}
func (m *MockCatalogService) CreateAuthor(ctx context.Context, in services.AuthorInput, books []services.BookInline) (*models.Author, error) {
	return record[models.Author](m.Called(ctx, in, books))
}
func (m *MockCatalogService) UpdateAuthor(ctx context.Context, id int64, in services.AuthorInput, books []services.BookInline) (*models.Author, error) {
	return record[models.Author](m.Called(ctx, id, in, books))
}
func (m *MockCatalogService) DeleteAuthor(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListBooks(ctx context.Context, f services.BookFilter) (*services.Result[models.Book], error) {
	return result[models.Book](m.Called(ctx, f))
}
func (m *MockCatalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return record[models.Book](m.Called(ctx, id))
}
func (m *MockCatalogService) CreateBook(ctx context.Context, in services.BookInput, copies []services.BookInstanceInline) (*models.Book, error) {
	return record[models.Book](m.Called(ctx, in, copies))
}
func (m *MockCatalogService) UpdateBook(ctx context.Context, id int64, in services.BookInput, copies []services.BookInstanceInline) (*models.Book, error) {
	return record[models.Book](m.Called(ctx, id, in, copies))
}
func (m *MockCatalogService) DeleteBook(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListBookInstances(ctx context.Context, f services.BookInstanceFilter) (*services.Result[models.BookInstance], error) {
	return result[models.BookInstance](m.Called(ctx, f))
}
func (m *MockCatalogService) GetBookInstance(ctx context.Context, id uuid.UUID) (*models.BookInstance, error) {
	return record[models.BookInstance](m.Called(ctx, id))
}
func (m *MockCatalogService) CreateBookInstance(ctx context.Context, in services.BookInstanceInput) (*models.BookInstance, error) {
	return record[models.BookInstance](m.Called(ctx, in))
}
func (m *MockCatalogService) UpdateBookInstance(ctx context.Context, id uuid.UUID, in services.BookInstanceInput) (*models.BookInstance, error) {
	return record[models.BookInstance](m.Called(ctx, id, in))
}
func (m *MockCatalogService) DeleteBookInstance(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func setupRouter(t *testing.T, svc services.CatalogService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	site, err := admin.Default()
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestID())
	RegisterRoutes(r, site, svc, 0)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func int64Ptr(v int64) *int64 { return &v }

func TestHealthzAndRequestID(t *testing.T) {
	r := setupRouter(t, new(MockCatalogService))

	w := do(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestIndex(t *testing.T) {
	r := setupRouter(t, new(MockCatalogService))

	w := do(r, http.MethodGet, "/admin/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	entries := body["models"].([]any)
	require.Len(t, entries, 5)
	last := entries[4].(map[string]any)
	assert.Equal(t, "bookinstance", last["model"])
	assert.Equal(t, "/admin/catalog/bookinstance/add/", last["add_url"])
}

func TestListGenres(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	svc.On("ListGenres", mock.Anything, services.Page{Number: 2, Size: DefaultPerPage}).
		Return(&services.Result[models.Genre]{Items: []models.Genre{{ID: 1, Name: "Fantasy"}}, Total: 101}, nil)

	w := do(r, http.MethodGet, "/admin/catalog/genre/?page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view admin.ListView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, []admin.Column{{Name: admin.StrColumn, Label: "genre"}}, view.Columns)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, []string{"Fantasy"}, view.Rows[0].Cells)
	assert.Equal(t, "/admin/catalog/genre/1/", view.Rows[0].URL)
	assert.Equal(t, 2, view.Page.NumPages)
	svc.AssertExpectations(t)
}

func TestListRejectsBadPage(t *testing.T) {
	r := setupRouter(t, new(MockCatalogService))
	w := do(r, http.MethodGet, "/admin/catalog/author/?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBookInstances_Filters(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	onLoan := models.LoanStatusOnLoan
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	svc.On("ListBookInstances", mock.Anything, services.BookInstanceFilter{
		Status:  &onLoan,
		DueBack: services.DueBackToday,
		Page:    services.Page{Number: 1, Size: DefaultPerPage},
	}).Return(&services.Result[models.BookInstance]{
		Items: []models.BookInstance{{ID: uuid.New(), Book: &models.Book{Title: "Dune"}, DueBack: &due, Status: onLoan}},
		Total: 1,
	}, nil)

	w := do(r, http.MethodGet, "/admin/catalog/bookinstance/?status=o&due_back=today", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view admin.ListView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "Dune", view.Rows[0].Cells[0])
	assert.Equal(t, "On loan", view.Rows[0].Cells[1])
	assert.Equal(t, "2024-03-15", view.Rows[0].Cells[2])
	require.Len(t, view.Filters, 2)
	assert.Equal(t, "today", view.Filters[1].Selected)
	svc.AssertExpectations(t)
}

func TestListBookInstances_InvalidFilter(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	w := do(r, http.MethodGet, "/admin/catalog/bookinstance/?status=z", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/admin/catalog/bookinstance/?due_back=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ListBookInstances", mock.Anything, mock.Anything)
}

func TestAddForm(t *testing.T) {
	r := setupRouter(t, new(MockCatalogService))

	w := do(r, http.MethodGet, "/admin/catalog/bookinstance/add/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var form admin.ChangeForm
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &form))
	assert.True(t, form.Add)
	require.Len(t, form.Fieldsets, 2)
	assert.Equal(t, "Availability", form.Fieldsets[1].Name)
}

func TestCreateAuthor_InvalidDate(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	verr := &services.ValidationError{}
	verr.Add("date_of_birth", "Enter a valid date.")
	verr.Add("first_name", "This field is required.")
	svc.On("CreateAuthor", mock.Anything, mock.MatchedBy(func(in services.AuthorInput) bool {
		return in.DateOfBirth == nil && in.FormErrors != nil &&
			assert.ObjectsAreEqual([]string{"Enter a valid date."}, in.FormErrors.Fields["date_of_birth"])
	}), mock.Anything).Return(nil, verr)

	w := do(r, http.MethodPost, "/admin/catalog/author/", gin.H{
		"last_name":     "Herbert",
		"date_of_birth": "08/10/1920",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	fields := body["fields"].(map[string]any)
	assert.Equal(t, []any{"Enter a valid date."}, fields["date_of_birth"])
	assert.Equal(t, []any{"This field is required."}, fields["first_name"])
	svc.AssertExpectations(t)
}

func TestCreateAuthor_WithInlineBooks(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	born := time.Date(1920, 10, 8, 0, 0, 0, 0, time.UTC)
	wantIn := services.AuthorInput{FirstName: "Frank", LastName: "Herbert", DateOfBirth: &born}
	wantBooks := []services.BookInline{
		{BookInput: services.BookInput{Title: "Dune", Summary: "Spice.", ISBN: "9780441013593", GenreIDs: []int64{1}, LanguageID: int64Ptr(2)}},
		{ID: 7, Delete: true},
	}
	author := &models.Author{ID: 3, FirstName: "Frank", LastName: "Herbert", DateOfBirth: &born}

	svc.On("CreateAuthor", mock.Anything, wantIn, wantBooks).Return(author, nil)
	svc.On("ListBooks", mock.Anything, services.BookFilter{AuthorID: int64Ptr(3)}).
		Return(&services.Result[models.Book]{Items: []models.Book{{ID: 8, Title: "Dune", AuthorID: int64Ptr(3)}}, Total: 1}, nil)

	w := do(r, http.MethodPost, "/admin/catalog/author/", gin.H{
		"first_name":    "Frank",
		"last_name":     "Herbert",
		"date_of_birth": "1920-10-08",
		"book_set": []gin.H{
			{"title": "Dune", "summary": "Spice.", "isbn": "9780441013593", "genre": []int{1}, "language": 2},
			{"id": 7, "DELETE": true},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var form admin.ChangeForm
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &form))
	assert.Equal(t, "3", form.Key)
	assert.Equal(t, "/catalog/author/3", form.ViewOnSite)
	require.Len(t, form.Inlines, 1)
	assert.Equal(t, "book_set", form.Inlines[0].Prefix)
	require.Len(t, form.Inlines[0].Rows, 1)
	assert.Equal(t, "8", form.Inlines[0].Rows[0].Key)
	svc.AssertExpectations(t)
}

func TestChangeForm_Errors(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	w := do(r, http.MethodGet, "/admin/catalog/book/abc/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.On("GetBook", mock.Anything, int64(9)).Return(nil, services.ErrNotFound)
	w = do(r, http.MethodGet, "/admin/catalog/book/9/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.On("GetLanguage", mock.Anything, int64(4)).Return(nil, errors.New("connection reset"))
	w = do(r, http.MethodGet, "/admin/catalog/language/4/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "connection reset", decode(t, w)["error"])
}

func TestUpdateBook_ValidationError(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	verr := &services.ValidationError{}
	verr.Add("bookinstance_set.0.imprint", "This field is required.")
	svc.On("UpdateBook", mock.Anything, int64(1), mock.AnythingOfType("services.BookInput"), mock.MatchedBy(func(rows []services.BookInstanceInline) bool {
		return len(rows) == 1 && rows[0].ID == uuid.Nil && rows[0].Status == models.LoanStatusAvailable
	})).Return(nil, verr)

	w := do(r, http.MethodPut, "/admin/catalog/book/1/", gin.H{
		"title":            "Dune",
		"bookinstance_set": []gin.H{{"status": "a"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	fields := decode(t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "bookinstance_set.0.imprint")
	svc.AssertExpectations(t)
}

func TestUpdateBook_InvalidInlineID(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	verr := &services.ValidationError{}
	verr.Add("bookinstance_set.0.id", "“not-a-uuid” is not a valid UUID.")
	verr.Add("isbn", "This field is required.")
	svc.On("UpdateBook", mock.Anything, int64(1), mock.MatchedBy(func(in services.BookInput) bool {
		return in.FormErrors != nil && len(in.FormErrors.Fields["bookinstance_set.0.id"]) == 1
	}), mock.MatchedBy(func(rows []services.BookInstanceInline) bool {
		return len(rows) == 0
	})).Return(nil, verr)

	w := do(r, http.MethodPut, "/admin/catalog/book/1/", gin.H{
		"title":            "Dune",
		"bookinstance_set": []gin.H{{"id": "not-a-uuid", "DELETE": true}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "bookinstance_set.0.id")
	assert.Contains(t, fields, "isbn")
	svc.AssertExpectations(t)
}

func TestCreateBookInstance(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	id := uuid.New()
	svc.On("CreateBookInstance", mock.Anything, services.BookInstanceInput{BookID: int64Ptr(1), Imprint: "Ace, 1990"}).
		Return(&models.BookInstance{ID: id, BookID: int64Ptr(1), Book: &models.Book{ID: 1, Title: "Dune"}, Imprint: "Ace, 1990", Status: models.LoanStatusMaintenance}, nil)

	w := do(r, http.MethodPost, "/admin/catalog/bookinstance/", gin.H{"book": 1, "imprint": "Ace, 1990"})
	require.Equal(t, http.StatusCreated, w.Code)

	var form admin.ChangeForm
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &form))
	assert.Equal(t, id.String(), form.Key)
	assert.Equal(t, id.String()+" (Dune)", form.Str)
	svc.AssertExpectations(t)
}

func TestDeleteBookInstance(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	id := uuid.New()
	svc.On("DeleteBookInstance", mock.Anything, id).Return(nil)

	w := do(r, http.MethodDelete, "/admin/catalog/bookinstance/"+id.String()+"/", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/admin/catalog/bookinstance/42/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestMalformedBody(t *testing.T) {
	svc := new(MockCatalogService)
	r := setupRouter(t, svc)

	req, _ := http.NewRequest(http.MethodPost, "/admin/catalog/genre/", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreateGenre", mock.Anything, mock.Anything)
}
