package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"catalog/internal/models"
	"catalog/internal/services"
)

// resource adapts one model's service operations to the generic admin screens.
type resource struct {
	list     func(c *gin.Context, page services.Page, selected map[string]string) ([]models.Record, int64, error)
	get      func(c *gin.Context, id string) (models.Record, error)
	children func(c *gin.Context, rec models.Record) (map[string][]models.Record, error)
	create   func(c *gin.Context) (models.Record, error)
	update   func(c *gin.Context, id string) (models.Record, error)
	remove   func(c *gin.Context, id string) error
}

func records[T any, P interface {
	*T
	models.Record
}](items []T) []models.Record {
	out := make([]models.Record, 0, len(items))
	for i := range items {
		out = append(out, P(&items[i]))
	}
	return out
}

func parseIntID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid id %q", raw)
	}
	return id, nil
}

func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// ─── Genres ───────────────────────────────────────────────────────────────────

func (h *AdminHandler) genreResource() *resource {
	return &resource{
		list: func(c *gin.Context, page services.Page, _ map[string]string) ([]models.Record, int64, error) {
			res, err := h.svc.ListGenres(c.Request.Context(), page)
			if err != nil {
				return nil, 0, err
			}
			return records(res.Items), res.Total, nil
		},
		get: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			return h.svc.GetGenre(c.Request.Context(), id)
		},
		create: func(c *gin.Context) (models.Record, error) {
			var in services.GenreInput
			if err := bind(c, &in); err != nil {
				return nil, err
			}
			return h.svc.CreateGenre(c.Request.Context(), in)
		},
		update: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			var in services.GenreInput
			if err := bind(c, &in); err != nil {
				return nil, err
			}
			return h.svc.UpdateGenre(c.Request.Context(), id, in)
		},
		remove: func(c *gin.Context, raw string) error {
			id, err := parseIntID(raw)
			if err != nil {
				return err
			}
			return h.svc.DeleteGenre(c.Request.Context(), id)
		},
	}
}

// ─── Languages ────────────────────────────────────────────────────────────────

func (h *AdminHandler) languageResource() *resource {
	return &resource{
		list: func(c *gin.Context, page services.Page, _ map[string]string) ([]models.Record, int64, error) {
			res, err := h.svc.ListLanguages(c.Request.Context(), page)
			if err != nil {
				return nil, 0, err
			}
			return records(res.Items), res.Total, nil
		},
		get: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			return h.svc.GetLanguage(c.Request.Context(), id)
		},
		create: func(c *gin.Context) (models.Record, error) {
			var in services.LanguageInput
			if err := bind(c, &in); err != nil {
				return nil, err
			}
			return h.svc.CreateLanguage(c.Request.Context(), in)
		},
		update: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			var in services.LanguageInput
			if err := bind(c, &in); err != nil {
				return nil, err
			}
			return h.svc.UpdateLanguage(c.Request.Context(), id, in)
		},
		remove: func(c *gin.Context, raw string) error {
			id, err := parseIntID(raw)
			if err != nil {
				return err
			}
			return h.svc.DeleteLanguage(c.Request.Context(), id)
		},
	}
}

// ─── Authors ──────────────────────────────────────────────────────────────────

func (h *AdminHandler) authorResource() *resource {
	return &resource{
		list: func(c *gin.Context, page services.Page, _ map[string]string) ([]models.Record, int64, error) {
			res, err := h.svc.ListAuthors(c.Request.Context(), page)
			if err != nil {
				return nil, 0, err
			}
			return records(res.Items), res.Total, nil
		},
		get: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			return h.svc.GetAuthor(c.Request.Context(), id)
		},
		children: func(c *gin.Context, rec models.Record) (map[string][]models.Record, error) {
			a := rec.(*models.Author)
			res, err := h.svc.ListBooks(c.Request.Context(), services.BookFilter{AuthorID: &a.ID})
			if err != nil {
				return nil, err
			}
			return map[string][]models.Record{models.ModelBook: records(res.Items)}, nil
		},
		create: func(c *gin.Context) (models.Record, error) {
			var f authorForm
			if err := bind(c, &f); err != nil {
				return nil, err
			}
			in, books := f.input()
			return h.svc.CreateAuthor(c.Request.Context(), in, books)
		},
		update: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			var f authorForm
			if err := bind(c, &f); err != nil {
				return nil, err
			}
			in, books := f.input()
			return h.svc.UpdateAuthor(c.Request.Context(), id, in, books)
		},
		remove: func(c *gin.Context, raw string) error {
			id, err := parseIntID(raw)
			if err != nil {
				return err
			}
			return h.svc.DeleteAuthor(c.Request.Context(), id)
		},
	}
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (h *AdminHandler) bookResource() *resource {
	return &resource{
		list: func(c *gin.Context, page services.Page, _ map[string]string) ([]models.Record, int64, error) {
			res, err := h.svc.ListBooks(c.Request.Context(), services.BookFilter{Page: page})
			if err != nil {
				return nil, 0, err
			}
			return records(res.Items), res.Total, nil
		},
		get: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			return h.svc.GetBook(c.Request.Context(), id)
		},
		children: func(c *gin.Context, rec models.Record) (map[string][]models.Record, error) {
			b := rec.(*models.Book)
			res, err := h.svc.ListBookInstances(c.Request.Context(), services.BookInstanceFilter{BookID: &b.ID})
			if err != nil {
				return nil, err
			}
			return map[string][]models.Record{models.ModelBookInstance: records(res.Items)}, nil
		},
		create: func(c *gin.Context) (models.Record, error) {
			var f bookForm
			if err := bind(c, &f); err != nil {
				return nil, err
			}
			in, copies := f.input()
			return h.svc.CreateBook(c.Request.Context(), in, copies)
		},
		update: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseIntID(raw)
			if err != nil {
				return nil, err
			}
			var f bookForm
			if err := bind(c, &f); err != nil {
				return nil, err
			}
			in, copies := f.input()
			return h.svc.UpdateBook(c.Request.Context(), id, in, copies)
		},
		remove: func(c *gin.Context, raw string) error {
			id, err := parseIntID(raw)
			if err != nil {
				return err
			}
			return h.svc.DeleteBook(c.Request.Context(), id)
		},
	}
}

// ─── Book instances ───────────────────────────────────────────────────────────

func (h *AdminHandler) bookInstanceResource() *resource {
	return &resource{
		list: func(c *gin.Context, page services.Page, selected map[string]string) ([]models.Record, int64, error) {
			f := services.BookInstanceFilter{Page: page}
			if raw := selected["status"]; raw != "" {
				st, err := services.ParseLoanStatus(raw)
				if err != nil {
					return nil, 0, err
				}
				f.Status = &st
			}
			r, err := services.ParseDueBackRange(selected["due_back"])
			if err != nil {
				return nil, 0, err
			}
			f.DueBack = r

			res, err := h.svc.ListBookInstances(c.Request.Context(), f)
			if err != nil {
				return nil, 0, err
			}
			return records(res.Items), res.Total, nil
		},
		get: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseUUID(raw)
			if err != nil {
				return nil, err
			}
			return h.svc.GetBookInstance(c.Request.Context(), id)
		},
		create: func(c *gin.Context) (models.Record, error) {
			var f instanceForm
			if err := bind(c, &f); err != nil {
				return nil, err
			}
			in := f.input()
			return h.svc.CreateBookInstance(c.Request.Context(), in)
		},
		update: func(c *gin.Context, raw string) (models.Record, error) {
			id, err := parseUUID(raw)
			if err != nil {
				return nil, err
			}
			var f instanceForm
			if err := bind(c, &f); err != nil {
				return nil, err
			}
			in := f.input()
			return h.svc.UpdateBookInstance(c.Request.Context(), id, in)
		},
		remove: func(c *gin.Context, raw string) error {
			id, err := parseUUID(raw)
			if err != nil {
				return err
			}
			return h.svc.DeleteBookInstance(c.Request.Context(), id)
		},
	}
}
