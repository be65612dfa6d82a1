package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catalog/internal/admin"
	"catalog/internal/models"
	"catalog/internal/services"
)

// DefaultPerPage is the list page size used when none is configured.
const DefaultPerPage = 100

type AdminHandler struct {
	site      *admin.Site
	svc       services.CatalogService
	perPage   int
	resources map[string]*resource
}

// RegisterRoutes mounts the admin screens of every model registered on site.
func RegisterRoutes(r *gin.Engine, site *admin.Site, svc services.CatalogService, perPage int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	h := &AdminHandler{site: site, svc: svc, perPage: perPage}
	h.resources = map[string]*resource{
		models.ModelGenre:        h.genreResource(),
		models.ModelLanguage:     h.languageResource(),
		models.ModelAuthor:       h.authorResource(),
		models.ModelBook:         h.bookResource(),
		models.ModelBookInstance: h.bookInstanceResource(),
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	g := r.Group("/admin")
	g.GET("/", h.index)
	for _, ma := range site.Models() {
		res, ok := h.resources[ma.Model]
		if !ok {
			log.Printf("[WARN] RegisterRoutes: no resource for registered model %q", ma.Model)
			continue
		}
		base := "/catalog/" + ma.Model
		g.GET(base+"/", h.changelist(ma, res))
		g.GET(base+"/add/", h.addForm(ma))
		g.POST(base+"/", h.create(ma, res))
		g.GET(base+"/:id/", h.changeForm(ma, res))
		g.PUT(base+"/:id/", h.update(ma, res))
		g.DELETE(base+"/:id/", h.remove(res))
	}
}

type indexEntry struct {
	Model         string `json:"model"`
	VerbosePlural string `json:"verbose_name_plural"`
	URL           string `json:"url"`
	AddURL        string `json:"add_url"`
}

func (h *AdminHandler) index(c *gin.Context) {
	entries := make([]indexEntry, 0)
	for _, ma := range h.site.Models() {
		base := "/admin/catalog/" + ma.Model + "/"
		entries = append(entries, indexEntry{
			Model:         ma.Model,
			VerbosePlural: ma.Schema().VerbosePlural,
			URL:           base,
			AddURL:        base + "add/",
		})
	}
	c.JSON(http.StatusOK, gin.H{"app": "catalog", "models": entries})
}

func (h *AdminHandler) changelist(ma *admin.ModelAdmin, res *resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		number := 1
		if raw := c.Query("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page number"})
				return
			}
			number = n
		}
		selected := make(map[string]string, len(ma.ListFilter))
		for _, name := range ma.ListFilter {
			selected[name] = c.Query(name)
		}

		page := services.Page{Number: number, Size: h.perPage}
		items, total, err := res.list(c, page, selected)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, admin.BuildListView(ma, items, admin.ListParams{
			Page:     number,
			PerPage:  h.perPage,
			Total:    total,
			Selected: selected,
		}))
	}
}

func (h *AdminHandler) addForm(ma *admin.ModelAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, admin.BuildChangeForm(ma, nil, nil))
	}
}

func (h *AdminHandler) create(ma *admin.ModelAdmin, res *resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := res.create(c)
		if err != nil {
			writeError(c, err)
			return
		}
		h.respondForm(c, http.StatusCreated, ma, res, rec)
	}
}

func (h *AdminHandler) changeForm(ma *admin.ModelAdmin, res *resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := res.get(c, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		h.respondForm(c, http.StatusOK, ma, res, rec)
	}
}

func (h *AdminHandler) update(ma *admin.ModelAdmin, res *resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := res.update(c, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		h.respondForm(c, http.StatusOK, ma, res, rec)
	}
}

func (h *AdminHandler) remove(res *resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := res.remove(c, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *AdminHandler) respondForm(c *gin.Context, status int, ma *admin.ModelAdmin, res *resource, rec models.Record) {
	var children map[string][]models.Record
	if res.children != nil {
		var err error
		if children, err = res.children(c, rec); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(status, admin.BuildChangeForm(ma, rec, children))
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// requestError is a malformed request: bad JSON, ids or query values.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func writeError(c *gin.Context, err error) {
	var (
		verr   *services.ValidationError
		reqErr *requestError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.As(err, &reqErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": reqErr.msg})
	case errors.Is(err, services.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
