package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/service"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/media"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/logger"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/middleware"
)

const (
	defaultPage = 0
	defaultSize = 20
)

type Handler struct {
	svc       *service.Service
	maxUpload int64
}

// RegisterArticleRoutes mounts the article endpoints on rg. rg is expected to
// run the auth middleware so middleware.Username resolves the caller.
func RegisterArticleRoutes(rg gin.IRouter, svc *service.Service, maxUpload int64) {
	h := &Handler{svc: svc, maxUpload: maxUpload}
	rg.POST("/articles", h.Create)
	rg.GET("/articles", h.Page)
	rg.GET("/articles/:id", h.Get)
	rg.PUT("/articles/:id", h.Update)
	rg.DELETE("/articles/:id", h.Delete)
	rg.DELETE("/articles/:id/images/:imageId", h.DeleteImage)
}

// Create accepts multipart title, content and any number of "images" parts.
func (h *Handler) Create(c *gin.Context) {
	in, ok := h.readInput(c)
	if !ok {
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.Username(c), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Page lists the caller's articles; ?page is 0-based, ?size defaults to 20.
func (h *Handler) Page(c *gin.Context) {
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	size, err := queryInt(c, "size", defaultSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}
	p, err := h.svc.Page(c.Request.Context(), middleware.Username(c), page, size)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		return
	}
	in, ok := h.readInput(c)
	if !ok {
		return
	}
	v, err := h.svc.Update(c.Request.Context(), middleware.Username(c), id, in)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Username(c), id); err != nil {
		WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteImage(c *gin.Context) {
	id, ok := PathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := PathID(c, "imageId")
	if !ok {
		return
	}
	if err := h.svc.DeleteImage(c.Request.Context(), middleware.Username(c), id, imageID); err != nil {
		WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// readInput parses the multipart form before touching PostForm so that a
// body over the size limit surfaces as an error instead of empty fields.
func (h *Handler) readInput(c *gin.Context) (service.ArticleInput, bool) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	var in service.ArticleInput
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		for _, fh := range form.File["images"] {
			in.Images = append(in.Images, media.FromFileHeader(fh))
		}
	case errors.Is(err, http.ErrNotMultipart):
		// plain form without files
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return in, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return in, false
	}
	in.Title = c.PostForm("title")
	in.Content = c.PostForm("content")
	return in, true
}

// PathID parses a positive int64 path parameter, answering 400 otherwise.
func PathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// WriteError maps service errors to a status and an {"error": ...} body.
// Internal details are logged, not returned.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("[%s] %s %s: %v", middleware.GetRequestID(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
