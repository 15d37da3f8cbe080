package comment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article/handler"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/middleware"
)

type createRequest struct {
	Content string `json:"content" binding:"required"`
}

// RegisterRoutes mounts the comment endpoints under /articles/:id/comments.
func RegisterRoutes(rg gin.IRouter, svc *Service) {
	rg.POST("/articles/:id/comments", func(c *gin.Context) {
		articleID, ok := handler.PathID(c, "id")
		if !ok {
			return
		}
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cm, err := svc.Create(c.Request.Context(), middleware.Username(c), articleID, req.Content)
		if err != nil {
			handler.WriteError(c, err)
			return
		}
		c.JSON(http.StatusCreated, cm)
	})

	rg.GET("/articles/:id/comments", func(c *gin.Context) {
		articleID, ok := handler.PathID(c, "id")
		if !ok {
			return
		}
		list, err := svc.List(c.Request.Context(), articleID)
		if err != nil {
			handler.WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	rg.DELETE("/articles/:id/comments/:commentId", func(c *gin.Context) {
		articleID, ok := handler.PathID(c, "id")
		if !ok {
			return
		}
		commentID, ok := handler.PathID(c, "commentId")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), middleware.Username(c), articleID, commentID); err != nil {
			handler.WriteError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
