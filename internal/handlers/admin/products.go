package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/middleware"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/services/catalog"
)

const maxImageBytes = 5 << 20

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.Catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *Handler) CreateProduct(c *gin.Context) {
	actor, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in catalog.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	p, err := h.Catalog.Create(c.Request.Context(), actor, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	actor, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var patch catalog.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	p, err := h.Catalog.Update(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	actor, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	p, err := h.Catalog.Delete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

type stockInput struct {
	Size  models.Size `json:"size" binding:"required"`
	Stock *int        `json:"stock" binding:"required"`
}

func (h *Handler) SetStock(c *gin.Context) {
	actor, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in stockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	p, err := h.Catalog.SetSizeStock(c.Request.Context(), actor, c.Param("id"), in.Size, *in.Stock)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// UploadImage attend un champ multipart "file" (5 Mo max).
func (h *Handler) UploadImage(c *gin.Context) {
	actor, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes+1<<16)
	fh, err := c.FormFile("file")
	if err != nil {
		apperr.Respond(c, apperr.Validation("file", "multipart field \"file\" is required"))
		return
	}
	if fh.Size > maxImageBytes {
		apperr.Respond(c, apperr.Validation("file", "image must not exceed 5 MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	defer f.Close()

	p, err := h.Catalog.UploadImage(c.Request.Context(), actor, c.Param("id"), fh.Filename, f, fh.Size)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *Handler) RemoveImage(c *gin.Context) {
	actor, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	p, err := h.Catalog.RemoveImage(c.Request.Context(), actor, c.Param("id"), in.URL)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}
