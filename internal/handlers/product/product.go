package product

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/services/catalog"
)

type Handler struct {
	Catalog *catalog.Service
}

// ✅ Liste paginée des produits actifs
func (h *Handler) List(c *gin.Context) {
	f, err := filterFrom(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	products, total, err := h.Catalog.List(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": total})
}

func (h *Handler) Search(c *gin.Context) {
	products, err := h.Catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) GetBySlug(c *gin.Context) {
	p, err := h.Catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// Quote valorise le panier du client sans rien enregistrer.
func (h *Handler) Quote(c *gin.Context) {
	var in struct {
		Items []models.CartItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	q, err := h.Catalog.Quote(c.Request.Context(), in.Items)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func filterFrom(c *gin.Context) (models.ProductFilter, error) {
	f := models.ProductFilter{
		Category: models.Category(c.Query("category")),
		Query:    c.Query("q"),
		Sort:     models.ProductSort(c.Query("sort")),
	}
	var err error
	if f.Featured, err = handlers.QueryBool(c, "featured"); err != nil {
		return f, err
	}
	if f.MinPrice, err = handlers.QueryFloat(c, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = handlers.QueryFloat(c, "maxPrice"); err != nil {
		return f, err
	}
	if f.Page, err = handlers.QueryInt(c, "page", 1); err != nil {
		return f, err
	}
	if f.Limit, err = handlers.QueryInt(c, "limit", 12); err != nil {
		return f, err
	}
	return f, nil
}
