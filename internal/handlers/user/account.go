package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/middleware"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/services/account"
)

type Account struct {
	Account *account.Service
}

func (h *Account) Profile(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	prof, err := h.Account.GetProfile(c.Request.Context(), p.UserID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

func (h *Account) UpdateProfile(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in account.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	prof, err := h.Account.UpdateProfile(c.Request.Context(), p.UserID, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, prof)
}

// ✅ Ajoute une adresse au carnet
func (h *Account) AddAddress(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	addrs, err := h.Account.AddAddress(c.Request.Context(), p.UserID, addr)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addrs})
}

func (h *Account) RemoveAddress(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	addrs, err := h.Account.RemoveAddress(c.Request.Context(), p.UserID, c.Param("addressId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addrs})
}

func (h *Account) SetDefaultAddress(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	addrs, err := h.Account.SetDefaultAddress(c.Request.Context(), p.UserID, c.Param("addressId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addrs})
}

func (h *Account) Wishlist(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	list, err := h.Account.GetWishlist(c.Request.Context(), p.UserID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": list})
}

// ToggleWishlist : action "add", "remove" ou vide pour basculer.
func (h *Account) ToggleWishlist(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in struct {
		ProductID string `json:"productId" binding:"required"`
		Action    string `json:"action"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	list, err := h.Account.ToggleWishlist(c.Request.Context(), p.UserID, in.ProductID, in.Action)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": list})
}
