package user

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/middleware"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/services/orders"
)

// OrderSocket sert les mises à jour temps réel d'une commande.
type OrderSocket interface {
	Serve(w http.ResponseWriter, r *http.Request, current models.Order)
}

// QRCoder génère le QR UPI d'une commande COD.
type QRCoder interface {
	CODQR(ctx context.Context, p models.Principal, orderID string) ([]byte, error)
}

type Orders struct {
	Orders *orders.Service
	Live   OrderSocket
	QR     QRCoder
}

// ✅ Crée une commande pour l'utilisateur connecté
func (h *Orders) Create(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in orders.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	o, err := h.Orders.Create(c.Request.Context(), p.UserID, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": o})
}

// ✅ Récupère toutes les commandes de l'utilisateur connecté
func (h *Orders) Mine(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	list, err := h.Orders.ListByUser(c.Request.Context(), p.UserID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Orders) Get(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (h *Orders) Cancel(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	o, err := h.Orders.Cancel(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

// Stream passe en websocket après le contrôle de propriété.
func (h *Orders) Stream(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.Live.Serve(c.Writer, c.Request, *o)
}

func (h *Orders) QRCode(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	png, err := h.QR.CODQR(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
