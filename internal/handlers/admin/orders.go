package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/middleware"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/services/account"
	"vastra_back_end/internal/services/catalog"
	"vastra_back_end/internal/services/orders"
	"vastra_back_end/internal/services/payment"
)

// AuditReader lit le journal d'audit récent ; nil quand Scylla n'est pas
// configuré.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

type Handler struct {
	Orders   *orders.Service
	Payments *payment.Service
	Catalog  *catalog.Service
	Account  *account.Service
	Audit    AuditReader
}

func (h *Handler) ListOrders(c *gin.Context) {
	f := models.OrderFilter{
		OrderStatus:   models.OrderStatus(c.Query("orderStatus")),
		PaymentStatus: models.PaymentStatus(c.Query("paymentStatus")),
	}
	var err error
	if f.Page, err = handlers.QueryInt(c, "page", 1); err != nil {
		apperr.Respond(c, err)
		return
	}
	if f.Limit, err = handlers.QueryInt(c, "limit", 20); err != nil {
		apperr.Respond(c, err)
		return
	}
	list, total, err := h.Orders.ListAll(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "total": total})
}

func (h *Handler) OrderStats(c *gin.Context) {
	stats, err := h.Orders.Stats(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type statusInput struct {
	OrderStatus    models.OrderStatus `json:"orderStatus" binding:"required"`
	TrackingNumber string             `json:"trackingNumber"`
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in statusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	o, err := h.Orders.UpdateStatus(c.Request.Context(), p, c.Param("id"), in.OrderStatus, in.TrackingNumber)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (h *Handler) RefundOrder(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	o, err := h.Payments.Refund(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (h *Handler) ListCustomers(c *gin.Context) {
	page, err := handlers.QueryInt(c, "page", 1)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	limit, err := handlers.QueryInt(c, "limit", 20)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	customers, total, err := h.Account.ListCustomers(c.Request.Context(), page, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers, "total": total})
}

// RecentAudit expose les dernières entrées du journal d'audit.
func (h *Handler) RecentAudit(c *gin.Context) {
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"logs": []models.AuditLog{}})
		return
	}
	limit, err := handlers.QueryInt(c, "limit", 50)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if limit < 1 || limit > 500 {
		apperr.Respond(c, apperr.Validation("limit", "limit must be between 1 and 500"))
		return
	}
	logs, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
