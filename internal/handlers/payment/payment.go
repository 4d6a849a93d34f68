package payment

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/handlers"
	"vastra_back_end/internal/middleware"
	"vastra_back_end/internal/services/payment"
)

const maxWebhookBytes = int64(65536)

type Handler struct {
	Payments *payment.Service
}

type createOrderInput struct {
	OrderID string  `json:"orderId" binding:"required"`
	Amount  float64 `json:"amount" binding:"required"`
}

// CreateOrder ouvre la transaction chez la passerelle de la commande.
func (h *Handler) CreateOrder(c *gin.Context) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		return
	}
	var in createOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	gwo, err := h.Payments.CreateGatewayOrder(c.Request.Context(), p, in.OrderID, in.Amount)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gwo)
}

// Verify confirme un paiement Razorpay signé par le client.
func (h *Handler) Verify(c *gin.Context) {
	var in payment.VerifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	o, alreadyPaid, err := h.Payments.Verify(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o, "alreadyPaid": alreadyPaid})
}

// ✅ Webhook Stripe
func (h *Handler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		apperr.Respond(c, apperr.Validation("body", "could not read webhook body"))
		return
	}
	if err := h.Payments.HandleStripeWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusOK)
}
