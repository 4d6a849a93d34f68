package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/store"
)

// Refund rembourse intégralement une commande payée en ligne, l'annule et
// rend le stock.
func (s *Service) Refund(ctx context.Context, actor models.Principal, orderID string) (*models.Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != models.PaymentPaid || o.PaymentDetails == nil {
		return nil, apperr.Validation("paymentStatus", "only paid orders can be refunded")
	}
	g, ok := s.gateways.For(o.PaymentMethod)
	if !ok {
		return nil, apperr.Validation("paymentMethod", "payment method %s cannot be refunded automatically", o.PaymentMethod)
	}

	refundID, err := g.Refund(ctx, o.PaymentDetails.GatewayPaymentID, pricing.ToMinor(o.TotalAmount))
	if err != nil {
		log.Printf("❌ Remboursement %s: %v", o.OrderNumber, err)
		return nil, apperr.Gateway(err)
	}

	now := s.Now().UTC()
	refunded := models.PaymentRefunded
	updated, err := s.orders.ApplyStatusIf(ctx, o.ID, models.PaymentPaid, models.StatusUpdate{
		OrderStatus:   models.OrderCancelled,
		PaymentStatus: &refunded,
		RefundID:      &refundID,
		CancelledAt:   &now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, store.ErrPrecondition) {
			return nil, apperr.Conflict("order %s changed during refund", o.OrderNumber)
		}
		return nil, fmt.Errorf("record refund %s: %w", o.OrderNumber, err)
	}

	s.lifecycle.Release(ctx, updated)
	log.Printf("✅ Commande %s remboursée (%s)", updated.OrderNumber, refundID)
	s.lifecycle.Changed(ctx, updated, actor.UserID, audit.ActionOrderRefund, refundID)
	return updated, nil
}
