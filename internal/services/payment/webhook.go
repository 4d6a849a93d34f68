package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v83"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/gateway"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/store"
)

// HandleStripeWebhook traite les événements payment_intent.* signés par
// Stripe. Les autres événements sont acquittés sans effet.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.webhooks == nil {
		return apperr.Validation("stripe", "stripe is not configured")
	}
	ev, err := s.webhooks.ParseWebhook(payload, signature)
	if err != nil {
		log.Printf("⚠️ Webhook Stripe rejeté: %v", err)
		return apperr.ErrInvalidSignature
	}

	switch ev.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		return s.stripeSucceeded(ctx, ev)
	case stripe.EventTypePaymentIntentPaymentFailed:
		return s.stripeFailed(ctx, ev)
	default:
		log.Printf("ℹ️ Événement Stripe ignoré: %s", ev.Type)
		return nil
	}
}

func (s *Service) orderForIntent(ctx context.Context, ev *gateway.IntentEvent) (*models.Order, error) {
	if ev.OrderID != "" {
		return s.load(ctx, ev.OrderID)
	}
	o, err := s.orders.GetByGatewayOrderID(ctx, ev.IntentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order for payment intent", ev.IntentID)
		}
		return nil, fmt.Errorf("order for intent %s: %w", ev.IntentID, err)
	}
	return o, nil
}

func (s *Service) stripeSucceeded(ctx context.Context, ev *gateway.IntentEvent) error {
	o, err := s.orderForIntent(ctx, ev)
	if err != nil {
		return err
	}
	if o.GatewayOrderID != "" && o.GatewayOrderID != ev.IntentID {
		log.Printf("⚠️ PaymentIntent %s inattendu pour %s", ev.IntentID, o.OrderNumber)
		s.recordFailure(o.ID, "payment intent différent")
		return nil
	}
	if ev.Amount != pricing.ToMinor(o.TotalAmount) {
		log.Printf("❌ Montant Stripe %d différent du total %.2f pour %s", ev.Amount, o.TotalAmount, o.OrderNumber)
		s.recordFailure(o.ID, "montant différent")
		return nil
	}
	if cancelledUnpaid(o) {
		// Stripe réessaierait indéfiniment sur une erreur
		_ = s.lateForCancelled(o, ev.IntentID)
		return nil
	}
	_, already, err := s.complete(ctx, o.ID, models.PaymentDetails{
		GatewayOrderID:   ev.IntentID,
		GatewayPaymentID: ev.IntentID,
	})
	if err != nil {
		return err
	}
	if already {
		log.Printf("ℹ️ Webhook Stripe déjà traité pour %s", o.OrderNumber)
	}
	return nil
}

func (s *Service) stripeFailed(ctx context.Context, ev *gateway.IntentEvent) error {
	o, err := s.orderForIntent(ctx, ev)
	if err != nil {
		return err
	}
	failed := models.PaymentFailed
	updated, err := s.orders.ApplyStatusIf(ctx, o.ID, models.PaymentPending, models.StatusUpdate{
		PaymentStatus: &failed,
		UpdatedAt:     s.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrPrecondition) {
			return nil
		}
		return fmt.Errorf("mark %s failed: %w", o.OrderNumber, err)
	}
	log.Printf("⚠️ Paiement Stripe échoué pour %s", updated.OrderNumber)
	s.lifecycle.Changed(ctx, updated, updated.UserID, audit.ActionPaymentFailed, ev.IntentID)
	return nil
}
