package orders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

// UpdateStatus est la transition manuelle de l'admin. Toute cible hors
// pending est acceptée depuis n'importe quel statut.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Principal, id string, status models.OrderStatus, tracking string) (*models.Order, error) {
	if !status.Valid() || status == models.OrderPending {
		return nil, apperr.Validation("orderStatus", "invalid order status %q", status)
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	now := s.Now().UTC()
	upd := models.StatusUpdate{OrderStatus: status, UpdatedAt: now}
	if tracking != "" {
		upd.TrackingNumber = &tracking
	}
	switch status {
	case models.OrderDelivered:
		upd.DeliveredAt = &now
	case models.OrderCancelled:
		upd.CancelledAt = &now
	}

	o, err := s.orders.ApplyStatus(ctx, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order", id)
		}
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}

	if status == models.OrderCancelled {
		s.Release(ctx, o)
	} else {
		s.Reserve(ctx, o)
	}
	log.Printf("✅ Commande %s -> %s par %s", o.OrderNumber, status, actor.UserID)
	s.Changed(ctx, o, actor.UserID, audit.ActionOrderStatus, string(status))
	return o, nil
}

// Cancel permet au client d'annuler tant que la commande n'est ni payée
// ni partie en préparation.
func (s *Service) Cancel(ctx context.Context, p models.Principal, id string) (*models.Order, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != p.UserID {
		return nil, apperr.Forbidden("you do not have access to this order")
	}
	cancellable := current.OrderStatus == models.OrderPending || current.OrderStatus == models.OrderConfirmed
	if !cancellable || current.PaymentStatus == models.PaymentPaid {
		return nil, apperr.Validation("orderStatus", "order %s can no longer be cancelled", current.OrderNumber)
	}

	now := s.Now().UTC()
	o, err := s.orders.ApplyStatusIf(ctx, id, current.PaymentStatus, models.StatusUpdate{
		OrderStatus: models.OrderCancelled,
		CancelledAt: &now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, store.ErrPrecondition) {
			return nil, apperr.Conflict("order %s changed, reload and try again", current.OrderNumber)
		}
		return nil, fmt.Errorf("cancel order %s: %w", id, err)
	}

	s.Release(ctx, o)
	log.Printf("✅ Commande %s annulée par le client", o.OrderNumber)
	s.Changed(ctx, o, p.UserID, audit.ActionOrderCancel, "")
	return o, nil
}

// Changed déclenche les effets de bord d'une écriture persistée : push
// temps réel, e-mail et audit.
func (s *Service) Changed(ctx context.Context, o *models.Order, actorID, action, detail string) {
	s.publisher.OrderChanged(ctx, *o)
	if u, err := s.users.Get(ctx, o.UserID); err == nil {
		s.notifier.OrderStatusChanged(*o, u.Email)
	} else {
		log.Printf("⚠️ Destinataire introuvable pour la commande %s: %v", o.OrderNumber, err)
	}
	s.record(actorID, action, o, detail)
}

func (s *Service) record(actorID, action string, o *models.Order, detail string) {
	s.audit.Record(models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   audit.ResourceOrder,
		ResourceID: o.ID,
		Detail:     detail,
		Success:    true,
		Timestamp:  s.Now().UTC(),
	})
}
