package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

// Sweep expire les commandes en ligne restées impayées plus longtemps que
// PendingTTL. Les commandes COD ne sont jamais concernées.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.Now().UTC()
	stale, err := s.orders.ListStalePending(ctx, now.Add(-s.pendingTTL))
	if err != nil {
		return 0, fmt.Errorf("list stale orders: %w", err)
	}

	failed := models.PaymentFailed
	expired := 0
	for i := range stale {
		o, err := s.orders.ApplyStatusIf(ctx, stale[i].ID, models.PaymentPending, models.StatusUpdate{
			OrderStatus:   models.OrderCancelled,
			PaymentStatus: &failed,
			CancelledAt:   &now,
			UpdatedAt:     now,
		})
		if err != nil {
			if errors.Is(err, store.ErrPrecondition) || errors.Is(err, store.ErrNotFound) {
				continue
			}
			log.Printf("❌ Expiration %s: %v", stale[i].OrderNumber, err)
			continue
		}
		s.Release(ctx, o)
		s.Changed(ctx, o, "", audit.ActionOrderExpire, "paiement non reçu")
		expired++
	}
	if expired > 0 {
		log.Printf("🧹 %d commande(s) en ligne expirée(s)", expired)
	}
	return expired, nil
}

// RunSweeper appelle Sweep à chaque tick jusqu'à l'annulation de ctx.
func (s *Service) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	log.Printf("🧹 Sweeper des commandes en attente démarré (toutes les %s)", every)
	for {
		select {
		case <-ctx.Done():
			log.Println("🧹 Sweeper arrêté")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("❌ Sweeper: %v", err)
			}
		}
	}
}
