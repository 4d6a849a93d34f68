package orders

import (
	"context"
	"log"

	"vastra_back_end/internal/models"
)

// holdsStock indique les statuts pour lesquels la marchandise est
// réservée.
func holdsStock(s models.OrderStatus) bool {
	switch s {
	case models.OrderConfirmed, models.OrderProcessing, models.OrderShipped, models.OrderDelivered:
		return true
	}
	return false
}

// Reserve décrémente le stock de chaque ligne, une seule fois par
// commande. Si une ligne échoue, les lignes déjà prises sont rendues et
// la commande reste non réservée ; le statut n'est jamais bloqué.
func (s *Service) Reserve(ctx context.Context, o *models.Order) {
	if !holdsStock(o.OrderStatus) {
		return
	}
	ok, err := s.orders.SwapStockReserved(ctx, o.ID, false, true)
	if err != nil {
		log.Printf("❌ Réservation stock %s: %v", o.OrderNumber, err)
		return
	}
	if !ok {
		return
	}

	for i, it := range o.Items {
		if err := s.products.AdjustStock(ctx, it.ProductID, it.Size, -it.Quantity); err != nil {
			log.Printf("⚠️ Survente sur %s : %s taille %s x%d (%v)", o.OrderNumber, it.ProductID, it.Size, it.Quantity, err)
			for _, done := range o.Items[:i] {
				if err := s.products.AdjustStock(ctx, done.ProductID, done.Size, done.Quantity); err != nil {
					log.Printf("❌ Rollback stock %s/%s: %v", done.ProductID, done.Size, err)
				}
			}
			if _, err := s.orders.SwapStockReserved(ctx, o.ID, true, false); err != nil {
				log.Printf("❌ Rollback réservation %s: %v", o.OrderNumber, err)
			}
			return
		}
	}
	o.StockReserved = true
	log.Printf("📦 Stock réservé pour %s", o.OrderNumber)
}

// Release rend le stock d'une commande qui le détenait.
func (s *Service) Release(ctx context.Context, o *models.Order) {
	ok, err := s.orders.SwapStockReserved(ctx, o.ID, true, false)
	if err != nil {
		log.Printf("❌ Libération stock %s: %v", o.OrderNumber, err)
		return
	}
	if !ok {
		return
	}
	for _, it := range o.Items {
		if err := s.products.AdjustStock(ctx, it.ProductID, it.Size, it.Quantity); err != nil {
			log.Printf("❌ Restitution stock %s/%s x%d: %v", it.ProductID, it.Size, it.Quantity, err)
		}
	}
	o.StockReserved = false
	log.Printf("📦 Stock restitué pour %s", o.OrderNumber)
}
