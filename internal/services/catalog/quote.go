package catalog

import (
	"context"
	"fmt"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/cart"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
)

// Quote valorise un panier détenu par le client avec les prix courants.
// Les produits disparus sont marqués indisponibles et exclus des totaux ;
// un panier sans ligne valorisée coûte 0. Rien n'est enregistré.
func (s *Service) Quote(ctx context.Context, items []models.CartItem) (*models.CartQuote, error) {
	for _, it := range items {
		if it.ProductID == "" {
			return nil, apperr.Validation("productId", "productId is required")
		}
		if it.Quantity < 1 {
			return nil, apperr.Validation("quantity", "quantity must be at least 1")
		}
		if !it.Size.Valid() {
			return nil, apperr.Validation("size", "unknown size %q", it.Size)
		}
	}

	lines := cart.Merge(items)
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	byID := map[string]models.Product{}
	if len(ids) > 0 {
		found, err := s.products.GetMany(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("quote products: %w", err)
		}
		for _, p := range found {
			byID[p.ID] = p
		}
	}

	quote := &models.CartQuote{Items: make([]models.CartItem, 0, len(lines))}
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		available := false
		if ok && p.IsActive {
			stock, hasSize := p.StockFor(l.Size)
			available = hasSize && stock >= l.Quantity
			l.Name = p.Name
			l.Price = p.EffectivePrice()
			l.OriginalPrice = p.Price
			l.Image = p.MainImage()
			priced = append(priced, pricing.Line{Price: l.Price, Quantity: l.Quantity})
		}
		l.Available = &available
		quote.Items = append(quote.Items, l)
	}

	if len(priced) == 0 {
		return quote, nil
	}
	totals := s.policy.Compute(priced)
	quote.ItemsTotal = totals.ItemsTotal
	quote.ShippingCharge = totals.ShippingCharge
	quote.TotalAmount = totals.TotalAmount
	return quote, nil
}
