package account

import (
	"context"
	"errors"
	"fmt"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

const (
	WishlistAdd    = "add"
	WishlistRemove = "remove"
)

// ToggleWishlist ajoute ou retire un produit ; sans action explicite, le
// produit bascule. Les deux opérations sont idempotentes.
func (s *Service) ToggleWishlist(ctx context.Context, userID, productID, action string) ([]models.Product, error) {
	if productID == "" {
		return nil, apperr.Validation("productId", "productId is required")
	}
	if action != "" && action != WishlistAdd && action != WishlistRemove {
		return nil, apperr.Validation("action", "action must be add or remove")
	}

	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if action == "" {
		action = WishlistAdd
		for _, id := range u.Wishlist {
			if id == productID {
				action = WishlistRemove
				break
			}
		}
	}

	var updated *models.User
	switch action {
	case WishlistAdd:
		if _, err := s.products.Get(ctx, productID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("product", productID)
			}
			return nil, fmt.Errorf("load product %s: %w", productID, err)
		}
		updated, err = s.users.AddToWishlist(ctx, userID, productID)
	case WishlistRemove:
		updated, err = s.users.RemoveFromWishlist(ctx, userID, productID)
	}
	if err != nil {
		return nil, s.writeErr(userID, err)
	}

	if s.cache != nil {
		s.cache.InvalidateWishlist(ctx, userID)
		s.cache.InvalidateUserCache(ctx, userID)
	}
	return s.resolve(ctx, userID, updated.Wishlist)
}

// GetWishlist lit d'abord le cache Redis.
func (s *Service) GetWishlist(ctx context.Context, userID string) ([]models.Product, error) {
	if s.cache != nil {
		if products, ok := s.cache.GetWishlist(ctx, userID); ok {
			return products, nil
		}
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, userID, u.Wishlist)
}

// resolve charge les produits dans l'ordre de la wishlist, en sautant
// ceux qui n'existent plus, puis met le résultat en cache.
func (s *Service) resolve(ctx context.Context, userID string, ids []string) ([]models.Product, error) {
	products := []models.Product{}
	if len(ids) > 0 {
		found, err := s.products.GetMany(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("wishlist products: %w", err)
		}
		byID := make(map[string]models.Product, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				products = append(products, p)
			}
		}
	}
	if s.cache != nil {
		s.cache.SetWishlist(ctx, userID, products)
	}
	return products, nil
}
