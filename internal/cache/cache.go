package cache

import (
	"context"
	"log"
	"time"

	"vastra_back_end/internal/models"
)

const (
	UserCacheTTL     = 5 * time.Minute
	WishlistCacheTTL = 10 * time.Minute
)

func userKey(userID string) string         { return "user:" + userID }
func externalKey(externalID string) string { return "user_ext:" + externalID }
func wishlistKey(userID string) string     { return "wishlist:" + userID }

// GetUser lit un utilisateur mis en cache par son id interne.
func (c *Cache) GetUser(ctx context.Context, userID string) (*models.User, bool) {
	var u models.User
	ok, err := c.GetJSON(ctx, userKey(userID), &u)
	if err != nil {
		log.Printf("⚠️ Erreur lecture cache user %s: %v", userID, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &u, true
}

func (c *Cache) SetUser(ctx context.Context, u *models.User) {
	if err := c.SetJSON(ctx, userKey(u.ID), u, UserCacheTTL); err != nil {
		log.Printf("⚠️ Erreur écriture cache user %s: %v", u.ID, err)
	}
	if u.ExternalAuthID != "" {
		if err := c.rdb.Set(ctx, externalKey(u.ExternalAuthID), u.ID, UserCacheTTL).Err(); err != nil {
			log.Printf("⚠️ Erreur écriture cache ext %s: %v", u.ExternalAuthID, err)
		}
	}
}

// UserIDForExternal résout un identifiant externe déjà vu.
func (c *Cache) UserIDForExternal(ctx context.Context, externalID string) (string, bool) {
	id, err := c.rdb.Get(ctx, externalKey(externalID)).Result()
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// InvalidateUserCache invalide le cache d'un utilisateur
func (c *Cache) InvalidateUserCache(ctx context.Context, userID string) {
	if err := c.Delete(ctx, userKey(userID)); err != nil {
		log.Printf("⚠️ Erreur invalidation cache user %s: %v", userID, err)
	}
}

// GetWishlist lit la wishlist résolue d'un utilisateur.
func (c *Cache) GetWishlist(ctx context.Context, userID string) ([]models.Product, bool) {
	var products []models.Product
	ok, err := c.GetJSON(ctx, wishlistKey(userID), &products)
	if err != nil || !ok {
		return nil, false
	}
	return products, true
}

func (c *Cache) SetWishlist(ctx context.Context, userID string, products []models.Product) {
	if err := c.SetJSON(ctx, wishlistKey(userID), products, WishlistCacheTTL); err != nil {
		log.Printf("⚠️ Erreur cache wishlist %s: %v", userID, err)
	}
}

func (c *Cache) InvalidateWishlist(ctx context.Context, userID string) {
	if err := c.Delete(ctx, wishlistKey(userID)); err != nil {
		log.Printf("⚠️ Erreur invalidation wishlist %s: %v", userID, err)
	}
}
