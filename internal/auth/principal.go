package auth

import (
	"context"
	"errors"
	"log"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/cache"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

// Resolver ramène les deux schémas de jeton à un seul id interne.
type Resolver struct {
	users store.UserStore
	cache *cache.Cache
}

func NewResolver(users store.UserStore, c *cache.Cache) *Resolver {
	return &Resolver{users: users, cache: c}
}

func (r *Resolver) Resolve(ctx context.Context, claims *Claims) (models.Principal, error) {
	var (
		u   *models.User
		err error
	)
	switch {
	case claims.UserID != "":
		u, err = r.byID(ctx, claims.UserID)
	case claims.ExtID != "":
		u, err = r.byExternal(ctx, claims.ExtID)
	default:
		return models.Principal{}, apperr.Unauthorized("invalid token")
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Principal{}, apperr.Unauthorized("unknown user")
		}
		return models.Principal{}, err
	}
	return models.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

func (r *Resolver) byID(ctx context.Context, id string) (*models.User, error) {
	if r.cache != nil {
		if u, ok := r.cache.GetUser(ctx, id); ok {
			return u, nil
		}
	}
	u, err := r.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.SetUser(ctx, u)
	}
	return u, nil
}

func (r *Resolver) byExternal(ctx context.Context, extID string) (*models.User, error) {
	if r.cache != nil {
		if id, ok := r.cache.UserIDForExternal(ctx, extID); ok {
			if u, ok := r.cache.GetUser(ctx, id); ok {
				return u, nil
			}
		}
	}
	u, err := r.users.GetByExternalID(ctx, extID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.SetUser(ctx, u)
	}
	log.Printf("🔑 ext_id %s résolu vers %s", extID, u.ID)
	return u, nil
}
