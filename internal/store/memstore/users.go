package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

type Users struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func NewUsers() *Users {
	return &Users{byID: make(map[string]*models.User)}
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range s.byID {
		if other.Email == u.Email || other.ID == u.ID ||
			(u.ExternalAuthID != "" && other.ExternalAuthID == u.ExternalAuthID) {
			return store.ErrDuplicate
		}
	}
	s.byID[u.ID] = copyUser(u)
	return nil
}

func (s *Users) Get(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.Email == strings.ToLower(strings.TrimSpace(email)) })
}

func (s *Users) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.ExternalAuthID != "" && u.ExternalAuthID == externalID })
}

func (s *Users) LinkExternalID(_ context.Context, id, externalID, provider string, at time.Time) (*models.User, error) {
	return s.mutate(id, nil, func(u *models.User) {
		u.ExternalAuthID = externalID
		u.Provider = provider
		u.UpdatedAt = at
	})
}

func (s *Users) UpdateProfile(_ context.Context, id string, patch models.ProfilePatch, at time.Time) (*models.User, error) {
	return s.mutate(id, patch.Version, func(u *models.User) {
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.Phone != nil {
			u.Phone = *patch.Phone
		}
		if patch.Addresses != nil {
			u.Addresses = append([]models.Address{}, (*patch.Addresses)...)
		}
		u.UpdatedAt = at
	})
}

func (s *Users) ReplaceAddresses(_ context.Context, id string, expectVersion int64, addrs []models.Address, at time.Time) (*models.User, error) {
	return s.mutate(id, &expectVersion, func(u *models.User) {
		u.Addresses = append([]models.Address{}, addrs...)
		u.UpdatedAt = at
	})
}

func (s *Users) AddToWishlist(_ context.Context, id, productID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, p := range u.Wishlist {
		if p == productID {
			return copyUser(u), nil
		}
	}
	u.Wishlist = append(u.Wishlist, productID)
	return copyUser(u), nil
}

func (s *Users) RemoveFromWishlist(_ context.Context, id, productID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	kept := u.Wishlist[:0]
	for _, p := range u.Wishlist {
		if p != productID {
			kept = append(kept, p)
		}
	}
	u.Wishlist = kept
	return copyUser(u), nil
}

func (s *Users) List(_ context.Context, page, limit int) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, u := range s.byID {
		if u.Role == models.RoleUser {
			out = append(out, *copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start, end := paginate(len(out), page, limit, 20, 100)
	return out[start:end], int64(len(out)), nil
}

func (s *Users) findBy(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Users) mutate(id string, expectVersion *int64, fn func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if expectVersion != nil && u.Version != *expectVersion {
		return nil, store.ErrVersionConflict
	}
	fn(u)
	u.Version++
	return copyUser(u), nil
}
