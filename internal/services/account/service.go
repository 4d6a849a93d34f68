// Package account gère le profil client : statistiques, adresses et
// wishlist.
package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/cache"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

// addressAttempts borne les relectures sur conflit de version.
const addressAttempts = 3

type Service struct {
	users    store.UserStore
	orders   store.OrderStore
	products store.ProductStore
	cache    *cache.Cache

	Now   func() time.Time
	newID func() string
}

func New(users store.UserStore, orders store.OrderStore, products store.ProductStore, c *cache.Cache) *Service {
	return &Service{
		users:    users,
		orders:   orders,
		products: products,
		cache:    c,
		Now:      time.Now,
		newID:    uuid.NewString,
	}
}

type Profile struct {
	User  *models.User        `json:"user"`
	Stats models.ProfileStats `json:"stats"`
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("orders of %s: %w", userID, err)
	}
	return &Profile{User: u, Stats: statsOf(orders)}, nil
}

// statsOf : totalSpent ignore les commandes annulées ; pending regroupe
// tout ce qui n'est ni livré ni annulé.
func statsOf(orders []models.Order) models.ProfileStats {
	stats := models.ProfileStats{TotalOrders: len(orders)}
	spent := decimal.Zero
	for _, o := range orders {
		if o.OrderStatus != models.OrderCancelled {
			spent = spent.Add(decimal.NewFromFloat(o.TotalAmount))
		}
		if o.OrderStatus == models.OrderDelivered {
			stats.Delivered++
		}
		if o.OrderStatus.InPendingBucket() {
			stats.Pending++
		}
	}
	stats.TotalSpent = spent.Round(2).InexactFloat64()
	return stats
}

type ProfileInput struct {
	Name      *string           `json:"name"`
	Phone     *string           `json:"phone"`
	Addresses *[]models.Address `json:"addresses"`
	Version   *int64            `json:"version"`
}

// UpdateProfile fusionne les champs fournis ; un tableau addresses
// remplace l'existant en entier.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Profile, error) {
	patch := models.ProfilePatch{Version: in.Version}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := apperr.CheckVar("name", name, "required,max=100"); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if err := apperr.CheckVar("phone", phone, "omitempty,numeric,len=10"); err != nil {
			return nil, err
		}
		patch.Phone = &phone
	}
	if in.Addresses != nil {
		addrs, err := s.normalizeAddresses(*in.Addresses)
		if err != nil {
			return nil, err
		}
		patch.Addresses = &addrs
	}

	if _, err := s.users.UpdateProfile(ctx, userID, patch, s.Now().UTC()); err != nil {
		return nil, s.writeErr(userID, err)
	}
	s.invalidateUser(ctx, userID)
	log.Printf("✅ Profil %s mis à jour", userID)
	return s.GetProfile(ctx, userID)
}

func (s *Service) normalizeAddresses(in []models.Address) ([]models.Address, error) {
	out := make([]models.Address, len(in))
	defaults := 0
	for i, a := range in {
		if err := checkAddress(fmt.Sprintf("addresses[%d]", i), &a); err != nil {
			return nil, err
		}
		if a.ID == "" {
			a.ID = s.newID()
		}
		if a.IsDefault {
			defaults++
		}
		out[i] = a
	}
	if defaults > 1 {
		return nil, apperr.Validation("addresses", "only one address can be the default")
	}
	return out, nil
}

func checkAddress(prefix string, a *models.Address) error {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.AddressLine1 = strings.TrimSpace(a.AddressLine1)
	a.AddressLine2 = strings.TrimSpace(a.AddressLine2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Pincode = strings.TrimSpace(a.Pincode)
	return apperr.Check(prefix, *a)
}

func (s *Service) ListCustomers(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, total, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user", userID)
		}
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return u, nil
}

func (s *Service) writeErr(userID string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("user", userID)
	case errors.Is(err, store.ErrVersionConflict):
		return apperr.Conflict("profile was modified elsewhere, reload and try again")
	default:
		return fmt.Errorf("update user %s: %w", userID, err)
	}
}

func (s *Service) invalidateUser(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateUserCache(ctx, userID)
	}
}
