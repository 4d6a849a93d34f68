package account

import (
	"context"
	"errors"
	"log"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

// AddAddress ajoute une adresse ; la première devient celle par défaut.
func (s *Service) AddAddress(ctx context.Context, userID string, addr models.Address) ([]models.Address, error) {
	if err := checkAddress("address", &addr); err != nil {
		return nil, err
	}
	addr.ID = s.newID()
	return s.mutateAddresses(ctx, userID, func(addrs []models.Address) ([]models.Address, error) {
		a := addr
		if len(addrs) == 0 {
			a.IsDefault = true
		}
		if a.IsDefault {
			for i := range addrs {
				addrs[i].IsDefault = false
			}
		}
		return append(addrs, a), nil
	})
}

// RemoveAddress retire une adresse ; si c'était celle par défaut, la
// première restante prend le relais.
func (s *Service) RemoveAddress(ctx context.Context, userID, addressID string) ([]models.Address, error) {
	return s.mutateAddresses(ctx, userID, func(addrs []models.Address) ([]models.Address, error) {
		idx := indexOf(addrs, addressID)
		if idx < 0 {
			return nil, apperr.NotFound("address", addressID)
		}
		wasDefault := addrs[idx].IsDefault
		out := append(addrs[:idx:idx], addrs[idx+1:]...)
		if wasDefault && len(out) > 0 {
			out[0].IsDefault = true
		}
		return out, nil
	})
}

func (s *Service) SetDefaultAddress(ctx context.Context, userID, addressID string) ([]models.Address, error) {
	return s.mutateAddresses(ctx, userID, func(addrs []models.Address) ([]models.Address, error) {
		if indexOf(addrs, addressID) < 0 {
			return nil, apperr.NotFound("address", addressID)
		}
		for i := range addrs {
			addrs[i].IsDefault = addrs[i].ID == addressID
		}
		return addrs, nil
	})
}

// mutateAddresses relit l'utilisateur et réécrit ses adresses sous
// condition de version, avec quelques relectures en cas de conflit.
func (s *Service) mutateAddresses(ctx context.Context, userID string, fn func([]models.Address) ([]models.Address, error)) ([]models.Address, error) {
	for attempt := 1; attempt <= addressAttempts; attempt++ {
		u, err := s.loadUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		current := append([]models.Address(nil), u.Addresses...)
		next, err := fn(current)
		if err != nil {
			return nil, err
		}

		updated, err := s.users.ReplaceAddresses(ctx, userID, u.Version, next, s.Now().UTC())
		if errors.Is(err, store.ErrVersionConflict) {
			log.Printf("⚠️ Conflit de version sur les adresses de %s (tentative %d)", userID, attempt)
			continue
		}
		if err != nil {
			return nil, s.writeErr(userID, err)
		}
		s.invalidateUser(ctx, userID)
		if updated.Addresses == nil {
			return []models.Address{}, nil
		}
		return updated.Addresses, nil
	}
	return nil, apperr.Conflict("addresses were modified concurrently, try again")
}

func indexOf(addrs []models.Address, id string) int {
	for i, a := range addrs {
		if a.ID == id {
			return i
		}
	}
	return -1
}
