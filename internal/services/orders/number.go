package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"

	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

// Alphabet base32 de Crockford : sans I, L, O ni U.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	suffixLen      = 6
	numberAttempts = 5
)

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = crockford[b&31]
	}
	return string(buf), nil
}

// insertWithNumber attribue VS-YYYYMMDD-XXXXXX et réessaie sur collision
// d'index unique, en élargissant le suffixe de 2 caractères à chaque fois.
func (s *Service) insertWithNumber(ctx context.Context, o *models.Order) error {
	date := o.CreatedAt.UTC().Format("20060102")
	for attempt := 0; attempt < numberAttempts; attempt++ {
		suffix, err := s.suffix(suffixLen + 2*attempt)
		if err != nil {
			return fmt.Errorf("order number: %w", err)
		}
		o.OrderNumber = fmt.Sprintf("VS-%s-%s", date, suffix)
		err = s.orders.Insert(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("insert order: %w", err)
		}
		log.Printf("⚠️ Collision numéro de commande %s (tentative %d)", o.OrderNumber, attempt+1)
		o.ID = ""
	}
	return fmt.Errorf("insert order: %d collisions on order number", numberAttempts)
}
