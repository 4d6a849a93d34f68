// Package gateway parle aux prestataires de paiement en ligne (Razorpay,
// Stripe) derrière une interface commune.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"vastra_back_end/internal/models"
)

type CreateOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type Order struct {
	ID           string
	AmountMinor  int64
	Currency     string
	ClientSecret string
}

type Gateway interface {
	Method() models.PaymentMethod
	// PublicKey est la clé transmise au widget de paiement, si le
	// prestataire en utilise une.
	PublicKey() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	Refund(ctx context.Context, paymentID string, amountMinor int64) (string, error)
}

// PermanentError marque une erreur qu'il est inutile de réessayer.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

type Registry map[models.PaymentMethod]Gateway

func NewRegistry(gateways ...Gateway) Registry {
	r := make(Registry, len(gateways))
	for _, g := range gateways {
		if g != nil {
			r[g.Method()] = g
		}
	}
	return r
}

func (r Registry) For(m models.PaymentMethod) (Gateway, bool) {
	g, ok := r[m]
	return g, ok
}

// Retry réessaie la création d'ordre sur les erreurs transitoires, avec
// un backoff exponentiel et du jitter.
type Retry struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetry = Retry{MaxAttempts: 3, InitialInterval: 300 * time.Millisecond, MaxInterval: 2 * time.Second}

func (r Retry) CreateOrder(ctx context.Context, g Gateway, req CreateOrderRequest) (*Order, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.InitialInterval
	eb.MaxInterval = r.MaxInterval
	eb.RandomizationFactor = 0.5
	attempts := r.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, attempts-1), ctx)

	var out *Order
	op := func() error {
		o, err := g.CreateOrder(ctx, req)
		if err != nil {
			var perm *PermanentError
			if errors.As(err, &perm) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = o
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("%s create order: %w", g.Method(), err)
	}
	return out, nil
}

// Sign calcule la signature Razorpay d'un paiement :
// hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compare en temps constant.
func VerifySignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
