package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/webhook"

	"vastra_back_end/internal/models"
)

// Stripe utilise les PaymentIntents ; l'id de l'intent joue le rôle
// d'ordre passerelle.
type Stripe struct {
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	stripe.Key = secretKey
	return &Stripe{webhookSecret: webhookSecret}
}

func (s *Stripe) Method() models.PaymentMethod { return models.PaymentStripe }

func (s *Stripe) PublicKey() string { return "" }

func (s *Stripe) CreateOrder(_ context.Context, req CreateOrderRequest) (*Order, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(req.Receipt),
		Metadata:    req.Notes,
	}
	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, classifyStripe(err)
	}
	return &Order{
		ID:           intent.ID,
		AmountMinor:  intent.Amount,
		Currency:     req.Currency,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (s *Stripe) Refund(_ context.Context, paymentIntentID string, amountMinor int64) (string, error) {
	r, err := refund.New(&stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountMinor),
	})
	if err != nil {
		return "", classifyStripe(err)
	}
	return r.ID, nil
}

// IntentEvent est la partie utile d'un événement webhook payment_intent.*.
type IntentEvent struct {
	Type     stripe.EventType
	IntentID string
	OrderID  string
	Amount   int64
}

// ParseWebhook vérifie la signature Stripe et extrait le PaymentIntent.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*IntentEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, err
	}
	out := &IntentEvent{Type: event.Type}
	if !strings.HasPrefix(string(event.Type), "payment_intent.") {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, err
	}
	out.IntentID = pi.ID
	out.OrderID = pi.Metadata["order_id"]
	out.Amount = pi.Amount
	return out, nil
}

func classifyStripe(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		if serr.HTTPStatusCode >= 400 && serr.HTTPStatusCode < 500 && serr.HTTPStatusCode != http.StatusTooManyRequests {
			return &PermanentError{Err: err}
		}
	}
	return err
}
