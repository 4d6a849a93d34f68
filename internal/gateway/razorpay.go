package gateway

import (
	"context"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"

	"vastra_back_end/internal/models"
)

type Razorpay struct {
	client *razorpay.Client
	keyID  string
}

func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{client: razorpay.NewClient(keyID, keySecret), keyID: keyID}
}

func (r *Razorpay) Method() models.PaymentMethod { return models.PaymentRazorpay }

func (r *Razorpay) PublicKey() string { return r.keyID }

func (r *Razorpay) CreateOrder(_ context.Context, req CreateOrderRequest) (*Order, error) {
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}
	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		return nil, classifyRazorpay(err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay: réponse sans id: %v", body)
	}
	return &Order{ID: id, AmountMinor: req.AmountMinor, Currency: req.Currency}, nil
}

func (r *Razorpay) Refund(_ context.Context, paymentID string, amountMinor int64) (string, error) {
	body, err := r.client.Payment.Refund(paymentID, int(amountMinor), nil, nil)
	if err != nil {
		return "", classifyRazorpay(err)
	}
	id, _ := body["id"].(string)
	return id, nil
}

// classifyRazorpay rend permanentes les erreurs de requête (4xx) ; le
// reste (réseau, 5xx) est réessayable.
func classifyRazorpay(err error) error {
	msg := strings.ToUpper(err.Error())
	if strings.Contains(msg, "BAD_REQUEST") {
		return &PermanentError{Err: err}
	}
	return err
}
