// Package payment relie les commandes aux passerelles de paiement :
// création de l'ordre passerelle, vérification de signature, webhook
// Stripe, remboursement et QR UPI pour le paiement à la livraison.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/cache"
	"vastra_back_end/internal/gateway"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/services/orders"
	"vastra_back_end/internal/store"
	"vastra_back_end/internal/utils"
)

const verifyLockTTL = 30 * time.Second

// Locker sérialise les vérifications concurrentes d'un même paiement.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// WebhookParser vérifie et décode un événement Stripe.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*gateway.IntentEvent, error)
}

type Deps struct {
	Orders         store.OrderStore
	Lifecycle      *orders.Service
	Gateways       gateway.Registry
	Webhooks       WebhookParser
	Locker         Locker
	Audit          audit.Recorder
	Retry          gateway.Retry
	RazorpaySecret string
	Currency       string
	UPIVPA         string
	StoreName      string
}

type Service struct {
	orders    store.OrderStore
	lifecycle *orders.Service
	gateways  gateway.Registry
	webhooks  WebhookParser
	locker    Locker
	audit     audit.Recorder
	retry     gateway.Retry
	secret    string
	currency  string
	upiVPA    string
	storeName string

	Now func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		orders:    d.Orders,
		lifecycle: d.Lifecycle,
		gateways:  d.Gateways,
		webhooks:  d.Webhooks,
		locker:    d.Locker,
		audit:     d.Audit,
		retry:     d.Retry,
		secret:    d.RazorpaySecret,
		currency:  d.Currency,
		upiVPA:    d.UPIVPA,
		storeName: d.StoreName,
		Now:       time.Now,
	}
	if s.audit == nil {
		s.audit = audit.LogRecorder{}
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = gateway.DefaultRetry
	}
	if s.currency == "" {
		s.currency = "INR"
	}
	return s
}

type GatewayOrder struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	// Amount est en unités mineures (paise, centimes), comme l'attend le
	// widget de paiement.
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	KeyID        string `json:"keyId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// CreateGatewayOrder ouvre un ordre chez la passerelle pour le montant
// exact de la commande. La commande n'est modifiée qu'en cas de succès.
func (s *Service) CreateGatewayOrder(ctx context.Context, p models.Principal, orderID string, amount float64) (*GatewayOrder, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != p.UserID {
		return nil, apperr.Forbidden("you do not have access to this order")
	}
	if !o.PaymentMethod.Online() {
		return nil, apperr.Validation("paymentMethod", "cash on delivery orders are paid on delivery")
	}
	if o.PaymentStatus != models.PaymentPending || o.OrderStatus == models.OrderCancelled {
		return nil, apperr.Validation("paymentStatus", "order %s is not awaiting payment", o.OrderNumber)
	}
	if !pricing.SameAmount(amount, o.TotalAmount) {
		return nil, apperr.Validation("amount", "amount %.2f does not match order total %.2f", amount, o.TotalAmount)
	}
	g, ok := s.gateways.For(o.PaymentMethod)
	if !ok {
		return nil, apperr.Validation("paymentMethod", "payment method %s is not available", o.PaymentMethod)
	}

	gwOrder, err := s.retry.CreateOrder(ctx, g, gateway.CreateOrderRequest{
		AmountMinor: pricing.ToMinor(o.TotalAmount),
		Currency:    s.currency,
		Receipt:     o.OrderNumber,
		Notes:       map[string]string{"order_id": o.ID, "order_number": o.OrderNumber},
	})
	if err != nil {
		log.Printf("❌ Création ordre passerelle pour %s: %v", o.OrderNumber, err)
		return nil, apperr.Gateway(err)
	}

	if err := s.orders.AttachGatewayOrder(ctx, o.ID, gwOrder.ID, s.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrPrecondition) {
			return nil, apperr.Conflict("order %s is no longer awaiting payment", o.OrderNumber)
		}
		return nil, fmt.Errorf("attach gateway order: %w", err)
	}
	log.Printf("✅ Ordre %s %s créé pour %s", o.PaymentMethod, gwOrder.ID, o.OrderNumber)

	return &GatewayOrder{
		GatewayOrderID: gwOrder.ID,
		Amount:         gwOrder.AmountMinor,
		Currency:       s.currency,
		KeyID:          g.PublicKey(),
		ClientSecret:   gwOrder.ClientSecret,
	}, nil
}

type VerifyInput struct {
	OrderID          string `json:"orderId" binding:"required"`
	GatewayOrderID   string `json:"gatewayOrderId" binding:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" binding:"required"`
	GatewaySignature string `json:"gatewaySignature" binding:"required"`
}

// Verify contrôle la signature HMAC renvoyée par le widget puis marque la
// commande payée. Un second appel avec le même paiement ne réécrit rien.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*models.Order, bool, error) {
	switch {
	case in.OrderID == "":
		return nil, false, apperr.Validation("orderId", "orderId is required")
	case in.GatewayOrderID == "":
		return nil, false, apperr.Validation("gatewayOrderId", "gatewayOrderId is required")
	case in.GatewayPaymentID == "":
		return nil, false, apperr.Validation("gatewayPaymentId", "gatewayPaymentId is required")
	}

	if !gateway.VerifySignature(s.secret, in.GatewayOrderID, in.GatewayPaymentID, in.GatewaySignature) {
		log.Printf("⚠️ Signature invalide pour la commande %s (paiement %s)", in.OrderID, in.GatewayPaymentID)
		s.recordFailure(in.OrderID, "signature invalide")
		return nil, false, apperr.ErrInvalidSignature
	}

	o, err := s.load(ctx, in.OrderID)
	if err != nil {
		return nil, false, err
	}
	if !o.PaymentMethod.Online() {
		s.recordFailure(o.ID, "vérification sur une commande COD")
		return nil, false, apperr.Validation("paymentMethod", "cash on delivery orders are paid on delivery")
	}
	// sans create-order, aucun ordre passerelle ne peut appartenir à la commande
	if o.GatewayOrderID == "" || o.GatewayOrderID != in.GatewayOrderID {
		log.Printf("⚠️ Ordre passerelle %s ne correspond pas à %s", in.GatewayOrderID, o.OrderNumber)
		s.recordFailure(o.ID, "ordre passerelle différent")
		return nil, false, apperr.ErrInvalidSignature
	}

	return s.complete(ctx, o.ID, models.PaymentDetails{
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.GatewayPaymentID,
		GatewaySignature: in.GatewaySignature,
	})
}

// complete est commun à Verify et au webhook Stripe.
func (s *Service) complete(ctx context.Context, orderID string, details models.PaymentDetails) (*models.Order, bool, error) {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "payment:verify:"+details.GatewayPaymentID, verifyLockTTL)
		switch {
		case errors.Is(err, cache.ErrLocked):
			return nil, false, apperr.Conflict("payment %s is already being verified", details.GatewayPaymentID)
		case err != nil:
			log.Printf("⚠️ Verrou Redis indisponible pour %s, on continue: %v", details.GatewayPaymentID, err)
		default:
			defer unlock()
		}
	}

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o.PaymentStatus == models.PaymentPaid || o.PaymentStatus == models.PaymentRefunded {
		return s.alreadyPaid(o, details.GatewayPaymentID)
	}
	if cancelledUnpaid(o) {
		return nil, false, s.lateForCancelled(o, details.GatewayPaymentID)
	}

	now := s.Now().UTC()
	details.PaidAt = now
	paid, err := s.orders.CompletePayment(ctx, o.ID, details, now)
	switch {
	case errors.Is(err, store.ErrPrecondition):
		current, lerr := s.load(ctx, orderID)
		if lerr != nil {
			return nil, false, lerr
		}
		return s.alreadyPaid(current, details.GatewayPaymentID)
	case errors.Is(err, store.ErrDuplicate):
		return nil, false, apperr.Conflict("payment %s was already used for another order", details.GatewayPaymentID)
	case err != nil:
		return nil, false, fmt.Errorf("complete payment %s: %w", o.OrderNumber, err)
	}

	s.lifecycle.Reserve(ctx, paid)
	log.Printf("✅ Paiement %s confirmé pour %s", details.GatewayPaymentID, paid.OrderNumber)
	s.lifecycle.Changed(ctx, paid, paid.UserID, audit.ActionPaymentVerify, details.GatewayPaymentID)
	return paid, false, nil
}

func (s *Service) alreadyPaid(o *models.Order, paymentID string) (*models.Order, bool, error) {
	if o.PaymentDetails != nil && o.PaymentDetails.GatewayPaymentID == paymentID {
		return o, true, nil
	}
	if cancelledUnpaid(o) {
		return nil, false, s.lateForCancelled(o, paymentID)
	}
	if o.PaymentStatus != models.PaymentPaid && o.PaymentStatus != models.PaymentRefunded {
		return nil, false, apperr.Conflict("order %s is %s", o.OrderNumber, o.PaymentStatus)
	}
	return nil, false, apperr.Conflict("order %s was already paid with another payment", o.OrderNumber)
}

// cancelledUnpaid vaut pour une commande annulée par le client ou un
// admin avant tout paiement. Les commandes expirées par le balayage
// passent en failed et restent payables.
func cancelledUnpaid(o *models.Order) bool {
	return o.OrderStatus == models.OrderCancelled && o.PaymentStatus == models.PaymentPending
}

// lateForCancelled refuse un paiement arrivé après l'annulation. Le
// remboursement reste manuel, côté tableau de bord de la passerelle.
func (s *Service) lateForCancelled(o *models.Order, paymentID string) error {
	log.Printf("⚠️ Paiement %s reçu pour la commande annulée %s, à rembourser", paymentID, o.OrderNumber)
	s.recordFailure(o.ID, "paiement après annulation: "+paymentID)
	return apperr.Conflict("order %s was cancelled", o.OrderNumber)
}

func (s *Service) load(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order", id)
		}
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	return o, nil
}

func (s *Service) recordFailure(orderID, reason string) {
	s.audit.Record(models.AuditLog{
		Action:     audit.ActionPaymentFailed,
		Resource:   audit.ResourceOrder,
		ResourceID: orderID,
		Success:    false,
		ErrorMsg:   reason,
		Timestamp:  s.Now().UTC(),
	})
}

// CODQR produit le QR UPI d'une commande payable à la livraison.
func (s *Service) CODQR(ctx context.Context, p models.Principal, orderID string) ([]byte, error) {
	o, err := s.lifecycle.Get(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentMethod != models.PaymentCOD {
		return nil, apperr.Validation("paymentMethod", "QR codes are only available for cash on delivery orders")
	}
	if o.PaymentStatus != models.PaymentPending {
		return nil, apperr.Validation("paymentStatus", "order %s is %s", o.OrderNumber, o.PaymentStatus)
	}
	if s.upiVPA == "" {
		return nil, apperr.Validation("paymentMethod", "UPI payments are not configured")
	}
	return utils.GenerateUPIQR(s.upiVPA, s.storeName, o.OrderNumber, o.TotalAmount, s.currency)
}
