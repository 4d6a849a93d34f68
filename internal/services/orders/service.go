// Package orders gère le cycle de vie des commandes : création à partir du
// panier, statuts, réservation du stock et expiration des commandes en
// ligne abandonnées.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/cart"
	"vastra_back_end/internal/gateway"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/notify"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/realtime"
	"vastra_back_end/internal/store"
)

const maxLineQuantity = 10

type Deps struct {
	Orders    store.OrderStore
	Products  store.ProductStore
	Users     store.UserStore
	Policy    pricing.Policy
	Gateways  gateway.Registry
	Notifier  notify.Notifier
	Publisher realtime.Publisher
	Audit     audit.Recorder
	// PendingTTL est l'âge au-delà duquel une commande en ligne impayée
	// est expirée par le sweeper.
	PendingTTL time.Duration
}

type Service struct {
	orders     store.OrderStore
	products   store.ProductStore
	users      store.UserStore
	policy     pricing.Policy
	gateways   gateway.Registry
	notifier   notify.Notifier
	publisher  realtime.Publisher
	audit      audit.Recorder
	pendingTTL time.Duration

	Now    func() time.Time
	suffix func(n int) (string, error)
}

func New(d Deps) *Service {
	s := &Service{
		orders:     d.Orders,
		products:   d.Products,
		users:      d.Users,
		policy:     d.Policy,
		gateways:   d.Gateways,
		notifier:   d.Notifier,
		publisher:  d.Publisher,
		audit:      d.Audit,
		pendingTTL: d.PendingTTL,
		Now:        time.Now,
		suffix:     randomSuffix,
	}
	if s.notifier == nil {
		s.notifier = notify.LogNotifier{}
	}
	if s.publisher == nil {
		s.publisher = realtime.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = audit.LogRecorder{}
	}
	if s.pendingTTL <= 0 {
		s.pendingTTL = 24 * time.Hour
	}
	return s
}

type CreateInput struct {
	Items           []models.CartItem      `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   models.PaymentMethod   `json:"paymentMethod"`
}

// Create valide le panier, fige le prix et le nom de chaque article et
// enregistre la commande en attente. Le stock n'est pas touché.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Order, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	lines := cart.Merge(in.Items)
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Quantity > maxLineQuantity {
			return nil, apperr.Validation("quantity", "at most %d of the same item per order", maxLineQuantity)
		}
		ids = append(ids, l.ProductID)
	}

	found, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok || !p.IsActive {
			return nil, apperr.NotFound("product", l.ProductID)
		}
		if _, ok := p.StockFor(l.Size); !ok {
			return nil, apperr.Validation("size", "size %s is not available for %s", l.Size, p.Name)
		}
		price := p.EffectivePrice()
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.MainImage(),
			Price:     price,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
		})
		priced = append(priced, pricing.Line{Price: price, Quantity: l.Quantity})
	}

	totals := s.policy.Compute(priced)
	now := s.Now().UTC()
	order := &models.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   models.PaymentPending,
		OrderStatus:     models.OrderPending,
		ItemsTotal:      totals.ItemsTotal,
		ShippingCharge:  totals.ShippingCharge,
		Discount:        totals.Discount,
		TotalAmount:     totals.TotalAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.insertWithNumber(ctx, order); err != nil {
		return nil, err
	}

	log.Printf("✅ Commande %s créée pour %s (%.2f, %s)", order.OrderNumber, userID, order.TotalAmount, order.PaymentMethod)
	s.record(userID, audit.ActionOrderCreate, order, "")
	return order, nil
}

func (s *Service) validateInput(in CreateInput) error {
	if len(in.Items) == 0 {
		return apperr.Validation("items", "order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return apperr.Validation("productId", "productId is required")
		}
		if it.Quantity < 1 {
			return apperr.Validation("quantity", "quantity must be at least 1")
		}
		if it.Quantity > maxLineQuantity {
			return apperr.Validation("quantity", "at most %d of the same item per order", maxLineQuantity)
		}
		if !it.Size.Valid() {
			return apperr.Validation("size", "unknown size %q", it.Size)
		}
	}
	if err := apperr.Check("shippingAddress", in.ShippingAddress); err != nil {
		return err
	}
	if !in.PaymentMethod.Valid() {
		return apperr.Validation("paymentMethod", "unknown payment method %q", in.PaymentMethod)
	}
	if in.PaymentMethod.Online() {
		if _, ok := s.gateways.For(in.PaymentMethod); !ok {
			return apperr.Validation("paymentMethod", "payment method %s is not available", in.PaymentMethod)
		}
	}
	return nil
}

// Get applique la règle d'accès : propriétaire ou admin.
func (s *Service) Get(ctx context.Context, p models.Principal, id string) (*models.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != p.UserID && !p.IsAdmin() {
		return nil, apperr.Forbidden("you do not have access to this order")
	}
	return o, nil
}

// ListByUser retourne toutes les commandes de l'utilisateur, les plus
// récentes d'abord, sans pagination.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", userID, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *Service) ListAll(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	if f.OrderStatus != "" && !f.OrderStatus.Valid() {
		return nil, 0, apperr.Validation("orderStatus", "unknown order status %q", f.OrderStatus)
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return nil, 0, apperr.Validation("paymentStatus", "unknown payment status %q", f.PaymentStatus)
	}
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, total, nil
}

func (s *Service) Stats(ctx context.Context) (*models.OrderStats, error) {
	return s.orders.Stats(ctx)
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
