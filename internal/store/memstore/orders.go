package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

type Orders struct {
	mu   sync.Mutex
	byID map[string]*models.Order

	// InsertHook, si défini, est appelé avant chaque insertion ; une erreur
	// retournée annule l'insertion.
	InsertHook func(o *models.Order) error
}

func NewOrders() *Orders {
	return &Orders{byID: make(map[string]*models.Order)}
}

func (s *Orders) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertHook != nil {
		if err := s.InsertHook(o); err != nil {
			return err
		}
	}
	if o.ID == "" {
		o.ID = newID()
	}
	for _, other := range s.byID {
		if other.OrderNumber == o.OrderNumber || other.ID == o.ID {
			return store.ErrDuplicate
		}
	}
	s.byID[o.ID] = copyOrder(o)
	return nil
}

func (s *Orders) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Orders) Get(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *Orders) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.byID {
		if o.GatewayOrderID == gatewayOrderID {
			return copyOrder(o), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Orders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.byID {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	sortNewest(out)
	return out, nil
}

func (s *Orders) List(_ context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.byID {
		if f.OrderStatus != "" && o.OrderStatus != f.OrderStatus {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	sortNewest(out)
	start, end := paginate(len(out), f.Page, f.Limit, 20, 100)
	return out[start:end], int64(len(out)), nil
}

func (s *Orders) Stats(_ context.Context) (*models.OrderStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.OrderStats{ByStatus: make(map[models.OrderStatus]int)}
	for _, st := range models.OrderStatuses {
		stats.ByStatus[st] = 0
	}
	for _, o := range s.byID {
		stats.TotalOrders++
		stats.ByStatus[o.OrderStatus]++
		if o.PaymentStatus == models.PaymentPaid {
			stats.TotalRevenue += o.TotalAmount
		}
	}
	return stats, nil
}

func (s *Orders) ListStalePending(_ context.Context, cutoff time.Time) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.byID {
		if o.PaymentStatus == models.PaymentPending && o.PaymentMethod.Online() &&
			o.OrderStatus != models.OrderCancelled && o.CreatedAt.Before(cutoff) {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (s *Orders) ApplyStatus(_ context.Context, id string, upd models.StatusUpdate) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	apply(o, upd)
	return copyOrder(o), nil
}

func (s *Orders) ApplyStatusIf(_ context.Context, id string, expect models.PaymentStatus, upd models.StatusUpdate) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if o.PaymentStatus != expect {
		return nil, store.ErrPrecondition
	}
	apply(o, upd)
	return copyOrder(o), nil
}

func (s *Orders) CompletePayment(_ context.Context, id string, details models.PaymentDetails, at time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	switch {
	case o.PaymentStatus == models.PaymentFailed:
	case o.PaymentStatus == models.PaymentPending && o.OrderStatus != models.OrderCancelled:
	default:
		return nil, store.ErrPrecondition
	}
	for _, other := range s.byID {
		if other.PaymentDetails != nil && other.PaymentDetails.GatewayPaymentID == details.GatewayPaymentID {
			return nil, store.ErrDuplicate
		}
	}
	d := details
	o.PaymentDetails = &d
	o.PaymentStatus = models.PaymentPaid
	o.OrderStatus = models.OrderConfirmed
	o.UpdatedAt = at
	return copyOrder(o), nil
}

func (s *Orders) AttachGatewayOrder(_ context.Context, id, gatewayOrderID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	if o.PaymentStatus != models.PaymentPending {
		return store.ErrPrecondition
	}
	o.GatewayOrderID = gatewayOrderID
	o.UpdatedAt = at
	return nil
}

func (s *Orders) SwapStockReserved(_ context.Context, id string, from, to bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok || o.StockReserved != from {
		return false, nil
	}
	o.StockReserved = to
	return true, nil
}

func apply(o *models.Order, upd models.StatusUpdate) {
	if upd.OrderStatus != "" {
		o.OrderStatus = upd.OrderStatus
	}
	if upd.PaymentStatus != nil {
		o.PaymentStatus = *upd.PaymentStatus
	}
	if upd.TrackingNumber != nil {
		o.TrackingNumber = *upd.TrackingNumber
	}
	if upd.DeliveredAt != nil {
		t := *upd.DeliveredAt
		o.DeliveredAt = &t
	}
	if upd.CancelledAt != nil {
		t := *upd.CancelledAt
		o.CancelledAt = &t
	}
	if upd.RefundID != nil {
		o.RefundID = *upd.RefundID
	}
	o.UpdatedAt = upd.UpdatedAt
}

func sortNewest(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}
