package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

var (
	_ store.ProductStore = (*Products)(nil)
	_ store.OrderStore   = (*Orders)(nil)
	_ store.UserStore    = (*Users)(nil)
)

func TestAdjustStockKeepsTotalInSync(t *testing.T) {
	ctx := context.Background()
	s := NewProducts()
	p := &models.Product{Slug: "kurta", Sizes: []models.SizeStock{{Size: models.SizeM, Stock: 3}, {Size: models.SizeL, Stock: 1}}}
	require.NoError(t, s.Create(ctx, p))
	assert.Equal(t, 4, p.TotalStock)

	require.NoError(t, s.AdjustStock(ctx, p.ID, models.SizeM, -2))
	assert.ErrorIs(t, s.AdjustStock(ctx, p.ID, models.SizeL, -2), store.ErrInsufficientStock)
	assert.ErrorIs(t, s.AdjustStock(ctx, p.ID, models.SizeXS, 1), store.ErrNotFound)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Sizes[0].Stock)
	assert.Equal(t, 2, got.TotalStock)
}

func TestUsersVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewUsers()
	u := &models.User{Email: "A@Example.com", Role: models.RoleUser}
	require.NoError(t, s.Create(ctx, u))
	assert.Equal(t, "a@example.com", u.Email)

	updated, err := s.ReplaceAddresses(ctx, u.ID, 0, []models.Address{{ID: "1"}}, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated.Version)

	_, err = s.ReplaceAddresses(ctx, u.ID, 0, nil, time.Now())
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestCompletePaymentIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewOrders()
	o := &models.Order{OrderNumber: "VS-1", PaymentStatus: models.PaymentPending, OrderStatus: models.OrderPending}
	require.NoError(t, s.Insert(ctx, o))

	details := models.PaymentDetails{GatewayOrderID: "order_1", GatewayPaymentID: "pay_1"}
	paid, err := s.CompletePayment(ctx, o.ID, details, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, models.OrderConfirmed, paid.OrderStatus)

	_, err = s.CompletePayment(ctx, o.ID, details, time.Now())
	assert.ErrorIs(t, err, store.ErrPrecondition)
}

func TestCompletePaymentSkipsCancelledOrders(t *testing.T) {
	ctx := context.Background()
	s := NewOrders()
	cancelled := &models.Order{OrderNumber: "VS-2", PaymentStatus: models.PaymentPending, OrderStatus: models.OrderCancelled}
	expired := &models.Order{OrderNumber: "VS-3", PaymentStatus: models.PaymentFailed, OrderStatus: models.OrderCancelled}
	require.NoError(t, s.Insert(ctx, cancelled))
	require.NoError(t, s.Insert(ctx, expired))

	_, err := s.CompletePayment(ctx, cancelled.ID, models.PaymentDetails{GatewayPaymentID: "pay_2"}, time.Now())
	assert.ErrorIs(t, err, store.ErrPrecondition)

	paid, err := s.CompletePayment(ctx, expired.ID, models.PaymentDetails{GatewayPaymentID: "pay_3"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, paid.OrderStatus)
}
