package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/cache"
	"vastra_back_end/internal/gateway"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/services/orders"
	"vastra_back_end/internal/store/memstore"
)

const secret = "rzp_secret"

type fakeGateway struct {
	method   models.PaymentMethod
	mu       sync.Mutex
	failures int
	calls    int
	refunds  map[string]int64
}

func (g *fakeGateway) Method() models.PaymentMethod { return g.method }
func (g *fakeGateway) PublicKey() string            { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failures {
		return nil, errors.New("gateway timeout")
	}
	return &gateway.Order{ID: "order_" + req.Receipt, AmountMinor: req.AmountMinor, Currency: req.Currency, ClientSecret: "cs_" + req.Receipt}, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, amountMinor int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refunds == nil {
		g.refunds = map[string]int64{}
	}
	g.refunds[paymentID] = amountMinor
	return "rfnd_" + paymentID, nil
}

type fakeWebhooks struct {
	ev  *gateway.IntentEvent
	err error
}

func (w *fakeWebhooks) ParseWebhook([]byte, string) (*gateway.IntentEvent, error) {
	return w.ev, w.err
}

type fixture struct {
	svc       *Service
	lifecycle *orders.Service
	orders    *memstore.Orders
	products  *memstore.Products
	cache     *cache.Cache
	razorpay  *fakeGateway
	stripe    *fakeGateway
	hooks     *fakeWebhooks
	audit     *audit.Memory

	shirt    *models.Product
	customer models.Principal
	admin    models.Principal
}

var now = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mr := miniredis.RunT(t)

	f := &fixture{
		orders:   memstore.NewOrders(),
		products: memstore.NewProducts(),
		cache:    cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		razorpay: &fakeGateway{method: models.PaymentRazorpay},
		stripe:   &fakeGateway{method: models.PaymentStripe},
		hooks:    &fakeWebhooks{},
		audit:    audit.NewMemory(),
		admin:    models.Principal{UserID: "admin", Role: models.RoleAdmin},
	}
	users := memstore.NewUsers()
	u := &models.User{Email: "dev@example.in", Role: models.RoleUser, Provider: models.ProviderLocal}
	require.NoError(t, users.Create(ctx, u))
	f.customer = models.Principal{UserID: u.ID, Email: u.Email, Role: models.RoleUser}

	f.shirt = &models.Product{
		Slug: "cotton-tee", Name: "Cotton Tee", Price: 450, IsActive: true,
		Sizes: []models.SizeStock{{Size: models.SizeM, Stock: 4}},
	}
	require.NoError(t, f.products.Create(ctx, f.shirt))

	registry := gateway.NewRegistry(f.razorpay, f.stripe)
	f.lifecycle = orders.New(orders.Deps{
		Orders:   f.orders,
		Products: f.products,
		Users:    users,
		Policy:   pricing.NewPolicy(999, 79),
		Gateways: registry,
		Audit:    f.audit,
	})
	f.lifecycle.Now = func() time.Time { return now }

	f.svc = New(Deps{
		Orders:         f.orders,
		Lifecycle:      f.lifecycle,
		Gateways:       registry,
		Webhooks:       f.hooks,
		Locker:         f.cache,
		Audit:          f.audit,
		Retry:          gateway.Retry{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
		RazorpaySecret: secret,
		Currency:       "INR",
		UPIVPA:         "vastra@upi",
		StoreName:      "Vastra",
	})
	f.svc.Now = func() time.Time { return now }
	return f
}

func (f *fixture) order(t *testing.T, method models.PaymentMethod, qty int) *models.Order {
	t.Helper()
	o, err := f.lifecycle.Create(context.Background(), f.customer.UserID, orders.CreateInput{
		Items: []models.CartItem{{ProductID: f.shirt.ID, Size: models.SizeM, Quantity: qty}},
		ShippingAddress: models.ShippingAddress{
			FullName: "Dev Patel", Phone: "9123456789", AddressLine1: "4 Ring Rd",
			City: "Surat", State: "GJ", Pincode: "395001",
		},
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), f.shirt.ID)
	require.NoError(t, err)
	n, _ := p.StockFor(models.SizeM)
	assert.Equal(t, n, p.TotalStock)
	return n
}

func TestCreateGatewayOrder(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, models.PaymentRazorpay, 2)
	require.Equal(t, 979.0, o.TotalAmount)

	res, err := f.svc.CreateGatewayOrder(context.Background(), f.customer, o.ID, 979)
	require.NoError(t, err)
	assert.Equal(t, "order_"+o.OrderNumber, res.GatewayOrderID)
	assert.EqualValues(t, 97900, res.Amount)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "rzp_test_key", res.KeyID)

	stored, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, res.GatewayOrderID, stored.GatewayOrderID)
}

func TestCreateGatewayOrderRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	online := f.order(t, models.PaymentRazorpay, 1)
	cod := f.order(t, models.PaymentCOD, 1)

	_, err := f.svc.CreateGatewayOrder(ctx, f.customer, online.ID, 100)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "amount mismatch")

	_, err = f.svc.CreateGatewayOrder(ctx, f.customer, cod.ID, cod.TotalAmount)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "cod")

	_, err = f.svc.CreateGatewayOrder(ctx, models.Principal{UserID: "other"}, online.ID, online.TotalAmount)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.CreateGatewayOrder(ctx, f.customer, "65f0000000000000000000aa", 10)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.orders.CompletePayment(ctx, online.ID, models.PaymentDetails{GatewayPaymentID: "pay_x"}, now)
	require.NoError(t, err)
	_, err = f.svc.CreateGatewayOrder(ctx, f.customer, online.ID, online.TotalAmount)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "already paid")

	assert.Zero(t, f.razorpay.calls)
}

func TestCreateGatewayOrderRetriesThenFails(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, models.PaymentRazorpay, 1)

	f.razorpay.failures = 2
	_, err := f.svc.CreateGatewayOrder(context.Background(), f.customer, o.ID, o.TotalAmount)
	require.NoError(t, err)
	assert.Equal(t, 3, f.razorpay.calls)

	o2 := f.order(t, models.PaymentRazorpay, 1)
	f.razorpay.calls, f.razorpay.failures = 0, 100
	_, err = f.svc.CreateGatewayOrder(context.Background(), f.customer, o2.ID, o2.TotalAmount)
	assert.Equal(t, apperr.KindGateway, apperr.KindOf(err))
	assert.Equal(t, 3, f.razorpay.calls)

	stored, err := f.orders.Get(context.Background(), o2.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.GatewayOrderID, "order untouched on gateway failure")
}

func TestStripeReturnsClientSecret(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, models.PaymentStripe, 1)
	res, err := f.svc.CreateGatewayOrder(context.Background(), f.customer, o.ID, o.TotalAmount)
	require.NoError(t, err)
	assert.Equal(t, "cs_"+o.OrderNumber, res.ClientSecret)
}

func (f *fixture) verifyInput(t *testing.T, o *models.Order, paymentID string) VerifyInput {
	t.Helper()
	res, err := f.svc.CreateGatewayOrder(context.Background(), f.customer, o.ID, o.TotalAmount)
	require.NoError(t, err)
	return VerifyInput{
		OrderID:          o.ID,
		GatewayOrderID:   res.GatewayOrderID,
		GatewayPaymentID: paymentID,
		GatewaySignature: gateway.Sign(secret, res.GatewayOrderID, paymentID),
	}
}

func TestVerifyMarksPaidOnceAndReservesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentRazorpay, 3)
	in := f.verifyInput(t, o, "pay_001")

	paid, already, err := f.svc.Verify(ctx, in)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, models.OrderConfirmed, paid.OrderStatus)
	require.NotNil(t, paid.PaymentDetails)
	assert.Equal(t, in.GatewayOrderID, paid.PaymentDetails.GatewayOrderID)
	assert.Equal(t, "pay_001", paid.PaymentDetails.GatewayPaymentID)
	assert.Equal(t, in.GatewaySignature, paid.PaymentDetails.GatewaySignature)
	assert.Equal(t, 1, f.stock(t))

	again, already, err := f.svc.Verify(ctx, in)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, paid.UpdatedAt, again.UpdatedAt, "second verification writes nothing")
	assert.Equal(t, 1, f.stock(t))

	other := in
	other.GatewayPaymentID = "pay_002"
	other.GatewaySignature = gateway.Sign(secret, in.GatewayOrderID, "pay_002")
	_, _, err = f.svc.Verify(ctx, other)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestVerifyRejectsBadSignatures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentRazorpay, 1)
	in := f.verifyInput(t, o, "pay_001")

	tampered := in
	tampered.GatewayPaymentID = "pay_999"
	_, _, err := f.svc.Verify(ctx, tampered)
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	foreign := in
	foreign.GatewayOrderID = "order_someone_else"
	foreign.GatewaySignature = gateway.Sign(secret, "order_someone_else", "pay_001")
	_, _, err = f.svc.Verify(ctx, foreign)
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	// signature authentique d'une autre commande
	other := f.order(t, models.PaymentRazorpay, 2)
	otherIn := f.verifyInput(t, other, "pay_other")
	_, _, err = f.svc.Verify(ctx, VerifyInput{
		OrderID:          o.ID,
		GatewayOrderID:   otherIn.GatewayOrderID,
		GatewayPaymentID: otherIn.GatewayPaymentID,
		GatewaySignature: otherIn.GatewaySignature,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	// commande sans create-order
	bare := f.order(t, models.PaymentRazorpay, 1)
	_, _, err = f.svc.Verify(ctx, VerifyInput{
		OrderID:          bare.ID,
		GatewayOrderID:   otherIn.GatewayOrderID,
		GatewayPaymentID: otherIn.GatewayPaymentID,
		GatewaySignature: otherIn.GatewaySignature,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	cod := f.order(t, models.PaymentCOD, 1)
	_, _, err = f.svc.Verify(ctx, VerifyInput{
		OrderID:          cod.ID,
		GatewayOrderID:   otherIn.GatewayOrderID,
		GatewayPaymentID: otherIn.GatewayPaymentID,
		GatewaySignature: otherIn.GatewaySignature,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	for _, id := range []string{o.ID, bare.ID, cod.ID} {
		stored, err := f.orders.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
		assert.Equal(t, models.OrderPending, stored.OrderStatus)
		assert.Nil(t, stored.PaymentDetails)
	}
	assert.Equal(t, 4, f.stock(t))
}

func TestVerifyAfterCancelIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentRazorpay, 1)
	in := f.verifyInput(t, o, "pay_late")

	_, err := f.lifecycle.Cancel(ctx, f.customer, o.ID)
	require.NoError(t, err)

	_, _, err = f.svc.Verify(ctx, in)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, stored.OrderStatus)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	assert.False(t, stored.StockReserved)
	assert.Equal(t, 4, f.stock(t))
}

func TestStripeWebhookAfterCancelKeepsOrderCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentStripe, 1)
	res, err := f.svc.CreateGatewayOrder(ctx, f.customer, o.ID, o.TotalAmount)
	require.NoError(t, err)
	_, err = f.lifecycle.Cancel(ctx, f.customer, o.ID)
	require.NoError(t, err)

	f.hooks.ev = &gateway.IntentEvent{Type: stripe.EventTypePaymentIntentSucceeded, IntentID: res.GatewayOrderID, Amount: pricing.ToMinor(o.TotalAmount)}
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"))

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, stored.OrderStatus)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	assert.Equal(t, 4, f.stock(t))
}

func TestVerifyHonoursInFlightLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentRazorpay, 1)
	in := f.verifyInput(t, o, "pay_locked")

	unlock, err := f.cache.Lock(ctx, "payment:verify:pay_locked", time.Minute)
	require.NoError(t, err)
	_, _, err = f.svc.Verify(ctx, in)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	unlock()
	_, already, err := f.svc.Verify(ctx, in)
	require.NoError(t, err)
	assert.False(t, already)
}

func TestConcurrentVerificationsPayOnce(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, models.PaymentRazorpay, 2)
	in := f.verifyInput(t, o, "pay_race")

	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, already, err := f.svc.Verify(context.Background(), in)
			if err == nil && !already {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fresh)
	assert.Equal(t, 2, f.stock(t))
}

func TestStripeWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentStripe, 1)
	res, err := f.svc.CreateGatewayOrder(ctx, f.customer, o.ID, o.TotalAmount)
	require.NoError(t, err)

	f.hooks.ev = &gateway.IntentEvent{Type: stripe.EventTypePaymentIntentSucceeded, IntentID: res.GatewayOrderID, OrderID: o.ID, Amount: 100}
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"))
	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus, "amount mismatch is not completed")

	f.hooks.ev.Amount = pricing.ToMinor(o.TotalAmount)
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"))
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"))
	stored, err = f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, 3, f.stock(t))

	f.hooks.ev = &gateway.IntentEvent{Type: "customer.created"}
	assert.NoError(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"))

	f.hooks.ev, f.hooks.err = nil, errors.New("bad signature")
	assert.ErrorIs(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"), apperr.ErrInvalidSignature)
}

func TestStripeWebhookFailureThenSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentStripe, 1)
	res, err := f.svc.CreateGatewayOrder(ctx, f.customer, o.ID, o.TotalAmount)
	require.NoError(t, err)

	f.hooks.ev = &gateway.IntentEvent{Type: stripe.EventTypePaymentIntentPaymentFailed, IntentID: res.GatewayOrderID}
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"))
	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, stored.PaymentStatus)

	f.hooks.ev = &gateway.IntentEvent{Type: stripe.EventTypePaymentIntentSucceeded, IntentID: res.GatewayOrderID, Amount: pricing.ToMinor(o.TotalAmount)}
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, nil, "sig"))
	stored, err = f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus, "a retried intent may still succeed")
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, models.PaymentRazorpay, 2)

	_, err := f.svc.Refund(ctx, f.admin, o.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "unpaid")

	_, _, err = f.svc.Verify(ctx, f.verifyInput(t, o, "pay_r"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.stock(t))

	refunded, err := f.svc.Refund(ctx, f.admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, refunded.OrderStatus)
	assert.Equal(t, "rfnd_pay_r", refunded.RefundID)
	assert.EqualValues(t, 97900, f.razorpay.refunds["pay_r"])
	assert.Equal(t, 4, f.stock(t))

	_, err = f.svc.Refund(ctx, f.admin, o.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCODQR(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cod := f.order(t, models.PaymentCOD, 1)

	png, err := f.svc.CODQR(ctx, f.customer, cod.ID)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	_, err = f.svc.CODQR(ctx, models.Principal{UserID: "other"}, cod.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	online := f.order(t, models.PaymentRazorpay, 1)
	_, err = f.svc.CODQR(ctx, f.customer, online.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
