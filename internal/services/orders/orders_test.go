package orders

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/gateway"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/store"
	"vastra_back_end/internal/store/memstore"
)

type stubGateway struct{ method models.PaymentMethod }

func (g stubGateway) Method() models.PaymentMethod { return g.method }
func (g stubGateway) PublicKey() string            { return "" }
func (g stubGateway) CreateOrder(context.Context, gateway.CreateOrderRequest) (*gateway.Order, error) {
	return &gateway.Order{ID: "order_x"}, nil
}
func (g stubGateway) Refund(context.Context, string, int64) (string, error) { return "rfnd_x", nil }

type mailbox struct {
	mu   sync.Mutex
	sent map[string][]models.OrderStatus
}

func (m *mailbox) OrderStatusChanged(o models.Order, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string][]models.OrderStatus{}
	}
	m.sent[email] = append(m.sent[email], o.OrderStatus)
}

type pushes struct {
	mu  sync.Mutex
	ids []string
}

func (p *pushes) OrderChanged(_ context.Context, o models.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, o.ID)
}

type fixture struct {
	svc      *Service
	orders   *memstore.Orders
	products *memstore.Products
	users    *memstore.Users
	mail     *mailbox
	push     *pushes
	audit    *audit.Memory

	shirt    *models.Product
	jacket   *models.Product
	retired  *models.Product
	customer *models.User
	admin    models.Principal
}

var now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		orders:   memstore.NewOrders(),
		products: memstore.NewProducts(),
		users:    memstore.NewUsers(),
		mail:     &mailbox{},
		push:     &pushes{},
		audit:    audit.NewMemory(),
		admin:    models.Principal{UserID: "admin-1", Role: models.RoleAdmin},
	}
	sale := 450.0
	f.shirt = &models.Product{
		Slug: "linen-shirt", Name: "Linen Shirt", Price: 500, DiscountPrice: &sale, IsActive: true,
		Images: []string{"https://img/shirt-1.jpg", "https://img/shirt-2.jpg"},
		Sizes:  []models.SizeStock{{Size: models.SizeM, Stock: 5}, {Size: models.SizeL, Stock: 2}},
	}
	f.jacket = &models.Product{
		Slug: "wool-jacket", Name: "Wool Jacket", Price: 1200, IsActive: true,
		Sizes: []models.SizeStock{{Size: models.SizeL, Stock: 3}},
	}
	f.retired = &models.Product{
		Slug: "old-kurta", Name: "Old Kurta", Price: 300, IsActive: false,
		Sizes: []models.SizeStock{{Size: models.SizeM, Stock: 1}},
	}
	for _, p := range []*models.Product{f.shirt, f.jacket, f.retired} {
		require.NoError(t, f.products.Create(ctx, p))
	}
	f.customer = &models.User{Email: "priya@example.in", Name: "Priya", Role: models.RoleUser, Provider: models.ProviderLocal}
	require.NoError(t, f.users.Create(ctx, f.customer))

	f.svc = New(Deps{
		Orders:     f.orders,
		Products:   f.products,
		Users:      f.users,
		Policy:     pricing.NewPolicy(999, 79),
		Gateways:   gateway.NewRegistry(stubGateway{models.PaymentRazorpay}),
		Notifier:   f.mail,
		Publisher:  f.push,
		Audit:      f.audit,
		PendingTTL: 24 * time.Hour,
	})
	f.svc.Now = func() time.Time { return now }
	return f
}

func (f *fixture) owner() models.Principal {
	return models.Principal{UserID: f.customer.ID, Email: f.customer.Email, Role: models.RoleUser}
}

var address = models.ShippingAddress{
	FullName: "Priya Sharma", Phone: "9876543210", AddressLine1: "12 MG Road",
	City: "Pune", State: "MH", Pincode: "411001",
}

func (f *fixture) input(method models.PaymentMethod, items ...models.CartItem) CreateInput {
	return CreateInput{Items: items, ShippingAddress: address, PaymentMethod: method}
}

func line(p *models.Product, size models.Size, qty int) models.CartItem {
	return models.CartItem{ProductID: p.ID, Size: size, Color: "white", Quantity: qty}
}

func (f *fixture) stock(t *testing.T, p *models.Product, size models.Size) int {
	t.Helper()
	got, err := f.products.Get(context.Background(), p.ID)
	require.NoError(t, err)
	n, ok := got.StockFor(size)
	require.True(t, ok)
	assert.Equal(t, func() int {
		total := 0
		for _, s := range got.Sizes {
			total += s.Stock
		}
		return total
	}(), got.TotalStock, "totalStock must equal the sum of sizes")
	return n
}

var orderNumberRe = regexp.MustCompile(`^VS-20260314-[0-9A-HJKMNP-TV-Z]{6}$`)

func TestCreateSnapshotsPricesAndComputesTotals(t *testing.T) {
	f := newFixture(t)
	o, err := f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 2)))
	require.NoError(t, err)

	assert.Regexp(t, orderNumberRe, o.OrderNumber)
	assert.Equal(t, f.customer.ID, o.UserID)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	assert.Equal(t, models.OrderPending, o.OrderStatus)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 450.0, o.Items[0].Price)
	assert.Equal(t, "Linen Shirt", o.Items[0].Name)
	assert.Equal(t, "https://img/shirt-1.jpg", o.Items[0].Image)
	assert.Equal(t, 900.0, o.ItemsTotal)
	assert.Equal(t, 79.0, o.ShippingCharge)
	assert.Equal(t, 0.0, o.Discount)
	assert.Equal(t, 979.0, o.TotalAmount)

	assert.Equal(t, 5, f.stock(t, f.shirt, models.SizeM), "creation does not touch stock")
	assert.Empty(t, f.mail.sent, "no email at creation")

	stored, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, stored.OrderNumber)
}

func TestSnapshotSurvivesProductEditAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 1)))
	require.NoError(t, err)

	edited, err := f.products.Get(ctx, f.shirt.ID)
	require.NoError(t, err)
	edited.Name = "Linen Shirt v2"
	edited.Price = 900
	edited.DiscountPrice = nil
	edited.Images = []string{"https://img/shirt-new.jpg"}
	require.NoError(t, f.products.Update(ctx, edited))

	edited.IsActive = false
	require.NoError(t, f.products.Update(ctx, edited))

	got, err := f.svc.Get(ctx, f.owner(), o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Linen Shirt", got.Items[0].Name)
	assert.Equal(t, 450.0, got.Items[0].Price)
	assert.Equal(t, "https://img/shirt-1.jpg", got.Items[0].Image)
	assert.Equal(t, o.TotalAmount, got.TotalAmount)
}

func TestCreateFreeShippingAtThreshold(t *testing.T) {
	f := newFixture(t)
	o, err := f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentRazorpay, line(f.jacket, models.SizeL, 1)))
	require.NoError(t, err)
	assert.Equal(t, 1200.0, o.ItemsTotal)
	assert.Equal(t, 0.0, o.ShippingCharge)
	assert.Equal(t, 1200.0, o.TotalAmount)
}

func TestCreateMergesDuplicateLines(t *testing.T) {
	f := newFixture(t)
	o, err := f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentCOD,
		line(f.shirt, models.SizeM, 1),
		line(f.jacket, models.SizeL, 1),
		line(f.shirt, models.SizeM, 2),
	))
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, f.shirt.ID, o.Items[0].ProductID)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, 2550.0, o.ItemsTotal)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	badPhone := address
	badPhone.Phone = "12345"
	noCity := address
	noCity.City = ""

	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"empty cart", f.input(models.PaymentCOD), "items"},
		{"zero quantity", f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 0)), "quantity"},
		{"quantity above limit", f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 11)), "quantity"},
		{"merged quantity above limit", f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 6), line(f.shirt, models.SizeM, 5)), "quantity"},
		{"unknown size", f.input(models.PaymentCOD, line(f.shirt, "XXXL", 1)), "size"},
		{"size not stocked", f.input(models.PaymentCOD, line(f.shirt, models.SizeXL, 1)), "size"},
		{"bad phone", CreateInput{Items: []models.CartItem{line(f.shirt, models.SizeM, 1)}, ShippingAddress: badPhone, PaymentMethod: models.PaymentCOD}, "shippingAddress.phone"},
		{"missing city", CreateInput{Items: []models.CartItem{line(f.shirt, models.SizeM, 1)}, ShippingAddress: noCity, PaymentMethod: models.PaymentCOD}, "shippingAddress.city"},
		{"unknown method", f.input("paypal", line(f.shirt, models.SizeM, 1)), "paymentMethod"},
		{"gateway not configured", f.input(models.PaymentStripe, line(f.shirt, models.SizeM, 1)), "paymentMethod"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.customer.ID, tt.in)
			var e *apperr.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, tt.field, e.Field)
		})
	}
	assert.Zero(t, f.orders.Count())
}

func TestCreateUnknownSizeIsNamed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeXL, 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XL")
}

func TestCreateMissingProductAbortsWholeOrder(t *testing.T) {
	f := newFixture(t)
	missing := models.CartItem{ProductID: "65f000000000000000000000", Size: models.SizeM, Quantity: 1}

	_, err := f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 1), missing))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), missing.ProductID)

	_, err = f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentCOD, line(f.retired, models.SizeM, 1)))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Zero(t, f.orders.Count())
}

func TestCreateRetriesOrderNumberCollisions(t *testing.T) {
	f := newFixture(t)
	var seen []string
	f.orders.InsertHook = func(o *models.Order) error {
		seen = append(seen, o.OrderNumber)
		if len(seen) < 3 {
			return store.ErrDuplicate
		}
		return nil
	}

	o, err := f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 1)))
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Len(t, seen[0], len("VS-20260314-")+6)
	assert.Len(t, seen[1], len("VS-20260314-")+8)
	assert.Len(t, seen[2], len("VS-20260314-")+10)
	assert.Equal(t, seen[2], o.OrderNumber)
}

func TestCreateGivesUpAfterFiveCollisions(t *testing.T) {
	f := newFixture(t)
	calls := 0
	f.orders.InsertHook = func(*models.Order) error {
		calls++
		return store.ErrDuplicate
	}
	_, err := f.svc.Create(context.Background(), f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 1)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 5, calls)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 1)))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.owner(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.svc.Get(ctx, models.Principal{UserID: "someone-else", Role: models.RoleUser}, o.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Get(ctx, f.admin, o.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, f.owner(), "65f0000000000000000000ff")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListByUserNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.customer.ID, f.input(models.PaymentCOD, line(f.shirt, models.SizeM, 1)))
	require.NoError(t, err)
	f.svc.Now = func() time.Time { return now.Add(time.Hour) }
	second, err := f.svc.Create(ctx, f.customer.ID, f.input(models.PaymentCOD, line(f.jacket, models.SizeL, 1)))
	require.NoError(t, err)

	list, err := f.svc.ListByUser(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	empty, err := f.svc.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
