package models

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// InPendingBucket reports whether the order is still on its way to the
// customer (counted as "pending" in profile stats).
func (s OrderStatus) InPendingBucket() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentRazorpay PaymentMethod = "razorpay"
	PaymentStripe   PaymentMethod = "stripe"
	PaymentCOD      PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentRazorpay, PaymentStripe, PaymentCOD:
		return true
	}
	return false
}

// Online reports whether the method goes through a payment gateway.
func (m PaymentMethod) Online() bool {
	return m == PaymentRazorpay || m == PaymentStripe
}

// OrderItem is a frozen copy of the product at order time.
type OrderItem struct {
	ProductID string  `json:"product" bson:"product"`
	Name      string  `json:"name" bson:"name"`
	Image     string  `json:"image" bson:"image"`
	Price     float64 `json:"price" bson:"price"`
	Size      Size    `json:"size" bson:"size"`
	Color     string  `json:"color" bson:"color"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

type ShippingAddress struct {
	FullName     string `json:"fullName" bson:"fullName" validate:"required,max=100"`
	Phone        string `json:"phone" bson:"phone" validate:"required,numeric,len=10"`
	AddressLine1 string `json:"addressLine1" bson:"addressLine1" validate:"required,max=200"`
	AddressLine2 string `json:"addressLine2,omitempty" bson:"addressLine2,omitempty" validate:"max=200"`
	City         string `json:"city" bson:"city" validate:"required,max=100"`
	State        string `json:"state" bson:"state" validate:"required,max=100"`
	Pincode      string `json:"pincode" bson:"pincode" validate:"required,numeric,len=6"`
}

type PaymentDetails struct {
	GatewayOrderID   string    `json:"gatewayOrderId" bson:"gatewayOrderId"`
	GatewayPaymentID string    `json:"gatewayPaymentId" bson:"gatewayPaymentId"`
	GatewaySignature string    `json:"gatewaySignature,omitempty" bson:"gatewaySignature,omitempty"`
	PaidAt           time.Time `json:"paidAt" bson:"paidAt"`
}

type Order struct {
	ID              string          `json:"id" bson:"_id"`
	OrderNumber     string          `json:"orderNumber" bson:"orderNumber"`
	UserID          string          `json:"user" bson:"user"`
	Items           []OrderItem     `json:"items" bson:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" bson:"paymentStatus"`
	OrderStatus     OrderStatus     `json:"orderStatus" bson:"orderStatus"`
	ItemsTotal      float64         `json:"itemsTotal" bson:"itemsTotal"`
	ShippingCharge  float64         `json:"shippingCharge" bson:"shippingCharge"`
	Discount        float64         `json:"discount" bson:"discount"`
	TotalAmount     float64         `json:"totalAmount" bson:"totalAmount"`
	GatewayOrderID  string          `json:"gatewayOrderId,omitempty" bson:"gatewayOrderId,omitempty"`
	PaymentDetails  *PaymentDetails `json:"paymentDetails,omitempty" bson:"paymentDetails,omitempty"`
	RefundID        string          `json:"refundId,omitempty" bson:"refundId,omitempty"`
	StockReserved   bool            `json:"-" bson:"stockReserved"`
	TrackingNumber  string          `json:"trackingNumber,omitempty" bson:"trackingNumber,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// StatusUpdate is the set of fields an order status transition writes.
type StatusUpdate struct {
	OrderStatus    OrderStatus
	PaymentStatus  *PaymentStatus
	TrackingNumber *string
	DeliveredAt    *time.Time
	CancelledAt    *time.Time
	RefundID       *string
	UpdatedAt      time.Time
}

type OrderFilter struct {
	OrderStatus   OrderStatus
	PaymentStatus PaymentStatus
	Page          int
	Limit         int
}

type OrderStats struct {
	TotalOrders  int                 `json:"totalOrders"`
	TotalRevenue float64             `json:"totalRevenue"`
	ByStatus     map[OrderStatus]int `json:"byStatus"`
}
