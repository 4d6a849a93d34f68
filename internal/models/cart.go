package models

type CartItem struct {
	ProductID     string  `json:"productId" binding:"required"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price,omitempty"`
	OriginalPrice float64 `json:"originalPrice,omitempty"`
	Image         string  `json:"image,omitempty"`
	Quantity      int     `json:"quantity" binding:"required,min=1"`
	Size          Size    `json:"size" binding:"required"`
	Color         string  `json:"color"`
	Available     *bool   `json:"available,omitempty"`
}

type CartQuote struct {
	Items          []CartItem `json:"items"`
	ItemsTotal     float64    `json:"itemsTotal"`
	ShippingCharge float64    `json:"shippingCharge"`
	TotalAmount    float64    `json:"totalAmount"`
}
