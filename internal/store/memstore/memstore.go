// Package memstore implémente les interfaces de store en mémoire, pour
// les tests des services et des handlers.
package memstore

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vastra_back_end/internal/models"
)

func newID() string {
	return primitive.NewObjectID().Hex()
}

func copyProduct(p *models.Product) *models.Product {
	c := *p
	c.Images = append([]string(nil), p.Images...)
	c.Sizes = append([]models.SizeStock(nil), p.Sizes...)
	c.Colors = append([]models.Color(nil), p.Colors...)
	if p.DiscountPrice != nil {
		d := *p.DiscountPrice
		c.DiscountPrice = &d
	}
	return &c
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	if o.PaymentDetails != nil {
		d := *o.PaymentDetails
		c.PaymentDetails = &d
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	if o.CancelledAt != nil {
		t := *o.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Addresses = append([]models.Address{}, u.Addresses...)
	c.Wishlist = append([]string{}, u.Wishlist...)
	return &c
}

func paginate(n, page, limit, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}
