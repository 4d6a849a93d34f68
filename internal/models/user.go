package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const ProviderLocal = "local"

type Address struct {
	ID           string `json:"id" bson:"id"`
	FullName     string `json:"fullName" bson:"fullName" validate:"required,max=100"`
	Phone        string `json:"phone" bson:"phone" validate:"required,numeric,len=10"`
	AddressLine1 string `json:"addressLine1" bson:"addressLine1" validate:"required,max=200"`
	AddressLine2 string `json:"addressLine2,omitempty" bson:"addressLine2,omitempty" validate:"max=200"`
	City         string `json:"city" bson:"city" validate:"required,max=100"`
	State        string `json:"state" bson:"state" validate:"required,max=100"`
	Pincode      string `json:"pincode" bson:"pincode" validate:"required,numeric,len=6"`
	IsDefault    bool   `json:"isDefault" bson:"isDefault"`
}

// Shipping converts a saved address into an order shipping snapshot.
func (a Address) Shipping() ShippingAddress {
	return ShippingAddress{
		FullName:     a.FullName,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		Pincode:      a.Pincode,
	}
}

type User struct {
	ID             string    `json:"id" bson:"_id"`
	Email          string    `json:"email" bson:"email"`
	ExternalAuthID string    `json:"-" bson:"externalAuthId,omitempty"`
	Provider       string    `json:"provider" bson:"provider"`
	Name           string    `json:"name" bson:"name"`
	Phone          string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Password       string    `json:"-" bson:"password,omitempty"`
	Role           Role      `json:"role" bson:"role"`
	Addresses      []Address `json:"addresses" bson:"addresses"`
	Wishlist       []string  `json:"wishlist" bson:"wishlist"`
	Version        int64     `json:"version" bson:"version"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ProfilePatch carries the fields of a partial profile update. Nil
// fields are left untouched.
type ProfilePatch struct {
	Name      *string
	Phone     *string
	Addresses *[]Address
	Version   *int64
}

type ProfileStats struct {
	TotalOrders int     `json:"totalOrders"`
	TotalSpent  float64 `json:"totalSpent"`
	Delivered   int     `json:"delivered"`
	Pending     int     `json:"pending"`
}

// Principal is the caller identity after both login schemes have been
// resolved to one internal user id.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
