// Package pricing calcule les totaux de commande en arithmétique décimale.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatFee               decimal.Decimal
}

func NewPolicy(threshold, flatFee float64) Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromFloat(threshold),
		FlatFee:               decimal.NewFromFloat(flatFee),
	}
}

type Line struct {
	Price    float64
	Quantity int
}

type Totals struct {
	ItemsTotal     float64
	ShippingCharge float64
	Discount       float64
	TotalAmount    float64
}

// Compute applique la règle de livraison : gratuite dès que le total
// articles atteint le seuil, forfait sinon.
func (p Policy) Compute(lines []Line) Totals {
	items := decimal.Zero
	for _, l := range lines {
		items = items.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	items = items.Round(2)

	shipping := p.FlatFee
	if items.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	total := items.Add(shipping)

	return Totals{
		ItemsTotal:     items.InexactFloat64(),
		ShippingCharge: shipping.Round(2).InexactFloat64(),
		Discount:       0,
		TotalAmount:    total.Round(2).InexactFloat64(),
	}
}

// ToMinor convertit un montant en plus petite unité (paise, centimes).
func ToMinor(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

func FromMinor(minor int64) float64 {
	return decimal.NewFromInt(minor).Div(hundred).InexactFloat64()
}

// SameAmount compare deux montants au centime près.
func SameAmount(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}
