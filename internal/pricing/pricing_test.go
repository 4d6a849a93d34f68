package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	policy := NewPolicy(999, 79)

	tests := []struct {
		name     string
		lines    []Line
		items    float64
		shipping float64
		total    float64
	}{
		{"above threshold", []Line{{Price: 500, Quantity: 2}}, 1000, 0, 1000},
		{"below threshold", []Line{{Price: 500, Quantity: 1}}, 500, 79, 579},
		{"exactly threshold", []Line{{Price: 999, Quantity: 1}}, 999, 0, 999},
		{"float sums stay exact", []Line{{Price: 0.1, Quantity: 3}, {Price: 0.2, Quantity: 1}}, 0.5, 79, 79.5},
		{"multiple lines", []Line{{Price: 349.5, Quantity: 2}, {Price: 299, Quantity: 1}}, 998, 79, 1077},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Compute(tt.lines)
			assert.Equal(t, tt.items, got.ItemsTotal)
			assert.Equal(t, tt.shipping, got.ShippingCharge)
			assert.Equal(t, 0.0, got.Discount)
			assert.Equal(t, tt.total, got.TotalAmount)
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(57900), ToMinor(579))
	assert.Equal(t, int64(1999), ToMinor(19.99))
	assert.Equal(t, int64(110), ToMinor(1.1))
	assert.Equal(t, 579.0, FromMinor(57900))
	assert.True(t, SameAmount(579, 579.001))
	assert.False(t, SameAmount(579, 578))
}
