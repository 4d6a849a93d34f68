package utils

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Indigo Linen Kurta":     "indigo-linen-kurta",
		"  Men's  T-Shirt (XL) ": "men-s-t-shirt-xl",
		"Saree---Silk__Blend":    "saree-silk-blend",
		"100% Cotton":            "100-cotton",
		"Café Noir":              "caf-noir",
		"!!!":                    "product",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestUPIPayload(t *testing.T) {
	payload := UPIPayload("vastra@okhdfc", "Vastra Fashions", "VS-20250101-ABCDEF", 579, "INR")
	require.True(t, strings.HasPrefix(payload, "upi://pay?"))

	q, err := url.ParseQuery(strings.TrimPrefix(payload, "upi://pay?"))
	require.NoError(t, err)
	assert.Equal(t, "vastra@okhdfc", q.Get("pa"))
	assert.Equal(t, "579.00", q.Get("am"))
	assert.Equal(t, "VS-20250101-ABCDEF", q.Get("tn"))
}

func TestGenerateUPIQR(t *testing.T) {
	png, err := GenerateUPIQR("vastra@okhdfc", "Vastra", "VS-1", 79, "INR")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")

	_, err = VerifyPassword("x", "$2a$10$bcrypt")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
