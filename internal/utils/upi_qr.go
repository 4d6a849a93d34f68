package utils

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// UPIPayload construit l'URI upi://pay scannée par les applications de
// paiement indiennes.
func UPIPayload(vpa, payeeName, reference string, amount float64, currency string) string {
	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("pn", payeeName)
	q.Set("am", fmt.Sprintf("%.2f", amount))
	q.Set("cu", currency)
	q.Set("tn", reference)
	return "upi://pay?" + q.Encode()
}

// GenerateUPIQR retourne le QR code PNG du paiement.
func GenerateUPIQR(vpa, payeeName, reference string, amount float64, currency string) ([]byte, error) {
	return qrcode.Encode(UPIPayload(vpa, payeeName, reference, amount, currency), qrcode.Medium, 256)
}
