package notify

import (
	"bytes"
	"html/template"

	"vastra_back_end/internal/models"
)

type statusView struct {
	StoreName   string
	OrderNumber string
	Total       string
	Status      string
	Icon        string
	Color       string
	Message     string
	Tracking    string
	OrderURL    string
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Order update</title></head>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f5f5f5;">
  <div style="max-width:600px;margin:40px auto;background:#ffffff;border-radius:12px;">
    <div style="background:{{.Color}};padding:30px;text-align:center;border-radius:12px 12px 0 0;">
      <h1 style="margin:0;color:#ffffff;">{{.Icon}} {{.StoreName}}</h1>
    </div>
    <div style="padding:30px;color:#333333;">
      <p>{{.Message}}</p>
      <table style="width:100%;background:#f8f9fa;border-radius:8px;padding:20px;">
        <tr><td><strong>Order number</strong></td><td style="text-align:right;">{{.OrderNumber}}</td></tr>
        <tr><td><strong>Total</strong></td><td style="text-align:right;">{{.Total}}</td></tr>
        <tr><td><strong>Status</strong></td><td style="text-align:right;color:{{.Color}};">{{.Status}}</td></tr>
        {{if .Tracking}}<tr><td><strong>Tracking</strong></td><td style="text-align:right;">{{.Tracking}}</td></tr>{{end}}
      </table>
      <p style="text-align:center;margin-top:30px;">
        <a href="{{.OrderURL}}" style="padding:12px 24px;background:{{.Color}};color:#ffffff;text-decoration:none;border-radius:6px;">View my order</a>
      </p>
    </div>
  </div>
</body>
</html>`))

func renderStatusHTML(v statusView) (string, error) {
	var buf bytes.Buffer
	if err := statusTemplate.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type mailStatus string

const (
	mailConfirmed mailStatus = "confirmed"
	mailShipped   mailStatus = "shipped"
	mailDelivered mailStatus = "delivered"
	mailCancelled mailStatus = "cancelled"
	mailRefunded  mailStatus = "refunded"
	mailUpdated   mailStatus = "updated"
)

// statusKey choisit le modèle : un remboursement prime sur l'annulation.
func statusKey(o models.Order) mailStatus {
	if o.PaymentStatus == models.PaymentRefunded {
		return mailRefunded
	}
	switch o.OrderStatus {
	case models.OrderConfirmed:
		return mailConfirmed
	case models.OrderShipped:
		return mailShipped
	case models.OrderDelivered:
		return mailDelivered
	case models.OrderCancelled:
		return mailCancelled
	}
	return mailUpdated
}

func statusSubject(s mailStatus, store string) string {
	switch s {
	case mailConfirmed:
		return "✅ Order confirmed - " + store
	case mailShipped:
		return "📦 Your order is on its way - " + store
	case mailDelivered:
		return "🎉 Your order has been delivered - " + store
	case mailCancelled:
		return "❌ Order cancelled - " + store
	case mailRefunded:
		return "💰 Refund processed - " + store
	}
	return "📋 Order update - " + store
}

func statusMessage(s mailStatus) string {
	switch s {
	case mailConfirmed:
		return "Your order is confirmed. We are getting it ready."
	case mailShipped:
		return "Good news! Your order has shipped and is on its way to you."
	case mailDelivered:
		return "Your order has been delivered. We hope you love it!"
	case mailCancelled:
		return "Your order has been cancelled. Reach out to us if you have any questions."
	case mailRefunded:
		return "Your refund has been processed. It will reach your account within 5-7 business days."
	}
	return "The status of your order has been updated."
}

func statusIcon(s mailStatus) string {
	switch s {
	case mailConfirmed:
		return "✅"
	case mailShipped:
		return "📦"
	case mailDelivered:
		return "🎉"
	case mailCancelled:
		return "❌"
	case mailRefunded:
		return "💰"
	}
	return "📋"
}

func statusColor(s mailStatus) string {
	switch s {
	case mailConfirmed:
		return "#10b981"
	case mailShipped:
		return "#3b82f6"
	case mailDelivered:
		return "#8b5cf6"
	case mailCancelled:
		return "#ef4444"
	case mailRefunded:
		return "#f59e0b"
	}
	return "#6b7280"
}
