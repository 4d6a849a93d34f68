// Package notify envoie les e-mails transactionnels (changements de statut
// de commande) via SMTP.
package notify

import (
	"fmt"
	"log"

	"github.com/wneessen/go-mail"

	"vastra_back_end/internal/config"
	"vastra_back_end/internal/models"
)

// Notifier est appelé après chaque changement de statut persisté. Il ne
// bloque jamais l'appelant.
type Notifier interface {
	OrderStatusChanged(order models.Order, email string)
}

type Mailer struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	storeName string
	ordersURL string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		from:      cfg.MailFrom,
		storeName: cfg.StoreName,
		ordersURL: cfg.FrontendURL + "/orders/",
	}
}

// Send envoie un e-mail HTML.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// OrderStatusChanged envoie l'e-mail de statut en arrière-plan. Une commande
// qui vient d'être créée (pending) ne déclenche rien.
func (m *Mailer) OrderStatusChanged(order models.Order, email string) {
	if email == "" || order.OrderStatus == models.OrderPending {
		return
	}
	go func() {
		subject, body, err := m.renderStatus(order)
		if err != nil {
			log.Printf("❌ Erreur rendu email statut %s: %v", order.OrderNumber, err)
			return
		}
		if err := m.Send(email, subject, body); err != nil {
			log.Printf("❌ Erreur envoi email statut: %v", err)
			return
		}
		log.Printf("📧 Email de statut envoyé: %s → %s", order.OrderStatus, email)
	}()
}

func (m *Mailer) renderStatus(order models.Order) (string, string, error) {
	key := statusKey(order)
	view := statusView{
		StoreName:   m.storeName,
		OrderNumber: order.OrderNumber,
		Total:       fmt.Sprintf("₹%.2f", order.TotalAmount),
		Status:      string(key),
		Icon:        statusIcon(key),
		Color:       statusColor(key),
		Message:     statusMessage(key),
		Tracking:    order.TrackingNumber,
		OrderURL:    m.ordersURL + order.ID,
	}
	body, err := renderStatusHTML(view)
	if err != nil {
		return "", "", err
	}
	return statusSubject(key, m.storeName), body, nil
}

// LogNotifier journalise au lieu d'envoyer, quand SMTP n'est pas configuré.
type LogNotifier struct{}

func (LogNotifier) OrderStatusChanged(order models.Order, email string) {
	log.Printf("📧 (smtp désactivé) commande %s → %s pour %s", order.OrderNumber, order.OrderStatus, email)
}
