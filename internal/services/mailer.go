package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/example/arister/internal/models"
)

// Mailer sends transactional emails off the request path. Messages are
// queued on a buffered channel and delivered by a single worker; a full
// queue drops the message rather than blocking checkout.
type Mailer struct {
	host  string
	port  string
	user  string
	pass  string
	from  string
	admin string

	queue chan mailMessage
}

type mailMessage struct {
	to      string
	subject string
	body    string
}

// NewMailer constructs a Mailer. Call Start to begin delivery.
func NewMailer(host, port, user, pass, from, admin string) *Mailer {
	return &Mailer{
		host:  host,
		port:  port,
		user:  user,
		pass:  pass,
		from:  from,
		admin: admin,
		queue: make(chan mailMessage, 64),
	}
}

// Start launches the delivery worker.
func (m *Mailer) Start() {
	go func() {
		for msg := range m.queue {
			if err := m.send(msg); err != nil {
				log.Printf("[Mail] failed to send %q to %s: %v", msg.subject, msg.to, err)
			}
		}
	}()
}

func (m *Mailer) enqueue(to, subject, body string) {
	if m.host == "" || to == "" {
		return
	}
	select {
	case m.queue <- mailMessage{to: to, subject: subject, body: body}:
	default:
		log.Printf("[Mail] queue full, dropping %q to %s", subject, to)
	}
}

func (m *Mailer) send(msg mailMessage) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.body)

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{msg.to}, []byte(b.String()))
}

// SendOrderConfirmation notifies the customer that the order was placed.
func (m *Mailer) SendOrderConfirmation(to string, order *models.Order) {
	body := fmt.Sprintf(
		"<h2>Thank you for your order</h2><p>Order <b>%s</b> has been placed.</p><p>Total: %.2f</p>",
		order.OrderNumber, order.Total,
	)
	m.enqueue(to, fmt.Sprintf("Order %s confirmed", order.OrderNumber), body)
}

// SendTrackingUpdate notifies the customer that the order has shipped.
func (m *Mailer) SendTrackingUpdate(to string, order *models.Order) {
	body := fmt.Sprintf(
		"<h2>Your order is on the way</h2><p>Order <b>%s</b> has shipped via %s.</p><p>AWB: %s</p>",
		order.OrderNumber, order.Shipping.Courier, order.Shipping.AWBCode,
	)
	m.enqueue(to, fmt.Sprintf("Order %s shipped", order.OrderNumber), body)
}

// SendCancellationUpdate notifies the customer that the order was cancelled.
func (m *Mailer) SendCancellationUpdate(to string, order *models.Order, reason string) {
	body := fmt.Sprintf(
		"<h2>Order cancelled</h2><p>Order <b>%s</b> has been cancelled.</p><p>Reason: %s</p>",
		order.OrderNumber, reason,
	)
	m.enqueue(to, fmt.Sprintf("Order %s cancelled", order.OrderNumber), body)
}

// SendCancellationRejected notifies the customer that the cancellation
// request was declined.
func (m *Mailer) SendCancellationRejected(to string, order *models.Order, reason string) {
	body := fmt.Sprintf(
		"<h2>Cancellation request declined</h2><p>Order <b>%s</b> will be delivered as planned.</p><p>Reason: %s</p>",
		order.OrderNumber, reason,
	)
	m.enqueue(to, fmt.Sprintf("Cancellation request for order %s", order.OrderNumber), body)
}

// SendReplacementUpdate notifies the customer about a replacement decision.
func (m *Mailer) SendReplacementUpdate(to string, order *models.Order, status, note string) {
	body := fmt.Sprintf(
		"<h2>Replacement %s</h2><p>Your replacement request for order <b>%s</b> is %s.</p><p>%s</p>",
		status, order.OrderNumber, status, note,
	)
	m.enqueue(to, fmt.Sprintf("Replacement update for order %s", order.OrderNumber), body)
}

// NotifyAdmin forwards an operational event to the configured admin address.
func (m *Mailer) NotifyAdmin(subject, body string) {
	m.enqueue(m.admin, subject, body)
}
