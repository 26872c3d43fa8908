package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"shop/internal/config"

	"github.com/shopspring/decimal"
)

// SMTPで通知メールを送る。
// 送信失敗は呼び出し側でログして握りつぶす（注文処理は失敗させない）。
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPassword,
		from: cfg.MailFrom,
	}
}

func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, email string, name string, orderID int64, amount decimal.Decimal) error {
	subject := fmt.Sprintf("Order Confirmation - Order #%d", orderID)
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nThank you for your order!\r\n\r\nOrder number: %d\r\nTotal: $%s\r\n\r\nWe will notify you when your order ships.\r\n",
		name, orderID, amount.StringFixed(2),
	)
	return m.send(email, subject, body)
}

func (m *SMTPMailer) SendPaymentReceipt(ctx context.Context, email string, name string, orderID int64, amount decimal.Decimal) error {
	subject := fmt.Sprintf("Payment Received - Order #%d", orderID)
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nWe received your payment of $%s for order #%d.\r\n\r\nThank you for shopping with us!\r\n",
		name, amount.StringFixed(2), orderID,
	)
	return m.send(email, subject, body)
}

func (m *SMTPMailer) send(to string, subject string, body string) error {
	if m.host == "" {
		return fmt.Errorf("smtp is not configured")
	}

	msg := []byte(
		"From: " + m.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body,
	)

	addr := m.host + ":" + m.port

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
}
