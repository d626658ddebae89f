// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// Receipt is what a donor sees in the thank-you email.
type Receipt struct {
	TransactionId uint64
	AmountCents   int64
	Currency      string
	ReceiptUrl    string
	PaidAt        *time.Time
	Recurring     bool
}

type IEmailService interface {
	SendReceipt(toEmail string, receipt Receipt) error
}

// Sender is the part of gomail.Dialer the service needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)
	return NewEmailServiceWithSender(d, senderEmail, senderName)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, senderName string) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) SendReceipt(toEmail string, receipt Receipt) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)

	subject := "Thank you for your gift"
	if receipt.Recurring {
		subject = "Thank you for your recurring gift"
	}
	m.SetHeader("Subject", subject)

	paidOn := "-"
	if receipt.PaidAt != nil {
		paidOn = receipt.PaidAt.Format("January 2, 2006")
	}

	link := ""
	if receipt.ReceiptUrl != "" {
		link = fmt.Sprintf(`<p><a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">View Receipt</a></p>`, receipt.ReceiptUrl)
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thank you!</h2>
			<p>We received your gift of <strong>%s</strong> on %s.</p>
			<p>Reference: #%d</p>
			%s
		</div>
	`, FormatAmount(receipt.AmountCents, receipt.Currency), paidOn, receipt.TransactionId, link)

	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send receipt to %s: %w", toEmail, err)
	}
	return nil
}

// FormatAmount renders minor units as "12.50 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
