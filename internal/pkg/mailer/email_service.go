// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendWelcome(toEmail, fullName string, startingCredits int) error
	SendLowBalanceAlert(toEmail string, balance int) error
	SendPurchaseReceipt(toEmail string, creditsAdded int, amount float64) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) send(toEmail, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send %q to %s: %v\n", subject, toEmail, err)
		return err
	}
	return nil
}

func (s *emailService) SendWelcome(toEmail, fullName string, startingCredits int) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome, %s!</h2>
			<p>Your account is ready. You start with <b>%d credits</b> to use
			on AI chat and document drafting.</p>
			<p>Credits are consumed as you use the assistant; you can top up
			anytime from the usage page.</p>
		</div>
	`, fullName, startingCredits)

	return s.send(toEmail, "Welcome to your legal assistant", body)
}

func (s *emailService) SendLowBalanceAlert(toEmail string, balance int) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your credits are running low</h2>
			<p>You have <b>%d credits</b> remaining.</p>
			<p>Top up now to keep using AI chat and document assistance
			without interruption.</p>
		</div>
	`, balance)

	return s.send(toEmail, "Low credit balance", body)
}

func (s *emailService) SendPurchaseReceipt(toEmail string, creditsAdded int, amount float64) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Purchase confirmed</h2>
			<p><b>%d credits</b> were added to your account.</p>
			<p>Amount paid: %.2f</p>
		</div>
	`, creditsAdded, amount)

	return s.send(toEmail, "Credit purchase receipt", body)
}
