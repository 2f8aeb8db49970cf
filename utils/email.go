package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/meinhoongagan/urban-services/models"
	"gopkg.in/gomail.v2"
)

// Mailer sends mail over SMTP.
type Mailer struct {
	From   string
	dialer *gomail.Dialer
}

func NewMailer(host string, port int, user, pass string) *Mailer {
	return &Mailer{
		From:   user,
		dialer: gomail.NewDialer(host, port, user, pass),
	}
}

func (m *Mailer) SendEmail(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	return m.dialer.DialAndSend(msg)
}

// DeliverOTP mails the code to the account's address.
func (m *Mailer) DeliverOTP(ctx context.Context, account *models.Account, code string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.SendEmail(account.Email, "Your login code", otpEmailBody(account.Username, code, expiresAt))
}

func otpEmailBody(username, code string, expiresAt time.Time) string {
	return fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your one-time login code is <strong>%s</strong>.</p>
		<p>It expires at %s UTC. If you did not try to sign in, you can ignore this email.</p>
	`, username, code, expiresAt.UTC().Format("2006-01-02 15:04:05"))
}
