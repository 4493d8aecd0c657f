package services

import (
	"context"
	"fmt"
	"log"

	gomail "gopkg.in/gomail.v2"

	"github.com/example/brewcrafter/internal/config"
)

// SMTPMailer sends one-time codes over SMTP.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer constructs an SMTPMailer from config.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}
}

// SendOTP emails the code to the recipient. The outcome is synchronous: a
// dial or send failure is returned to the caller.
func (m *SMTPMailer) SendOTP(_ context.Context, email, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Your BrewCrafter verification code")
	msg.SetBody("text/plain", fmt.Sprintf("Your verification code is %s.", code))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

// LogMailer writes codes to the process log instead of sending email. Used
// when SMTP is not configured (local development).
type LogMailer struct{}

// SendOTP logs the code.
func (LogMailer) SendOTP(_ context.Context, email, code string) error {
	log.Printf("[Mailer] OTP for %s: %s", email, code)
	return nil
}

// NewMailer picks the SMTP implementation when configured, otherwise the log
// fallback.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		log.Printf("SMTP_HOST not set, OTP codes will be written to the log")
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}
