package mailer

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// Mailer sends the transactional mails the auth flow needs (OTP codes,
// password resets). Delivery guarantees are out of scope; a failed send is
// surfaced to the caller and the flow decides what to do with it.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// FromEnv returns an SMTP-backed mailer when SMTP_HOST is configured and a
// log-only mailer otherwise (local development).
func FromEnv() Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return &LogMailer{}
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.From, to, subject, htmlBody)

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer prints mails instead of sending them.
type LogMailer struct{}

func (m *LogMailer) Send(to, subject, htmlBody string) error {
	log.Printf("[MAILER] to=%s subject=%q body=%q", to, subject, htmlBody)
	return nil
}
