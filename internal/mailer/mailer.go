package mailer

import (
	"net/smtp"

	"github.com/IvoireMarket/shop-api/internal/config"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	addr string
	from string
}

// New returns a no-op mailer when SMTP_HOST is unset.
func New(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return nopMailer{}
	}
	return &smtpMailer{
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		from: cfg.SMTPFrom,
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := "From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" +
		body

	return smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg))
}

type nopMailer struct{}

func (nopMailer) Send(string, string, string) error { return nil }
