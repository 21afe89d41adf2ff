package email

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"unionhall/config"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
	domain   string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		domain:   strings.TrimRight(cfg.Domain, "/"),
		sendMail: smtp.SendMail,
	}
}

// Enabled reports whether an SMTP host is configured. Without one, mails are
// logged instead of sent.
func (e *EmailService) Enabled() bool {
	return e != nil && e.host != ""
}

func (e *EmailService) SendPasswordReset(to, token string) error {
	link := fmt.Sprintf("%s/#tab=home&reset=%s", e.domain, token)
	body := fmt.Sprintf(`
Hello,

We received a request to reset your password.

Use the link below within one hour to choose a new password:

%s

If you did not ask for this, you can ignore this e-mail.

---
Union Hall
`, link)
	return e.send(to, "Reset your password - Union Hall", body)
}

func (e *EmailService) SendSignupReceived(to, name string) error {
	body := fmt.Sprintf(`
Hello %s,

Thank you for signing up. An administrator will review your membership
shortly. You can sign in as soon as it is approved.

---
Union Hall
`, name)
	return e.send(to, "Signup received - Union Hall", body)
}

func (e *EmailService) SendApproved(to, name string) error {
	body := fmt.Sprintf(`
Hello %s,

Your membership has been approved. You can now sign in at:

%s

---
Union Hall
`, name, e.domain)
	return e.send(to, "Membership approved - Union Hall", body)
}

func (e *EmailService) send(to, subject, body string) error {
	if !e.Enabled() {
		log.Printf("email disabled, not sending %q to %s", subject, to)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, to, subject, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	if err := e.sendMail(addr, auth, e.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}
