package email

import (
	"fmt"

	"github.com/bjaergning/rapport/internal/config"
	"github.com/charmbracelet/log"
	mail "github.com/xhit/go-simple-mail/v2"
)

const (
	// Subject is the subject of every report email.
	Subject = "Bjærgningsrapport PDF"
	// AttachmentName is the filename of the attached document.
	AttachmentName = "rapport.pdf"

	body = "Hej,\n\nVedhæftet finder du bjærgningsrapporten som PDF.\n\nMed venlig hilsen\n"
)

// ReportMailer delivers generated reports through an authenticated SMTPS relay.
type ReportMailer struct {
	config *config.EmailConfig
}

// New creates a new report mailer.
func New(cfg *config.EmailConfig) *ReportMailer {
	return &ReportMailer{
		config: cfg,
	}
}

// Enabled reports whether relay credentials are configured.
func (m *ReportMailer) Enabled() bool {
	return m.config.Configured()
}

// Send mails the PDF to the recipient and reports whether the relay accepted it.
// Missing credentials return false without contacting the relay. Errors are logged, never returned.
func (m *ReportMailer) Send(pdf []byte, recipient string) bool {
	if !m.Enabled() {
		log.Warn("Email sender or password not configured, not sending report")
		return false
	}

	if recipient == "" {
		log.Warn("Recipient is empty, not sending report")
		return false
	}

	msg := m.buildMessage(pdf, recipient)
	if err := msg.GetError(); err != nil {
		log.Error("Failed to compose report email", "to", recipient, "error", err)
		return false
	}

	if err := m.deliver(msg); err != nil {
		log.Error("Failed to send report email", "to", recipient, "error", err)
		return false
	}

	log.Info("Report email sent successfully", "to", recipient)
	return true
}

func (m *ReportMailer) buildMessage(pdf []byte, recipient string) *mail.Email {
	msg := mail.NewMSG()

	if m.config.FromName != "" {
		msg.SetFrom(fmt.Sprintf("%s <%s>", m.config.FromName, m.config.Sender))
	} else {
		msg.SetFrom(m.config.Sender)
	}
	msg.AddTo(recipient)
	msg.SetSubject(Subject)
	msg.SetBody(mail.TextPlain, body)
	msg.Attach(&mail.File{
		Name:     AttachmentName,
		MimeType: "application/pdf",
		Data:     pdf,
	})

	return msg
}

// deliver sends the message over implicit TLS.
func (m *ReportMailer) deliver(msg *mail.Email) error {
	server := mail.NewSMTPClient()
	server.Host = m.config.SMTPHost
	server.Port = m.config.SMTPPort
	server.Username = m.config.Sender
	server.Password = m.config.Password
	server.Encryption = mail.EncryptionSSLTLS

	server.KeepAlive = false
	if m.config.ConnectTimeout > 0 {
		server.ConnectTimeout = m.config.ConnectTimeout
	}
	if m.config.SendTimeout > 0 {
		server.SendTimeout = m.config.SendTimeout
	}

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := smtpClient.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	if err := msg.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
