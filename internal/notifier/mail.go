package notifier

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/renzo-dev/accounts/shared/config"
	"github.com/renzo-dev/accounts/shared/logger"
)

// TemplateKind names a mail template shipped with the binary.
type TemplateKind string

const TemplateActivateAccount TemplateKind = "activate_account"

//go:embed templates/*.html
var templateFS embed.FS

// Mailer delivers activation mail over SMTP. Port 465 means implicit TLS,
// anything else goes through STARTTLS.
type Mailer struct {
	config *config.Email
	auth   smtp.Auth
	policy *bluemonday.Policy
	tmpl   *template.Template
}

func NewMailer(cfg *config.Email) *Mailer {
	return &Mailer{
		config: cfg,
		auth:   smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPServer),
		policy: bluemonday.StrictPolicy(),
		tmpl:   template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Send renders the template and delivers one message. The display name is
// user input and gets stripped of any markup before interpolation.
func (m *Mailer) Send(to, displayName string, kind TemplateKind, activationURL, code, subject string) error {
	body, err := m.renderBody(displayName, kind, activationURL, code)
	if err != nil {
		return err
	}

	msg := m.buildMessage(to, subject, body)
	address := fmt.Sprintf("%s:%d", m.config.SMTPServer, m.config.SMTPPort)

	if m.config.SMTPPort == 465 {
		return m.sendImplicitTLS(address, to, msg)
	}
	return m.sendSTARTTLS(address, to, msg)
}

type mailData struct {
	Username        string
	ConfirmationURL string
	ActivationCode  string
}

func (m *Mailer) renderBody(displayName string, kind TemplateKind, activationURL, code string) (string, error) {
	name := string(kind)
	if kind == "" {
		name = string(TemplateActivateAccount)
	}
	tmpl := m.tmpl.Lookup(name + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("unknown mail template %q", name)
	}

	var buf bytes.Buffer
	data := mailData{
		Username:        m.policy.Sanitize(displayName),
		ConfirmationURL: activationURL,
		ActivationCode:  code,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render mail template %q: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) timeout() time.Duration {
	timeout := time.Duration(m.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return timeout
}

// sendImplicitTLS sends over a connection that is TLS from the start (port 465).
func (m *Mailer) sendImplicitTLS(address, recipient string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: m.config.SMTPServer}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: m.timeout()}, "tcp", address, tlsConfig)
	if err != nil {
		logger.Log.Error("failed to connect to SMTP server (implicit TLS)", "address", address, "error", err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.config.SMTPServer)
	if err != nil {
		logger.Log.Error("failed to create SMTP client", "error", err)
		return err
	}
	defer client.Close()

	return m.sendViaClient(client, recipient, msg)
}

// sendSTARTTLS upgrades a plain connection to TLS (port 587 and friends).
func (m *Mailer) sendSTARTTLS(address, recipient string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", address, m.timeout())
	if err != nil {
		logger.Log.Error("failed to connect to SMTP server", "address", address, "error", err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.config.SMTPServer)
	if err != nil {
		logger.Log.Error("failed to create SMTP client", "error", err)
		return err
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: m.config.SMTPServer}); err != nil {
		logger.Log.Error("failed to start TLS", "error", err)
		return err
	}

	return m.sendViaClient(client, recipient, msg)
}

// sendViaClient performs auth, sets sender/recipient, and writes the message.
func (m *Mailer) sendViaClient(client *smtp.Client, recipient string, msg []byte) error {
	if err := client.Auth(m.auth); err != nil {
		logger.Log.Error("SMTP authentication failed", "error", err)
		return err
	}

	if err := client.Mail(m.config.Username); err != nil {
		logger.Log.Error("failed to set sender", "error", err)
		return err
	}

	if err := client.Rcpt(recipient); err != nil {
		logger.Log.Error("failed to set recipient", "recipient", recipient, "error", err)
		return err
	}

	w, err := client.Data()
	if err != nil {
		logger.Log.Error("failed to get data writer", "error", err)
		return err
	}

	if _, err = w.Write(msg); err != nil {
		logger.Log.Error("failed to write message", "error", err)
		return err
	}

	if err = w.Close(); err != nil {
		logger.Log.Error("failed to close data writer", "error", err)
		return err
	}

	return client.Quit()
}

func (m *Mailer) messageID() string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), m.config.SMTPServer)
}

func (m *Mailer) buildMessage(recipient, subject, body string) []byte {
	encodedSubject := mime.QEncoding.Encode("utf-8", subject)
	encodedSenderName := mime.QEncoding.Encode("utf-8", m.config.SenderName)

	return fmt.Appendf(nil,
		"Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s",
		m.messageID(), time.Now().Format(time.RFC1123Z), recipient, encodedSenderName, m.config.Username, encodedSubject, body,
	)
}
