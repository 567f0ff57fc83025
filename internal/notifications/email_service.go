package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"mime"
	"net/smtp"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"tablebook/pkg/logger"
)

// EmailService sends notification emails
type EmailService interface {
	SendNotification(ctx context.Context, notification *EmailNotification) error
	SendHTML(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool
	Timeout   time.Duration
}

type emailTemplate struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// SMTPEmailService is a real SMTP implementation of the EmailService interface
type SMTPEmailService struct {
	config    *SMTPConfig
	templates map[NotificationType]emailTemplate
	log       *logger.Logger
}

// NewSMTPEmailService creates a new SMTP email service
func NewSMTPEmailService(config *SMTPConfig) (*SMTPEmailService, error) {
	if err := validateSMTPConfig(config); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}

	service := &SMTPEmailService{
		config: config,
		log:    logger.GetDefault(),
	}
	if err := service.loadDefaultTemplates(); err != nil {
		return nil, err
	}
	return service, nil
}

func validateSMTPConfig(config *SMTPConfig) error {
	if config == nil {
		return fmt.Errorf("SMTP config is nil")
	}
	if config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if config.Username == "" {
		return fmt.Errorf("SMTP username is required")
	}
	if config.Password == "" {
		return fmt.Errorf("SMTP password is required")
	}
	if config.FromEmail == "" {
		return fmt.Errorf("From email is required")
	}
	return nil
}

// SendNotification renders the notification's template and sends it
func (s *SMTPEmailService) SendNotification(ctx context.Context, notification *EmailNotification) error {
	htmlBody, textBody, err := s.generateContent(notification)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}
	return s.SendHTML(ctx, notification.RecipientEmail, notification.Subject, htmlBody, textBody)
}

// SendHTML sends a multipart text/HTML email
func (s *SMTPEmailService) SendHTML(ctx context.Context, to, subject, htmlBody, textBody string) error {
	message := s.buildMessage(to, subject, htmlBody, textBody, time.Now())

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var err error
	switch {
	case s.config.Port == 465:
		err = s.sendWithTLS(addr, auth, to, message)
	case s.config.UseTLS:
		err = s.sendWithSTARTTLS(addr, auth, to, message)
	default:
		err = smtp.SendMail(addr, auth, s.config.FromEmail, []string{to}, message)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.InfoContext(ctx, "Email sent", slog.String("to", to))
	return nil
}

// sendWithSTARTTLS upgrades a plain connection (port 587)
func (s *SMTPEmailService) sendWithSTARTTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	if err = client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	return s.deliver(client, auth, to, message)
}

// sendWithTLS dials TLS directly (port 465)
func (s *SMTPEmailService) sendWithTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return err
	}
	defer client.Quit()

	return s.deliver(client, auth, to, message)
}

func (s *SMTPEmailService) deliver(client *smtp.Client, auth smtp.Auth, to string, message []byte) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err := client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return w.Close()
}

// buildMessage creates the email message with proper headers
func (s *SMTPEmailService) buildMessage(to, subject, htmlBody, textBody string, now time.Time) []byte {
	boundary := "boundary_" + strconv.FormatInt(now.UnixNano(), 10)

	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", s.config.FromName), s.config.FromEmail)},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("UTF-8", subject)},
		{"MIME-Version", "1.0"},
		{"Date", now.Format(time.RFC1123Z)},
		{"Content-Type", fmt.Sprintf("multipart/alternative; boundary=%s", boundary)},
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")

	if textBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(textBody + "\r\n")
	}
	if htmlBody != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(htmlBody + "\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}

// generateContent renders the HTML and text bodies for notification
func (s *SMTPEmailService) generateContent(notification *EmailNotification) (string, string, error) {
	return renderContent(s.templates, notification)
}

func renderContent(templates map[NotificationType]emailTemplate, notification *EmailNotification) (string, string, error) {
	tmpl, ok := templates[notification.Type]
	if !ok {
		return "", "", fmt.Errorf("no template for notification type %s", notification.Type)
	}

	data := map[string]interface{}{"recipient_name": notification.RecipientName}
	for k, v := range notification.TemplateData {
		data[k] = v
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := tmpl.html.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute HTML template: %w", err)
	}
	if err := tmpl.text.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute text template: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

const reservationReceivedHTML = `<h2>ご予約を受け付けました</h2>
<p>{{.recipient_name}} 様</p>
<p>以下の内容でご予約を受け付けました。確定のご連絡まで今しばらくお待ちください。</p>
<table>
<tr><th>予約番号</th><td>{{.reservation_number}}</td></tr>
<tr><th>日時</th><td>{{.date}} {{.time}}</td></tr>
<tr><th>人数</th><td>{{.guests}}</td></tr>
<tr><th>コース</th><td>{{.course}}</td></tr>
<tr><th>ご要望</th><td>{{.requests}}</td></tr>
</table>
<p>ご不明な点はお電話（{{.phone}}）にてお問い合わせください。</p>`

const reservationReceivedText = `{{.recipient_name}} 様

以下の内容でご予約を受け付けました。確定のご連絡まで今しばらくお待ちください。

予約番号: {{.reservation_number}}
日時: {{.date}} {{.time}}
人数: {{.guests}}
コース: {{.course}}
ご要望: {{.requests}}

ご不明な点はお電話（{{.phone}}）にてお問い合わせください。`

const reservationAlertHTML = `<h2>新しいご予約</h2>
<table>
<tr><th>予約番号</th><td>{{.reservation_number}}</td></tr>
<tr><th>日時</th><td>{{.date}} {{.time}}</td></tr>
<tr><th>人数</th><td>{{.guests}}</td></tr>
<tr><th>コース</th><td>{{.course}}</td></tr>
<tr><th>お名前</th><td>{{.name}}（{{.name_kana}}）</td></tr>
<tr><th>メール</th><td>{{.email}}</td></tr>
<tr><th>電話</th><td>{{.customer_phone}}</td></tr>
<tr><th>ご要望</th><td>{{.requests}}</td></tr>
</table>`

const reservationAlertText = `新しいご予約

予約番号: {{.reservation_number}}
日時: {{.date}} {{.time}}
人数: {{.guests}}
コース: {{.course}}
お名前: {{.name}}（{{.name_kana}}）
メール: {{.email}}
電話: {{.customer_phone}}
ご要望: {{.requests}}`

func parseTemplates() (map[NotificationType]emailTemplate, error) {
	sources := map[NotificationType][2]string{
		NotificationTypeReservationReceived: {reservationReceivedHTML, reservationReceivedText},
		NotificationTypeReservationAlert:    {reservationAlertHTML, reservationAlertText},
	}

	templates := make(map[NotificationType]emailTemplate, len(sources))
	for notType, src := range sources {
		html, err := htmltemplate.New(string(notType)).Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", notType, err)
		}
		text, err := texttemplate.New(string(notType)).Parse(src[1])
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", notType, err)
		}
		templates[notType] = emailTemplate{html: html, text: text}
	}
	return templates, nil
}

func (s *SMTPEmailService) loadDefaultTemplates() error {
	templates, err := parseTemplates()
	if err != nil {
		return err
	}
	s.templates = templates
	return nil
}

// LogEmailService writes rendered emails to the log instead of sending them.
// It is used when SMTP is not configured.
type LogEmailService struct {
	templates map[NotificationType]emailTemplate
	log       *logger.Logger
}

func NewLogEmailService() (*LogEmailService, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &LogEmailService{templates: templates, log: logger.GetDefault()}, nil
}

func (s *LogEmailService) SendNotification(ctx context.Context, notification *EmailNotification) error {
	htmlBody, textBody, err := renderContent(s.templates, notification)
	if err != nil {
		return err
	}
	return s.SendHTML(ctx, notification.RecipientEmail, notification.Subject, htmlBody, textBody)
}

func (s *LogEmailService) SendHTML(ctx context.Context, to, subject, htmlBody, textBody string) error {
	s.log.InfoContext(ctx, "Email (not sent, SMTP disabled)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", strings.TrimSpace(textBody)))
	return nil
}
