package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

// InvoiceLine is one row of the emailed invoice summary.
type InvoiceLine struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

// InvoiceMessage is the data rendered into an invoice email.
type InvoiceMessage struct {
	To            string
	ClientName    string
	TenantName    string
	InvoiceNumber string
	InvoiceID     string
	Currency      string
	IssueDate     string
	DueDate       string
	Subtotal      string
	Discount      string
	TaxLabel      string
	Tax           string
	Total         string
	Notes         string
	Lines         []InvoiceLine
}

// InvoiceSender delivers invoice emails to clients.
type InvoiceSender interface {
	SendInvoice(ctx context.Context, msg InvoiceMessage) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService handles email sending
type EmailService struct {
	config EmailConfig
	send   sendFunc
	tmpl   *template.Template
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{
		config: config,
		send:   smtp.SendMail,
		tmpl:   template.Must(template.New("invoice").Parse(invoiceTemplate)),
	}
}

// IsConfigured reports whether an SMTP host and sender are set.
func (s *EmailService) IsConfigured() bool {
	return s.config.SMTPHost != "" && s.config.FromEmail != ""
}

// SendInvoice emails the invoice summary to msg.To.
func (s *EmailService) SendInvoice(ctx context.Context, msg InvoiceMessage) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := s.renderInvoice(msg)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Invoice %s from %s", msg.InvoiceNumber, msg.TenantName)
	return s.sendEmail(msg.To, s.buildHTMLEmail(msg.To, subject, body))
}

func (s *EmailService) sendEmail(to string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	if err := s.send(addr, auth, s.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailService) buildHTMLEmail(to, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		to,
		subject,
	)

	return []byte(headers + htmlBody)
}

func (s *EmailService) renderInvoice(msg InvoiceMessage) (string, error) {
	data := struct {
		InvoiceMessage
		ViewURL string
	}{InvoiceMessage: msg}
	if s.config.FrontendURL != "" && msg.InvoiceID != "" {
		data.ViewURL = strings.TrimRight(s.config.FrontendURL, "/") + "/invoices/" + msg.InvoiceID
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const invoiceTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
    <table role="presentation" style="max-width: 640px; margin: 40px auto; background-color: #ffffff; border-radius: 12px; border-collapse: collapse;">
        <tr>
            <td style="background-color: #1a1a2e; padding: 32px; color: #ffffff;">
                <h1 style="margin: 0; font-size: 24px;">{{.TenantName}}</h1>
                <p style="margin: 8px 0 0 0;">Invoice {{.InvoiceNumber}}</p>
            </td>
        </tr>
        <tr>
            <td style="padding: 32px; color: #4a5568; font-size: 15px;">
                <p>Hello {{.ClientName}},</p>
                <p>Please find your invoice below. Issued {{.IssueDate}}, due <strong>{{.DueDate}}</strong>.</p>
                <table style="width: 100%; border-collapse: collapse; margin: 24px 0;">
                    <tr style="text-align: left; border-bottom: 1px solid #e2e8f0;">
                        <th>Description</th><th>Qty</th><th>Unit price</th><th style="text-align: right;">Amount</th>
                    </tr>
                    {{range .Lines}}
                    <tr style="border-bottom: 1px solid #edf2f7;">
                        <td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td style="text-align: right;">{{.Amount}}</td>
                    </tr>
                    {{end}}
                </table>
                <table style="width: 100%; border-collapse: collapse;">
                    <tr><td>Subtotal</td><td style="text-align: right;">{{.Currency}} {{.Subtotal}}</td></tr>
                    <tr><td>Discount</td><td style="text-align: right;">-{{.Currency}} {{.Discount}}</td></tr>
                    <tr><td>{{.TaxLabel}}</td><td style="text-align: right;">{{.Currency}} {{.Tax}}</td></tr>
                    <tr style="font-weight: 600;"><td>Total</td><td style="text-align: right;">{{.Currency}} {{.Total}}</td></tr>
                </table>
                {{if .Notes}}<p style="margin-top: 24px;">{{.Notes}}</p>{{end}}
                {{if .ViewURL}}<p style="margin-top: 24px;"><a href="{{.ViewURL}}" style="color: #667eea;">View invoice online</a></p>{{end}}
            </td>
        </tr>
    </table>
</body>
</html>
`
