package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() InvoiceMessage {
	return InvoiceMessage{
		To:            "billing@client.test",
		ClientName:    "Globex",
		TenantName:    "Acme Studio",
		InvoiceNumber: "INV-0042",
		InvoiceID:     "abc",
		Currency:      "USD",
		IssueDate:     "2026-01-05",
		DueDate:       "2026-01-19",
		Subtotal:      "200.00",
		Discount:      "20.00",
		TaxLabel:      "VAT",
		Tax:           "28.80",
		Total:         "208.80",
		Lines: []InvoiceLine{
			{Description: "Design <sprint>", Quantity: "2", UnitPrice: "100.00", Amount: "200.00"},
		},
	}
}

func TestSendInvoiceRendersSummary(t *testing.T) {
	svc := NewEmailService(EmailConfig{
		SMTPHost:    "smtp.test",
		SMTPPort:    2525,
		FromName:    "Invoicely",
		FromEmail:   "no-reply@invoicely.test",
		FrontendURL: "https://app.invoicely.test/",
	})

	var gotAddr string
	var gotTo []string
	var gotBody string
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, svc.SendInvoice(context.Background(), testMessage()))

	assert.Equal(t, "smtp.test:2525", gotAddr)
	assert.Equal(t, []string{"billing@client.test"}, gotTo)
	assert.Contains(t, gotBody, "Subject: Invoice INV-0042 from Acme Studio")
	assert.Contains(t, gotBody, "USD 208.80")
	assert.Contains(t, gotBody, "Design &lt;sprint&gt;")
	assert.Contains(t, gotBody, "https://app.invoicely.test/invoices/abc")
}

func TestSendInvoiceErrors(t *testing.T) {
	unconfigured := NewEmailService(EmailConfig{})
	assert.Error(t, unconfigured.SendInvoice(context.Background(), testMessage()))

	svc := NewEmailService(EmailConfig{SMTPHost: "smtp.test", FromEmail: "a@b.test"})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("dial failed") }
	err := svc.SendInvoice(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial failed")
}
