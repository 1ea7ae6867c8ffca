package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() CommissionInvoice {
	return CommissionInvoice{
		Number:    "F202506-7-123456",
		IssueDate: "30/06/2025",
		DueDate:   "30/06/2025",
		Period:    "2025-06",
		Status:    "Payée",
		Seller: Party{
			Name:    "Cabinet Dupont",
			Address: "12 rue des Lilas, 75011 Paris",
			Email:   "factures@dupont.test",
			SIRET:   "41234567800017",
		},
		BillTo:       Party{Name: "Formalités & Co"},
		CaseCount:    3,
		Revenue:      "1 500,00 €",
		Rate:         "15,00",
		Amount:       "225,00 €",
		TotalExclTax: "225,00 €",
		VAT:          "0,00 €",
		TotalInclTax: "225,00 €",
		Payment:      PaymentDetails{Terms: "Paiement à réception", IBAN: "FR76 3000 6000 0112 3456 7890 189"},
		Legal:        []string{"SAS au capital de 10 000 €", "RCS Paris 123 456 789"},
	}
}

func TestRenderCommissionInvoiceProducesPDF(t *testing.T) {
	out, err := New().RenderCommissionInvoice(context.Background(), sampleInvoice())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderCommissionInvoiceRequiresNumber(t *testing.T) {
	inv := sampleInvoice()
	inv.Number = " "
	_, err := New().RenderCommissionInvoice(context.Background(), inv)
	assert.Error(t, err)
}

func TestRenderCommissionInvoiceHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().RenderCommissionInvoice(ctx, sampleInvoice())
	assert.ErrorIs(t, err, context.Canceled)
}
