package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/partnerdesk/internal/config"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	invoicedomain "github.com/smallbiznis/partnerdesk/internal/invoice/domain"
	"github.com/smallbiznis/partnerdesk/internal/providers/pdf"
	"github.com/smallbiznis/partnerdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type captureRenderer struct {
	got  *pdf.CommissionInvoice
	err  error
	body []byte
}

func (r *captureRenderer) RenderCommissionInvoice(ctx context.Context, data pdf.CommissionInvoice) ([]byte, error) {
	r.got = &data
	if r.err != nil {
		return nil, r.err
	}
	return r.body, nil
}

func setupInvoiceService(t *testing.T, renderer pdf.Renderer) (invoicedomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		Issuer:   config.NewStaticIssuerConfigHolder(config.DefaultIssuerConfig()),
		Renderer: renderer,
	})
	return svc, db
}

func seedInvoice(t *testing.T, db *gorm.DB, partnerID int64, id, period string) crmdomain.PartnerInvoice {
	t.Helper()
	date := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	inv := crmdomain.PartnerInvoice{
		ID:        id,
		PartnerID: partnerID,
		Period:    period,
		Amount:    decimal.RequireFromString("225"),
		Date:      date,
		DueDate:   date,
		Status:    crmdomain.InvoiceStatusPaid,
	}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}

func TestRenderPDFUsesPartnerAndIssuerBlocks(t *testing.T) {
	renderer := &captureRenderer{body: []byte("%PDF-1.3")}
	svc, db := setupInvoiceService(t, renderer)
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	inv := seedInvoice(t, db, partner.ID, "F202506-1-123456", "2025-06")
	require.NoError(t, db.Create(&crmdomain.PeriodSummary{
		PartnerID:   partner.ID,
		Period:      "2025-06",
		Revenue:     decimal.RequireFromString("1500"),
		CaseCount:   3,
		Commissions: decimal.RequireFromString("225"),
	}).Error)
	require.NoError(t, db.Create(&[]crmdomain.CompanySetting{
		{Key: "company_name", Value: "Acme Formalités"},
		{Key: "bank_iban", Value: "FR76 0000"},
	}).Error)

	doc, err := svc.RenderPDF(context.Background(), partner.ID, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, "facture_f202506-1-123456.pdf", doc.Filename)
	assert.True(t, strings.HasPrefix(doc.Ref, "generated_"))
	assert.Equal(t, []byte("%PDF-1.3"), doc.Content)

	require.NotNil(t, renderer.got)
	assert.Equal(t, "Cabinet Dupont", renderer.got.Seller.Name)
	assert.Equal(t, "41234567800017", renderer.got.Seller.SIRET)
	assert.Equal(t, "Acme Formalités", renderer.got.BillTo.Name)
	assert.Equal(t, "FR76 0000", renderer.got.Payment.IBAN)
	assert.Equal(t, "Paiement à réception", renderer.got.Payment.Terms)
	assert.Equal(t, "1 500,00 €", renderer.got.Revenue)
	assert.Equal(t, "225,00 €", renderer.got.TotalInclTax)
	assert.Equal(t, "15,00", renderer.got.Rate)
	assert.Equal(t, 3, renderer.got.CaseCount)
	assert.Equal(t, "30/06/2025", renderer.got.IssueDate)
	assert.Equal(t, "Payée", renderer.got.Status)

	var stored crmdomain.PartnerInvoice
	require.NoError(t, db.Where("id = ?", inv.ID).First(&stored).Error)
	require.NotNil(t, stored.PDF)
	assert.Equal(t, doc.Ref, *stored.PDF)
}

func TestRenderPDFScopesToPartner(t *testing.T) {
	svc, db := setupInvoiceService(t, &captureRenderer{})
	owner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	other := testutil.CreatePartner(t, db, "Expert Lyon", "20")
	inv := seedInvoice(t, db, owner.ID, "F202506-1-123456", "2025-06")

	_, err := svc.RenderPDF(context.Background(), other.ID, inv.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	_, err = svc.RenderPDF(context.Background(), owner.ID, " ")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestRenderPDFFailureLeavesReferenceUnset(t *testing.T) {
	svc, db := setupInvoiceService(t, &captureRenderer{err: errors.New("font missing")})
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	inv := seedInvoice(t, db, partner.ID, "F202506-1-123456", "2025-06")

	_, err := svc.RenderPDF(context.Background(), partner.ID, inv.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrRenderFailed)

	var stored crmdomain.PartnerInvoice
	require.NoError(t, db.Where("id = ?", inv.ID).First(&stored).Error)
	assert.Nil(t, stored.PDF)
}

func TestListOrdersByPeriod(t *testing.T) {
	svc, db := setupInvoiceService(t, &captureRenderer{})
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedInvoice(t, db, partner.ID, "F202504-1-100001", "2025-04")
	seedInvoice(t, db, partner.ID, "F202506-1-100002", "2025-06")
	seedInvoice(t, db, partner.ID, "F202505-1-100003", "2025-05")

	items, err := svc.List(context.Background(), invoicedomain.ListInvoiceRequest{PartnerID: partner.ID})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "2025-06", items[0].Period)
	assert.Equal(t, "2025-04", items[2].Period)

	asc, err := svc.List(context.Background(), invoicedomain.ListInvoiceRequest{PartnerID: partner.ID, OrderBy: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "2025-04", asc[0].Period)

	_, err = svc.List(context.Background(), invoicedomain.ListInvoiceRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPartnerID)
}

func TestFormatEUR(t *testing.T) {
	cases := map[string]string{
		"0":         "0,00 €",
		"5.5":       "5,50 €",
		"999.999":   "1 000,00 €",
		"1500":      "1 500,00 €",
		"1234567.8": "1 234 567,80 €",
		"-42":       "-42,00 €",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatEUR(decimal.RequireFromString(in)), in)
	}
}
