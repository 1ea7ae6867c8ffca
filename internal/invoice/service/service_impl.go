package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/partnerdesk/internal/audit/domain"
	"github.com/smallbiznis/partnerdesk/internal/config"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	invoicedomain "github.com/smallbiznis/partnerdesk/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	"github.com/smallbiznis/partnerdesk/internal/providers/pdf"
	"github.com/smallbiznis/partnerdesk/pkg/db/option"
	"github.com/smallbiznis/partnerdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pdfRefPrefix = "generated_"

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Issuer   *config.IssuerConfigHolder
	Renderer pdf.Renderer
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	issuer   *config.IssuerConfigHolder
	renderer pdf.Renderer
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics

	invoicerepo repository.Repository[crmdomain.PartnerInvoice]
	partnerrepo repository.Repository[crmdomain.Partner]
	summaryrepo repository.Repository[crmdomain.PeriodSummary]
	settingrepo repository.Repository[crmdomain.CompanySetting]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		issuer:   p.Issuer,
		renderer: p.Renderer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,

		invoicerepo: repository.ProvideStore[crmdomain.PartnerInvoice](p.DB),
		partnerrepo: repository.ProvideStore[crmdomain.Partner](p.DB),
		summaryrepo: repository.ProvideStore[crmdomain.PeriodSummary](p.DB),
		settingrepo: repository.ProvideStore[crmdomain.CompanySetting](p.DB),
	}
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]crmdomain.PartnerInvoice, error) {
	if req.PartnerID <= 0 {
		return nil, invoicedomain.ErrInvalidPartnerID
	}

	sortBy := req.SortBy
	if strings.TrimSpace(sortBy) == "" {
		sortBy = "periode"
	}
	items, err := s.invoicerepo.Find(ctx,
		&crmdomain.PartnerInvoice{PartnerID: req.PartnerID},
		option.WithSortBy(option.WithQuerySortBy(sortBy, req.OrderBy, map[string]bool{
			"periode":    true,
			"date":       true,
			"montant":    true,
			"created_at": true,
		})),
	)
	if err != nil {
		return nil, err
	}

	invoices := make([]crmdomain.PartnerInvoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoices, nil
}

func (s *Service) RenderPDF(ctx context.Context, partnerID int64, invoiceID string) (*invoicedomain.Document, error) {
	if partnerID <= 0 {
		return nil, invoicedomain.ErrInvalidPartnerID
	}
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	invoice, err := s.invoicerepo.FindOne(ctx, &crmdomain.PartnerInvoice{ID: invoiceID, PartnerID: partnerID})
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	partner, err := s.partnerrepo.FindOne(ctx, &crmdomain.Partner{ID: partnerID})
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	summary, err := s.summaryrepo.FindOne(ctx, &crmdomain.PeriodSummary{PartnerID: partnerID, Period: invoice.Period})
	if err != nil {
		return nil, err
	}
	issuer, err := s.issuerConfig(ctx)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.RenderCommissionInvoice(ctx, buildDocument(*invoice, *partner, summary, issuer))
	if err != nil {
		s.metrics.RecordInvoicePDF(ctx, "error")
		s.log.Error("failed to render invoice", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", invoicedomain.ErrRenderFailed, err)
	}

	ref := pdfRefPrefix + ulid.Make().String()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&crmdomain.PartnerInvoice{}).
			Where("id = ?", invoice.ID).
			Update("pdf", ref).Error; err != nil {
			return err
		}
		if s.auditSvc == nil {
			return nil
		}
		return s.auditSvc.WithTx(tx).AuditLog(ctx, "", nil, "partner.invoice.pdf_generated", "partner_invoice", &invoice.ID, map[string]any{
			"partner_id": partnerID,
			"period":     invoice.Period,
			"pdf":        ref,
		})
	})
	if err != nil {
		s.metrics.RecordInvoicePDF(ctx, "error")
		return nil, err
	}

	s.metrics.RecordInvoicePDF(ctx, "success")
	return &invoicedomain.Document{
		InvoiceID: invoice.ID,
		Filename:  "facture_" + slug.Make(invoice.ID) + ".pdf",
		Ref:       ref,
		Content:   content,
	}, nil
}

func (s *Service) issuerConfig(ctx context.Context) (config.IssuerConfig, error) {
	base := config.DefaultIssuerConfig()
	if s.issuer != nil {
		base = s.issuer.Get()
	}

	rows, err := s.settingrepo.Find(ctx, nil)
	if err != nil {
		return config.IssuerConfig{}, err
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		settings[row.Key] = row.Value
	}
	return base.Overlay(settings), nil
}

func buildDocument(invoice crmdomain.PartnerInvoice, partner crmdomain.Partner, summary *crmdomain.PeriodSummary, issuer config.IssuerConfig) pdf.CommissionInvoice {
	billing := partner.BillingCoordinates.Data()
	sellerName := billing.Company
	if sellerName == "" {
		sellerName = partner.Name
	}
	sellerAddress := billing.Address
	if sellerAddress == "" {
		sellerAddress = partner.Address
	}

	revenue := decimal.Zero
	caseCount := 0
	if summary != nil {
		revenue = summary.Revenue
		caseCount = summary.CaseCount
	}

	var legal []string
	if issuer.LegalForm != "" && issuer.Capital != "" {
		legal = append(legal, fmt.Sprintf("%s au capital de %s", issuer.LegalForm, issuer.Capital))
	} else if issuer.LegalForm != "" {
		legal = append(legal, issuer.LegalForm)
	}
	if issuer.RCS != "" {
		legal = append(legal, "RCS "+issuer.RCS)
	}
	if issuer.VAT != "" {
		legal = append(legal, "TVA "+issuer.VAT)
	}

	return pdf.CommissionInvoice{
		Number:    invoice.ID,
		IssueDate: invoice.Date.UTC().Format("02/01/2006"),
		DueDate:   invoice.DueDate.UTC().Format("02/01/2006"),
		Period:    invoice.Period,
		Status:    statusLabel(invoice.Status),
		Seller: pdf.Party{
			Name:    sellerName,
			Address: sellerAddress,
			Email:   billing.Email,
			Phone:   billing.Phone,
			SIRET:   billing.SIRET,
		},
		BillTo: pdf.Party{
			Name:    issuer.CompanyName,
			Address: issuer.Address,
			Email:   issuer.Email,
			Phone:   issuer.Phone,
			SIRET:   issuer.SIRET,
		},
		CaseCount:    caseCount,
		Revenue:      formatEUR(revenue),
		Rate:         strings.Replace(partner.CommissionRate.StringFixed(2), ".", ",", 1),
		Amount:       formatEUR(invoice.Amount),
		TotalExclTax: formatEUR(invoice.Amount),
		VAT:          formatEUR(decimal.Zero),
		TotalInclTax: formatEUR(invoice.Amount),
		Payment: pdf.PaymentDetails{
			Terms:       issuer.PaymentTerms,
			IBAN:        issuer.BankIBAN,
			BIC:         issuer.BankBIC,
			Holder:      issuer.BankHolder,
			LatePenalty: issuer.LatePenalty,
		},
		Legal: legal,
	}
}

func statusLabel(status crmdomain.InvoiceStatus) string {
	switch status {
	case crmdomain.InvoiceStatusPaid:
		return "Payée"
	case crmdomain.InvoiceStatusDraft:
		return "Brouillon"
	default:
		return string(status)
	}
}

// formatEUR renders 1500.5 as "1 500,50 €".
func formatEUR(d decimal.Decimal) string {
	raw := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	b.WriteString(" €")
	return b.String()
}
