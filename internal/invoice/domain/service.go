package domain

import (
	"context"
	"errors"

	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
)

type Service interface {
	List(ctx context.Context, req ListInvoiceRequest) ([]crmdomain.PartnerInvoice, error)
	RenderPDF(ctx context.Context, partnerID int64, invoiceID string) (*Document, error)
}

var (
	ErrInvalidPartnerID = errors.New("invalid_partner_id")
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrRenderFailed     = errors.New("invoice_render_failed")
)
