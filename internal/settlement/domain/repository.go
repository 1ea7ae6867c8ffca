package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"gorm.io/gorm"
)

// PaidCase is a case whose company reported a paid service in the window.
type PaidCase struct {
	CaseID         int64
	EffectiveOn    time.Time
	PaymentService crmdomain.PaymentService
}

type InvoiceUpsert struct {
	CandidateID string
	PartnerID   int64
	Period      string
	Amount      decimal.Decimal
	Date        time.Time
	Status      crmdomain.InvoiceStatus
}

type Repository interface {
	FindPartnerRate(ctx context.Context, db *gorm.DB, partnerID int64) (*decimal.Decimal, error)
	ListPartnerIDs(ctx context.Context, db *gorm.DB) ([]int64, error)
	ListPaidCases(ctx context.Context, db *gorm.DB, partnerID int64, start, end time.Time) ([]PaidCase, error)
	UpsertPeriodSummary(ctx context.Context, db *gorm.DB, summary *crmdomain.PeriodSummary) error
	// UpsertInvoice returns the id of the row that owns (partner, period)
	// after the write; CandidateID is only used when inserting.
	UpsertInvoice(ctx context.Context, db *gorm.DB, in InvoiceUpsert) (string, error)
}
