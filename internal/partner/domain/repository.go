package domain

import (
	"context"
	"time"

	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"gorm.io/gorm"
)

type Repository interface {
	FindPartner(ctx context.Context, db *gorm.DB, partnerID int64) (*crmdomain.Partner, error)
	ListPeriodSummaries(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.PeriodSummary, error)
	ListInvoices(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.PartnerInvoice, error)
	ListUsers(ctx context.Context, db *gorm.DB, partnerID int64, orderBy string) ([]crmdomain.PartnerUser, error)
	ListCases(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.Case, error)
	ListExports(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.PartnerExport, error)

	ListClients(ctx context.Context, db *gorm.DB, filter ClientFilter) ([]ClientRecord, error)

	ListInteractions(ctx context.Context, db *gorm.DB, filter InteractionFilter) ([]Interaction, error)
	ListPendingActions(ctx context.Context, db *gorm.DB, partnerID int64, today time.Time, limit int) ([]PendingAction, error)
	InteractionStats(ctx context.Context, db *gorm.DB, partnerID int64, since time.Time) (InteractionStats, error)
	ListParticipants(ctx context.Context, db *gorm.DB, partnerID int64) ([]string, error)
	InsertInteraction(ctx context.Context, db *gorm.DB, interaction *Interaction) error
}
