package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"github.com/smallbiznis/partnerdesk/internal/settlement/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindPartnerRate(ctx context.Context, db *gorm.DB, partnerID int64) (*decimal.Decimal, error) {
	var rates []decimal.Decimal
	err := db.WithContext(ctx).
		Model(&crmdomain.Partner{}).
		Where("id = ?", partnerID).
		Limit(1).
		Pluck("taux_commission", &rates).Error
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, nil
	}
	return &rates[0], nil
}

func (r *repo) ListPartnerIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&crmdomain.Partner{}).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}

type paidCaseRow struct {
	CaseID         int64
	CreatedOn      time.Time
	EffectiveOn    *time.Time
	PaymentService datatypes.JSONType[crmdomain.PaymentService]
}

// ListPaidCases returns the cases whose effective date, the effective
// creation date when set and the creation date otherwise, is in [start, end).
func (r *repo) ListPaidCases(ctx context.Context, db *gorm.DB, partnerID int64, start, end time.Time) ([]domain.PaidCase, error) {
	start, end = start.UTC(), end.UTC()

	var rows []paidCaseRow
	err := db.WithContext(ctx).
		Table("dossiers AS d").
		Select(`d.id AS case_id,
			d.date_creation AS created_on,
			d.date_creation_effective AS effective_on,
			e.service_paiement AS payment_service`).
		Joins("JOIN entreprises e ON e.id = d.entreprise_id").
		Where("d.partenaire_id = ?", partnerID).
		Where(datatypes.JSONQuery("e.service_paiement").Equals(string(crmdomain.PaymentStatusPaid), "statut")).
		Where(
			"((d.date_creation_effective IS NOT NULL AND d.date_creation_effective >= ? AND d.date_creation_effective < ?) OR "+
				"(d.date_creation_effective IS NULL AND d.date_creation >= ? AND d.date_creation < ?))",
			start, end, start, end,
		).
		Order("d.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.PaidCase, 0, len(rows))
	for _, row := range rows {
		payment := row.PaymentService.Data()
		if !payment.IsPaid() {
			continue
		}
		effective := row.CreatedOn
		if row.EffectiveOn != nil {
			effective = *row.EffectiveOn
		}
		effective = effective.UTC()
		if effective.Before(start) || !effective.Before(end) {
			continue
		}
		out = append(out, domain.PaidCase{
			CaseID:         row.CaseID,
			EffectiveOn:    effective,
			PaymentService: payment,
		})
	}
	return out, nil
}

func (r *repo) UpsertPeriodSummary(ctx context.Context, db *gorm.DB, summary *crmdomain.PeriodSummary) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partenaire_id"}, {Name: "periode"}},
			DoUpdates: clause.AssignmentColumns([]string{"ca", "dossiers", "commissions", "updated_at"}),
		}).
		Create(summary).Error
}

func (r *repo) UpsertInvoice(ctx context.Context, db *gorm.DB, in domain.InvoiceUpsert) (string, error) {
	invoice := crmdomain.PartnerInvoice{
		ID:        in.CandidateID,
		PartnerID: in.PartnerID,
		Period:    in.Period,
		Amount:    in.Amount,
		Date:      in.Date,
		DueDate:   in.Date,
		Status:    in.Status,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partenaire_id"}, {Name: "periode"}},
			DoUpdates: clause.AssignmentColumns([]string{"montant", "date", "statut", "echeance", "updated_at"}),
		}).
		Create(&invoice).Error
	if err != nil {
		return "", err
	}

	var ids []string
	err = db.WithContext(ctx).
		Model(&crmdomain.PartnerInvoice{}).
		Where("partenaire_id = ? AND periode = ?", in.PartnerID, in.Period).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		// MySQL resolves ON DUPLICATE KEY against the primary key as well,
		// so the write went to the row that already owns CandidateID.
		return "", domain.ErrInvoiceIDCollision
	}
	return ids[0], nil
}
